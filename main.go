package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/pipify/server/config"
	"github.com/pipify/server/handlers"
	"github.com/pipify/server/middleware"
	"github.com/pipify/server/scheduler"
	"github.com/pipify/server/service"
	"github.com/pipify/server/store"
	"github.com/pipify/server/utils"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	log := newLogger(os.Getenv("LOG_LEVEL"))

	if err := config.ValidateEnv(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx := context.Background()
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb")
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongodb disconnect")
		}
	}()
	if err := db.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("mongodb indexes")
	}

	s3Service, err := service.NewS3Service(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey)
	if err != nil {
		log.Fatal().Err(err).Msg("s3")
	}

	mailer := service.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, log)

	maxBytes := cfg.MaxUploadMB * 1024 * 1024
	authHandler := &handlers.AuthHandler{
		Store:              db,
		VerificationTokens: store.NewTokenStore(db.VerificationTokens(), log),
		ResetTokens:        store.NewTokenStore(db.ResetTokens(), log),
		Mail:               mailer,
		Storage:            s3Service,
		JWTSecret:          cfg.JWTSecret,
		PasswordResetLink:  cfg.PasswordResetLink,
		SignInURL:          cfg.SignInURL,
		GenerateOTP:        utils.GenerateOTP,
		GenerateResetToken: utils.GenerateResetToken,
		MaxBytes:           maxBytes,
	}
	profileHandler := &handlers.ProfileHandler{Store: db}
	favouriteHandler := &handlers.FavouriteHandler{Store: db}
	musicHandler := &handlers.MusicHandler{DB: db, Storage: s3Service, MaxBytes: maxBytes}
	playlistHandler := &handlers.PlaylistHandler{DB: db}
	historyHandler := &handlers.HistoryHandler{DB: db}

	generator := &scheduler.PlaylistGenerator{DB: db, Log: log}
	cronJobs := generator.Start()
	defer cronJobs.Stop()

	r := chi.NewRouter()
	r.Use(middleware.AllowAll())
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/signup", authHandler.SignUp)
		r.Post("/auth/verify-email", authHandler.VerifyEmail)
		r.Post("/auth/re-verify-email", authHandler.ReVerifyEmail)
		r.Post("/auth/sign-in", authHandler.SignIn)
		r.Post("/auth/forget-password", authHandler.ForgetPassword)
		r.Post("/auth/verify-password-reset-token", authHandler.VerifyResetToken)
		r.Post("/auth/update-password", authHandler.UpdatePassword)

		r.Get("/music/latest", musicHandler.Latest)

		r.Get("/profile/uploads/{profileId}", profileHandler.GetPublicUploads)
		r.Get("/profile/info/{profileId}", profileHandler.GetPublicProfile)
		r.Get("/profile/playlist/{profileId}", profileHandler.GetPublicPlaylists)
		r.Get("/profile/recommended", profileHandler.GetRecommended)

		// Signed-in routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret, db))

			r.Get("/auth/profile", authHandler.Profile)
			r.Post("/auth/update-profile", authHandler.UpdateProfile)
			r.Post("/auth/sign-out", authHandler.SignOut)

			r.Get("/profile/uploads", profileHandler.GetUploads)

			r.Get("/favourite", favouriteHandler.List)
			r.Get("/favourite/is-favourite", favouriteHandler.IsFavourite)

			r.Get("/playlist", playlistHandler.List)
			r.Get("/playlist/{playlistId}", playlistHandler.GetMusics)

			r.Delete("/history", historyHandler.Remove)
			r.Get("/history", historyHandler.List)
			r.Get("/history/recently-played", historyHandler.RecentlyPlayed)

			// Verified-only routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireVerified)

				r.Post("/profile/update-follower/{profileId}", profileHandler.UpdateFollower)

				r.Post("/favourite", favouriteHandler.Toggle)
				r.Post("/history", historyHandler.Record)

				r.Post("/music/upload", musicHandler.Upload)
				r.Patch("/music/{musicId}", musicHandler.Update)

				r.Post("/playlist/create", playlistHandler.Create)
				r.Patch("/playlist/update", playlistHandler.Update)
				r.Delete("/playlist", playlistHandler.Remove)
			})
		})
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}
