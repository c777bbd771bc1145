package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pipify/server/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const (
	profileKey contextKey = "profile"
	tokenKey   contextKey = "token"
)

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// UserResolver resolves a user only when the presented token is in their
// current token list. A nil user means the token was revoked (or the user
// is gone) even though its signature is still valid.
type UserResolver interface {
	UserByIDAndToken(ctx context.Context, id primitive.ObjectID, token string) (*models.User, error)
}

// Auth validates the bearer token: 401 for a missing/malformed/expired
// token, 403 when the token is well-formed but absent from the user's
// token list (per-device revocation). On success the resolved profile and
// the raw token are attached to the request context.
func Auth(jwtSecret string, resolver UserResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(auth, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, `{"error":"unauthorized access"}`, http.StatusUnauthorized)
				return
			}
			token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(t *jwt.Token) (interface{}, error) {
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}
			claims, ok := token.Claims.(*Claims)
			if !ok {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			userID, err := primitive.ObjectIDFromHex(claims.UserID)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			user, err := resolver.UserByIDAndToken(r.Context(), userID, parts[1])
			if err != nil {
				http.Error(w, `{"error":"something went wrong"}`, http.StatusInternalServerError)
				return
			}
			if user == nil {
				http.Error(w, `{"error":"unauthorized access"}`, http.StatusForbidden)
				return
			}
			ctx := WithProfile(r.Context(), user.Profile())
			ctx = WithToken(ctx, parts[1])
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireVerified gates routes behind the one-way unverified → verified
// transition.
func RequireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile, ok := ProfileFromContext(r.Context())
		if !ok || !profile.Verified {
			http.Error(w, `{"error":"unauthorized access, unverified user"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithProfile returns a context carrying the authenticated profile.
func WithProfile(ctx context.Context, p models.Profile) context.Context {
	return context.WithValue(ctx, profileKey, p)
}

// WithToken returns a context carrying the raw session token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

func ProfileFromContext(ctx context.Context) (models.Profile, bool) {
	p, ok := ctx.Value(profileKey).(models.Profile)
	return p, ok
}

func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey).(string)
	return t, ok
}
