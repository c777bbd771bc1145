package scheduler

import (
	"context"
	"time"

	"github.com/pipify/server/store"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// PlaylistGenerator rebuilds the auto-generated playlists: it samples a
// bounded random subset of tracks, groups them by category and replaces
// each category playlist wholesale. It is the only writer of
// auto-generated playlists.
type PlaylistGenerator struct {
	DB         *store.DB
	Log        zerolog.Logger
	SampleSize int64
}

// Run executes one generation pass. Upserts are keyed per category, so
// overlapping runs interleave safely.
func (g *PlaylistGenerator) Run(ctx context.Context) error {
	size := g.SampleSize
	if size <= 0 {
		size = 10
	}
	samples, err := g.DB.SampleByCategory(ctx, size)
	if err != nil {
		return err
	}
	for _, s := range samples {
		if err := g.DB.UpsertAutoPlaylist(ctx, s.Category, s.Items); err != nil {
			return err
		}
	}
	g.Log.Info().Int("categories", len(samples)).Msg("auto playlists regenerated")
	return nil
}

// Start schedules the daily run at midnight and returns the cron so the
// caller can stop it on shutdown.
func (g *PlaylistGenerator) Start() *cron.Cron {
	c := cron.New()
	c.AddFunc("0 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := g.Run(ctx); err != nil {
			g.Log.Error().Err(err).Msg("auto playlist generation failed")
		}
	})
	c.Start()
	return c
}
