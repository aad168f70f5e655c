// Command publisher runs the scheduled-post publisher on an interval, for
// deployments without an external cron hitting the publish endpoint. It is
// safe to run alongside the server: due rows are claimed before publishing,
// so concurrent runners never double-publish.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bonlog/internal/config"
	"bonlog/internal/database"
	"bonlog/internal/publisher"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := godotenv.Load(); err == nil {
		log.Info().Msg("Loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	interval := time.Minute
	if v := os.Getenv("BONLOG_PUBLISH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatal().Str("value", v).Msg("Invalid BONLOG_PUBLISH_INTERVAL")
		}
		interval = d
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("Failed to open database")
	}

	pub := publisher.New(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Dur("interval", interval).Msg("Publisher worker started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := pub.PublishDue(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Publish pass failed")
		} else if res.Published > 0 || res.Failed > 0 {
			log.Info().
				Int("published", res.Published).
				Int("failed", res.Failed).
				Msg("Publish pass complete")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("Publisher worker stopping")
			return
		case <-ticker.C:
		}
	}
}
