package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"bonlog/internal/auth"
	"bonlog/internal/config"
	"bonlog/internal/database"
	"bonlog/internal/database/boltstore"
	"bonlog/internal/email"
	"bonlog/internal/feed"
	"bonlog/internal/handlers"
	"bonlog/internal/loginlimit"
	"bonlog/internal/metrics"
	"bonlog/internal/models"
	"bonlog/internal/moderation"
	"bonlog/internal/publisher"
	"bonlog/internal/routing"
	"bonlog/internal/seclog"
	"bonlog/internal/tracing"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	// Configure zerolog
	// Set log level from environment (default: info)
	logLevel := os.Getenv("LOG_LEVEL")
	switch logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Use pretty console logging in development, JSON in production
	if os.Getenv("LOG_FORMAT") == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Optional .env for local development; the environment wins over the file
	if err := godotenv.Load(); err == nil {
		log.Info().Msg("Loaded .env file")
	}

	log.Info().Msg("Starting bonlog server")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("Failed to open database")
	}
	log.Info().Str("path", cfg.DBPath).Msg("Database opened")

	store, err := boltstore.Open(boltstore.Options{Path: cfg.TrackerDBPath})
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.TrackerDBPath).Msg("Failed to open tracker database")
	}
	defer store.Close()
	log.Info().Str("path", cfg.TrackerDBPath).Msg("Tracker database opened")

	events := seclog.New(os.Stdout, cfg.Environment)

	tracker := loginlimit.NewTracker(store.AttemptStore(), events, loginlimit.Options{
		MaxFailures: cfg.LoginMaxFailures,
		Window:      cfg.LoginWindow,
		Lockout:     cfg.LoginLockout,
	})

	// Tracing is opt-in; without an endpoint the global no-op provider stays.
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		tp, err := tracing.Init(context.Background())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracing")
		}
		defer tp.Shutdown(context.Background())
		log.Info().Msg("Tracing initialized")
	}

	mailer := email.NewSender(email.Config{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		User:       cfg.SMTPUser,
		Pass:       cfg.SMTPPass,
		From:       cfg.SMTPFrom,
		AdminEmail: cfg.AdminEmail,
	})
	if mailer.Enabled() {
		log.Info().Str("host", cfg.SMTPHost).Msg("Alert mail enabled")
	}

	authService := auth.NewService(db, store.SessionStore(), tracker, events, cfg.SessionTTL)
	feedService := feed.NewService(db)
	moderationService := moderation.NewService(db, events, cfg.AutoHideThreshold).WithMailer(mailer)
	pub := publisher.New(db)

	// Bootstrap grant for a fresh database. Later grants go through the
	// admin console.
	if cfg.AdminEmail != "" {
		bootstrapAdmin(db, moderationService, cfg.AdminEmail)
	}

	// Background maintenance: expired sessions, stale attempt records, and
	// the periodic gauge refresh.
	stopSessionCleanup := store.SessionStore().StartCleanupRoutine(10 * time.Minute)
	defer stopSessionCleanup()
	stopAttemptSweep := store.AttemptStore().StartSweepRoutine(10*time.Minute, cfg.LoginWindow)
	defer stopAttemptSweep()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feeder := &gaugeFeeder{mod: moderationService}
	metrics.StartCollector(ctx, feeder.source(), time.Minute)

	secureCookies := os.Getenv("SECURE_COOKIES") == "true"

	h := handlers.NewHandler(
		authService,
		feedService,
		moderationService,
		pub,
		events,
		handlers.Config{
			SecureCookies: secureCookies,
			CronSecret:    cfg.CronSecret,
		},
	)

	handler := routing.SetupRouter(routing.Config{
		Handlers: h,
		Logger:   log.Logger,
		Events:   events,
	})

	log.Info().
		Str("address", "0.0.0.0:"+cfg.Port).
		Str("environment", cfg.Environment).
		Bool("secure_cookies", secureCookies).
		Bool("publish_endpoint", cfg.CronSecret != "").
		Msg("Starting HTTP server")

	if err := http.ListenAndServe("0.0.0.0:"+cfg.Port, handler); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}
}

// bootstrapAdmin grants admin to the configured account if it exists.
// A missing account is logged, not fatal; the operator may not have
// registered yet.
func bootstrapAdmin(db *gorm.DB, mod *moderation.Service, addr string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	err := db.WithContext(ctx).Where("email = ?", addr).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn().Str("email", addr).Msg("Bootstrap admin account not registered yet")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to look up bootstrap admin")
		return
	}

	// AdminID 0 marks system actions in the audit log.
	if err := mod.GrantAdmin(ctx, 0, user.ID, "bootstrap grant from configuration"); err != nil {
		log.Error().Err(err).Msg("Failed to grant bootstrap admin")
		return
	}
	log.Info().Str("email", addr).Uint("user_id", user.ID).Msg("Bootstrap admin granted")
}

// gaugeFeeder adapts moderation stats to the metrics collector. One
// snapshot serves all gauges for a tick; on a failed refresh the gauges
// keep their last values.
type gaugeFeeder struct {
	mod     *moderation.Service
	mu      sync.Mutex
	stats   moderation.Stats
	fetched time.Time
}

func (g *gaugeFeeder) snapshot() moderation.Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	if time.Since(g.fetched) < 30*time.Second {
		return g.stats
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stats, err := g.mod.CollectStats(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to collect stats for metrics")
		return g.stats
	}
	g.stats = *stats
	g.fetched = time.Now()
	return g.stats
}

func (g *gaugeFeeder) source() metrics.StatsSource {
	count := func(pick func(moderation.Stats) int64) func() int {
		return func() int { return int(pick(g.snapshot())) }
	}
	return metrics.StatsSource{
		UserCount:             count(func(s moderation.Stats) int64 { return s.Users }),
		PostCount:             count(func(s moderation.Stats) int64 { return s.Posts }),
		HiddenContentCount:    count(func(s moderation.Stats) int64 { return s.HiddenContent }),
		PendingReportCount:    count(func(s moderation.Stats) int64 { return s.PendingReports }),
		OpenNotificationCount: count(func(s moderation.Stats) int64 { return s.OpenNotifications }),
		PendingScheduledCount: count(func(s moderation.Stats) int64 { return s.PendingScheduled }),
	}
}
