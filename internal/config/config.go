// Package config reads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds everything the server needs at startup. Values come from
// environment variables; zero-config startup works for local development.
type Config struct {
	// Port the HTTP server listens on.
	Port string

	// DBPath is the sqlite database file for relational data.
	DBPath string

	// TrackerDBPath is the bbolt database file for login-attempt tracking
	// and sessions. Kept separate from the relational store so an outage
	// in one cannot take down the other.
	TrackerDBPath string

	// Environment tag attached to security log lines (e.g. "production").
	Environment string

	// AutoHideThreshold is the report count at which content is hidden
	// pending admin review.
	AutoHideThreshold int

	// LoginMaxFailures is the failed-login count that triggers a lockout.
	LoginMaxFailures int

	// LoginWindow is the rolling window failures are counted in.
	LoginWindow time.Duration

	// LoginLockout is how long a locked key stays blocked.
	LoginLockout time.Duration

	// SessionTTL is how long session tokens stay valid.
	SessionTTL time.Duration

	// CronSecret authenticates the internal scheduled-post publish trigger.
	// Empty disables the endpoint.
	CronSecret string

	// AdminEmail, when set, is granted admin on startup. Bootstrap for a
	// fresh database; later grants happen through the console.
	AdminEmail string

	// SMTP settings for operator alert mail. An empty host disables it.
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

// Load builds a Config from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              envOr("PORT", "8080"),
		DBPath:            envOr("BONLOG_DB_PATH", "bonlog.db"),
		TrackerDBPath:     envOr("BONLOG_TRACKER_DB_PATH", "bonlog-tracker.db"),
		Environment:       envOr("BONLOG_ENV", "development"),
		AutoHideThreshold: 5,
		LoginMaxFailures:  5,
		LoginWindow:       15 * time.Minute,
		LoginLockout:      15 * time.Minute,
		SessionTTL:        30 * 24 * time.Hour,
		CronSecret:        os.Getenv("BONLOG_CRON_SECRET"),
		AdminEmail:        os.Getenv("BONLOG_ADMIN_EMAIL"),
		SMTPHost:          os.Getenv("BONLOG_SMTP_HOST"),
		SMTPPort:          587,
		SMTPUser:          os.Getenv("BONLOG_SMTP_USER"),
		SMTPPass:          os.Getenv("BONLOG_SMTP_PASS"),
		SMTPFrom:          envOr("BONLOG_SMTP_FROM", "bonlog@localhost"),
	}

	if v := os.Getenv("BONLOG_SMTP_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 65535 {
			return nil, fmt.Errorf("invalid BONLOG_SMTP_PORT %q", v)
		}
		cfg.SMTPPort = n
	}

	if v := os.Getenv("BONLOG_AUTO_HIDE_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid BONLOG_AUTO_HIDE_THRESHOLD %q", v)
		}
		cfg.AutoHideThreshold = n
	}

	if v := os.Getenv("BONLOG_LOGIN_MAX_FAILURES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid BONLOG_LOGIN_MAX_FAILURES %q", v)
		}
		cfg.LoginMaxFailures = n
	}

	if v := os.Getenv("BONLOG_LOGIN_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid BONLOG_LOGIN_WINDOW %q", v)
		}
		cfg.LoginWindow = d
	}

	if v := os.Getenv("BONLOG_LOGIN_LOCKOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid BONLOG_LOGIN_LOCKOUT %q", v)
		}
		cfg.LoginLockout = d
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
