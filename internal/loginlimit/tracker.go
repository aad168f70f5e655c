// Package loginlimit counts failed login attempts per identity and source
// address, and temporarily blocks further attempts past a threshold.
package loginlimit

import (
	"time"

	"bonlog/internal/seclog"

	"github.com/rs/zerolog/log"
)

// LockedMessage is returned to callers while a key is blocked.
const LockedMessage = "Too many failed login attempts. Please try again later."

// Key identifies one tracked login source.
type Key struct {
	Email    string
	SourceIP string
}

// String renders the storage key.
func (k Key) String() string {
	return k.Email + "|" + k.SourceIP
}

// Attempt is the tracked state for one key.
type Attempt struct {
	FailureCount int        `json:"failure_count"`
	WindowStart  time.Time  `json:"window_start"`
	LockedUntil  *time.Time `json:"locked_until,omitempty"`
}

// Store persists attempt records. Implementations must be safe for
// concurrent use. Get returns (nil, nil) when the key is unknown.
type Store interface {
	Get(key string) (*Attempt, error)
	Put(key string, a Attempt) error
	Delete(key string) error
}

// Result is the outcome of a check or a recorded failure.
type Result struct {
	Allowed           bool   `json:"allowed"`
	Message           string `json:"message,omitempty"`
	RemainingAttempts int    `json:"remaining_attempts"`
}

// Options tunes a Tracker. Zero values fall back to defaults.
type Options struct {
	MaxFailures int           // default 5
	Window      time.Duration // default 15m, rolling
	Lockout     time.Duration // default 15m
	Now         func() time.Time
}

// Tracker applies the lockout policy on top of a Store. Storage errors
// fail open: during a store outage every key is allowed through with a
// logged warning, rather than locking out all users.
type Tracker struct {
	store       Store
	events      *seclog.Logger
	maxFailures int
	window      time.Duration
	lockout     time.Duration
	now         func() time.Time
}

// NewTracker creates a Tracker over the given store. events may not be nil.
func NewTracker(store Store, events *seclog.Logger, opts Options) *Tracker {
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = 5
	}
	if opts.Window <= 0 {
		opts.Window = 15 * time.Minute
	}
	if opts.Lockout <= 0 {
		opts.Lockout = 15 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tracker{
		store:       store,
		events:      events,
		maxFailures: opts.MaxFailures,
		window:      opts.Window,
		lockout:     opts.Lockout,
		now:         opts.Now,
	}
}

// Check reports whether a login attempt for key may proceed.
func (t *Tracker) Check(key Key) Result {
	a, err := t.store.Get(key.String())
	if err != nil {
		log.Warn().Err(err).Str("key", key.String()).Msg("loginlimit: store unavailable, failing open")
		return t.allowed(t.maxFailures)
	}

	a = t.fresh(a)
	if a == nil {
		return t.allowed(t.maxFailures)
	}

	if a.LockedUntil != nil && t.now().Before(*a.LockedUntil) {
		return Result{Allowed: false, Message: LockedMessage, RemainingAttempts: 0}
	}

	remaining := t.maxFailures - a.FailureCount
	if remaining <= 0 {
		return Result{Allowed: false, Message: LockedMessage, RemainingAttempts: 0}
	}
	return t.allowed(remaining)
}

// RecordFailure counts one failed attempt and returns the post-failure
// state. Crossing the threshold sets the lockout and emits a high-severity
// security event; an ordinary failure emits a medium one.
func (t *Tracker) RecordFailure(key Key, reason string) Result {
	now := t.now()

	a, err := t.store.Get(key.String())
	if err != nil {
		log.Warn().Err(err).Str("key", key.String()).Msg("loginlimit: store unavailable, failing open")
		t.events.LoginFailure(key.Email, key.SourceIP, reason)
		return t.allowed(t.maxFailures)
	}

	a = t.fresh(a)
	if a == nil {
		a = &Attempt{WindowStart: now}
	}
	a.FailureCount++

	res := t.allowed(t.maxFailures - a.FailureCount)
	if a.FailureCount >= t.maxFailures {
		until := now.Add(t.lockout)
		a.LockedUntil = &until
		res = Result{Allowed: false, Message: LockedMessage, RemainingAttempts: 0}
	}

	if err := t.store.Put(key.String(), *a); err != nil {
		log.Warn().Err(err).Str("key", key.String()).Msg("loginlimit: failed to persist attempt")
	}

	// Emit the lockout event only on the transition, not on every blocked
	// attempt afterwards.
	if a.FailureCount == t.maxFailures {
		t.events.Lockout(key.Email, key.SourceIP, a.FailureCount)
	} else {
		t.events.LoginFailure(key.Email, key.SourceIP, reason)
	}

	return res
}

// Reset fully clears the counter for key. Called exactly once, on
// successful authentication.
func (t *Tracker) Reset(key Key) {
	if err := t.store.Delete(key.String()); err != nil {
		log.Warn().Err(err).Str("key", key.String()).Msg("loginlimit: failed to clear attempts")
	}
}

// fresh discards records whose rolling window has elapsed and whose
// lockout, if any, has expired.
func (t *Tracker) fresh(a *Attempt) *Attempt {
	if a == nil {
		return nil
	}
	now := t.now()
	if a.LockedUntil != nil && now.Before(*a.LockedUntil) {
		return a
	}
	if now.Sub(a.WindowStart) > t.window {
		return nil
	}
	if a.LockedUntil != nil && !now.Before(*a.LockedUntil) {
		// Lockout served; start over.
		return nil
	}
	return a
}

func (t *Tracker) allowed(remaining int) Result {
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: remaining > 0, RemainingAttempts: remaining}
}
