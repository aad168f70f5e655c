// Package auth implements registration, login with failed-attempt limiting,
// and token sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bonlog/internal/apperr"
	"bonlog/internal/database/boltstore"
	"bonlog/internal/loginlimit"
	"bonlog/internal/metrics"
	"bonlog/internal/models"
	"bonlog/internal/seclog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// invalidCredentials is deliberately the same for unknown email and wrong
// password, so login responses don't leak which accounts exist.
const invalidCredentials = "invalid email or password"

// Service handles the account lifecycle.
type Service struct {
	db       *gorm.DB
	sessions *boltstore.SessionStore
	tracker  *loginlimit.Tracker
	events   *seclog.Logger
	ttl      time.Duration
}

// NewService creates the auth service. ttl bounds session lifetime.
func NewService(db *gorm.DB, sessions *boltstore.SessionStore, tracker *loginlimit.Tracker, events *seclog.Logger, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Service{
		db:       db,
		sessions: sessions,
		tracker:  tracker,
		events:   events,
		ttl:      ttl,
	}
}

// RegisterInput is a new account request.
type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Username = strings.TrimSpace(in.Username)

	if !strings.Contains(in.Email, "@") || len(in.Email) > 255 {
		return nil, apperr.Validationf("invalid email address")
	}
	if len(in.Username) < 3 || len(in.Username) > 64 {
		return nil, apperr.Validationf("username must be 3 to 64 characters")
	}
	if len(in.Password) < 8 {
		return nil, apperr.Validationf("password must be at least 8 characters")
	}

	db := s.db.WithContext(ctx)

	var taken int64
	err := db.Model(&models.User{}).
		Where("email = ? OR username = ?", in.Email, in.Username).
		Count(&taken).Error
	if err != nil {
		return nil, fmt.Errorf("checking existing accounts: %w", err)
	}
	if taken > 0 {
		return nil, apperr.Validationf("email or username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &models.User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: string(hash),
	}
	if err := db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.events.Registration(user.Email, user.ID)
	metrics.RegistrationsTotal.Inc()
	return user, nil
}

// LoginInput is a credential pair plus the caller's address for the
// attempt tracker key.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	SourceIP string `json:"-"`
}

// LoginResult carries the session token handed to the client.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Login authenticates a user. Failures are counted per email+IP; past the
// threshold the key is locked out regardless of the password offered. A
// successful login clears the counter completely.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	key := loginlimit.Key{Email: in.Email, SourceIP: in.SourceIP}

	if chk := s.tracker.Check(key); !chk.Allowed {
		metrics.AuthLoginsTotal.WithLabelValues("locked").Inc()
		return nil, apperr.Validationf("%s", chk.Message)
	}

	db := s.db.WithContext(ctx)

	var user models.User
	err := db.Where("email = ?", in.Email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, s.failLogin(key, "unknown email")
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		return nil, s.failLogin(key, "wrong password")
	}

	if user.IsSuspended {
		if user.SuspendedUntil != nil && time.Now().After(*user.SuspendedUntil) {
			err := db.Model(&user).
				Updates(map[string]interface{}{"is_suspended": false, "suspended_until": nil}).Error
			if err != nil {
				return nil, fmt.Errorf("lifting suspension: %w", err)
			}
			user.IsSuspended = false
			user.SuspendedUntil = nil
		} else {
			metrics.AuthLoginsTotal.WithLabelValues("failure").Inc()
			s.events.LoginFailure(in.Email, in.SourceIP, "account suspended")
			return nil, apperr.Validationf("account suspended")
		}
	}

	s.tracker.Reset(key)

	sess := boltstore.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.sessions.Save(sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	s.events.LoginSuccess(user.Email, in.SourceIP)
	metrics.AuthLoginsTotal.WithLabelValues("success").Inc()
	return &LoginResult{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: &user}, nil
}

// failLogin records the failure and returns the caller-facing error. The
// tracker result decides whether the caller sees the generic message or the
// lockout message.
func (s *Service) failLogin(key loginlimit.Key, reason string) error {
	res := s.tracker.RecordFailure(key, reason)
	metrics.AuthLoginsTotal.WithLabelValues("failure").Inc()
	if !res.Allowed && res.Message != "" {
		metrics.LoginLockoutsTotal.Inc()
		return apperr.Validationf("%s", res.Message)
	}
	return apperr.Validationf("%s", invalidCredentials)
}

// Logout drops the session. Unknown tokens are fine; logout is idempotent.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.ErrUnauthenticated
	}

	sess, err := s.sessions.Get(token)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if sess == nil {
		return nil, apperr.ErrUnauthenticated
	}

	var user models.User
	err = s.db.WithContext(ctx).First(&user, sess.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Account gone; the session is dead weight.
		s.sessions.Delete(token)
		return nil, apperr.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return &user, nil
}
