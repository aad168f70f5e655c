// Package seclog emits structured security events for authentication and
// authorization activity. It is a pure sink: it holds no state, and a
// failing writer is swallowed rather than surfaced to the caller, so
// logging can never break a login flow.
package seclog

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// Severity tags each event line. The mapping from event type to severity
// is fixed; callers never choose it.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Event type constants, one per recording function.
const (
	EventLoginSuccess         = "login_success"
	EventLoginFailure         = "login_failure"
	EventLoginLockout         = "login_lockout"
	EventRegistration         = "registration"
	EventAdminAction          = "admin_action"
	EventSuspiciousActivity   = "suspicious_activity"
	EventRateLimitExceeded    = "rate_limit_exceeded"
	EventInvalidInput         = "invalid_input"
	EventUnauthorizedAccess   = "unauthorized_access"
	EventPasswordResetRequest = "password_reset_request"
	EventPasswordResetSuccess = "password_reset_success"
)

// Logger writes one structured line per security event.
type Logger struct {
	log zerolog.Logger
}

// New creates a security event logger writing to w. Lines carry an ISO-8601
// timestamp plus environment and application tags.
func New(w io.Writer, environment string) *Logger {
	if w == nil {
		w = io.Discard
	}
	l := zerolog.New(w).With().
		Timestamp().
		Str("env", environment).
		Str("app", "bonlog").
		Logger()
	return &Logger{log: l}
}

// event starts a line at the zerolog level matching the severity.
func (l *Logger) event(sev Severity, eventType string) *zerolog.Event {
	var e *zerolog.Event
	switch sev {
	case SeverityHigh:
		e = l.log.Error()
	case SeverityMedium:
		e = l.log.Warn()
	default:
		e = l.log.Info()
	}
	return e.Str("severity", string(sev)).Str("event", eventType)
}

// LoginSuccess records a completed authentication.
func (l *Logger) LoginSuccess(email, sourceIP string) {
	l.event(SeverityLow, EventLoginSuccess).
		Str("email", MaskEmail(email)).
		Str("source_ip", sourceIP).
		Msg("login succeeded")
}

// LoginFailure records a rejected authentication attempt.
func (l *Logger) LoginFailure(email, sourceIP, reason string) {
	l.event(SeverityMedium, EventLoginFailure).
		Str("email", MaskEmail(email)).
		Str("source_ip", sourceIP).
		Str("reason", reason).
		Msg("login failed")
}

// Lockout records the transition into a temporary login block.
func (l *Logger) Lockout(email, sourceIP string, failures int) {
	l.event(SeverityHigh, EventLoginLockout).
		Str("email", MaskEmail(email)).
		Str("source_ip", sourceIP).
		Int("failures", failures).
		Msg("login locked out")
}

// Registration records a new account.
func (l *Logger) Registration(email string, userID uint) {
	l.event(SeverityLow, EventRegistration).
		Str("email", MaskEmail(email)).
		Uint("user_id", userID).
		Msg("account registered")
}

// AdminAction records a privileged mutation.
func (l *Logger) AdminAction(adminID uint, action, targetType string, targetID uint) {
	l.event(SeverityMedium, EventAdminAction).
		Uint("admin_id", adminID).
		Str("action", action).
		Str("target_type", targetType).
		Uint("target_id", targetID).
		Msg("admin action")
}

// SuspiciousActivity records behavior worth an operator's attention.
func (l *Logger) SuspiciousActivity(detail, sourceIP string) {
	l.event(SeverityHigh, EventSuspiciousActivity).
		Str("detail", detail).
		Str("source_ip", sourceIP).
		Msg("suspicious activity")
}

// RateLimitExceeded records a request rejected by throttling.
func (l *Logger) RateLimitExceeded(key, sourceIP string) {
	l.event(SeverityMedium, EventRateLimitExceeded).
		Str("key", key).
		Str("source_ip", sourceIP).
		Msg("rate limit exceeded")
}

// InvalidInput records input rejected by validation.
func (l *Logger) InvalidInput(field, detail string) {
	l.event(SeverityLow, EventInvalidInput).
		Str("field", field).
		Str("detail", detail).
		Msg("invalid input")
}

// UnauthorizedAccess records a request that failed an authorization check.
func (l *Logger) UnauthorizedAccess(path, sourceIP string, userID uint) {
	l.event(SeverityHigh, EventUnauthorizedAccess).
		Str("path", path).
		Str("source_ip", sourceIP).
		Uint("user_id", userID).
		Msg("unauthorized access")
}

// PasswordResetRequest records a reset being initiated.
func (l *Logger) PasswordResetRequest(email string) {
	l.event(SeverityLow, EventPasswordResetRequest).
		Str("email", MaskEmail(email)).
		Msg("password reset requested")
}

// PasswordResetSuccess records a reset being completed.
func (l *Logger) PasswordResetSuccess(email string) {
	l.event(SeverityMedium, EventPasswordResetSuccess).
		Str("email", MaskEmail(email)).
		Msg("password reset completed")
}

// MaskEmail hides the local part of an address so log lines carry no PII.
// One- and two-character local parts are fully starred; longer ones keep
// their first and last character. Input without an '@' yields "***@***".
func MaskEmail(email string) string {
	i := strings.Index(email, "@")
	if i < 0 {
		return "***@***"
	}
	local, domain := email[:i], email[i+1:]

	var masked string
	switch l := len(local); {
	case l <= 1:
		masked = "*"
	case l == 2:
		masked = "**"
	default:
		masked = local[:1] + strings.Repeat("*", l-2) + local[l-1:]
	}
	return masked + "@" + domain
}
