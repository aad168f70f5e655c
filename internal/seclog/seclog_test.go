package seclog

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"two char local", "ab@example.com", "**@example.com"},
		{"one char local", "a@example.com", "*@example.com"},
		{"long local", "testuser@example.com", "t******r@example.com"},
		{"malformed", "invalid-email", "***@***"},
		{"three char local", "abc@example.com", "a*c@example.com"},
		{"empty local", "@example.com", "*@example.com"},
		{"empty string", "", "***@***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskEmail(tt.input))
		})
	}
}

func captureLine(t *testing.T, emit func(l *Logger)) map[string]interface{} {
	t.Helper()

	var buf bytes.Buffer
	emit(New(&buf, "test"))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestEventFields(t *testing.T) {
	line := captureLine(t, func(l *Logger) {
		l.LoginFailure("testuser@example.com", "1.2.3.4", "wrong password")
	})

	assert.Equal(t, "test", line["env"])
	assert.Equal(t, "bonlog", line["app"])
	assert.Equal(t, "login_failure", line["event"])
	assert.Equal(t, "medium", line["severity"])
	assert.Equal(t, "t******r@example.com", line["email"])
	assert.Equal(t, "1.2.3.4", line["source_ip"])
	assert.Contains(t, line, "time")
}

func TestSeverityMapping(t *testing.T) {
	tests := []struct {
		name     string
		emit     func(l *Logger)
		event    string
		severity string
	}{
		{"login success is low", func(l *Logger) { l.LoginSuccess("a@x.com", "1.1.1.1") }, "login_success", "low"},
		{"registration is low", func(l *Logger) { l.Registration("a@x.com", 1) }, "registration", "low"},
		{"reset request is low", func(l *Logger) { l.PasswordResetRequest("a@x.com") }, "password_reset_request", "low"},
		{"invalid input is low", func(l *Logger) { l.InvalidInput("reason", "unknown value") }, "invalid_input", "low"},
		{"login failure is medium", func(l *Logger) { l.LoginFailure("a@x.com", "1.1.1.1", "bad") }, "login_failure", "medium"},
		{"admin action is medium", func(l *Logger) { l.AdminAction(1, "restore", "post", 2) }, "admin_action", "medium"},
		{"reset success is medium", func(l *Logger) { l.PasswordResetSuccess("a@x.com") }, "password_reset_success", "medium"},
		{"rate limit is medium", func(l *Logger) { l.RateLimitExceeded("a@x.com|1.1.1.1", "1.1.1.1") }, "rate_limit_exceeded", "medium"},
		{"lockout is high", func(l *Logger) { l.Lockout("a@x.com", "1.1.1.1", 5) }, "login_lockout", "high"},
		{"suspicious is high", func(l *Logger) { l.SuspiciousActivity("scanner", "1.1.1.1") }, "suspicious_activity", "high"},
		{"unauthorized is high", func(l *Logger) { l.UnauthorizedAccess("/admin/hidden", "1.1.1.1", 3) }, "unauthorized_access", "high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := captureLine(t, tt.emit)
			assert.Equal(t, tt.event, line["event"])
			assert.Equal(t, tt.severity, line["severity"])
		})
	}
}

func TestNilWriterDoesNotPanic(t *testing.T) {
	l := New(nil, "test")
	assert.NotPanics(t, func() {
		l.LoginSuccess("a@x.com", "1.1.1.1")
		l.Lockout("a@x.com", "1.1.1.1", 5)
	})
}
