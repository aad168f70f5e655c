// Package handlers implements the HTTP surface. Handlers decode requests,
// call services, and translate the error taxonomy onto the wire.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bonlog/internal/apperr"
	"bonlog/internal/auth"
	"bonlog/internal/feed"
	"bonlog/internal/middleware"
	"bonlog/internal/models"
	"bonlog/internal/moderation"
	"bonlog/internal/publisher"
	"bonlog/internal/seclog"

	"github.com/rs/zerolog/log"
)

// SessionCookieName stores the session token for browser clients. API
// clients send the same token as a bearer Authorization header.
const SessionCookieName = "session_token"

// Config holds handler configuration options
type Config struct {
	// SecureCookies sets the Secure flag on the session cookie.
	// Should be true in production (HTTPS), false for local development.
	SecureCookies bool

	// CronSecret authenticates the internal publish trigger. Empty
	// disables the endpoint.
	CronSecret string
}

// Handler contains all HTTP handler methods and their dependencies.
// Dependencies are injected via the constructor for better testability.
type Handler struct {
	auth       *auth.Service
	feed       *feed.Service
	moderation *moderation.Service
	publisher  *publisher.Publisher
	events     *seclog.Logger
	config     Config
}

// NewHandler creates a new Handler with all required dependencies.
func NewHandler(
	authService *auth.Service,
	feedService *feed.Service,
	moderationService *moderation.Service,
	pub *publisher.Publisher,
	events *seclog.Logger,
	config Config,
) *Handler {
	return &Handler{
		auth:       authService,
		feed:       feedService,
		moderation: moderationService,
		publisher:  pub,
		events:     events,
		config:     config,
	}
}

// HandleHealthz reports liveness.
func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError maps the error taxonomy onto the wire convention: 401 for a
// missing session, 403 for a missing admin grant, 404 for absent targets,
// and 200 with an error body for business validation failures.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
	case errors.Is(err, apperr.ErrPermission):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin access required"})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusOK, map[string]string{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// decodeJSON parses the request body. Malformed bodies surface as
// validation errors per the wire convention.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Validationf("invalid request body")
	}
	return nil
}

// sessionToken extracts the token from the Authorization header or the
// session cookie. Header wins.
func sessionToken(r *http.Request) string {
	if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, "Bearer ") {
		return strings.TrimPrefix(ah, "Bearer ")
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// requireUser resolves the session or writes 401.
func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := h.auth.Authenticate(r.Context(), sessionToken(r))
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return user, true
}

// requireAdmin resolves the session and re-checks the admin grant. The
// grant lookup happens on every call; a revoked admin loses access on
// their next request.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return nil, false
	}
	if err := h.moderation.RequireAdmin(r.Context(), user.ID); err != nil {
		h.events.UnauthorizedAccess(r.URL.Path, middleware.GetClientIP(r), user.ID)
		h.writeError(w, r, err)
		return nil, false
	}
	return user, true
}

// pathID parses the {id} path segment. A malformed ID means the resource
// cannot exist.
func pathID(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.ErrNotFound
	}
	return uint(id), nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
