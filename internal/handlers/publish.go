package handlers

import (
	"crypto/subtle"
	"net/http"
)

// HandlePublishDue runs one publisher pass over due scheduled posts. The
// endpoint is for the deployment's cron trigger, authenticated by a shared
// secret. With no secret configured it does not exist.
func (h *Handler) HandlePublishDue(w http.ResponseWriter, r *http.Request) {
	if h.config.CronSecret == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	given := r.Header.Get("X-Cron-Secret")
	if subtle.ConstantTimeCompare([]byte(given), []byte(h.config.CronSecret)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	res, err := h.publisher.PublishDue(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
