package handlers

import (
	"net/http"

	"bonlog/internal/moderation"
)

// HandleCreateReport files a report against a piece of content or a user.
func (h *Handler) HandleCreateReport(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var in moderation.CreateReportInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	report, err := h.moderation.CreateReport(r.Context(), user.ID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":     report.ID,
		"status": report.Status,
	})
}
