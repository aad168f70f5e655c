package handlers

import (
	"net/http"
	"time"

	"bonlog/internal/models"
)

// HandleListHidden lists hidden content across all kinds, newest first.
// An optional ?type= filter narrows to one kind.
func (h *Handler) HandleListHidden(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	items, err := h.moderation.ListHidden(
		r.Context(),
		models.TargetType(r.URL.Query().Get("type")),
		queryInt(r, "limit", 50),
		queryInt(r, "offset", 0),
	)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// HandleRestore makes hidden content visible again and closes its reports.
func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	tt, id, err := hiddenTarget(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.moderation.Restore(r.Context(), admin.ID, tt, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

// HandlePurge permanently deletes hidden content and its children.
func (h *Handler) HandlePurge(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	tt, id, err := hiddenTarget(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.moderation.Purge(r.Context(), admin.ID, tt, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "purged"})
}

func hiddenTarget(r *http.Request) (models.TargetType, uint, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return "", 0, err
	}
	return models.TargetType(r.PathValue("type")), id, nil
}

// HandleListNotifications lists admin notifications, newest first.
// ?unresolved=true narrows to open ones.
func (h *Handler) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	notifs, err := h.moderation.ListNotifications(
		r.Context(),
		r.URL.Query().Get("unresolved") == "true",
		queryInt(r, "limit", 50),
		queryInt(r, "offset", 0),
	)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": notifs})
}

// HandleMarkNotificationRead marks one notification as read.
func (h *Handler) HandleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.moderation.MarkNotificationRead(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// HandleAdminLog lists audit entries, newest first.
func (h *Handler) HandleAdminLog(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	entries, err := h.moderation.ListAdminLog(
		r.Context(),
		queryInt(r, "limit", 50),
		queryInt(r, "offset", 0),
	)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// HandleSuspendUser blocks a user from logging in, optionally until a
// given time.
func (h *Handler) HandleSuspendUser(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var in struct {
		Until *time.Time `json:"until"`
	}
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.moderation.SuspendUser(r.Context(), admin.ID, userID, in.Until); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "suspended"})
}

// HandleGrantAdmin gives a user an admin grant.
func (h *Handler) HandleGrantAdmin(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var in struct {
		Note string `json:"note"`
	}
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.moderation.GrantAdmin(r.Context(), admin.ID, userID, in.Note); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "granted"})
}

// HandleRevokeAdmin revokes a user's admin grant.
func (h *Handler) HandleRevokeAdmin(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.moderation.RevokeAdmin(r.Context(), admin.ID, userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// HandleAdminStats returns a snapshot of moderation counts.
func (h *Handler) HandleAdminStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	stats, err := h.moderation.CollectStats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
