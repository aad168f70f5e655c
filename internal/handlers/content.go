package handlers

import (
	"net/http"

	"bonlog/internal/feed"
)

// HandleCreatePost creates a post, or queues it when scheduled for later.
func (h *Handler) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var in feed.CreatePostInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.feed.CreatePost(r.Context(), user.ID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// HandleCreateComment adds a comment to a visible post.
func (h *Handler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	postID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var in struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	comment, err := h.feed.CreateComment(r.Context(), user.ID, postID, in.Content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// HandleCreateShop lists a new shop.
func (h *Handler) HandleCreateShop(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var in feed.CreateShopInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	shop, err := h.feed.CreateShop(r.Context(), user.ID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, shop)
}

// HandleCreateEvent lists a new event.
func (h *Handler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var in feed.CreateEventInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	event, err := h.feed.CreateEvent(r.Context(), user.ID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// HandleCreateReview rates a visible shop.
func (h *Handler) HandleCreateReview(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	shopID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var in struct {
		Rating int    `json:"rating"`
		Body   string `json:"body"`
	}
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	review, err := h.feed.CreateReview(r.Context(), user.ID, shopID, in.Rating, in.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// HandleFollow subscribes the caller to another user's posts.
func (h *Handler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	followeeID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.feed.Follow(r.Context(), user.ID, followeeID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "following"})
}

// HandleUnfollow removes the follow edge.
func (h *Handler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	followeeID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.feed.Unfollow(r.Context(), user.ID, followeeID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unfollowed"})
}

// HandleTimeline serves the home feed, paginated by opaque cursor.
func (h *Handler) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	page, err := h.feed.Timeline(
		r.Context(),
		user.ID,
		r.URL.Query().Get("cursor"),
		queryInt(r, "limit", 20),
	)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleCancelScheduledPost cancels one of the caller's pending scheduled
// posts before the publisher picks it up.
func (h *Handler) HandleCancelScheduledPost(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.publisher.Cancel(r.Context(), user.ID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
