package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stackit-qa/apiserver/internal/services"
	"github.com/stackit-qa/apiserver/types"
)

// NotificationHandler serves the authenticated user's notification feed.
type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// NotificationRouter registers notification routes. Every route requires auth.
func NotificationRouter(r chi.Router, handler *NotificationHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.Get("/", handler.List)
	r.Post("/read-all", handler.MarkAllRead)
	r.Post("/{notificationID}/read", handler.MarkRead)
}

// List returns the user's notifications newest first with the unread count.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, NotificationListResponse{
		Items:       h.notifications.List(r.Context(), user.ID),
		UnreadCount: h.notifications.UnreadCount(r.Context(), user.ID),
	})
}

// MarkRead flags one notification as read. Unknown ids and notifications of
// other users are ignored.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "notificationID")
	if n, err := h.notifications.Get(r.Context(), id); err == nil && n.UserID == user.ID {
		h.notifications.MarkRead(r.Context(), id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead flags every notification of the user as read.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	h.notifications.MarkAllRead(r.Context(), user.ID)
	w.WriteHeader(http.StatusNoContent)
}

type NotificationListResponse struct {
	Items       []types.Notification `json:"items"`
	UnreadCount int                  `json:"unread_count"`
}
