// internal/transport/http/handler/notifications.go
package handler

import (
	"context"
	"net/http"
	"strconv"

	apierrors "journal-notifier/internal/common/errors"
	"journal-notifier/internal/common/logger"
	"journal-notifier/internal/notify/query"
	"journal-notifier/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// NotificationService is the read-side surface the notification endpoints
// depend on.
type NotificationService interface {
	Feed(ctx context.Context, userID string, filter query.Filter, cursor string, limit int) (*query.FeedPage, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, notificationID, userID string) (int, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

// StreamRegistry attaches upgraded websocket connections to the live push hub.
type StreamRegistry interface {
	Register(userID string, conn *websocket.Conn)
	Publish(userID, eventType string, data interface{})
}

// NotificationHandler handles the user-facing feed endpoints.
type NotificationHandler struct {
	svc      NotificationService
	hub      StreamRegistry
	upgrader websocket.Upgrader
	logger   logger.Logger
}

func NewNotificationHandler(svc NotificationService, hub StreamRegistry, log logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		svc: svc,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Cross-origin policy is enforced by the CORS middleware and the
			// token check, not by the Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log.WithFields(map[string]interface{}{"component": "notification_handler"}),
	}
}

// Feed serves one keyset page of the caller's notifications.
func (h *NotificationHandler) Feed(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httpError(w, apierrors.NewUnauthorizedError())
		return
	}

	filter := query.FilterAll
	if r.URL.Query().Get("filter") == string(query.FilterUnread) {
		filter = query.FilterUnread
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	page, err := h.svc.Feed(r.Context(), claims.UserID, filter, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httpError(w, apierrors.NewUnauthorizedError())
		return
	}
	count, err := h.svc.UnreadCount(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountEnvelope{Unread: count})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httpError(w, apierrors.NewUnauthorizedError())
		return
	}
	count, err := h.svc.MarkRead(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountEnvelope{Unread: count})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httpError(w, apierrors.NewUnauthorizedError())
		return
	}
	count, err := h.svc.MarkAllRead(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountEnvelope{Unread: count})
}

// Stream upgrades the request to a websocket and attaches it to the push hub.
// The current unread count is pushed right after the upgrade so a client does
// not need a separate request to seed its badge.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httpError(w, apierrors.NewUnauthorizedError())
		return
	}

	count, err := h.svc.UnreadCount(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Warn("websocket upgrade failed", map[string]interface{}{
			"user_id": claims.UserID,
			"error":   err.Error(),
		})
		return
	}

	h.hub.Register(claims.UserID, conn)
	h.hub.Publish(claims.UserID, "unread.changed", map[string]interface{}{"unread": count})
}
