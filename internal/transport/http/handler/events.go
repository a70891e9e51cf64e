// internal/transport/http/handler/events.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"journal-notifier/internal/models"
	"journal-notifier/internal/pkg/validate"
)

// EventCreator accepts content lifecycle notifications from the editorial
// backend.
type EventCreator interface {
	CreatePublishedEvent(ctx context.Context, content models.Content, actorID string) (*models.NotificationEvent, error)
	CreateUpdatedEvent(ctx context.Context, content models.Content, actorID string) (*models.NotificationEvent, error)
}

// EventHandler handles the internal ingest endpoints called by the journal
// backend when content is published or updated.
type EventHandler struct {
	creator EventCreator
}

func NewEventHandler(creator EventCreator) *EventHandler {
	return &EventHandler{creator: creator}
}

type ingestRequest struct {
	Content models.Content `json:"content" validate:"required"`
	ActorID string         `json:"actor_id"`
}

func (h *EventHandler) Published(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, h.creator.CreatePublishedEvent)
}

func (h *EventHandler) Updated(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, h.creator.CreateUpdatedEvent)
}

func (h *EventHandler) ingest(
	w http.ResponseWriter,
	r *http.Request,
	create func(context.Context, models.Content, string) (*models.NotificationEvent, error),
) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httpError(w, err)
		return
	}

	created, err := create(r.Context(), req.Content, req.ActorID)
	if err != nil {
		httpError(w, err)
		return
	}
	if created == nil {
		// Same content version seen before; nothing new to dispatch.
		writeJSON(w, http.StatusOK, EventEnvelope{Deduplicated: true})
		return
	}
	writeJSON(w, http.StatusAccepted, EventEnvelope{EventID: created.ID})
}
