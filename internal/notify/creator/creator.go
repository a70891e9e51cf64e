// internal/notify/creator/creator.go
package creator

import (
	"context"
	"time"

	"journal-notifier/internal/common/errors"
	"journal-notifier/internal/common/logger"
	"journal-notifier/internal/common/metrics"
	"journal-notifier/internal/models"

	"github.com/google/uuid"
)

// EventStore is the slice of the event store the creator needs.
type EventStore interface {
	Exists(ctx context.Context, contentID string, eventType models.EventType, version int) (bool, error)
	Insert(ctx context.Context, ev *models.NotificationEvent) error
}

// Submitter triggers an immediate best-effort dispatch of a fresh event.
type Submitter interface {
	Submit(eventID string)
}

// Creator turns a content publish/update into at most one event per
// (content, type, version). Duplicate attempts are dropped silently, including
// concurrent ones racing past the existence check.
type Creator struct {
	events     EventStore
	dispatcher Submitter
	logger     logger.Logger
	now        func() time.Time
}

func New(events EventStore, dispatcher Submitter, log logger.Logger) *Creator {
	return &Creator{
		events:     events,
		dispatcher: dispatcher,
		logger:     log.WithFields(map[string]interface{}{"component": "event_creator"}),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreatePublishedEvent records a CONTENT_PUBLISHED event for the content.
// Returns nil, nil when the event already exists.
func (c *Creator) CreatePublishedEvent(ctx context.Context, content models.Content, actorID string) (*models.NotificationEvent, error) {
	return c.create(ctx, models.EventTypeContentPublished, content, actorID)
}

// CreateUpdatedEvent records a CONTENT_UPDATED event for the content version.
func (c *Creator) CreateUpdatedEvent(ctx context.Context, content models.Content, actorID string) (*models.NotificationEvent, error) {
	return c.create(ctx, models.EventTypeContentUpdated, content, actorID)
}

func (c *Creator) create(ctx context.Context, eventType models.EventType, content models.Content, actorID string) (*models.NotificationEvent, error) {
	log := c.logger.WithFields(map[string]interface{}{
		"eventType": string(eventType),
		"contentId": content.ID,
		"version":   content.Version,
	})

	// Cheap pre-check; the unique constraint below is the race-safe guard.
	exists, err := c.events.Exists(ctx, content.ID, eventType, content.Version)
	if err != nil {
		return nil, err
	}
	if exists {
		log.Debug("event already exists, skipping", nil)
		metrics.EventsDeduplicated.WithLabelValues(string(eventType)).Inc()
		return nil, nil
	}

	now := c.now()
	ev := &models.NotificationEvent{
		ID:             uuid.NewString(),
		EventType:      eventType,
		ContentID:      content.ID,
		ContentVersion: content.Version,
		CategoryID:     content.CategoryID,
		Tags:           models.NormalizeSet(content.Tags),
		Symbols:        models.NormalizeSet(content.Symbols),
		Payload:        content.Snapshot,
		EffectiveAt:    effectiveAt(content, now),
		Status:         models.EventStatusPending,
		CreatedBy:      actorID,
		CreatedAt:      now,
	}

	if err := c.events.Insert(ctx, ev); err != nil {
		if errors.CodeOf(err) == errors.ErrCodeDuplicateEvent {
			// Lost the race to a concurrent creator: their insert won.
			log.Debug("duplicate event insert dropped", nil)
			metrics.EventsDeduplicated.WithLabelValues(string(eventType)).Inc()
			return nil, nil
		}
		return nil, err
	}

	metrics.EventsCreated.WithLabelValues(string(eventType)).Inc()
	log.Info("notification event created", map[string]interface{}{
		"eventId":     ev.ID,
		"effectiveAt": ev.EffectiveAt.Format(time.RFC3339),
	})

	// Fast path: an already-due event skips the next scheduler tick. The
	// insert above is committed, so the dispatcher sees the row.
	if !ev.EffectiveAt.After(now) {
		c.dispatcher.Submit(ev.ID)
	}

	return ev, nil
}

// effectiveAt defers future-dated content to its visibility time so scheduled
// posts never notify early.
func effectiveAt(content models.Content, now time.Time) time.Time {
	if content.VisibleFrom != nil && content.VisibleFrom.After(now) {
		return *content.VisibleFrom
	}
	return now
}
