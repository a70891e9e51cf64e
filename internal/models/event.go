// internal/models/event.go
package models

import "time"

// EventType identifies what kind of content change produced an event.
type EventType string

const (
	EventTypeContentPublished EventType = "CONTENT_PUBLISHED"
	EventTypeContentUpdated   EventType = "CONTENT_UPDATED"
)

// EventStatus is the dispatch state of a notification event.
type EventStatus string

const (
	EventStatusPending    EventStatus = "PENDING"
	EventStatusProcessing EventStatus = "PROCESSING"
	EventStatusSent       EventStatus = "SENT"
	EventStatusFailed     EventStatus = "FAILED"
)

// LocalizedText is the per-locale display text of a content item.
type LocalizedText struct {
	Title   string `json:"title" validate:"required"`
	Summary string `json:"summary,omitempty"`
}

// ContentSnapshot is the denormalized display payload captured when an event
// is created, so dispatch never has to re-read mutable editorial content.
type ContentSnapshot struct {
	Locales map[string]LocalizedText `json:"locales" validate:"required,min=1,dive"`
	Slug    string                   `json:"slug" validate:"required"`
}

// NotificationEvent is the durable record of a content change and its
// dispatch state. At most one event exists per (content id, type, version).
type NotificationEvent struct {
	ID             string
	EventType      EventType
	ContentID      string
	ContentVersion int
	CategoryID     string
	Tags           []string
	Symbols        []string
	Payload        ContentSnapshot
	EffectiveAt    time.Time
	DispatchedAt   *time.Time
	Status         EventStatus
	Attempts       int
	LastError      string
	CreatedBy      string
	CreatedAt      time.Time
	ClaimedAt      *time.Time
}

// Content is the read-only view of an editorial content item the creator
// consumes at event-creation time.
type Content struct {
	ID          string           `json:"content_id" validate:"required"`
	Version     int              `json:"version" validate:"required,min=1"`
	VisibleFrom *time.Time       `json:"visible_from,omitempty"`
	CategoryID  string           `json:"category_id" validate:"required"`
	Tags        []string         `json:"tags,omitempty"`
	Symbols     []string         `json:"symbols,omitempty"`
	Snapshot    ContentSnapshot  `json:"snapshot" validate:"required"`
}
