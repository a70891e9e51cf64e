// internal/models/notification.go
package models

import "time"

// UserNotification is a per-recipient fan-out row. The (user id, event id)
// unique key is the dedup guard against double delivery.
type UserNotification struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	EventID     string     `json:"event_id"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	ClickedAt   *time.Time `json:"clicked_at,omitempty"`
	DismissedAt *time.Time `json:"dismissed_at,omitempty"`
}

// FeedItem is a notification joined with the display payload of its event,
// as served by the read side.
type FeedItem struct {
	ID         string          `json:"id"`
	EventID    string          `json:"event_id"`
	EventType  EventType       `json:"event_type"`
	ContentID  string          `json:"content_id"`
	CategoryID string          `json:"category_id"`
	Payload    ContentSnapshot `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
	ReadAt     *time.Time      `json:"read_at,omitempty"`
}
