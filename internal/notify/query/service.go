// internal/notify/query/service.go
package query

import (
	"context"
	"time"

	"journal-notifier/internal/common/errors"
	"journal-notifier/internal/common/logger"
	"journal-notifier/internal/models"
	"journal-notifier/internal/notify/store"
)

// Filter selects which feed rows a page covers.
type Filter string

const (
	FilterAll    Filter = "all"
	FilterUnread Filter = "unread"
)

// NotificationStore is the per-user notification access the service reads and
// mutates.
type NotificationStore interface {
	FeedPage(ctx context.Context, userID string, unreadOnly bool, after *store.FeedCursor, limit int) ([]models.FeedItem, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, notificationID, userID string, now time.Time) error
	MarkAllRead(ctx context.Context, userID string, now time.Time) (int, error)
}

// PreferenceStore persists per-user preference rows and follows.
type PreferenceStore interface {
	GetOrCreate(ctx context.Context, userID string) (*models.NotificationPreferences, error)
	Update(ctx context.Context, p *models.NotificationPreferences, now time.Time) error
	ListFollows(ctx context.Context, userID string) ([]models.Follow, error)
	AddFollow(ctx context.Context, f models.Follow, now time.Time) error
	RemoveFollow(ctx context.Context, f models.Follow) error
}

// Publisher pushes live updates to a user's open connections.
type Publisher interface {
	Publish(userID, eventType string, data interface{})
}

// Config bounds page sizes for the feed endpoint.
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
}

// FeedPage is one page of a user's notification feed plus the cursor for the
// next page. NextCursor is empty when the page was short, meaning the feed is
// exhausted.
type FeedPage struct {
	Items      []models.FeedItem `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// Service is the read-and-mutate surface behind the user-facing notification
// endpoints.
type Service struct {
	notifications NotificationStore
	preferences   PreferenceStore
	hub           Publisher
	cfg           Config
	logger        logger.Logger

	now func() time.Time
}

func NewService(n NotificationStore, p PreferenceStore, hub Publisher, cfg Config, log logger.Logger) *Service {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	return &Service{
		notifications: n,
		preferences:   p,
		hub:           hub,
		cfg:           cfg,
		logger:        log.WithFields(map[string]interface{}{"component": "query_service"}),
		now:           time.Now,
	}
}

// Feed returns one page of the user's feed. The limit is clamped to
// [1, MaxPageSize]; zero picks the default. The cursor string must come from a
// previous page's NextCursor.
func (s *Service) Feed(ctx context.Context, userID string, filter Filter, cursor string, limit int) (*FeedPage, error) {
	if limit <= 0 {
		limit = s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}

	after, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	items, err := s.notifications.FeedPage(ctx, userID, filter == FilterUnread, after, limit)
	if err != nil {
		return nil, err
	}

	page := &FeedPage{Items: items}
	if len(items) == limit {
		last := items[len(items)-1]
		page.NextCursor = EncodeCursor(store.FeedCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

// UnreadCount returns the user's current unread badge value.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.notifications.UnreadCount(ctx, userID)
}

// MarkRead marks one notification read and pushes the fresh unread count to
// the user's live connections.
func (s *Service) MarkRead(ctx context.Context, notificationID, userID string) (int, error) {
	if err := s.notifications.MarkRead(ctx, notificationID, userID, s.now()); err != nil {
		return 0, err
	}
	return s.pushUnread(ctx, userID)
}

// MarkAllRead marks every unread notification of the user and pushes the
// zeroed count.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	if _, err := s.notifications.MarkAllRead(ctx, userID, s.now()); err != nil {
		return 0, err
	}
	return s.pushUnread(ctx, userID)
}

func (s *Service) pushUnread(ctx context.Context, userID string) (int, error) {
	count, err := s.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.hub.Publish(userID, "unread.changed", map[string]interface{}{"unread": count})
	return count, nil
}

// GetPreferences returns the user's preference row, creating defaults on first
// access.
func (s *Service) GetPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	return s.preferences.GetOrCreate(ctx, userID)
}

// UpdatePreferences overwrites the user's preference row and returns the
// stored result with its sets normalized.
func (s *Service) UpdatePreferences(ctx context.Context, p *models.NotificationPreferences) (*models.NotificationPreferences, error) {
	switch p.Mode {
	case models.PreferenceModeAll, models.PreferenceModeSelected:
	default:
		return nil, errors.NewValidationError("unknown preference mode " + string(p.Mode))
	}
	switch p.MatchPolicy {
	case models.MatchPolicyCategoryOnly, models.MatchPolicyCategoryTagsOrSymbols:
	default:
		return nil, errors.NewValidationError("unknown match policy " + string(p.MatchPolicy))
	}
	if err := s.preferences.Update(ctx, p, s.now()); err != nil {
		return nil, err
	}
	return s.preferences.GetOrCreate(ctx, p.UserID)
}

// ListFollows returns the user's explicit follows.
func (s *Service) ListFollows(ctx context.Context, userID string) ([]models.Follow, error) {
	return s.preferences.ListFollows(ctx, userID)
}

// AddFollow records an explicit follow; duplicates are absorbed by the store.
func (s *Service) AddFollow(ctx context.Context, f models.Follow) error {
	if err := validateFollow(f); err != nil {
		return err
	}
	return s.preferences.AddFollow(ctx, f, s.now())
}

// RemoveFollow deletes an explicit follow; removing an absent follow is a
// no-op.
func (s *Service) RemoveFollow(ctx context.Context, f models.Follow) error {
	if err := validateFollow(f); err != nil {
		return err
	}
	return s.preferences.RemoveFollow(ctx, f)
}

func validateFollow(f models.Follow) error {
	switch f.Type {
	case models.FollowTypeTag, models.FollowTypeSymbol, models.FollowTypeStrategy:
	default:
		return errors.NewValidationError("unknown follow type " + string(f.Type))
	}
	if f.Value == "" {
		return errors.NewValidationError("follow value must not be empty")
	}
	return nil
}
