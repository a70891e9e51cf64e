// internal/notify/store/notifications.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"journal-notifier/internal/common/errors"
	"journal-notifier/internal/common/logger"
	"journal-notifier/internal/models"

	"github.com/lib/pq"
)

// fanOutQuery inserts one notification row per matching recipient in a single
// set-based statement. A user matches when their preferences are enabled, the
// event type passes the notify_on_new / notify_on_updates gate, and any of:
// firehose mode, selected category, selected tag/symbol overlap under the
// CATEGORY_OR_TAGS_OR_SYMBOLS policy, or an explicit follow on a tag, symbol,
// or the content id as a followed strategy. NOT EXISTS plus the
// (user_id, event_id) unique key makes re-runs insert only the rows still
// missing.
const fanOutQuery = `
INSERT INTO user_notifications (id, user_id, event_id, created_at)
SELECT gen_random_uuid(), p.user_id, $1, $2
FROM notification_preferences p
WHERE p.enabled
  AND (
       ($3 = 'CONTENT_PUBLISHED' AND p.notify_on_new)
    OR ($3 = 'CONTENT_UPDATED' AND p.notify_on_updates)
  )
  AND (
       p.mode = 'ALL'
    OR (p.mode = 'SELECTED' AND $4 = ANY(p.categories))
    OR (p.mode = 'SELECTED' AND p.match_policy = 'CATEGORY_OR_TAGS_OR_SYMBOLS'
        AND (p.tags && $5::text[] OR p.symbols && $6::text[]))
    OR EXISTS (
         SELECT 1 FROM notification_follows f
         WHERE f.user_id = p.user_id
           AND (
                (f.follow_type = 'TAG'      AND f.value = ANY($5::text[]))
             OR (f.follow_type = 'SYMBOL'   AND f.value = ANY($6::text[]))
             OR (f.follow_type = 'STRATEGY' AND f.value = $7)
           )
       )
  )
  AND NOT EXISTS (
    SELECT 1 FROM user_notifications un
    WHERE un.user_id = p.user_id AND un.event_id = $1
  )
RETURNING user_id`

// NotificationStore owns the per-user fan-out rows: bulk insert on dispatch,
// read/mutate from the query side.
type NotificationStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewNotificationStore(db *sql.DB, log logger.Logger) *NotificationStore {
	return &NotificationStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "notification_store"}),
	}
}

// FanOut runs the preference-matching insert for one event and returns the
// user ids that received a new row. Safe to re-run after a partial failure.
func (s *NotificationStore) FanOut(ctx context.Context, ev *models.NotificationEvent, now time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fanOutQuery,
		ev.ID, now, string(ev.EventType), ev.CategoryID,
		pq.Array(ev.Tags), pq.Array(ev.Symbols), ev.ContentID,
	)
	if err != nil {
		return nil, errors.NewFanOutError(ev.ID, err.Error())
	}
	defer rows.Close()

	var recipients []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, errors.NewFanOutError(ev.ID, err.Error())
		}
		recipients = append(recipients, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewFanOutError(ev.ID, err.Error())
	}
	return recipients, nil
}

// FeedPage returns one keyset page of a user's feed, newest first. A nil
// cursor starts from the top; unreadOnly restricts to unread rows.
func (s *NotificationStore) FeedPage(ctx context.Context, userID string, unreadOnly bool, after *FeedCursor, limit int) ([]models.FeedItem, error) {
	query := `
		SELECT n.id, n.event_id, e.event_type, e.content_id, e.category_id,
		       e.payload, n.created_at, n.read_at
		FROM user_notifications n
		JOIN notification_events e ON e.id = n.event_id
		WHERE n.user_id = $1 AND n.dismissed_at IS NULL`
	args := []interface{}{userID}

	if unreadOnly {
		query += ` AND n.read_at IS NULL`
	}
	if after != nil {
		args = append(args, after.CreatedAt, after.ID)
		query += fmt.Sprintf(` AND (n.created_at, n.id) < ($%d, $%d)`, len(args)-1, len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY n.created_at DESC, n.id DESC LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewEventStoreError(err.Error())
	}
	defer rows.Close()

	var items []models.FeedItem
	for rows.Next() {
		var (
			item      models.FeedItem
			eventType string
			payload   []byte
		)
		if err := rows.Scan(
			&item.ID, &item.EventID, &eventType, &item.ContentID, &item.CategoryID,
			&payload, &item.CreatedAt, &item.ReadAt,
		); err != nil {
			return nil, errors.NewEventStoreError(err.Error())
		}
		item.EventType = models.EventType(eventType)
		if err := json.Unmarshal(payload, &item.Payload); err != nil {
			return nil, errors.NewEventStoreError(fmt.Sprintf("unmarshal payload: %v", err))
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewEventStoreError(err.Error())
	}
	return items, nil
}

// FeedCursor is the keyset position of the last item of a page.
type FeedCursor struct {
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"id"`
}

// UnreadCount counts undismissed, unread rows for a user.
func (s *NotificationStore) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_notifications
		 WHERE user_id = $1 AND read_at IS NULL AND dismissed_at IS NULL`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, errors.NewEventStoreError(err.Error())
	}
	return count, nil
}

// MarkRead sets read_at once; re-marking an already-read row keeps the
// original timestamp. Not-found covers both a missing row and a row owned by
// someone else.
func (s *NotificationStore) MarkRead(ctx context.Context, notificationID, userID string, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_notifications
		 SET read_at = COALESCE(read_at, $3)
		 WHERE id = $1 AND user_id = $2`,
		notificationID, userID, now,
	)
	if err != nil {
		return errors.NewEventStoreError(err.Error())
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewEventStoreError(err.Error())
	}
	if affected == 0 {
		return errors.NewNotificationNotFoundError(notificationID)
	}
	return nil
}

// MarkAllRead marks every unread row for a user.
func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_notifications
		 SET read_at = COALESCE(read_at, $2)
		 WHERE user_id = $1 AND read_at IS NULL`,
		userID, now,
	)
	if err != nil {
		return 0, errors.NewEventStoreError(err.Error())
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewEventStoreError(err.Error())
	}
	return int(affected), nil
}
