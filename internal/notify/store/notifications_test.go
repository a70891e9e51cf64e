// internal/notify/store/notifications_test.go
package store

import (
	"context"
	"testing"
	"time"

	"journal-notifier/internal/common/errors"
	"journal-notifier/internal/common/logger"
	"journal-notifier/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFanOutQuery_MatchingPredicate pins the recipient-selection contract of
// the single-statement fan-out. The fixed statement covers the whole matrix
// in one pass, so each matching rule must appear as a disjunct and the event
// type must gate on the per-user new/updates toggles.
func TestFanOutQuery_MatchingPredicate(t *testing.T) {
	tests := []struct {
		name   string
		clause string
	}{
		{"disabled users are excluded", "WHERE p.enabled"},
		{"published events gate on notify_on_new", "'CONTENT_PUBLISHED' AND p.notify_on_new"},
		{"updated events gate on notify_on_updates", "'CONTENT_UPDATED' AND p.notify_on_updates"},
		{"firehose mode matches everything", "p.mode = 'ALL'"},
		{"selected mode matches by category", "p.mode = 'SELECTED' AND $4 = ANY(p.categories)"},
		{"wider policy adds tag overlap", "p.match_policy = 'CATEGORY_OR_TAGS_OR_SYMBOLS'"},
		{"tag overlap uses array intersection", "p.tags && $5::text[]"},
		{"symbol overlap uses array intersection", "p.symbols && $6::text[]"},
		{"tag follows match event tags", "f.follow_type = 'TAG'      AND f.value = ANY($5::text[])"},
		{"symbol follows match event symbols", "f.follow_type = 'SYMBOL'   AND f.value = ANY($6::text[])"},
		{"strategy follows match the content id", "f.follow_type = 'STRATEGY' AND f.value = $7"},
		{"existing rows are never re-inserted", "AND NOT EXISTS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, fanOutQuery, tt.clause)
		})
	}

	// The follow branch reads each candidate's own follows, not a global set.
	assert.Contains(t, fanOutQuery, "FROM notification_follows f")
	assert.Contains(t, fanOutQuery, "f.user_id = p.user_id")
}

func TestNotificationStore_FanOut_ReturnsRecipients(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"user_id"}).
		AddRow("user-all").
		AddRow("user-category").
		AddRow("user-follow")
	mock.ExpectQuery("INSERT INTO user_notifications").
		WillReturnRows(rows)

	s := NewNotificationStore(db, logger.NewNoOpLogger())
	recipients, err := s.FanOut(context.Background(), testEvent(), time.Now().UTC())

	require.NoError(t, err)
	assert.Equal(t, []string{"user-all", "user-category", "user-follow"}, recipients)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationStore_FanOut_BindsEventFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	ev := testEvent()
	// Positional contract: $1 event id, $2 created_at, $3 type for the
	// new/updates gate, $4 category, $5/$6 tag and symbol arrays for the
	// overlap and follow branches, $7 content id for strategy follows.
	mock.ExpectQuery("INSERT INTO user_notifications").
		WithArgs(
			ev.ID, now, "CONTENT_PUBLISHED", "macro",
			pq.Array([]string{"fed", "rates"}), pq.Array([]string{"eurusd"}), "post-42",
		).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-1"))

	s := NewNotificationStore(db, logger.NewNoOpLogger())
	recipients, err := s.FanOut(context.Background(), ev, now)

	require.NoError(t, err)
	assert.Equal(t, []string{"user-1"}, recipients)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationStore_FanOut_UpdatedEventBindsUpdateGate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	ev := testEvent()
	ev.EventType = models.EventTypeContentUpdated

	// An update binds CONTENT_UPDATED, so only users with notify_on_updates
	// pass the type gate; notify_on_new subscribers are untouched.
	mock.ExpectQuery("INSERT INTO user_notifications").
		WithArgs(
			ev.ID, now, "CONTENT_UPDATED", "macro",
			pq.Array([]string{"fed", "rates"}), pq.Array([]string{"eurusd"}), "post-42",
		).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	s := NewNotificationStore(db, logger.NewNoOpLogger())
	recipients, err := s.FanOut(context.Background(), ev, now)

	require.NoError(t, err)
	assert.Empty(t, recipients)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationStore_FanOut_RerunInsertsNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Second run: NOT EXISTS filters every candidate, RETURNING yields no rows.
	mock.ExpectQuery("INSERT INTO user_notifications").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	s := NewNotificationStore(db, logger.NewNoOpLogger())
	recipients, err := s.FanOut(context.Background(), testEvent(), time.Now().UTC())

	require.NoError(t, err)
	assert.Empty(t, recipients)
}

func TestNotificationStore_FeedPage_CursorPredicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "event_id", "event_type", "content_id", "category_id",
		"payload", "created_at", "read_at",
	}).AddRow(
		"n-1", "ev-1", "CONTENT_PUBLISHED", "post-42", "macro",
		[]byte(`{"locales":{"en":{"title":"FOMC recap"}},"slug":"fomc-recap"}`),
		created, nil,
	)
	mock.ExpectQuery("SELECT n.id, n.event_id, e.event_type").
		WithArgs("user-1", created, "n-9", 20).
		WillReturnRows(rows)

	s := NewNotificationStore(db, logger.NewNoOpLogger())
	items, err := s.FeedPage(context.Background(), "user-1", false,
		&FeedCursor{CreatedAt: created, ID: "n-9"}, 20)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "n-1", items[0].ID)
	assert.Equal(t, models.EventTypeContentPublished, items[0].EventType)
	assert.Equal(t, "FOMC recap", items[0].Payload.Locales["en"].Title)
	assert.Nil(t, items[0].ReadAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationStore_MarkRead_NotOwned(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE user_notifications").
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewNotificationStore(db, logger.NewNoOpLogger())
	err = s.MarkRead(context.Background(), "n-1", "someone-else", time.Now().UTC())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotificationNotFound, errors.CodeOf(err))
}

func TestNotificationStore_MarkAllRead(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE user_notifications").
		WillReturnResult(sqlmock.NewResult(0, 7))

	s := NewNotificationStore(db, logger.NewNoOpLogger())
	marked, err := s.MarkAllRead(context.Background(), "user-1", time.Now().UTC())

	require.NoError(t, err)
	assert.Equal(t, 7, marked)
}

func TestNotificationStore_UnreadCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	s := NewNotificationStore(db, logger.NewNoOpLogger())
	count, err := s.UnreadCount(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
