// internal/notify/store/events_test.go
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

func testEvent() *models.NotificationEvent {
	return &models.NotificationEvent{
		ID:             "7be6c9a1-58d9-4bb4-9545-17d8a90c6f01",
		EventType:      models.EventTypeContentPublished,
		ContentID:      "post-42",
		ContentVersion: 3,
		CategoryID:     "macro",
		Tags:           []string{"fed", "rates"},
		Symbols:        []string{"eurusd"},
		Payload: models.ContentSnapshot{
			Locales: map[string]models.LocalizedText{
				"en": {Title: "FOMC recap", Summary: "Rates held"},
			},
			Slug: "fomc-recap",
		},
		EffectiveAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Status:      models.EventStatusPending,
		CreatedBy:   "editor-1",
		CreatedAt:   time.Date(2026, 3, 1, 8, 59, 0, 0, time.UTC),
	}
}

func TestEventStore_Insert_DuplicateKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO notification_events").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_event_content_type_version"})

	s := NewEventStore(db, logger.NewNoOpLogger())
	err = s.Insert(context.Background(), testEvent())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDuplicateEvent, errors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_Insert_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO notification_events").
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewEventStore(db, logger.NewNoOpLogger())
	assert.NoError(t, s.Insert(context.Background(), testEvent()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_Claim(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		claimed  bool
	}{
		{name: "claim wins", affected: 1, claimed: true},
		{name: "already claimed elsewhere", affected: 0, claimed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectExec("UPDATE notification_events").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			s := NewEventStore(db, logger.NewNoOpLogger())
			claimed, err := s.Claim(context.Background(), "ev-1", time.Now().UTC(), 5*time.Minute)

			require.NoError(t, err)
			assert.Equal(t, tt.claimed, claimed)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventStore_MarkSent_GuardsProcessingState(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Row no longer PROCESSING: the conditional mark affects nothing.
	mock.ExpectExec("UPDATE notification_events").
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewEventStore(db, logger.NewNoOpLogger())
	ok, err := s.MarkSent(context.Background(), "ev-1", time.Now().UTC())

	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_MarkFailed_GuardsProcessingState(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// A reclaiming worker already finished the event; the row is SENT, not
	// PROCESSING, so parking it must affect nothing.
	mock.ExpectExec("SET status = 'FAILED'.*AND status = 'PROCESSING'").
		WithArgs("ev-1", sqlmock.AnyArg(), "connection reset").
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewEventStore(db, logger.NewNoOpLogger())
	ok, err := s.MarkFailed(context.Background(), "ev-1", time.Now().UTC(), "connection reset")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_MarkFailed_ParksProcessingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	retryAt := time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE notification_events").
		WithArgs("ev-1", retryAt, "connection reset").
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewEventStore(db, logger.NewNoOpLogger())
	ok, err := s.MarkFailed(context.Background(), "ev-1", retryAt, "connection reset")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_FindDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id"}).
		AddRow("ev-1").
		AddRow("ev-2")
	mock.ExpectQuery("SELECT id FROM notification_events").
		WillReturnRows(rows)

	s := NewEventStore(db, logger.NewNoOpLogger())
	ids, err := s.FindDue(context.Background(), time.Now().UTC(), 5*time.Minute, 50)

	require.NoError(t, err)
	assert.Equal(t, []string{"ev-1", "ev-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventStore_Get_MissingAfterClaim(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, event_type, content_id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	s := NewEventStore(db, logger.NewNoOpLogger())
	_, err = s.Get(context.Background(), "ev-gone")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeEventMissingAfterClaim, errors.CodeOf(err))
}
