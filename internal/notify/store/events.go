// internal/notify/store/events.go
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

// pgUniqueViolation is the Postgres error code for a unique constraint hit.
const pgUniqueViolation = "23505"

// EventStore persists notification events and their dispatch state. All
// status transitions run as single conditional statements so concurrent
// workers serialize at the row level.
type EventStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewEventStore(db *sql.DB, log logger.Logger) *EventStore {
	return &EventStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "event_store"}),
	}
}

// Exists reports whether an event already exists for the dedup key.
func (s *EventStore) Exists(ctx context.Context, contentID string, eventType models.EventType, version int) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM notification_events
		 WHERE content_id = $1 AND event_type = $2 AND content_version = $3`,
		contentID, string(eventType), version,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewEventStoreError(err.Error())
	}
	return true, nil
}

// Insert writes a new PENDING event. A unique-constraint conflict returns a
// DUPLICATE_EVENT error so concurrent creators can drop it silently.
func (s *EventStore) Insert(ctx context.Context, ev *models.NotificationEvent) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return errors.NewEventStoreError(fmt.Sprintf("marshal payload: %v", err))
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notification_events
		 (id, event_type, content_id, content_version, category_id, tags, symbols,
		  payload, effective_at, status, attempts, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'PENDING', 0, $10, $11)`,
		ev.ID, string(ev.EventType), ev.ContentID, ev.ContentVersion, ev.CategoryID,
		pq.Array(ev.Tags), pq.Array(ev.Symbols), payload, ev.EffectiveAt,
		ev.CreatedBy, ev.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == pgUniqueViolation {
			return errors.NewDuplicateEventError(ev.ContentID, ev.ContentVersion)
		}
		return errors.NewEventStoreError(err.Error())
	}
	return nil
}

// FindDue returns up to limit event ids that are dispatchable: not sent, due,
// and either unclaimed or holding a claim older than staleClaim.
func (s *EventStore) FindDue(ctx context.Context, now time.Time, staleClaim time.Duration, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM notification_events
		 WHERE status <> 'SENT'
		   AND dispatched_at IS NULL
		   AND effective_at <= $1
		   AND (status <> 'PROCESSING' OR claimed_at < $2)
		 ORDER BY effective_at ASC
		 LIMIT $3`,
		now, now.Add(-staleClaim), limit,
	)
	if err != nil {
		return nil, errors.NewEventStoreError(err.Error())
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewEventStoreError(err.Error())
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewEventStoreError(err.Error())
	}
	return ids, nil
}

// Claim atomically takes ownership of an event: sets PROCESSING and bumps the
// attempt counter in one statement. Eligible rows are PENDING, FAILED past
// their backoff time, or PROCESSING with a claim older than staleClaim (a
// crashed worker's leftovers). Returns false when another worker won or the
// event is not due; the caller treats that as a silent no-op.
func (s *EventStore) Claim(ctx context.Context, eventID string, now time.Time, staleClaim time.Duration) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notification_events
		 SET status = 'PROCESSING', attempts = attempts + 1, claimed_at = $2
		 WHERE id = $1
		   AND effective_at <= $2
		   AND dispatched_at IS NULL
		   AND (status IN ('PENDING', 'FAILED')
		        OR (status = 'PROCESSING' AND claimed_at < $3))`,
		eventID, now, now.Add(-staleClaim),
	)
	if err != nil {
		return false, errors.NewEventStoreError(err.Error())
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewEventStoreError(err.Error())
	}
	return affected == 1, nil
}

// Get re-reads an event after a claim.
func (s *EventStore) Get(ctx context.Context, eventID string) (*models.NotificationEvent, error) {
	var (
		ev        models.NotificationEvent
		eventType string
		status    string
		payload   []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, event_type, content_id, content_version, category_id, tags, symbols,
		        payload, effective_at, dispatched_at, status, attempts, last_error,
		        created_by, created_at, claimed_at
		 FROM notification_events WHERE id = $1`,
		eventID,
	).Scan(
		&ev.ID, &eventType, &ev.ContentID, &ev.ContentVersion, &ev.CategoryID,
		pq.Array(&ev.Tags), pq.Array(&ev.Symbols), &payload, &ev.EffectiveAt,
		&ev.DispatchedAt, &status, &ev.Attempts, &ev.LastError,
		&ev.CreatedBy, &ev.CreatedAt, &ev.ClaimedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewEventMissingAfterClaimError(eventID)
	}
	if err != nil {
		return nil, errors.NewEventStoreError(err.Error())
	}

	ev.EventType = models.EventType(eventType)
	ev.Status = models.EventStatus(status)
	if err := json.Unmarshal(payload, &ev.Payload); err != nil {
		return nil, errors.NewEventStoreError(fmt.Sprintf("unmarshal payload: %v", err))
	}
	return &ev, nil
}

// MarkSent finalizes a dispatched event. Only a PROCESSING row can become
// SENT; zero rows affected means the state machine was violated and the
// caller should log loudly without crashing.
func (s *EventStore) MarkSent(ctx context.Context, eventID string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notification_events
		 SET status = 'SENT', dispatched_at = $2, last_error = ''
		 WHERE id = $1 AND status = 'PROCESSING'`,
		eventID, now,
	)
	if err != nil {
		return false, errors.NewEventStoreError(err.Error())
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewEventStoreError(err.Error())
	}
	return affected == 1, nil
}

// MarkFailed parks an event for retry: FAILED status with effective_at moved
// to the backoff time. The scheduler reconsiders it once that elapses. Only a
// PROCESSING row can be parked; zero rows affected means the claim was lost,
// usually to a reclaiming worker that already finished the event. SENT stays
// terminal either way.
func (s *EventStore) MarkFailed(ctx context.Context, eventID string, retryAt time.Time, lastError string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notification_events
		 SET status = 'FAILED', effective_at = $2, last_error = $3
		 WHERE id = $1 AND status = 'PROCESSING'`,
		eventID, retryAt, lastError,
	)
	if err != nil {
		return false, errors.NewEventStoreError(err.Error())
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewEventStoreError(err.Error())
	}
	return affected == 1, nil
}
