// internal/notify/store/preferences.go
package store

import (
	"context"
	"database/sql"
	"time"

	"journal-notifier/internal/common/errors"
	"journal-notifier/internal/common/logger"
	"journal-notifier/internal/models"

	"github.com/lib/pq"
)

// PreferenceStore owns per-user preference and follow rows. Tag, symbol and
// category sets are normalized once here, at write time.
type PreferenceStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPreferenceStore(db *sql.DB, log logger.Logger) *PreferenceStore {
	return &PreferenceStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "preference_store"}),
	}
}

// GetOrCreate returns a user's preference row, lazily inserting the defaults
// on first access. The ON CONFLICT guard keeps concurrent first accesses to a
// single row.
func (s *PreferenceStore) GetOrCreate(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	defaults := models.DefaultPreferences(userID)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification_preferences
		 (user_id, enabled, notify_on_new, notify_on_updates, mode, categories, tags, symbols, match_policy, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, defaults.Enabled, defaults.NotifyOnNew, defaults.NotifyOnUpdates,
		string(defaults.Mode), pq.Array(defaults.Categories), pq.Array(defaults.Tags),
		pq.Array(defaults.Symbols), string(defaults.MatchPolicy),
	)
	if err != nil {
		return nil, errors.NewEventStoreError(err.Error())
	}
	return s.get(ctx, userID)
}

func (s *PreferenceStore) get(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	var (
		p           models.NotificationPreferences
		mode        string
		matchPolicy string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, enabled, notify_on_new, notify_on_updates, mode,
		        categories, tags, symbols, match_policy, updated_at
		 FROM notification_preferences WHERE user_id = $1`,
		userID,
	).Scan(
		&p.UserID, &p.Enabled, &p.NotifyOnNew, &p.NotifyOnUpdates, &mode,
		pq.Array(&p.Categories), pq.Array(&p.Tags), pq.Array(&p.Symbols),
		&matchPolicy, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotificationNotFoundError(userID)
	}
	if err != nil {
		return nil, errors.NewEventStoreError(err.Error())
	}
	p.Mode = models.PreferenceMode(mode)
	p.MatchPolicy = models.MatchPolicy(matchPolicy)
	return &p, nil
}

// Update upserts a user's preferences, normalizing every set.
func (s *PreferenceStore) Update(ctx context.Context, p *models.NotificationPreferences, now time.Time) error {
	p.Categories = models.NormalizeSet(p.Categories)
	p.Tags = models.NormalizeSet(p.Tags)
	p.Symbols = models.NormalizeSet(p.Symbols)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification_preferences
		 (user_id, enabled, notify_on_new, notify_on_updates, mode, categories, tags, symbols, match_policy, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (user_id) DO UPDATE SET
		   enabled = EXCLUDED.enabled,
		   notify_on_new = EXCLUDED.notify_on_new,
		   notify_on_updates = EXCLUDED.notify_on_updates,
		   mode = EXCLUDED.mode,
		   categories = EXCLUDED.categories,
		   tags = EXCLUDED.tags,
		   symbols = EXCLUDED.symbols,
		   match_policy = EXCLUDED.match_policy,
		   updated_at = EXCLUDED.updated_at`,
		p.UserID, p.Enabled, p.NotifyOnNew, p.NotifyOnUpdates, string(p.Mode),
		pq.Array(p.Categories), pq.Array(p.Tags), pq.Array(p.Symbols),
		string(p.MatchPolicy), now,
	)
	if err != nil {
		return errors.NewEventStoreError(err.Error())
	}
	return nil
}

// ListFollows returns a user's follow rows.
func (s *PreferenceStore) ListFollows(ctx context.Context, userID string) ([]models.Follow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, follow_type, value, created_at
		 FROM notification_follows WHERE user_id = $1
		 ORDER BY follow_type, value`,
		userID,
	)
	if err != nil {
		return nil, errors.NewEventStoreError(err.Error())
	}
	defer rows.Close()

	var follows []models.Follow
	for rows.Next() {
		var (
			f          models.Follow
			followType string
		)
		if err := rows.Scan(&f.UserID, &followType, &f.Value, &f.CreatedAt); err != nil {
			return nil, errors.NewEventStoreError(err.Error())
		}
		f.Type = models.FollowType(followType)
		follows = append(follows, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewEventStoreError(err.Error())
	}
	return follows, nil
}

// AddFollow inserts a follow row, ignoring duplicates. The value is
// normalized the same way event tag/symbol sets are.
func (s *PreferenceStore) AddFollow(ctx context.Context, f models.Follow, now time.Time) error {
	values := models.NormalizeSet([]string{f.Value})
	if len(values) == 0 {
		return errors.NewValidationError("follow value is empty")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification_follows (user_id, follow_type, value, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, follow_type, value) DO NOTHING`,
		f.UserID, string(f.Type), values[0], now,
	)
	if err != nil {
		return errors.NewEventStoreError(err.Error())
	}
	return nil
}

// RemoveFollow deletes a follow row if present.
func (s *PreferenceStore) RemoveFollow(ctx context.Context, f models.Follow) error {
	values := models.NormalizeSet([]string{f.Value})
	if len(values) == 0 {
		return errors.NewValidationError("follow value is empty")
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM notification_follows
		 WHERE user_id = $1 AND follow_type = $2 AND value = $3`,
		f.UserID, string(f.Type), values[0],
	)
	if err != nil {
		return errors.NewEventStoreError(err.Error())
	}
	return nil
}
