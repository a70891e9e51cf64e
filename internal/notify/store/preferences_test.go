// internal/notify/store/preferences_test.go
package store

import (
	"context"
	"testing"
	"time"

	"journal-notifier/internal/common/logger"
	"journal-notifier/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func preferenceColumns() []string {
	return []string{
		"user_id", "enabled", "notify_on_new", "notify_on_updates", "mode",
		"categories", "tags", "symbols", "match_policy", "updated_at",
	}
}

func TestPreferenceStore_GetOrCreateInsertsDefaultsFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO notification_preferences").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT user_id, enabled, notify_on_new").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(preferenceColumns()).AddRow(
			"user-1", true, true, true, "ALL",
			"{}", "{}", "{}", "CATEGORY_ONLY", time.Now(),
		))

	store := NewPreferenceStore(db, logger.NewTestLogger(t))
	prefs, err := store.GetOrCreate(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "user-1", prefs.UserID)
	assert.True(t, prefs.Enabled)
	assert.Equal(t, models.PreferenceModeAll, prefs.Mode)
	assert.Equal(t, models.MatchPolicyCategoryOnly, prefs.MatchPolicy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferenceStore_UpdateNormalizesSets(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	prefs := &models.NotificationPreferences{
		UserID:      "user-1",
		Enabled:     true,
		NotifyOnNew: true,
		Mode:        models.PreferenceModeSelected,
		Categories:  []string{"Macro", "macro", " rates "},
		Tags:        []string{"FED"},
		Symbols:     nil,
		MatchPolicy: models.MatchPolicyCategoryTagsOrSymbols,
	}

	mock.ExpectExec("INSERT INTO notification_preferences").
		WithArgs("user-1", true, true, false, "SELECTED",
			pq.Array([]string{"macro", "rates"}), pq.Array([]string{"fed"}),
			pq.Array([]string{}), "CATEGORY_OR_TAGS_OR_SYMBOLS", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPreferenceStore(db, logger.NewTestLogger(t))
	require.NoError(t, store.Update(context.Background(), prefs, now))

	// The caller's struct reflects the stored, normalized sets.
	assert.Equal(t, []string{"macro", "rates"}, prefs.Categories)
	assert.Equal(t, []string{"fed"}, prefs.Tags)
	assert.NotNil(t, prefs.Symbols)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferenceStore_AddFollowNormalizesValue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO notification_follows").
		WithArgs("user-1", "SYMBOL", "eurusd", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPreferenceStore(db, logger.NewTestLogger(t))
	err = store.AddFollow(context.Background(),
		models.Follow{UserID: "user-1", Type: models.FollowTypeSymbol, Value: "  EURUSD "}, now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferenceStore_AddFollowRejectsBlankValue(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPreferenceStore(db, logger.NewTestLogger(t))
	err = store.AddFollow(context.Background(),
		models.Follow{UserID: "user-1", Type: models.FollowTypeTag, Value: "   "}, time.Now())
	require.Error(t, err)
}

func TestPreferenceStore_ListFollows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT user_id, follow_type, value, created_at").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "follow_type", "value", "created_at"}).
			AddRow("user-1", "SYMBOL", "eurusd", created).
			AddRow("user-1", "TAG", "macro", created))

	store := NewPreferenceStore(db, logger.NewTestLogger(t))
	follows, err := store.ListFollows(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, follows, 2)
	assert.Equal(t, models.FollowTypeSymbol, follows[0].Type)
	assert.Equal(t, "eurusd", follows[0].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}
