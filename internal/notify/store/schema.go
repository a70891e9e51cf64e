// internal/notify/store/schema.go
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements creates the pipeline's tables and indexes. Every statement
// is idempotent so EnsureSchema is safe to run on every startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS notification_events (
		id              UUID PRIMARY KEY,
		event_type      TEXT NOT NULL,
		content_id      TEXT NOT NULL,
		content_version INT  NOT NULL,
		category_id     TEXT NOT NULL DEFAULT '',
		tags            TEXT[] NOT NULL DEFAULT '{}',
		symbols         TEXT[] NOT NULL DEFAULT '{}',
		payload         JSONB NOT NULL DEFAULT '{}',
		effective_at    TIMESTAMPTZ NOT NULL,
		dispatched_at   TIMESTAMPTZ,
		status          TEXT NOT NULL DEFAULT 'PENDING',
		attempts        INT NOT NULL DEFAULT 0,
		last_error      TEXT NOT NULL DEFAULT '',
		created_by      TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		claimed_at      TIMESTAMPTZ,
		CONSTRAINT uq_event_content_type_version UNIQUE (content_id, event_type, content_version)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_due
		ON notification_events (status, effective_at)
		WHERE dispatched_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS user_notifications (
		id           UUID PRIMARY KEY,
		user_id      TEXT NOT NULL,
		event_id     UUID NOT NULL REFERENCES notification_events(id),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		read_at      TIMESTAMPTZ,
		clicked_at   TIMESTAMPTZ,
		dismissed_at TIMESTAMPTZ,
		CONSTRAINT uq_notification_user_event UNIQUE (user_id, event_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_feed
		ON user_notifications (user_id, created_at DESC, id DESC)`,
	`CREATE TABLE IF NOT EXISTS notification_preferences (
		user_id           TEXT PRIMARY KEY,
		enabled           BOOLEAN NOT NULL DEFAULT TRUE,
		notify_on_new     BOOLEAN NOT NULL DEFAULT TRUE,
		notify_on_updates BOOLEAN NOT NULL DEFAULT TRUE,
		mode              TEXT NOT NULL DEFAULT 'ALL',
		categories        TEXT[] NOT NULL DEFAULT '{}',
		tags              TEXT[] NOT NULL DEFAULT '{}',
		symbols           TEXT[] NOT NULL DEFAULT '{}',
		match_policy      TEXT NOT NULL DEFAULT 'CATEGORY_ONLY',
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS notification_follows (
		user_id     TEXT NOT NULL,
		follow_type TEXT NOT NULL CHECK (follow_type IN ('TAG','SYMBOL','STRATEGY')),
		value       TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT uq_follow UNIQUE (user_id, follow_type, value)
	)`,
}

// EnsureSchema creates all pipeline tables if they don't already exist.
// Safe to call on every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
