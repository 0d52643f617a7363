package database

import (
	"context"
	"fmt"
	"log/slog"
)

// schema creates every table the dispatcher reads or writes. Statements are
// idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS trigger_rules (
		id               TEXT PRIMARY KEY,
		event_name       TEXT NOT NULL,
		channel_type     SMALLINT NOT NULL,
		template_ref_id  TEXT NOT NULL DEFAULT '',
		condition        TEXT NOT NULL DEFAULT '',
		recipient_spec   TEXT NOT NULL DEFAULT '',
		processing_steps TEXT NOT NULL DEFAULT '',
		is_active        BOOLEAN NOT NULL DEFAULT TRUE,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trigger_rules_event ON trigger_rules (event_name) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS content_templates (
		id   TEXT PRIMARY KEY,
		body TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chat_templates (
		id            TEXT PRIMARY KEY,
		template_id   TEXT NOT NULL,
		param_mapping TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS sms_templates (
		id            TEXT PRIMARY KEY,
		template_code TEXT NOT NULL,
		routing_hint  TEXT NOT NULL DEFAULT '',
		body          TEXT NOT NULL DEFAULT '',
		param_mapping TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS http_templates (
		id            TEXT PRIMARY KEY,
		method        TEXT NOT NULL DEFAULT 'POST',
		endpoint      TEXT NOT NULL,
		headers       TEXT NOT NULL DEFAULT '',
		body          TEXT NOT NULL DEFAULT '',
		param_mapping TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS consumable_values (
		id         BIGSERIAL PRIMARY KEY,
		code       TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		is_used    BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_consumable_values_unused ON consumable_values (code, key, id) WHERE NOT is_used`,
	`CREATE TABLE IF NOT EXISTS members (
		id      TEXT PRIMARY KEY,
		chat_id TEXT,
		phone   TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS group_members (
		group_id  TEXT NOT NULL,
		member_id TEXT NOT NULL REFERENCES members (id),
		PRIMARY KEY (group_id, member_id)
	)`,
	`CREATE TABLE IF NOT EXISTS delivery_logs (
		id            UUID PRIMARY KEY,
		channel_type  SMALLINT NOT NULL,
		type          TEXT NOT NULL,
		rule_id       TEXT NOT NULL,
		event_name    TEXT NOT NULL,
		recipient     TEXT NOT NULL,
		request_body  TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT '',
		result_code   TEXT NOT NULL DEFAULT '',
		success       BOOLEAN NOT NULL,
		metadata      JSONB,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_logs_type_created ON delivery_logs (type, created_at DESC)`,
}

// Migrate creates missing tables and indexes.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	slog.Info("Database schema is up to date", "statements", len(schema))
	return nil
}
