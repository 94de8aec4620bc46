package postgres

import "context"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS app_users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL,
		skills JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS app_users_email_idx ON app_users (lower(email))`,
	`CREATE TABLE IF NOT EXISTS app_posts (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		owner_id TEXT NOT NULL,
		tags JSONB NOT NULL DEFAULT '[]',
		due_date TIMESTAMPTZ,
		status TEXT NOT NULL,
		applied_users JSONB NOT NULL DEFAULT '[]',
		assigned_user_id TEXT NOT NULL DEFAULT '',
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS app_posts_owner_idx ON app_posts (owner_id)`,
	`CREATE INDEX IF NOT EXISTS app_posts_status_idx ON app_posts (status)`,
	`CREATE TABLE IF NOT EXISTS app_messages (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		text TEXT NOT NULL,
		sent_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS app_messages_room_idx ON app_messages (room_id, sent_at)`,
}

// EnsureSchema creates the tables and indexes used by the store if they do
// not already exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
