package store

import (
	"fmt"
)

func (s *Store) migrate() error {
	return s.migrateV1()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS simulator_messages (
		ts         TEXT PRIMARY KEY,
		channel    TEXT NOT NULL,
		user       TEXT NOT NULL,
		text       TEXT NOT NULL DEFAULT '',
		thread_ts  TEXT,
		subtype    TEXT,
		blocks     TEXT,
		reactions  TEXT,
		file_id    TEXT,
		scope_bot_id TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_channel ON simulator_messages(channel, ts);
	CREATE INDEX IF NOT EXISTS idx_messages_thread ON simulator_messages(channel, thread_ts);
	CREATE INDEX IF NOT EXISTS idx_messages_scope ON simulator_messages(scope_bot_id);

	CREATE TABLE IF NOT EXISTS simulator_files (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		title        TEXT NOT NULL DEFAULT '',
		mimetype     TEXT NOT NULL DEFAULT 'application/octet-stream',
		size         INTEGER NOT NULL,
		user         TEXT NOT NULL,
		channels     TEXT,
		is_expanded  INTEGER NOT NULL DEFAULT 0,
		scope_bot_id TEXT,
		created_at   INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_files_scope ON simulator_files(scope_bot_id);

	INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '1');
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v1: %w", err)
	}

	return nil
}
