package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "dreams and analysis reports",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS dreams (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    payload TEXT NOT NULL,
    source_key TEXT,
    created_at TEXT,
    stored_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS analysis_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    total_dreams INTEGER DEFAULT 0,
    skipped_records INTEGER DEFAULT 0,
    lexicon_version TEXT,
    report_json TEXT NOT NULL,
    generated_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_dreams_user ON dreams(user_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_dreams_source ON dreams(user_id, source_key);
CREATE INDEX IF NOT EXISTS idx_reports_user ON analysis_reports(user_id);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "subscriptions",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS subscriptions (
    user_id TEXT PRIMARY KEY,
    subscription_type TEXT NOT NULL CHECK(subscription_type IN ('basic', 'premium')),
    subscription_end TEXT,
    updated_at TEXT DEFAULT (datetime('now'))
);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
