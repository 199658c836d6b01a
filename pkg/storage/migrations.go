package storage

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	// Migration 1: alerts and generation audit log
	`CREATE TABLE IF NOT EXISTS alerts (
		id                  TEXT PRIMARY KEY,
		type                TEXT NOT NULL CHECK(type IN ('churn_risk', 'upsell', 'renewal', 'engagement', 'onboarding', 'support')),
		severity            TEXT NOT NULL CHECK(severity IN ('critical', 'high', 'medium', 'low')),
		account_id          TEXT NOT NULL,
		account_name        TEXT NOT NULL DEFAULT '',
		teacher_id          TEXT NOT NULL DEFAULT '',
		teacher_name        TEXT NOT NULL DEFAULT '',
		title               TEXT NOT NULL,
		description         TEXT NOT NULL DEFAULT '',
		recommendation      TEXT NOT NULL DEFAULT '',
		ai_reasoning        TEXT NOT NULL DEFAULT '',
		metrics_snapshot    TEXT NOT NULL DEFAULT '{}',
		status              TEXT NOT NULL DEFAULT 'new' CHECK(status IN ('new', 'acknowledged', 'in_progress', 'resolved', 'dismissed', 'false_positive')),
		created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		acknowledged_at     DATETIME,
		resolved_at         DATETIME,
		resolution_notes    TEXT NOT NULL DEFAULT '',
		fingerprint         TEXT NOT NULL,
		generation_batch_id TEXT NOT NULL DEFAULT ''
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_open_fingerprint
		ON alerts(fingerprint) WHERE status NOT IN ('resolved', 'dismissed');
	CREATE INDEX IF NOT EXISTS idx_alerts_account ON alerts(account_id);
	CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
	CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at);

	CREATE TABLE IF NOT EXISTS generation_logs (
		batch_id          TEXT PRIMARY KEY,
		completed_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		accounts_analyzed INTEGER NOT NULL DEFAULT 0,
		alerts_generated  INTEGER NOT NULL DEFAULT 0,
		alerts_skipped    INTEGER NOT NULL DEFAULT 0,
		model_used        TEXT NOT NULL DEFAULT '',
		tokens_used       INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := currentVersion; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("run migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
