package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/edupulse/healthwatch/pkg/model"

	_ "modernc.org/sqlite"
)

const alertColumns = `id, type, severity, account_id, account_name, teacher_id, teacher_name,
	title, description, recommendation, ai_reasoning, metrics_snapshot,
	status, created_at, acknowledged_at, resolved_at, resolution_notes,
	fingerprint, generation_batch_id`

// SQLite implements AlertStore using an SQLite database. It is the durable
// path of the repository; a partial unique index on fingerprint makes the
// insert conflict-ignoring, so two concurrent generation runs cannot create
// two open alerts with the same fingerprint.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) ReadOpen(ctx context.Context, limit int) ([]model.Alert, error) {
	query := "SELECT " + alertColumns + ` FROM alerts
		WHERE status NOT IN ('resolved', 'dismissed')
		ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query open alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func (s *SQLite) Get(ctx context.Context, id string) (*model.Alert, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+alertColumns+" FROM alerts WHERE id = ?", id)
	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *SQLite) Persist(ctx context.Context, alerts []model.Alert, batchID string) (int, error) {
	saved := 0
	for i := range alerts {
		a := alerts[i]
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
		if a.MetricsSnapshot == "" {
			a.MetricsSnapshot = "{}"
		}
		a.BatchID = batchID

		// INSERT OR IGNORE rides the partial unique open-fingerprint
		// index: a racing duplicate simply saves zero rows.
		result, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO alerts (`+alertColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Type, a.Severity, a.AccountID, a.AccountName, a.TeacherID, a.TeacherName,
			a.Title, a.Description, a.Recommendation, a.Reasoning, a.MetricsSnapshot,
			a.Status, a.CreatedAt, nullTime(a.AcknowledgedAt), nullTime(a.ResolvedAt), a.ResolutionNotes,
			a.Fingerprint, a.BatchID,
		)
		if err != nil {
			return saved, fmt.Errorf("insert alert: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return saved, fmt.Errorf("check rows affected: %w", err)
		}
		saved += int(n)
	}
	return saved, nil
}

func (s *SQLite) UpdateStatus(ctx context.Context, id string, to model.Status, notes string) (bool, error) {
	now := time.Now().UTC()

	// Primary path: one conditional statement, so the status change and its
	// timestamp side effects land atomically.
	result, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET
			status = ?,
			acknowledged_at = CASE
				WHEN ? = 'acknowledged' THEN ?
				WHEN ? = 'new' THEN NULL
				ELSE acknowledged_at END,
			resolved_at = CASE
				WHEN ? IN ('resolved', 'dismissed', 'false_positive') THEN ?
				WHEN ? = 'new' THEN NULL
				ELSE resolved_at END,
			resolution_notes = CASE WHEN ? != '' THEN ? ELSE resolution_notes END
		 WHERE id = ?`,
		to, to, now, to, to, now, to, notes, notes, id,
	)
	if err != nil {
		// Fallback path: plain read-mutate-write of the same fields.
		return s.updateStatusDirect(ctx, id, to, notes, now)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *SQLite) updateStatusDirect(ctx context.Context, id string, to model.Status, notes string, now time.Time) (bool, error) {
	a, err := s.Get(ctx, id)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	a.SetStatus(to, notes, now)
	result, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET status = ?, acknowledged_at = ?, resolved_at = ?, resolution_notes = ? WHERE id = ?`,
		a.Status, nullTime(a.AcknowledgedAt), nullTime(a.ResolvedAt), a.ResolutionNotes, a.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update alert status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *SQLite) RecordBatch(ctx context.Context, batch *model.GenerationBatch) error {
	if batch.BatchID == "" {
		batch.BatchID = uuid.New().String()
	}
	if batch.CompletedAt.IsZero() {
		batch.CompletedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_logs (batch_id, completed_at, accounts_analyzed, alerts_generated, alerts_skipped, model_used, tokens_used)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		batch.BatchID, batch.CompletedAt, batch.AccountsAnalyzed, batch.AlertsGenerated,
		batch.AlertsSkipped, batch.ModelUsed, batch.TokensUsed,
	)
	if err != nil {
		return fmt.Errorf("insert generation log: %w", err)
	}
	return nil
}

func (s *SQLite) ReadBatches(ctx context.Context, limit int) ([]model.GenerationBatch, error) {
	query := `SELECT batch_id, completed_at, accounts_analyzed, alerts_generated, alerts_skipped, model_used, tokens_used
		FROM generation_logs ORDER BY completed_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query generation logs: %w", err)
	}
	defer rows.Close()

	var batches []model.GenerationBatch
	for rows.Next() {
		var b model.GenerationBatch
		if err := rows.Scan(&b.BatchID, &b.CompletedAt, &b.AccountsAnalyzed, &b.AlertsGenerated,
			&b.AlertsSkipped, &b.ModelUsed, &b.TokensUsed); err != nil {
			return nil, fmt.Errorf("scan generation log row: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*model.Alert, error) {
	var a model.Alert
	var ackAt, resAt sql.NullTime
	err := row.Scan(&a.ID, &a.Type, &a.Severity, &a.AccountID, &a.AccountName, &a.TeacherID, &a.TeacherName,
		&a.Title, &a.Description, &a.Recommendation, &a.Reasoning, &a.MetricsSnapshot,
		&a.Status, &a.CreatedAt, &ackAt, &resAt, &a.ResolutionNotes,
		&a.Fingerprint, &a.BatchID)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan alert row: %w", err)
	}
	if ackAt.Valid {
		t := ackAt.Time
		a.AcknowledgedAt = &t
	}
	if resAt.Valid {
		t := resAt.Time
		a.ResolvedAt = &t
	}
	return &a, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
