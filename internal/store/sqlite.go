package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/model"

	_ "modernc.org/sqlite"
)

const createBatchesTable = `
CREATE TABLE IF NOT EXISTS batches (
    id          TEXT PRIMARY KEY,
    target      TEXT NOT NULL,
    attempted   INTEGER NOT NULL DEFAULT 0,
    succeeded   INTEGER NOT NULL DEFAULT 0,
    elapsed_ms  INTEGER,
    started_at  DATETIME NOT NULL,
    finished_at DATETIME
)`

const createItemsTable = `
CREATE TABLE IF NOT EXISTS items (
    id          TEXT PRIMARY KEY,
    batch_id    TEXT NOT NULL REFERENCES batches(id),
    seq         INTEGER NOT NULL,
    grp         TEXT NOT NULL,
    label       TEXT NOT NULL,
    generator   TEXT NOT NULL,
    output_path TEXT NOT NULL,
    status      TEXT NOT NULL,
    message     TEXT,
    exit_code   INTEGER,
    skipped     INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL,
    finished_at DATETIME NOT NULL
)`

const createItemsIndex = `CREATE INDEX IF NOT EXISTS idx_items_batch ON items(batch_id, seq)`

// ErrNotFound is returned when a batch is not found.
var ErrNotFound = errors.New("batch not found")

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for _, stmt := range []string{createBatchesTable, createItemsTable, createItemsIndex} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateBatch inserts a new batch record.
func (s *SQLiteStore) CreateBatch(ctx context.Context, b *model.Batch) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batches (id, target, attempted, succeeded, elapsed_ms, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Target, b.Attempted, b.Succeeded, b.ElapsedMS, b.StartedAt, b.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// FinishBatch records the final counts of a batch.
func (s *SQLiteStore) FinishBatch(ctx context.Context, b *model.Batch) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE batches SET attempted = ?, succeeded = ?, elapsed_ms = ?, finished_at = ?
		WHERE id = ?`,
		b.Attempted, b.Succeeded, b.ElapsedMS, b.FinishedAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetBatch retrieves a batch by ID.
func (s *SQLiteStore) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	b := &model.Batch{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, target, attempted, succeeded, elapsed_ms, started_at, finished_at
		FROM batches WHERE id = ?`, id,
	).Scan(&b.ID, &b.Target, &b.Attempted, &b.Succeeded, &b.ElapsedMS, &b.StartedAt, &b.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

// ListBatches returns a page of batches, newest first, along with the total
// number of batches.
func (s *SQLiteStore) ListBatches(ctx context.Context, limit, offset int) ([]*model.Batch, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM batches").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, target, attempted, succeeded, elapsed_ms, started_at, finished_at
		FROM batches ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	batches := make([]*model.Batch, 0)
	for rows.Next() {
		b := &model.Batch{}
		if err := rows.Scan(&b.ID, &b.Target, &b.Attempted, &b.Succeeded, &b.ElapsedMS, &b.StartedAt, &b.FinishedAt); err != nil {
			return nil, 0, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate batches: %w", err)
	}
	return batches, total, nil
}

// InsertItem records the terminal outcome of one item.
func (s *SQLiteStore) InsertItem(ctx context.Context, rec *model.ItemRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO items (
			id, batch_id, seq, grp, label, generator, output_path,
			status, message, exit_code, skipped, duration_ms, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.BatchID, rec.Seq, rec.Group, rec.Label, rec.Generator, rec.OutputPath,
		rec.Status, rec.Message, rec.ExitCode, rec.Skipped, rec.DurationMS, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// ListItems returns the items of a batch in plan order.
func (s *SQLiteStore) ListItems(ctx context.Context, batchID string) ([]model.ItemRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, batch_id, seq, grp, label, generator, output_path,
			status, message, exit_code, skipped, duration_ms, finished_at
		FROM items WHERE batch_id = ? ORDER BY seq ASC`, batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make([]model.ItemRecord, 0)
	for rows.Next() {
		var rec model.ItemRecord
		var message sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.BatchID, &rec.Seq, &rec.Group, &rec.Label, &rec.Generator, &rec.OutputPath,
			&rec.Status, &message, &rec.ExitCode, &rec.Skipped, &rec.DurationMS, &rec.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		rec.Message = message.String
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// GetItemStats aggregates item outcomes over the whole history. Skipped
// items are excluded from the average duration.
func (s *SQLiteStore) GetItemStats(ctx context.Context) (*ItemStats, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	stats := &ItemStats{CountByStatus: make(map[string]int)}
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM batches").Scan(&stats.Batches); err != nil {
		return nil, fmt.Errorf("count batches: %w", err)
	}

	var avg sql.NullFloat64
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(skipped), 0),
			(SELECT AVG(duration_ms) FROM items WHERE skipped = 0)
		FROM items`,
	).Scan(&stats.Items, &stats.Skipped, &avg)
	if err != nil {
		return nil, fmt.Errorf("summarize items: %w", err)
	}
	stats.AvgDurationMS = avg.Float64

	rows, err := tx.QueryContext(ctx, "SELECT status, COUNT(*) FROM items GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.CountByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return stats, nil
}
