package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// SnapshotRow is one ladder level of one book view after one applied
// record. Empty levels are not stored. Applied counts the updates the book
// had taken when the row was written; one message can carry several
// updates for a book, so Ordinal alone does not identify a snapshot.
type SnapshotRow struct {
	RunID      string
	Ordinal    uint64
	Applied    uint64
	SecurityID int32
	View       string
	Side       string
	Level      int
	Price      int64
	Size       int64
	Orders     int64
}

// SnapshotStore buffers ladder rows and writes them in batches. Replay
// workers share one store.
type SnapshotStore struct {
	db        *sql.DB
	batchSize int

	mu      sync.Mutex
	pending []SnapshotRow
	written int64
}

func NewSnapshotStore(path string, batchSize int) (*SnapshotStore, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			run_id TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			applied INTEGER NOT NULL,
			security_id INTEGER NOT NULL,
			view TEXT NOT NULL,
			side TEXT NOT NULL,
			level INTEGER NOT NULL,
			price INTEGER NOT NULL,
			size INTEGER NOT NULL,
			orders INTEGER NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create snapshots table: %w", err)
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS snapshots_security ON snapshots (run_id, security_id, view, applied)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create snapshots index: %w", err)
	}

	if batchSize <= 0 {
		batchSize = 10000
	}
	return &SnapshotStore{db: db, batchSize: batchSize}, nil
}

func (s *SnapshotStore) Add(ctx context.Context, rows ...SnapshotRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, rows...)
	if len(s.pending) < s.batchSize {
		return nil
	}
	return s.flushLocked(ctx)
}

func (s *SnapshotStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

func (s *SnapshotStore) flushLocked(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO snapshots (run_id, ordinal, applied, security_id, view, side, level, price, size, orders) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range s.pending {
		if _, err := stmt.ExecContext(ctx, r.RunID, int64(r.Ordinal), int64(r.Applied), r.SecurityID, r.View, r.Side, r.Level, r.Price, r.Size, r.Orders); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshots: %w", err)
	}

	s.written += int64(len(s.pending))
	s.pending = s.pending[:0]
	return nil
}

// Written is the number of rows committed so far.
func (s *SnapshotStore) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Latest returns the rows of the last stored snapshot of one book view.
func (s *SnapshotStore) Latest(ctx context.Context, runID string, securityID int32, view string) ([]SnapshotRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ordinal, applied, side, level, price, size, orders FROM snapshots
		WHERE run_id = ? AND security_id = ? AND view = ?
		  AND applied = (SELECT MAX(applied) FROM snapshots WHERE run_id = ? AND security_id = ? AND view = ?)
		ORDER BY side, level`,
		runID, securityID, view, runID, securityID, view,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		r := SnapshotRow{RunID: runID, SecurityID: securityID, View: view}
		var ordinal, applied int64
		if err := rows.Scan(&ordinal, &applied, &r.Side, &r.Level, &r.Price, &r.Size, &r.Orders); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		r.Ordinal = uint64(ordinal)
		r.Applied = uint64(applied)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

func (s *SnapshotStore) Close() error {
	if err := s.Flush(context.Background()); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}
