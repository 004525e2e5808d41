package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RunInfo is one decode run as recorded in the catalog.
type RunInfo struct {
	ID           string    `json:"id"`
	Input        string    `json:"input"`
	Framing      string    `json:"framing"`
	Format       Format    `json:"format"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitempty"`
	Messages     uint64    `json:"messages"`
	Records      uint64    `json:"records"`
	DecodeErrors uint64    `json:"decode_errors"`
}

// Catalog indexes runs and the chunks each run produced.
type Catalog struct {
	db *sql.DB
}

func NewCatalog(path string) (*Catalog, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			input TEXT NOT NULL,
			framing TEXT NOT NULL,
			format TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER,
			messages INTEGER NOT NULL DEFAULT 0,
			records INTEGER NOT NULL DEFAULT 0,
			decode_errors INTEGER NOT NULL DEFAULT 0
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create runs table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			run_id TEXT NOT NULL,
			template_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			path TEXT NOT NULL,
			format TEXT NOT NULL,
			rows INTEGER NOT NULL,
			first_ordinal INTEGER NOT NULL,
			last_ordinal INTEGER NOT NULL,
			PRIMARY KEY (run_id, template_id, seq)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create chunks table: %w", err)
	}

	return &Catalog{db: db}, nil
}

func (c *Catalog) BeginRun(ctx context.Context, run RunInfo) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT INTO runs (id, input, framing, format, started_at) VALUES (?, ?, ?, ?, ?)",
		run.ID, run.Input, run.Framing, string(run.Format), run.StartedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (c *Catalog) FinishRun(ctx context.Context, run RunInfo) error {
	_, err := c.db.ExecContext(ctx,
		"UPDATE runs SET finished_at = ?, messages = ?, records = ?, decode_errors = ? WHERE id = ?",
		run.FinishedAt.UnixNano(), int64(run.Messages), int64(run.Records), int64(run.DecodeErrors), run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

func (c *Catalog) AddChunk(ctx context.Context, runID string, info ChunkInfo) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT INTO chunks (run_id, template_id, seq, path, format, rows, first_ordinal, last_ordinal) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		runID, info.TemplateID, info.Seq, info.Path, string(info.Format), info.Rows,
		int64(info.FirstOrdinal), int64(info.LastOrdinal),
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

// Chunks returns a run's chunks for the given templates, ordered by
// template then chunk number. No templates means all of them.
func (c *Catalog) Chunks(ctx context.Context, runID string, templates ...uint16) ([]ChunkInfo, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT template_id, seq, path, format, rows, first_ordinal, last_ordinal FROM chunks WHERE run_id = ? ORDER BY template_id, seq",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	want := make(map[uint16]bool, len(templates))
	for _, id := range templates {
		want[id] = true
	}

	var out []ChunkInfo
	for rows.Next() {
		var info ChunkInfo
		var format string
		var first, last int64
		if err := rows.Scan(&info.TemplateID, &info.Seq, &info.Path, &format, &info.Rows, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if len(want) > 0 && !want[info.TemplateID] {
			continue
		}
		info.Format = Format(format)
		info.FirstOrdinal = uint64(first)
		info.LastOrdinal = uint64(last)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

// Run returns a run by id, or nil when it is not catalogued.
func (c *Catalog) Run(ctx context.Context, id string) (*RunInfo, error) {
	var run RunInfo
	var format string
	var started int64
	var finished sql.NullInt64
	var messages, records, decodeErrors int64

	err := c.db.QueryRowContext(ctx,
		"SELECT id, input, framing, format, started_at, finished_at, messages, records, decode_errors FROM runs WHERE id = ?",
		id,
	).Scan(&run.ID, &run.Input, &run.Framing, &format, &started, &finished, &messages, &records, &decodeErrors)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	run.Format = Format(format)
	run.StartedAt = time.Unix(0, started)
	if finished.Valid {
		run.FinishedAt = time.Unix(0, finished.Int64)
	}
	run.Messages = uint64(messages)
	run.Records = uint64(records)
	run.DecodeErrors = uint64(decodeErrors)
	return &run, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}
