package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/glebarez/go-sqlite"

	"mdp-book/src/codec"
	"mdp-book/src/decoder"
)

func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-8000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}
	return db, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SQLiteChunkWriter writes each chunk to its own database file holding a
// single records table.
type SQLiteChunkWriter struct {
	dir string
}

func (w *SQLiteChunkWriter) Format() Format { return FormatSQLite }

func (w *SQLiteChunkWriter) WriteChunk(ctx context.Context, templateID uint16, seq int, records []decoder.Record) (ChunkInfo, error) {
	path := ChunkPath(w.dir, FormatSQLite, templateID, seq)
	// edge case: a rerun into the same directory replaces stale chunks
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return ChunkInfo{}, fmt.Errorf("failed to remove old chunk: %w", err)
		}
	}

	db, err := openSQLite(path)
	if err != nil {
		return ChunkInfo{}, err
	}
	defer db.Close()

	names, kinds := columns(records)

	defs := []string{"ordinal INTEGER NOT NULL", "version INTEGER NOT NULL"}
	for i, name := range names {
		defs = append(defs, quoteIdent(name)+" "+columnType(kinds[i]))
	}
	if _, err := db.ExecContext(ctx, "CREATE TABLE records ("+strings.Join(defs, ", ")+")"); err != nil {
		return ChunkInfo{}, fmt.Errorf("failed to create records table: %w", err)
	}

	quoted := []string{"ordinal", "version"}
	for _, name := range names {
		quoted = append(quoted, quoteIdent(name))
	}
	insert := fmt.Sprintf("INSERT INTO records (%s) VALUES (%s)",
		strings.Join(quoted, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(quoted)), ", "))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return ChunkInfo{}, fmt.Errorf("failed to begin chunk transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		tx.Rollback()
		return ChunkInfo{}, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i + 2
	}
	args := make([]any, len(quoted))
	for _, rec := range records {
		for i := range args {
			args[i] = nil
		}
		args[0] = int64(rec.Ordinal)
		args[1] = int64(rec.Version)
		for _, fd := range rec.Fields {
			args[index[fd.Name]] = sqlValue(fd.Value)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return ChunkInfo{}, fmt.Errorf("failed to insert record %d: %w", rec.Ordinal, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return ChunkInfo{}, fmt.Errorf("failed to commit chunk: %w", err)
	}

	return newChunkInfo(path, FormatSQLite, templateID, seq, records), nil
}

// columns is the union of field names across records, in first-seen order.
func columns(records []decoder.Record) ([]string, []codec.Kind) {
	var names []string
	var kinds []codec.Kind
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, fd := range rec.Fields {
			if seen[fd.Name] {
				continue
			}
			seen[fd.Name] = true
			names = append(names, fd.Name)
			kinds = append(kinds, fd.Value.Kind)
		}
	}
	return names, kinds
}

// readSQLiteChunk returns records in insertion order. SQL NULL does not
// distinguish a null field from an absent one, so both come back absent.
func readSQLiteChunk(ctx context.Context, path string, tmpl *decoder.Template) ([]decoder.Record, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT * FROM records ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk %s: %w", path, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk columns: %w", err)
	}

	var out []decoder.Record
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		rec := decoder.Record{TemplateID: tmpl.ID}
		for i, col := range cols {
			switch col {
			case "ordinal":
				n, _ := raw[i].(int64)
				rec.Ordinal = uint64(n)
				continue
			case "version":
				n, _ := raw[i].(int64)
				rec.Version = uint16(n)
				continue
			}
			if raw[i] == nil {
				continue
			}
			typ, ok := tmpl.FieldType(col)
			if !ok {
				return nil, fmt.Errorf("chunk %s: template %d has no field %s", path, tmpl.ID, col)
			}
			v, err := restore(typ.Kind(), raw[i])
			if err != nil {
				return nil, fmt.Errorf("chunk %s: field %s: %w", path, col, err)
			}
			rec.Fields = append(rec.Fields, decoder.Field{Name: col, Value: v})
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}
