package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"mdp-book/src/decoder"
)

type Format string

const (
	FormatSQLite Format = "sqlite"
	FormatJSONL  Format = "jsonl"
)

func (f Format) Ext() string {
	if f == FormatJSONL {
		return "jsonl"
	}
	return "db"
}

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatSQLite, FormatJSONL:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown chunk format %q", s)
}

// ChunkInfo describes one persisted chunk of a template's records.
type ChunkInfo struct {
	TemplateID   uint16 `json:"template_id"`
	Seq          int    `json:"seq"`
	Path         string `json:"path"`
	Format       Format `json:"format"`
	Rows         int    `json:"rows"`
	FirstOrdinal uint64 `json:"first_ordinal"`
	LastOrdinal  uint64 `json:"last_ordinal"`
}

// ChunkWriter persists one buffer of records as a numbered chunk file.
type ChunkWriter interface {
	WriteChunk(ctx context.Context, templateID uint16, seq int, records []decoder.Record) (ChunkInfo, error)
	Format() Format
}

func NewChunkWriter(format Format, dir string) (ChunkWriter, error) {
	switch format {
	case FormatSQLite:
		return &SQLiteChunkWriter{dir: dir}, nil
	case FormatJSONL:
		return &JSONLChunkWriter{dir: dir}, nil
	}
	return nil, fmt.Errorf("unknown chunk format %q", format)
}

// ChunkPath is template_<id>_<seq>.<ext> under dir.
func ChunkPath(dir string, format Format, templateID uint16, seq int) string {
	return filepath.Join(dir, fmt.Sprintf("template_%d_%d.%s", templateID, seq, format.Ext()))
}

func newChunkInfo(path string, format Format, templateID uint16, seq int, records []decoder.Record) ChunkInfo {
	info := ChunkInfo{TemplateID: templateID, Seq: seq, Path: path, Format: format, Rows: len(records)}
	if len(records) > 0 {
		info.FirstOrdinal = records[0].Ordinal
		info.LastOrdinal = records[len(records)-1].Ordinal
	}
	return info
}

// ReadChunk loads a chunk back into records, re-typing each stored value
// through the template's field table.
func ReadChunk(ctx context.Context, info ChunkInfo, reg *decoder.Registry) ([]decoder.Record, error) {
	tmpl, ok := reg.Lookup(info.TemplateID)
	if !ok {
		return nil, fmt.Errorf("chunk %s: unknown template %d", info.Path, info.TemplateID)
	}
	switch info.Format {
	case FormatSQLite:
		return readSQLiteChunk(ctx, info.Path, tmpl)
	case FormatJSONL:
		return readJSONLChunk(info.Path, tmpl)
	}
	return nil, fmt.Errorf("chunk %s: unknown format %q", info.Path, info.Format)
}
