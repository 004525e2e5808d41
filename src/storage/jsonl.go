package storage

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"mdp-book/src/codec"
	"mdp-book/src/decoder"
)

// JSONLChunkWriter writes one JSON object per record. Unlike SQLite chunks
// it keeps null fields apart from absent ones.
type JSONLChunkWriter struct {
	dir string
}

func (w *JSONLChunkWriter) Format() Format { return FormatJSONL }

func (w *JSONLChunkWriter) WriteChunk(ctx context.Context, templateID uint16, seq int, records []decoder.Record) (ChunkInfo, error) {
	path := ChunkPath(w.dir, FormatJSONL, templateID, seq)
	file, err := os.Create(path)
	if err != nil {
		return ChunkInfo{}, fmt.Errorf("failed to create chunk: %w", err)
	}

	bw := bufio.NewWriterSize(file, 1<<16)
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			file.Close()
			return ChunkInfo{}, err
		}
		line, err := rec.MarshalJSON()
		if err != nil {
			file.Close()
			return ChunkInfo{}, fmt.Errorf("failed to marshal record %d: %w", rec.Ordinal, err)
		}
		bw.Write(line)
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		file.Close()
		return ChunkInfo{}, fmt.Errorf("failed to write chunk: %w", err)
	}
	if err := file.Close(); err != nil {
		return ChunkInfo{}, fmt.Errorf("failed to close chunk: %w", err)
	}
	return newChunkInfo(path, FormatJSONL, templateID, seq, records), nil
}

type jsonlHeader struct {
	TemplateID uint16 `json:"template_id"`
	Version    uint16 `json:"version"`
	Ordinal    uint64 `json:"ordinal"`
}

func readJSONLChunk(path string, tmpl *decoder.Template) ([]decoder.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk: %w", err)
	}
	defer file.Close()

	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 0, 1<<16), 1<<20)

	var out []decoder.Record
	for line := 1; sc.Scan(); line++ {
		var hdr jsonlHeader
		if err := json.Unmarshal(sc.Bytes(), &hdr); err != nil {
			return nil, fmt.Errorf("chunk %s line %d: %w", path, line, err)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(sc.Bytes(), &fields); err != nil {
			return nil, fmt.Errorf("chunk %s line %d: %w", path, line, err)
		}

		rec := decoder.Record{TemplateID: hdr.TemplateID, Version: hdr.Version, Ordinal: hdr.Ordinal}
		for _, name := range tmpl.FieldNames() {
			raw, ok := fields[name]
			if !ok {
				continue
			}
			typ, _ := tmpl.FieldType(name)
			v, err := parseJSONValue(typ.Kind(), raw)
			if err != nil {
				return nil, fmt.Errorf("chunk %s line %d field %s: %w", path, line, name, err)
			}
			rec.Fields = append(rec.Fields, decoder.Field{Name: name, Value: v})
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan chunk %s: %w", path, err)
	}
	return out, nil
}

func parseJSONValue(kind codec.Kind, raw json.RawMessage) (codec.Value, error) {
	if string(raw) == "null" {
		return codec.NullOf(kind), nil
	}
	if kind == codec.KindText || kind == codec.KindChar {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return codec.Value{}, err
		}
		return restore(kind, []byte(s))
	}
	return restoreNumber(kind, string(raw))
}
