package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdp-book/src/codec"
	"mdp-book/src/decoder"
)

// bookRecords are template 46 records in the template's field order, one
// carrying nulls and one the extremes of the unsigned types.
func bookRecords() []decoder.Record {
	return []decoder.Record{
		{
			TemplateID: 46, Version: 9, Ordinal: 3,
			Fields: []decoder.Field{
				{Name: "MsgSeq", Value: codec.UintValue(100)},
				{Name: "TransactTime", Value: codec.UintValue(1_700_000_000_000_000_000)},
				{Name: "MatchEventIndicator", Value: codec.BitmaskValue(0x84)},
				{Name: "MDEntryPx", Value: codec.PriceValue(-4_250_000_000)},
				{Name: "MDEntrySize", Value: codec.IntValue(10)},
				{Name: "SecurityID", Value: codec.IntValue(42)},
				{Name: "MDEntryType", Value: codec.CharValue("0")},
				{Name: "OrderID", Value: codec.UintValue(0xFFFFFFFFFFFFFFFE)},
			},
		},
		{
			TemplateID: 46, Version: 9, Ordinal: 4,
			Fields: []decoder.Field{
				{Name: "MsgSeq", Value: codec.UintValue(101)},
				{Name: "TransactTime", Value: codec.UintValue(1_700_000_000_000_000_001)},
				{Name: "MatchEventIndicator", Value: codec.BitmaskValue(0)},
				{Name: "MDEntryPx", Value: codec.NullOf(codec.KindPrice)},
				{Name: "MDEntrySize", Value: codec.NullOf(codec.KindInt)},
				{Name: "SecurityID", Value: codec.IntValue(42)},
				{Name: "MDEntryType", Value: codec.CharValue("J")},
			},
		},
	}
}

func withoutNulls(recs []decoder.Record) []decoder.Record {
	out := make([]decoder.Record, len(recs))
	for i, r := range recs {
		out[i] = r
		out[i].Fields = nil
		for _, f := range r.Fields {
			if !f.Value.Null {
				out[i].Fields = append(out[i].Fields, f)
			}
		}
	}
	return out
}

func TestSQLiteChunkRoundTrip(t *testing.T) {
	dir := t.TempDir()
	reg := decoder.NewRegistry()
	ctx := context.Background()

	w, err := NewChunkWriter(FormatSQLite, dir)
	require.NoError(t, err)

	info, err := w.WriteChunk(ctx, 46, 0, bookRecords())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "template_46_0.db"), info.Path)
	assert.Equal(t, 2, info.Rows)
	assert.Equal(t, uint64(3), info.FirstOrdinal)
	assert.Equal(t, uint64(4), info.LastOrdinal)

	got, err := ReadChunk(ctx, info, reg)
	require.NoError(t, err)

	// SQL NULL cannot tell a null field from an absent one
	assert.Equal(t, withoutNulls(bookRecords()), got)
}

func TestJSONLChunkRoundTrip(t *testing.T) {
	dir := t.TempDir()
	reg := decoder.NewRegistry()
	ctx := context.Background()

	w, err := NewChunkWriter(FormatJSONL, dir)
	require.NoError(t, err)

	info, err := w.WriteChunk(ctx, 46, 2, bookRecords())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "template_46_2.jsonl"), info.Path)

	got, err := ReadChunk(ctx, info, reg)
	require.NoError(t, err)
	assert.Equal(t, bookRecords(), got)
}

func TestSQLiteChunkReplacesStaleFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	w, err := NewChunkWriter(FormatSQLite, dir)
	require.NoError(t, err)

	_, err = w.WriteChunk(ctx, 46, 0, bookRecords())
	require.NoError(t, err)
	info, err := w.WriteChunk(ctx, 46, 0, bookRecords()[:1])
	require.NoError(t, err)

	got, err := ReadChunk(ctx, info, decoder.NewRegistry())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("jsonl")
	require.NoError(t, err)
	assert.Equal(t, "jsonl", f.Ext())

	f, err = ParseFormat("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "db", f.Ext())

	_, err = ParseFormat("parquet")
	assert.Error(t, err)
}

func TestReadChunkUnknownTemplate(t *testing.T) {
	_, err := ReadChunk(context.Background(), ChunkInfo{TemplateID: 999, Format: FormatJSONL}, decoder.NewRegistry())
	assert.Error(t, err)
}

func TestCatalog(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c, err := NewCatalog(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	defer c.Close()

	started := time.Unix(1_700_000_000, 0)
	run := RunInfo{ID: "run-1", Input: "capture.bin", Framing: "direct", Format: FormatSQLite, StartedAt: started}
	require.NoError(t, c.BeginRun(ctx, run))

	chunks := []ChunkInfo{
		{TemplateID: 47, Seq: 0, Path: "b0", Format: FormatSQLite, Rows: 5, FirstOrdinal: 1, LastOrdinal: 9},
		{TemplateID: 46, Seq: 1, Path: "a1", Format: FormatSQLite, Rows: 5, FirstOrdinal: 10, LastOrdinal: 20},
		{TemplateID: 46, Seq: 0, Path: "a0", Format: FormatSQLite, Rows: 5, FirstOrdinal: 0, LastOrdinal: 8},
	}
	for _, ch := range chunks {
		require.NoError(t, c.AddChunk(ctx, run.ID, ch))
	}
	require.NoError(t, c.AddChunk(ctx, "other-run", ChunkInfo{TemplateID: 46, Path: "x", Format: FormatSQLite}))

	all, err := c.Chunks(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a0", "a1", "b0"}, []string{all[0].Path, all[1].Path, all[2].Path})
	assert.Equal(t, uint64(20), all[1].LastOrdinal)

	only, err := c.Chunks(ctx, run.ID, 47)
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "b0", only[0].Path)

	// duplicate chunk numbers are rejected
	assert.Error(t, c.AddChunk(ctx, run.ID, chunks[0]))

	run.FinishedAt = started.Add(time.Minute)
	run.Messages, run.Records, run.DecodeErrors = 10, 30, 1
	require.NoError(t, c.FinishRun(ctx, run))

	loaded, err := c.Run(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, uint64(30), loaded.Records)
	assert.Equal(t, uint64(1), loaded.DecodeErrors)
	assert.True(t, loaded.StartedAt.Equal(started))
	assert.True(t, loaded.FinishedAt.Equal(run.FinishedAt))

	missing, err := c.Run(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSnapshotStoreBatches(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewSnapshotStore(filepath.Join(dir, "snapshots.db"), 3)
	require.NoError(t, err)

	row := func(ordinal uint64, side string, level int, price int64) SnapshotRow {
		return SnapshotRow{RunID: "r", Ordinal: ordinal, Applied: ordinal, SecurityID: 7, View: "outright", Side: side, Level: level, Price: price, Size: 1, Orders: 1}
	}

	require.NoError(t, s.Add(ctx, row(1, "bid", 1, 100), row(1, "ask", 1, 101)))
	assert.Equal(t, int64(0), s.Written())

	require.NoError(t, s.Add(ctx, row(2, "bid", 1, 100)))
	assert.Equal(t, int64(3), s.Written())

	require.NoError(t, s.Add(ctx, row(2, "bid", 2, 99), row(2, "ask", 1, 102)))
	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, int64(5), s.Written())

	latest, err := s.Latest(ctx, "r", 7, "outright")
	require.NoError(t, err)
	require.Len(t, latest, 3)
	assert.Equal(t, "ask", latest[0].Side)
	assert.Equal(t, int64(102), latest[0].Price)
	assert.Equal(t, 2, latest[2].Level)
	assert.Equal(t, uint64(2), latest[2].Ordinal)

	require.NoError(t, s.Close())
}

func TestSnapshotStoreCloseFlushes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	ctx := context.Background()

	s, err := NewSnapshotStore(path, 100)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, SnapshotRow{RunID: "r", Ordinal: 1, SecurityID: 1, View: "implied", Side: "bid", Level: 1, Price: 5, Size: 1}))
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	s, err = NewSnapshotStore(path, 100)
	require.NoError(t, err)
	defer s.Close()
	latest, err := s.Latest(ctx, "r", 1, "implied")
	require.NoError(t, err)
	assert.Len(t, latest, 1)
}
