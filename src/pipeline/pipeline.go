package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mdp-book/src/codec"
	"mdp-book/src/config"
	"mdp-book/src/decoder"
	"mdp-book/src/engine"
	"mdp-book/src/frame"
	"mdp-book/src/sink"
	"mdp-book/src/storage"
)

const (
	CatalogFile   = "catalog.db"
	SnapshotsFile = "snapshots.db"
)

type Phase string

const (
	PhasePending   Phase = "pending"
	PhaseDecoding  Phase = "decoding"
	PhaseReplaying Phase = "replaying"
	PhaseDone      Phase = "done"
	PhaseFailed    Phase = "failed"
)

// Run is one decode and replay of a capture.
type Run struct {
	ID          string
	Config      *config.Config
	Registry    *decoder.Registry
	Books       *engine.Books
	Instruments *engine.Instruments
	Catalog     *storage.Catalog
	Snapshots   *storage.SnapshotStore

	// OnPhase is told about every phase change.
	OnPhase func(Phase)

	info   storage.RunInfo
	decode sink.Stats
	replay engine.Report
	phase  atomic.Value
	mu     sync.RWMutex
}

// New prepares the output directory and its databases. Configuration
// problems surface here, before the input is opened.
func New(cfg *config.Config) (*Run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	catalog, err := storage.NewCatalog(filepath.Join(cfg.Output.Dir, CatalogFile))
	if err != nil {
		return nil, err
	}

	r := &Run{
		ID:          uuid.New().String(),
		Config:      cfg,
		Registry:    decoder.NewRegistry(),
		Books:       engine.NewBooks(cfg.Book.Depth, cfg.Book.ImpliedDepth),
		Instruments: engine.NewInstruments(),
		Catalog:     catalog,
	}
	r.phase.Store(PhasePending)

	if cfg.Book.Enabled && cfg.Book.Snapshots {
		r.Snapshots, err = storage.NewSnapshotStore(filepath.Join(cfg.Output.Dir, SnapshotsFile), cfg.Output.ChunkSize)
		if err != nil {
			catalog.Close()
			return nil, err
		}
	}
	return r, nil
}

func (r *Run) setPhase(p Phase) {
	r.phase.Store(p)
	if r.OnPhase != nil {
		r.OnPhase(p)
	}
}

func (r *Run) Phase() Phase {
	return r.phase.Load().(Phase)
}

func (r *Run) Info() storage.RunInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.info
}

func (r *Run) DecodeStats() sink.Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.decode
}

func (r *Run) Report() engine.Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.replay
}

// Execute decodes the capture into chunks and then, if enabled, replays
// the chunks into books.
func (r *Run) Execute(ctx context.Context) error {
	err := r.execute(ctx)
	if err != nil {
		r.setPhase(PhaseFailed)
		return err
	}
	r.setPhase(PhaseDone)
	return nil
}

func (r *Run) execute(ctx context.Context) error {
	if err := r.Decode(ctx); err != nil {
		return err
	}
	if !r.Config.Book.Enabled {
		return nil
	}
	return r.Replay(ctx)
}

func (r *Run) Decode(ctx context.Context) error {
	r.setPhase(PhaseDecoding)
	cfg := r.Config

	file, err := os.Open(cfg.Input.Path)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat input: %w", err)
	}

	reader, err := frame.NewReader(file, stat.Size(), frame.Options{
		Framing:               frame.Framing(cfg.Input.Framing),
		IncludeExchangeHeader: cfg.Input.IncludeExchangeHeader,
		MaxMessages:           cfg.Input.MaxMessages,
	})
	if err != nil {
		return err
	}

	format, err := storage.ParseFormat(cfg.Output.Format)
	if err != nil {
		return &config.ConfigurationError{Field: "output.format", Message: err.Error()}
	}
	writer, err := storage.NewChunkWriter(format, cfg.Output.Dir)
	if err != nil {
		return err
	}

	info := storage.RunInfo{
		ID:        r.ID,
		Input:     cfg.Input.Path,
		Framing:   cfg.Input.Framing,
		Format:    format,
		StartedAt: time.Now(),
	}
	r.mu.Lock()
	r.info = info
	r.mu.Unlock()
	if err := r.Catalog.BeginRun(ctx, info); err != nil {
		return err
	}

	s := sink.New(r.Registry, writer, sink.Options{
		ChunkSize: cfg.Output.ChunkSize,
		Templates: cfg.Decode.TemplateFilter,
		Workers:   cfg.Decode.Workers,
		BatchSize: cfg.Decode.BatchSize,
	})
	s.OnChunk(func(ctx context.Context, info storage.ChunkInfo) error {
		return r.Catalog.AddChunk(ctx, r.ID, info)
	})

	log.Info().
		Str("run_id", r.ID).
		Str("input", cfg.Input.Path).
		Int64("bytes", stat.Size()).
		Str("framing", cfg.Input.Framing).
		Str("format", string(format)).
		Msg("Decoding capture")

	start := time.Now()
	consumeErr := s.Consume(ctx, reader)
	// edge case: keep what was decoded before a framing error
	if err := s.Close(ctx); err != nil && consumeErr == nil {
		consumeErr = err
	}

	stats := s.Stats()
	info.FinishedAt = time.Now()
	info.Messages = stats.Messages
	info.Records = stats.Records
	info.DecodeErrors = stats.DecodeErrors
	r.mu.Lock()
	r.decode, r.info = stats, info
	r.mu.Unlock()
	if err := r.Catalog.FinishRun(ctx, info); err != nil && consumeErr == nil {
		consumeErr = err
	}

	var framingErr *frame.StreamFramingError
	if errors.As(consumeErr, &framingErr) {
		log.Error().Err(consumeErr).Uint64("messages", stats.Messages).Msg("Capture framing broken, decode aborted")
	}
	if consumeErr != nil {
		return consumeErr
	}

	log.Info().
		Uint64("messages", stats.Messages).
		Uint64("decoded", stats.Decoded).
		Uint64("records", stats.Records).
		Uint64("decode_errors", stats.DecodeErrors).
		Uint64("filtered", stats.Filtered).
		Uint64("unknown", stats.Unknown).
		Int("chunks", stats.Chunks).
		Int64("trailing_bytes", reader.TrailingBytes()).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("Decode complete")
	return nil
}

// Replay rebuilds books from the run's catalogued chunks.
func (r *Run) Replay(ctx context.Context) error {
	r.setPhase(PhaseReplaying)
	cfg := r.Config

	chunks, err := r.Catalog.Chunks(ctx, r.ID)
	if err != nil {
		return err
	}

	opts := engine.ReplayOptions{Workers: cfg.Book.Workers}
	if cfg.Bootstrap.Enabled {
		opts.Bootstrap, err = r.bootstrap(ctx, chunks)
		if err != nil {
			return err
		}
	}
	if r.Snapshots != nil {
		opts.OnSnapshot = r.persistSnapshot
	}

	start := time.Now()
	replayer := engine.NewReplayer(r.Books, r.Instruments, opts)
	rep, err := replayer.Run(ctx, NewChunkSource(r.Registry, chunks))
	r.mu.Lock()
	r.replay = rep
	r.mu.Unlock()
	if err != nil {
		return err
	}
	if r.Snapshots != nil {
		if err := r.Snapshots.Flush(ctx); err != nil {
			return err
		}
	}

	for _, f := range rep.Failures {
		log.Warn().Err(f).Int32("security_id", f.SecurityID).Msg("Instrument book incomplete")
	}
	log.Info().
		Uint64("records", rep.Records).
		Uint64("updates", rep.Updates).
		Uint64("applied", rep.Applied).
		Uint64("rejected", rep.Rejected).
		Int("instruments", rep.Instruments).
		Int("sequence_failures", len(rep.Failures)).
		Int("channel_resets", rep.ChannelResets).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("Replay complete")
	return nil
}

func (r *Run) bootstrap(ctx context.Context, chunks []storage.ChunkInfo) (map[int32]*engine.BootstrapBook, error) {
	cfg := r.Config.Bootstrap
	loc, err := time.LoadLocation(cfg.Location)
	if err != nil {
		return nil, &config.ConfigurationError{Field: "bootstrap.location", Message: err.Error()}
	}
	startAt, _ := config.ParseClock(cfg.Start)
	endAt, _ := config.ParseClock(cfg.End)
	window := engine.Window{Location: loc, Start: startAt, End: endAt}

	var orderChunks []storage.ChunkInfo
	for _, c := range chunks {
		if engine.IsOrderBook(c.TemplateID) {
			orderChunks = append(orderChunks, c)
		}
	}

	var updates []engine.Update
	src := NewChunkSource(r.Registry, orderChunks)
	for {
		rec, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		u, ok, err := engine.ProjectMBO(&rec)
		if err != nil || !ok {
			continue
		}
		if window.Contains(u.TransactTime) {
			updates = append(updates, u)
		}
	}

	books := engine.Bootstrap(updates, engine.BootstrapLevels)
	log.Info().
		Int("orders", len(updates)).
		Int("instruments", len(books)).
		Str("window", cfg.Start+"-"+cfg.End+" "+cfg.Location).
		Msg("Books bootstrapped from order snapshot window")
	return books, nil
}

func (r *Run) persistSnapshot(ctx context.Context, s engine.Snapshot) error {
	var rows []storage.SnapshotRow
	for _, view := range []engine.View{engine.ViewOutright, engine.ViewImplied, engine.ViewConsolidated} {
		ladders := s.View(view)
		for _, side := range []codec.Side{codec.SideBid, codec.SideAsk} {
			for i, lv := range ladders[side].Levels() {
				if lv.Empty() {
					continue
				}
				rows = append(rows, storage.SnapshotRow{
					RunID:      r.ID,
					Ordinal:    s.Ordinal,
					Applied:    s.Applied,
					SecurityID: s.SecurityID,
					View:       string(view),
					Side:       side.String(),
					Level:      i + 1,
					Price:      lv.Price,
					Size:       lv.Size,
					Orders:     lv.Orders,
				})
			}
		}
	}
	return r.Snapshots.Add(ctx, rows...)
}

func (r *Run) Close() error {
	var errs []error
	if r.Snapshots != nil {
		errs = append(errs, r.Snapshots.Close())
	}
	errs = append(errs, r.Catalog.Close())
	return errors.Join(errs...)
}
