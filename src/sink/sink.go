package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"

	"mdp-book/src/decoder"
	"mdp-book/src/frame"
	"mdp-book/src/storage"
)

const defaultBatchSize = 4096

type Options struct {
	ChunkSize int
	// Templates restricts decoding to these IDs; empty means all.
	Templates []uint16
	// Workers above one enables the two-phase decode: frames are located
	// sequentially, decoded concurrently, then accumulated in stream order.
	Workers   int
	BatchSize int
}

type Stats struct {
	Messages     uint64 `json:"messages"`
	Decoded      uint64 `json:"decoded"`
	Filtered     uint64 `json:"filtered"`
	Unknown      uint64 `json:"unknown"`
	Records      uint64 `json:"records"`
	DecodeErrors uint64 `json:"decode_errors"`
	Chunks       int    `json:"chunks"`
}

// Sink owns the per-template record buffers. Nothing else touches them;
// consumers read the flushed chunks.
type Sink struct {
	reg    *decoder.Registry
	writer storage.ChunkWriter
	opts   Options
	allow  map[uint16]bool

	buffers map[uint16][]decoder.Record
	seq     map[uint16]int
	chunks  []storage.ChunkInfo
	onChunk func(context.Context, storage.ChunkInfo) error
	stats   Stats
}

func New(reg *decoder.Registry, writer storage.ChunkWriter, opts Options) *Sink {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 100000
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	s := &Sink{
		reg:     reg,
		writer:  writer,
		opts:    opts,
		buffers: make(map[uint16][]decoder.Record),
		seq:     make(map[uint16]int),
	}
	if len(opts.Templates) > 0 {
		s.allow = make(map[uint16]bool, len(opts.Templates))
		for _, id := range opts.Templates {
			s.allow[id] = true
		}
	}
	return s
}

// OnChunk registers a callback run after every chunk is persisted.
func (s *Sink) OnChunk(fn func(context.Context, storage.ChunkInfo) error) {
	s.onChunk = fn
}

type outcome int

const (
	decoded outcome = iota
	filtered
	unknown
)

func message(fr frame.Frame) decoder.Message {
	m := decoder.Message{
		TemplateID:  fr.Envelope.TemplateID,
		BlockLength: fr.Envelope.BlockLength,
		Version:     fr.Envelope.Version,
		Ordinal:     fr.Ordinal,
		Payload:     fr.Payload,
	}
	if h := fr.Envelope.Header; h != nil {
		m.HasHeader = true
		m.MsgSeq = h.MsgSeq
		m.SendingTime = h.SendingTime
	}
	return m
}

// decode is safe to call concurrently; it reads only the registry.
func (s *Sink) decode(fr frame.Frame) ([]decoder.Record, outcome, error) {
	id := fr.Envelope.TemplateID
	if s.allow != nil && !s.allow[id] {
		return nil, filtered, nil
	}
	tmpl, ok := s.reg.Lookup(id)
	// edge case: heartbeats and empty blocks carry nothing to decode
	if !ok || fr.Envelope.BlockLength == 0 {
		return nil, unknown, nil
	}
	recs, err := tmpl.Decode(message(fr))
	return recs, decoded, err
}

// Dispatch decodes one frame unless the allow-list excludes it. A
// *decoder.DecodeFieldError is counted and returned; the caller decides
// whether to continue.
func (s *Sink) Dispatch(fr frame.Frame) ([]decoder.Record, error) {
	recs, out, err := s.decode(fr)
	s.count(fr, out, err)
	return recs, err
}

func (s *Sink) count(fr frame.Frame, out outcome, err error) {
	s.stats.Messages++
	switch out {
	case filtered:
		s.stats.Filtered++
	case unknown:
		s.stats.Unknown++
	default:
		if err != nil {
			s.stats.DecodeErrors++
			log.Warn().
				Err(err).
				Uint64("ordinal", fr.Ordinal).
				Int64("offset", fr.Offset).
				Uint16("template_id", fr.Envelope.TemplateID).
				Msg("Message skipped")
			return
		}
		s.stats.Decoded++
	}
}

// Accumulate buffers records for a template, flushing each time the buffer
// reaches the chunk size.
func (s *Sink) Accumulate(ctx context.Context, templateID uint16, records []decoder.Record) error {
	for len(records) > 0 {
		buf := s.buffers[templateID]
		room := s.opts.ChunkSize - len(buf)
		n := min(room, len(records))
		buf = append(buf, records[:n]...)
		records = records[n:]
		s.buffers[templateID] = buf
		s.stats.Records += uint64(n)

		if len(buf) >= s.opts.ChunkSize {
			if err := s.flush(ctx, templateID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Sink) flush(ctx context.Context, templateID uint16) error {
	buf := s.buffers[templateID]
	if len(buf) == 0 {
		return nil
	}

	seq := s.seq[templateID]
	info, err := s.writer.WriteChunk(ctx, templateID, seq, buf)
	if err != nil {
		return fmt.Errorf("failed to flush template %d chunk %d: %w", templateID, seq, err)
	}
	s.seq[templateID] = seq + 1
	s.chunks = append(s.chunks, info)
	s.stats.Chunks++

	log.Debug().
		Uint16("template_id", templateID).
		Int("seq", seq).
		Int("rows", info.Rows).
		Str("path", info.Path).
		Msg("Chunk flushed")

	// fresh slice: the writer may still reference the old backing array
	s.buffers[templateID] = make([]decoder.Record, 0, min(s.opts.ChunkSize, 1024))

	if s.onChunk != nil {
		return s.onChunk(ctx, info)
	}
	return nil
}

// Close flushes every non-empty buffer once, in template order.
func (s *Sink) Close(ctx context.Context) error {
	for _, id := range s.reg.IDs() {
		if err := s.flush(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Buffered is the number of records held in memory across all templates.
func (s *Sink) Buffered() int {
	n := 0
	for _, buf := range s.buffers {
		n += len(buf)
	}
	return n
}

func (s *Sink) Stats() Stats {
	return s.stats
}

func (s *Sink) Chunks() []storage.ChunkInfo {
	return s.chunks
}

// Consume drains the reader into the sink. Decode errors are logged and
// skipped; framing errors end the run.
func (s *Sink) Consume(ctx context.Context, r *frame.Reader) error {
	if s.opts.Workers > 1 {
		return s.consumeParallel(ctx, r)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fr, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		recs, err := s.Dispatch(fr)
		var fieldErr *decoder.DecodeFieldError
		if errors.As(err, &fieldErr) {
			continue
		}
		if err != nil {
			return err
		}
		if err := s.Accumulate(ctx, fr.Envelope.TemplateID, recs); err != nil {
			return err
		}
	}
}

type result struct {
	recs []decoder.Record
	out  outcome
	err  error
}

func (s *Sink) consumeParallel(ctx context.Context, r *frame.Reader) error {
	batch := make([]frame.Frame, 0, s.opts.BatchSize)
	results := make([]result, s.opts.BatchSize)

	for done := false; !done; {
		if err := ctx.Err(); err != nil {
			return err
		}

		// phase one: sequential offset scan
		batch = batch[:0]
		for len(batch) < s.opts.BatchSize {
			fr, err := r.Next()
			if errors.Is(err, io.EOF) {
				done = true
				break
			}
			if err != nil {
				return err
			}
			batch = append(batch, fr)
		}

		// phase two: independent decodes
		var wg sync.WaitGroup
		next := make(chan int)
		for w := 0; w < s.opts.Workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range next {
					recs, out, err := s.decode(batch[i])
					results[i] = result{recs: recs, out: out, err: err}
				}
			}()
		}
		for i := range batch {
			next <- i
		}
		close(next)
		wg.Wait()

		// accumulation stays in stream order
		for i, fr := range batch {
			res := results[i]
			results[i] = result{}
			s.count(fr, res.out, res.err)
			if res.err != nil {
				var fieldErr *decoder.DecodeFieldError
				if errors.As(res.err, &fieldErr) {
					continue
				}
				return res.err
			}
			if err := s.Accumulate(ctx, fr.Envelope.TemplateID, res.recs); err != nil {
				return err
			}
		}
	}
	return nil
}
