package engine

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"mdp-book/src/decoder"
)

// RecordSource yields decoded records in stream order and io.EOF at the
// end.
type RecordSource interface {
	Next(ctx context.Context) (decoder.Record, error)
}

type ReplayOptions struct {
	// Workers above one shards instruments across goroutines. An
	// instrument always stays on the same worker.
	Workers   int
	Bootstrap map[int32]*BootstrapBook
	// OnSnapshot runs after every update that changed a ladder. It may be
	// called from several workers at once.
	OnSnapshot func(context.Context, Snapshot) error
}

type Report struct {
	Records       uint64             `json:"records"`
	Updates       uint64             `json:"updates"`
	Applied       uint64             `json:"applied"`
	Unchanged     uint64             `json:"unchanged"`
	Rejected      uint64             `json:"rejected"`
	Bootstrapped  uint64             `json:"bootstrapped"`
	Dropped       uint64             `json:"dropped"`
	ChannelResets int                `json:"channel_resets"`
	Definitions   int                `json:"definitions"`
	Instruments   int                `json:"instruments"`
	Failures      []*SequencingError `json:"-"`
}

type counters struct {
	updates, applied, unchanged, rejected, bootstrapped, dropped atomic.Uint64
}

// Replayer drives decoded records through the per-instrument books.
type Replayer struct {
	books       *Books
	instruments *Instruments
	opts        ReplayOptions
	counts      counters
}

func NewReplayer(books *Books, instruments *Instruments, opts ReplayOptions) *Replayer {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Replayer{books: books, instruments: instruments, opts: opts}
}

// Updates projects one record into the book updates it carries. A
// joined price-level record with an order detail yields both forms.
func Updates(rec *decoder.Record) ([]Update, error) {
	var out []Update
	if IsPriceBook(rec.TemplateID) {
		u, ok, err := ProjectMBP(rec)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, u)
		}
	}
	if IsOrderBook(rec.TemplateID) {
		u, ok, err := ProjectMBO(rec)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// task is one unit of shard work: an update, or a channel reset barrier.
type task struct {
	update Update
	reset  bool
}

func (r *Replayer) Run(ctx context.Context, src RecordSource) (Report, error) {
	var rep Report

	for id, bb := range r.opts.Bootstrap {
		r.books.GetOrCreate(id).Seed(bb.Bids, bb.Asks)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shards := make([]chan task, r.opts.Workers)
	var wg sync.WaitGroup
	var failOnce sync.Once
	var failErr error
	for i := range shards {
		shards[i] = make(chan task, 256)
		wg.Add(1)
		go func(shard int, in <-chan task) {
			defer wg.Done()
			for t := range in {
				if ctx.Err() != nil {
					continue
				}
				var err error
				if t.reset {
					r.reset(shard)
				} else {
					err = r.apply(ctx, t.update)
				}
				if err != nil {
					failOnce.Do(func() {
						failErr = err
						cancel()
					})
				}
			}
		}(i, shards[i])
	}

	readErr := r.feed(ctx, src, shards, &rep)
	for _, ch := range shards {
		close(ch)
	}
	wg.Wait()

	rep.Updates = r.counts.updates.Load()
	rep.Applied = r.counts.applied.Load()
	rep.Unchanged = r.counts.unchanged.Load()
	rep.Rejected = r.counts.rejected.Load()
	rep.Bootstrapped = r.counts.bootstrapped.Load()
	rep.Dropped = r.counts.dropped.Load()
	rep.Instruments = r.books.Len()
	rep.Failures = r.books.Failures()

	if failErr != nil {
		return rep, failErr
	}
	if readErr != nil && !errors.Is(readErr, context.Canceled) {
		return rep, readErr
	}
	return rep, ctx.Err()
}

func (r *Replayer) feed(ctx context.Context, src RecordSource, shards []chan task, rep *Report) error {
	for {
		rec, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		rep.Records++

		if rec.TemplateID == TemplateChannelReset {
			rep.ChannelResets++
			// every shard sees the reset at the same point in its stream
			for _, ch := range shards {
				select {
				case ch <- task{reset: true}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			continue
		}
		if r.instruments.Observe(&rec) {
			rep.Definitions++
			continue
		}

		updates, err := Updates(&rec)
		if err != nil {
			r.counts.rejected.Add(1)
			log.Warn().Err(err).Uint64("ordinal", rec.Ordinal).Uint16("template_id", rec.TemplateID).Msg("Record not projected")
			continue
		}
		for _, u := range updates {
			ch := shards[shardOf(u.SecurityID, len(shards))]
			select {
			case ch <- task{update: u}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func shardOf(id int32, n int) int {
	return int(uint32(id) % uint32(n))
}

// reset clears the books owned by one shard.
func (r *Replayer) reset(shard int) {
	for _, id := range r.books.IDs() {
		if shardOf(id, r.opts.Workers) != shard {
			continue
		}
		b, _ := r.books.Get(id)
		b.Reset()
	}
}

func (r *Replayer) apply(ctx context.Context, u Update) error {
	r.counts.updates.Add(1)

	if bb, ok := r.opts.Bootstrap[u.SecurityID]; ok && !u.ByOrder && u.Ordinal <= bb.Through {
		r.counts.bootstrapped.Add(1)
		return nil
	}

	book := r.books.GetOrCreate(u.SecurityID)
	changed, err := book.Apply(u)

	var seqErr *SequencingError
	if errors.As(err, &seqErr) {
		r.counts.dropped.Add(1)
		if seqErr.Ordinal == u.Ordinal && seqErr.Key == u.SeqKey {
			log.Error().
				Int32("security_id", seqErr.SecurityID).
				Uint64("key", seqErr.Key).
				Uint64("last", seqErr.Last).
				Uint64("ordinal", seqErr.Ordinal).
				Msg("Instrument out of sequence, reconstruction stopped")
		}
		return nil
	}
	if err != nil {
		r.counts.rejected.Add(1)
		log.Warn().Err(err).Int32("security_id", u.SecurityID).Uint64("ordinal", u.Ordinal).Msg("Update rejected")
		return nil
	}
	if !changed {
		r.counts.unchanged.Add(1)
		return nil
	}

	r.counts.applied.Add(1)
	// order-level updates leave the ladders untouched
	if r.opts.OnSnapshot != nil && !u.ByOrder {
		return r.opts.OnSnapshot(ctx, book.Snapshot())
	}
	return nil
}
