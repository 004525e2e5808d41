package engine

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"mdp-book/src/codec"
)

type View string

const (
	ViewOutright     View = "outright"
	ViewImplied      View = "implied"
	ViewConsolidated View = "consolidated"
)

func ParseView(s string) (View, bool) {
	switch View(s) {
	case ViewOutright, ViewImplied, ViewConsolidated:
		return View(s), true
	case "":
		return ViewConsolidated, true
	}
	return "", false
}

type sequence struct {
	last uint64
	seen bool
}

// check rejects keys below the last one; equal keys pass and report dup.
func (s *sequence) check(key uint64) (dup bool, ok bool) {
	if !s.seen {
		return false, true
	}
	if key < s.last {
		return false, false
	}
	return key == s.last, true
}

func (s *sequence) advance(key uint64) {
	s.last = key
	s.seen = true
}

// Book is the reconstructed state of one instrument: outright and implied
// ladders per side plus the order-level book.
type Book struct {
	SecurityID int32

	outright [2]Ladder
	implied  [2]Ladder
	orders   *OrderBook

	levels  sequence
	byOrder sequence
	err     *SequencingError
	applied uint64
	ordinal uint64
	mu      sync.RWMutex
}

func NewBook(securityID int32, depth, impliedDepth int) *Book {
	b := &Book{SecurityID: securityID, orders: NewOrderBook(securityID)}
	for _, side := range []codec.Side{codec.SideBid, codec.SideAsk} {
		b.outright[side] = NewLadder(side, depth)
		b.implied[side] = NewLadder(side, impliedDepth)
	}
	return b
}

// Apply applies one update in sequence. changed is false for repeated
// copies of an already applied entry and for levels beyond the ladder.
// After a sequencing failure every call returns that failure.
func (b *Book) Apply(u Update) (changed bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.err != nil {
		return false, b.err
	}

	seq := &b.levels
	if u.ByOrder {
		seq = &b.byOrder
	}
	dup, ok := seq.check(u.SeqKey)
	if !ok {
		b.err = &SequencingError{SecurityID: b.SecurityID, Key: u.SeqKey, Last: seq.last, Ordinal: u.Ordinal, ByOrder: u.ByOrder}
		return false, b.err
	}
	seq.advance(u.SeqKey)

	if u.ByOrder {
		if err := b.orders.Apply(u); err != nil {
			return false, err
		}
		b.touch(u)
		return true, nil
	}

	// joined order details repeat their book entry's RptSeq
	if dup {
		return false, nil
	}

	if u.Reset {
		b.clearLocked()
		b.touch(u)
		return true, nil
	}

	ladders := &b.outright
	if u.Kind == codec.Implied {
		ladders = &b.implied
	}
	next, err := ladders[u.Side].Apply(u.Action, u.Level, u.level())
	var outOfRange *LevelOutOfRangeError
	if errors.As(err, &outOfRange) {
		log.Debug().
			Int32("security_id", b.SecurityID).
			Int("level", u.Level).
			Int("depth", outOfRange.Depth).
			Msg("Level beyond ladder depth ignored")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	ladders[u.Side] = next
	b.touch(u)
	return true, nil
}

func (b *Book) touch(u Update) {
	b.applied++
	b.ordinal = u.Ordinal
}

// Seed replaces the outright ladders, used for bootstrap.
func (b *Book) Seed(bids, asks Ladder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outright[codec.SideBid] = LadderOf(codec.SideBid, b.outright[codec.SideBid].Depth(), bids.Top(0)...)
	b.outright[codec.SideAsk] = LadderOf(codec.SideAsk, b.outright[codec.SideAsk].Depth(), asks.Top(0)...)
}

// Reset clears every ladder and the order book and forgets sequence state.
// A recorded sequencing failure stays.
func (b *Book) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearLocked()
	b.levels = sequence{}
	b.byOrder = sequence{}
}

func (b *Book) clearLocked() {
	for side := range b.outright {
		b.outright[side] = NewLadder(codec.Side(side), b.outright[side].Depth())
		b.implied[side] = NewLadder(codec.Side(side), b.implied[side].Depth())
	}
	b.orders.Clear()
}

func (b *Book) Ladder(view View, side codec.Side) Ladder {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ladderLocked(view, side)
}

func (b *Book) ladderLocked(view View, side codec.Side) Ladder {
	switch view {
	case ViewOutright:
		return b.outright[side]
	case ViewImplied:
		return b.implied[side]
	}
	return Consolidate(b.outright[side], b.implied[side])
}

func (b *Book) Orders() *OrderBook {
	return b.orders
}

func (b *Book) Err() *SequencingError {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}

// Snapshot is the state of every view of a book after one record.
type Snapshot struct {
	SecurityID   int32
	Ordinal      uint64
	Applied      uint64
	Outright     [2]Ladder
	Implied      [2]Ladder
	Consolidated [2]Ladder
}

func (b *Book) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := Snapshot{SecurityID: b.SecurityID, Ordinal: b.ordinal, Applied: b.applied}
	for side := range b.outright {
		s.Outright[side] = b.outright[side]
		s.Implied[side] = b.implied[side]
		s.Consolidated[side] = b.ladderLocked(ViewConsolidated, codec.Side(side))
	}
	return s
}

func (s Snapshot) View(view View) [2]Ladder {
	switch view {
	case ViewOutright:
		return s.Outright
	case ViewImplied:
		return s.Implied
	}
	return s.Consolidated
}
