package engine

import (
	"sort"
	"time"

	"mdp-book/src/codec"
)

// BootstrapLevels is the number of levels the exchange publishes in its
// session snapshot.
const BootstrapLevels = 10

// Window selects order-level records by exchange time of day.
type Window struct {
	Location *time.Location
	Start    time.Duration // offset from local midnight
	End      time.Duration
}

// DefaultWindow is the Sunday pre-open order snapshot, 14:00 to 15:00
// Chicago time.
func DefaultWindow() (Window, error) {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		return Window{}, err
	}
	return Window{Location: loc, Start: 14 * time.Hour, End: 15 * time.Hour}, nil
}

// Contains reports whether a TransactTime in nanoseconds since the epoch
// falls inside the window.
func (w Window) Contains(transactTime uint64) bool {
	t := time.Unix(0, int64(transactTime)).In(w.Location)
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, w.Location)
	tod := t.Sub(midnight)
	return tod >= w.Start && tod < w.End
}

// Filter keeps the updates inside the window.
func (w Window) Filter(updates []Update) []Update {
	var out []Update
	for _, u := range updates {
		if w.Contains(u.TransactTime) {
			out = append(out, u)
		}
	}
	return out
}

// BootstrapBook is the starting ladder state of one instrument.
type BootstrapBook struct {
	SecurityID int32
	Bids       Ladder
	Asks       Ladder
	// Through is the ordinal of the last record folded in; replay of
	// price-level updates for this instrument resumes after it.
	Through uint64
}

type priceKey struct {
	side  codec.Side
	price int64
}

type restingOrder struct {
	side  codec.Side
	price int64
	size  int64
}

type instrumentAggregate struct {
	orders  map[uint64]restingOrder
	levels  map[priceKey]*Level
	through uint64
}

func (a *instrumentAggregate) remove(o restingOrder) {
	lv := a.levels[priceKey{o.side, o.price}]
	if lv == nil {
		return
	}
	lv.Size -= o.size
	lv.Orders--
}

func (a *instrumentAggregate) add(o restingOrder) {
	key := priceKey{o.side, o.price}
	lv := a.levels[key]
	if lv == nil {
		lv = &Level{Price: o.price}
		a.levels[key] = lv
	}
	lv.Size += o.size
	lv.Orders++
}

// Bootstrap folds order-level updates into per-price aggregates and ranks
// them into ladders of at most depth levels (BootstrapLevels when depth is
// zero). Updates are taken in sequence order; each price keeps the
// aggregate left by its last update.
func Bootstrap(updates []Update, depth int) map[int32]*BootstrapBook {
	if depth <= 0 {
		depth = BootstrapLevels
	}

	ordered := make([]Update, len(updates))
	copy(ordered, updates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SeqKey != ordered[j].SeqKey {
			return ordered[i].SeqKey < ordered[j].SeqKey
		}
		return ordered[i].Ordinal < ordered[j].Ordinal
	})

	aggs := make(map[int32]*instrumentAggregate)
	for _, u := range ordered {
		if !u.ByOrder {
			continue
		}
		agg := aggs[u.SecurityID]
		if agg == nil {
			agg = &instrumentAggregate{orders: make(map[uint64]restingOrder), levels: make(map[priceKey]*Level)}
			aggs[u.SecurityID] = agg
		}
		agg.through = max(agg.through, u.Ordinal)

		prev, exists := agg.orders[u.OrderID]
		if exists {
			agg.remove(prev)
			delete(agg.orders, u.OrderID)
		}
		switch u.Action {
		case codec.ActionNew, codec.ActionChange, codec.ActionOverlay:
			o := restingOrder{side: u.Side, price: u.Price, size: u.Size}
			agg.orders[u.OrderID] = o
			agg.add(o)
		}
	}

	out := make(map[int32]*BootstrapBook, len(aggs))
	for id, agg := range aggs {
		out[id] = &BootstrapBook{
			SecurityID: id,
			Bids:       rank(codec.SideBid, agg.levels, depth),
			Asks:       rank(codec.SideAsk, agg.levels, depth),
			Through:    agg.through,
		}
	}
	return out
}

func rank(side codec.Side, levels map[priceKey]*Level, depth int) Ladder {
	var ranked []Level
	for key, lv := range levels {
		if key.side != side || lv.Orders <= 0 || lv.Size <= 0 {
			continue
		}
		ranked = append(ranked, *lv)
	}
	ladder := NewLadder(side, depth)
	sort.Slice(ranked, func(i, j int) bool {
		return ladder.better(ranked[i].Price, ranked[j].Price)
	})
	if len(ranked) > depth {
		ranked = ranked[:depth]
	}
	copy(ladder.levels, ranked)
	return ladder
}
