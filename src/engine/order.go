package engine

import (
	"mdp-book/src/codec"
)

// Level is one rung of a price ladder. Size zero marks an empty level.
type Level struct {
	Price  int64 `json:"price"`
	Size   int64 `json:"size"`
	Orders int64 `json:"orders"`
}

func (l Level) Empty() bool {
	return l.Size == 0
}

// Order is a resting order in the market-by-order book.
type Order struct {
	ID       uint64
	Side     codec.Side
	Price    int64 // price mantissa, exponent -9
	Size     int64
	Priority uint64
	Updated  uint64 // ordinal of the last record that touched it
}

// Update is what a decoded book record means to the engine. Exactly one
// of the level form (Level, Orders) or the order form (OrderID, Priority)
// is meaningful, selected by ByOrder.
type Update struct {
	SecurityID int32
	Side       codec.Side
	Kind       codec.EntryKind
	Action     codec.UpdateAction
	Price      int64
	Size       int64

	Level  int
	Orders int64

	ByOrder  bool
	OrderID  uint64
	Priority uint64

	// Reset clears the instrument's book instead of touching a level.
	Reset bool

	SeqKey       uint64
	Ordinal      uint64
	TransactTime uint64
}

func (u Update) level() Level {
	return Level{Price: u.Price, Size: u.Size, Orders: u.Orders}
}
