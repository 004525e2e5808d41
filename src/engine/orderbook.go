package engine

import (
	"fmt"
	"sync"

	"github.com/google/btree"

	"mdp-book/src/codec"
)

// OrderItem sorts bids by price descending, asks ascending, then by
// exchange priority and order id within a price.
type OrderItem struct {
	Order *Order
}

func (o *OrderItem) Less(than btree.Item) bool {
	a, b := o.Order, than.(*OrderItem).Order
	if a.Price != b.Price {
		if a.Side == codec.SideBid {
			return a.Price > b.Price
		}
		return a.Price < b.Price
	}
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.ID < b.ID
}

// OrderBook is the market-by-order view of one instrument.
type OrderBook struct {
	SecurityID int32
	Bids       *btree.BTree
	Asks       *btree.BTree
	Orders     map[uint64]*Order
	mu         sync.RWMutex
}

func NewOrderBook(securityID int32) *OrderBook {
	return &OrderBook{
		SecurityID: securityID,
		Bids:       btree.New(32),
		Asks:       btree.New(32),
		Orders:     make(map[uint64]*Order),
	}
}

func (ob *OrderBook) tree(side codec.Side) *btree.BTree {
	if side == codec.SideBid {
		return ob.Bids
	}
	return ob.Asks
}

// Apply adds, modifies or removes one order.
func (ob *OrderBook) Apply(u Update) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	switch u.Action {
	case codec.ActionNew, codec.ActionChange, codec.ActionOverlay:
		// edge case: a modify can move the order to another price or side
		if existing, ok := ob.Orders[u.OrderID]; ok {
			ob.tree(existing.Side).Delete(&OrderItem{Order: existing})
		}
		order := &Order{
			ID:       u.OrderID,
			Side:     u.Side,
			Price:    u.Price,
			Size:     u.Size,
			Priority: u.Priority,
			Updated:  u.Ordinal,
		}
		ob.Orders[u.OrderID] = order
		ob.tree(u.Side).ReplaceOrInsert(&OrderItem{Order: order})
		return nil

	case codec.ActionDelete:
		existing, ok := ob.Orders[u.OrderID]
		if !ok {
			return nil
		}
		ob.tree(existing.Side).Delete(&OrderItem{Order: existing})
		delete(ob.Orders, u.OrderID)
		return nil

	case codec.ActionDeleteThru, codec.ActionDeleteFrom:
		ob.clearLocked()
		return nil
	}
	return fmt.Errorf("unsupported order action %s", u.Action)
}

func (ob *OrderBook) Clear() {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	ob.clearLocked()
}

func (ob *OrderBook) clearLocked() {
	ob.Bids.Clear(false)
	ob.Asks.Clear(false)
	ob.Orders = make(map[uint64]*Order)
}

func (ob *OrderBook) GetOrder(orderID uint64) (Order, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	order, exists := ob.Orders[orderID]
	if !exists {
		return Order{}, false
	}
	return *order, true
}

func (ob *OrderBook) Len() int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return len(ob.Orders)
}

// Depth aggregates resting orders into at most depth price levels per side.
func (ob *OrderBook) Depth(depth int) (bids []Level, asks []Level) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return aggregate(ob.Bids, depth), aggregate(ob.Asks, depth)
}

func aggregate(tree *btree.BTree, depth int) []Level {
	levels := make([]Level, 0, depth)
	tree.Ascend(func(item btree.Item) bool {
		order := item.(*OrderItem).Order
		n := len(levels)
		if n > 0 && levels[n-1].Price == order.Price {
			levels[n-1].Size += order.Size
			levels[n-1].Orders++
			return true
		}
		if n >= depth {
			return false
		}
		levels = append(levels, Level{Price: order.Price, Size: order.Size, Orders: 1})
		return true
	})
	return levels
}

// Queue lists resting orders per side in priority order, limited to the
// first depth price levels.
func (ob *OrderBook) Queue(depth int) (bids []Order, asks []Order) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return queue(ob.Bids, depth), queue(ob.Asks, depth)
}

func queue(tree *btree.BTree, depth int) []Order {
	var out []Order
	levels := 0
	var last int64
	tree.Ascend(func(item btree.Item) bool {
		order := item.(*OrderItem).Order
		if len(out) == 0 || order.Price != last {
			if levels >= depth {
				return false
			}
			levels++
			last = order.Price
		}
		out = append(out, *order)
		return true
	})
	return out
}
