package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdp-book/src/codec"
)

func TestOrderBookAddModifyDelete(t *testing.T) {
	ob := NewOrderBook(1)

	require.NoError(t, ob.Apply(orderUpdate(1, 1, 10, codec.SideBid, codec.ActionNew, 100, 5)))
	require.NoError(t, ob.Apply(orderUpdate(1, 2, 11, codec.SideBid, codec.ActionNew, 101, 1)))
	require.NoError(t, ob.Apply(orderUpdate(1, 3, 12, codec.SideAsk, codec.ActionNew, 102, 2)))

	if ob.Len() != 3 {
		t.Errorf("Expected 3 orders, got: %d", ob.Len())
	}

	// modify moves the order to a new price
	require.NoError(t, ob.Apply(orderUpdate(1, 4, 10, codec.SideBid, codec.ActionChange, 102, 4)))
	order, ok := ob.GetOrder(10)
	require.True(t, ok)
	assert.Equal(t, int64(102), order.Price)
	assert.Equal(t, uint64(4), order.Updated)

	bids, asks := ob.Depth(5)
	assert.Equal(t, []Level{{Price: 102, Size: 4, Orders: 1}, {Price: 101, Size: 1, Orders: 1}}, bids)
	assert.Equal(t, []Level{{Price: 102, Size: 2, Orders: 1}}, asks)

	require.NoError(t, ob.Apply(orderUpdate(1, 5, 11, codec.SideBid, codec.ActionDelete, 0, 0)))
	_, ok = ob.GetOrder(11)
	assert.False(t, ok)

	// deleting an unknown order is not an error
	require.NoError(t, ob.Apply(orderUpdate(1, 6, 99, codec.SideBid, codec.ActionDelete, 0, 0)))
	assert.Equal(t, 2, ob.Len())
}

// TestOrderBookQueuePriority tests that orders at one price queue by
// exchange priority.
func TestOrderBookQueuePriority(t *testing.T) {
	ob := NewOrderBook(1)

	add := func(orderID, priority uint64, side codec.Side, price int64) {
		u := orderUpdate(1, orderID, orderID, side, codec.ActionNew, price, 1)
		u.Priority = priority
		require.NoError(t, ob.Apply(u))
	}
	add(1, 30, codec.SideBid, 100)
	add(2, 10, codec.SideBid, 100)
	add(3, 20, codec.SideBid, 99)
	add(4, 5, codec.SideBid, 101)
	add(5, 1, codec.SideAsk, 103)
	add(6, 2, codec.SideAsk, 102)

	bids, asks := ob.Queue(2)
	var got []uint64
	for _, o := range bids {
		got = append(got, o.ID)
	}
	assert.Equal(t, []uint64{4, 2, 1}, got)
	require.Len(t, asks, 2)
	assert.Equal(t, uint64(6), asks[0].ID)

	bidLevels, _ := ob.Depth(1)
	assert.Equal(t, []Level{{Price: 101, Size: 1, Orders: 1}}, bidLevels)
}

func TestOrderBookClear(t *testing.T) {
	ob := NewOrderBook(1)
	require.NoError(t, ob.Apply(orderUpdate(1, 1, 1, codec.SideBid, codec.ActionNew, 100, 1)))
	require.NoError(t, ob.Apply(orderUpdate(1, 2, 2, codec.SideAsk, codec.ActionDeleteThru, 0, 0)))
	assert.Equal(t, 0, ob.Len())

	bids, asks := ob.Depth(5)
	assert.Empty(t, bids)
	assert.Empty(t, asks)
}
