package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdp-book/src/codec"
)

func levelUpdate(id int32, seq uint64, side codec.Side, action codec.UpdateAction, level int, price, size int64) Update {
	return Update{
		SecurityID: id,
		Side:       side,
		Action:     action,
		Level:      level,
		Price:      price,
		Size:       size,
		Orders:     1,
		SeqKey:     seq,
		Ordinal:    seq,
	}
}

// TestBookSequenceGap tests that an out-of-order RptSeq stops the
// instrument, names the offending key and leaves other instruments alone.
func TestBookSequenceGap(t *testing.T) {
	books := NewBooks(10, 2)
	a := books.GetOrCreate(1)
	b := books.GetOrCreate(2)

	for _, seq := range []uint64{1, 2, 4} {
		_, err := a.Apply(levelUpdate(1, seq, codec.SideBid, codec.ActionNew, 1, int64(100+seq), 1))
		require.NoError(t, err)
	}

	_, err := a.Apply(levelUpdate(1, 3, codec.SideBid, codec.ActionNew, 1, 103, 1))
	var seqErr *SequencingError
	if !errors.As(err, &seqErr) {
		t.Fatalf("Expected SequencingError, got: %v", err)
	}
	if seqErr.Key != 3 || seqErr.Last != 4 {
		t.Errorf("Expected key 3 after 4, got: %d after %d", seqErr.Key, seqErr.Last)
	}
	assert.Equal(t, int32(1), seqErr.SecurityID)

	// stopped for good
	changed, err := a.Apply(levelUpdate(1, 5, codec.SideBid, codec.ActionNew, 1, 105, 1))
	assert.False(t, changed)
	assert.Same(t, seqErr, err)
	assert.Equal(t, int64(104), a.Ladder(ViewOutright, codec.SideBid).Level(1).Price)

	changed, err = b.Apply(levelUpdate(2, 1, codec.SideAsk, codec.ActionNew, 1, 200, 1))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Nil(t, b.Err())

	failures := books.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, int32(1), failures[0].SecurityID)
}

func TestBookDuplicateRptSeq(t *testing.T) {
	book := NewBook(1, 5, 2)

	u := levelUpdate(1, 7, codec.SideBid, codec.ActionNew, 1, 100, 3)
	changed, err := book.Apply(u)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = book.Apply(u)
	require.NoError(t, err)
	assert.False(t, changed)

	assert.Equal(t, []Level{{Price: 100, Size: 3, Orders: 1}}, book.Ladder(ViewOutright, codec.SideBid).Top(0))
}

func TestBookLevelBeyondDepthIgnored(t *testing.T) {
	book := NewBook(1, 2, 2)

	changed, err := book.Apply(levelUpdate(1, 1, codec.SideAsk, codec.ActionNew, 3, 103, 1))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Nil(t, book.Err())
	assert.True(t, book.Ladder(ViewOutright, codec.SideAsk).IsEmpty())
}

func TestBookResetKeepsFailure(t *testing.T) {
	book := NewBook(1, 5, 2)

	_, err := book.Apply(levelUpdate(1, 5, codec.SideBid, codec.ActionNew, 1, 100, 1))
	require.NoError(t, err)

	book.Reset()
	assert.True(t, book.Ladder(ViewOutright, codec.SideBid).IsEmpty())

	// sequence state is forgotten
	_, err = book.Apply(levelUpdate(1, 1, codec.SideBid, codec.ActionNew, 1, 99, 1))
	require.NoError(t, err)

	_, err = book.Apply(levelUpdate(1, 0, codec.SideBid, codec.ActionNew, 1, 98, 1))
	require.Error(t, err)

	book.Reset()
	assert.NotNil(t, book.Err())
	_, err = book.Apply(levelUpdate(1, 1, codec.SideBid, codec.ActionNew, 1, 99, 1))
	assert.Error(t, err)
}

func TestBookResetEntry(t *testing.T) {
	book := NewBook(1, 5, 2)
	_, err := book.Apply(levelUpdate(1, 1, codec.SideBid, codec.ActionNew, 1, 100, 1))
	require.NoError(t, err)

	changed, err := book.Apply(Update{SecurityID: 1, Reset: true, SeqKey: 2, Ordinal: 2})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, book.Ladder(ViewOutright, codec.SideBid).IsEmpty())
}

func TestBookImpliedView(t *testing.T) {
	book := NewBook(1, 3, 2)

	_, err := book.Apply(levelUpdate(1, 1, codec.SideBid, codec.ActionNew, 1, 100, 10))
	require.NoError(t, err)

	imp := levelUpdate(1, 2, codec.SideBid, codec.ActionNew, 1, 101, 4)
	imp.Kind = codec.Implied
	imp.Orders = 0
	_, err = book.Apply(imp)
	require.NoError(t, err)

	assert.Equal(t, int64(100), book.Ladder(ViewOutright, codec.SideBid).Level(1).Price)
	assert.Equal(t, int64(101), book.Ladder(ViewImplied, codec.SideBid).Level(1).Price)

	cons := book.Ladder(ViewConsolidated, codec.SideBid)
	assert.Equal(t, []Level{{Price: 101, Size: 4}, {Price: 100, Size: 10, Orders: 1}}, cons.Top(0))

	snap := book.Snapshot()
	assert.Equal(t, uint64(2), snap.Applied)
	assert.Equal(t, uint64(2), snap.Ordinal)
	assert.True(t, snap.View(ViewConsolidated)[codec.SideBid].Equal(cons))
}

// TestBookOrderSequenceSeparate tests that order-level updates are
// sequenced apart from price-level ones.
func TestBookOrderSequenceSeparate(t *testing.T) {
	book := NewBook(1, 5, 2)

	_, err := book.Apply(levelUpdate(1, 50, codec.SideBid, codec.ActionNew, 1, 100, 1))
	require.NoError(t, err)

	changed, err := book.Apply(Update{SecurityID: 1, ByOrder: true, OrderID: 9, Side: codec.SideBid, Action: codec.ActionNew, Price: 100, Size: 1, SeqKey: 3})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, book.Orders().Len())

	// equal keys are fine for order updates sharing a packet
	_, err = book.Apply(Update{SecurityID: 1, ByOrder: true, OrderID: 10, Side: codec.SideBid, Action: codec.ActionNew, Price: 100, Size: 2, SeqKey: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, book.Orders().Len())

	_, err = book.Apply(Update{SecurityID: 1, ByOrder: true, OrderID: 11, Side: codec.SideBid, Action: codec.ActionNew, SeqKey: 2})
	var seqErr *SequencingError
	require.True(t, errors.As(err, &seqErr))
	assert.True(t, seqErr.ByOrder)
}

func TestSeedKeepsBookDepth(t *testing.T) {
	book := NewBook(1, 2, 2)
	bids := LadderOf(codec.SideBid, 10, lv(101, 1), lv(100, 1), lv(99, 1))

	book.Seed(bids, NewLadder(codec.SideAsk, 10))

	l := book.Ladder(ViewOutright, codec.SideBid)
	assert.Equal(t, 2, l.Depth())
	assert.Equal(t, []Level{lv(101, 1), lv(100, 1)}, l.Levels())
}

func TestParseView(t *testing.T) {
	v, ok := ParseView("")
	assert.True(t, ok)
	assert.Equal(t, ViewConsolidated, v)

	v, ok = ParseView("implied")
	assert.True(t, ok)
	assert.Equal(t, ViewImplied, v)

	_, ok = ParseView("depth")
	assert.False(t, ok)
}
