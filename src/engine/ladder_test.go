package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdp-book/src/codec"
)

func lv(price, size int64) Level {
	return Level{Price: price, Size: size, Orders: 1}
}

func TestLadderApply(t *testing.T) {
	base := LadderOf(codec.SideBid, 2, lv(100, 10), lv(99, 5))

	cases := []struct {
		name   string
		action codec.UpdateAction
		level  int
		update Level
		want   []Level
	}{
		{"new at top pushes the rest down", codec.ActionNew, 1, lv(101, 3), []Level{lv(101, 3), lv(100, 10)}},
		{"new at bottom evicts the last", codec.ActionNew, 2, lv(99, 8), []Level{lv(100, 10), lv(99, 8)}},
		{"change replaces in place", codec.ActionChange, 1, lv(100, 12), []Level{lv(100, 12), lv(99, 5)}},
		{"overlay replaces in place", codec.ActionOverlay, 2, lv(98, 1), []Level{lv(100, 10), lv(98, 1)}},
		{"delete shifts up", codec.ActionDelete, 1, Level{}, []Level{lv(99, 5), {}}},
		{"delete from clears through the level", codec.ActionDeleteFrom, 1, Level{}, []Level{lv(99, 5), {}}},
		{"delete from the last level empties the side", codec.ActionDeleteFrom, 2, Level{}, []Level{{}, {}}},
		{"delete thru empties the side", codec.ActionDeleteThru, 1, Level{}, []Level{{}, {}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := base.Apply(tc.action, tc.level, tc.update)
			require.NoError(t, err)
			assert.Equal(t, tc.want, next.Levels())
		})
	}

	// the original ladder never changes
	assert.Equal(t, []Level{lv(100, 10), lv(99, 5)}, base.Levels())
}

func TestLadderLevelOutOfRange(t *testing.T) {
	base := LadderOf(codec.SideAsk, 3, lv(101, 1))

	next, err := base.Apply(codec.ActionNew, 4, lv(105, 1))
	var outOfRange *LevelOutOfRangeError
	if !errors.As(err, &outOfRange) {
		t.Fatalf("Expected LevelOutOfRangeError, got: %v", err)
	}
	assert.Equal(t, 4, outOfRange.Level)
	assert.Equal(t, 3, outOfRange.Depth)
	assert.True(t, next.Equal(base))

	_, err = base.Apply(codec.ActionChange, 0, lv(101, 2))
	assert.Error(t, err)
	assert.False(t, errors.As(err, &outOfRange))
}

func TestLadderTopSkipsEmptyLevels(t *testing.T) {
	l := LadderOf(codec.SideBid, 4, lv(100, 1), Level{Price: 99}, lv(98, 2))

	assert.Equal(t, []Level{lv(100, 1), lv(98, 2)}, l.Top(0))
	assert.Equal(t, []Level{lv(100, 1)}, l.Top(2))
	assert.Equal(t, lv(98, 2), l.Level(3))
	assert.Equal(t, Level{}, l.Level(5))
	assert.False(t, l.IsEmpty())
	assert.True(t, NewLadder(codec.SideBid, 4).IsEmpty())
}

func TestConsolidate(t *testing.T) {
	cases := []struct {
		name     string
		side     codec.Side
		outright []Level
		implied  []Level
		want     []Level
	}{
		{
			name:     "implied at an existing price adds size only",
			side:     codec.SideBid,
			outright: []Level{{Price: 100, Size: 10, Orders: 2}, {Price: 99, Size: 5, Orders: 1}},
			implied:  []Level{{Price: 100, Size: 4}},
			want:     []Level{{Price: 100, Size: 14, Orders: 2}, {Price: 99, Size: 5, Orders: 1}, {}},
		},
		{
			name:     "better implied bid goes on top",
			side:     codec.SideBid,
			outright: []Level{{Price: 100, Size: 10, Orders: 2}, {Price: 99, Size: 5, Orders: 1}, {Price: 98, Size: 1, Orders: 1}},
			implied:  []Level{{Price: 101, Size: 3}},
			want:     []Level{{Price: 101, Size: 3}, {Price: 100, Size: 10, Orders: 2}, {Price: 99, Size: 5, Orders: 1}},
		},
		{
			name:     "implied ask between levels",
			side:     codec.SideAsk,
			outright: []Level{{Price: 101, Size: 2, Orders: 1}, {Price: 103, Size: 2, Orders: 1}},
			implied:  []Level{{Price: 102, Size: 7}},
			want:     []Level{{Price: 101, Size: 2, Orders: 1}, {Price: 102, Size: 7}, {Price: 103, Size: 2, Orders: 1}},
		},
		{
			name:     "implied between outright levels",
			side:     codec.SideBid,
			outright: []Level{{Price: 100, Size: 10, Orders: 1}, {Price: 98, Size: 4, Orders: 1}},
			implied:  []Level{{Price: 99, Size: 2}},
			want:     []Level{{Price: 100, Size: 10, Orders: 1}, {Price: 99, Size: 2}, {Price: 98, Size: 4, Orders: 1}},
		},
		{
			name:     "implied at the top price",
			side:     codec.SideBid,
			outright: []Level{{Price: 100, Size: 10, Orders: 1}, {Price: 98, Size: 4, Orders: 1}},
			implied:  []Level{{Price: 100, Size: 5}},
			want:     []Level{{Price: 100, Size: 15, Orders: 1}, {Price: 98, Size: 4, Orders: 1}, {}},
		},
		{
			name:     "implied ask ties and inserts",
			side:     codec.SideAsk,
			outright: []Level{{Price: 101, Size: 1, Orders: 1}, {Price: 102, Size: 1, Orders: 1}, {Price: 104, Size: 1, Orders: 1}},
			implied:  []Level{{Price: 101, Size: 2}, {Price: 103, Size: 3}},
			want:     []Level{{Price: 101, Size: 3, Orders: 1}, {Price: 102, Size: 1, Orders: 1}, {Price: 103, Size: 3}},
		},
		{
			name:     "worse than a full ladder is dropped",
			side:     codec.SideBid,
			outright: []Level{{Price: 100, Size: 1, Orders: 1}, {Price: 99, Size: 1, Orders: 1}, {Price: 98, Size: 1, Orders: 1}},
			implied:  []Level{{Price: 97, Size: 9}},
			want:     []Level{{Price: 100, Size: 1, Orders: 1}, {Price: 99, Size: 1, Orders: 1}, {Price: 98, Size: 1, Orders: 1}},
		},
		{
			name:     "gapped outright ranks against occupied levels only",
			side:     codec.SideBid,
			outright: []Level{{}, {Price: 99, Size: 5, Orders: 1}, {}},
			implied:  []Level{{Price: 90, Size: 1}},
			want:     []Level{{Price: 99, Size: 5, Orders: 1}, {Price: 90, Size: 1}, {}},
		},
		{
			name:     "gapped ask with a better implied price",
			side:     codec.SideAsk,
			outright: []Level{{Price: 101, Size: 1, Orders: 1}, {}, {Price: 104, Size: 2, Orders: 1}},
			implied:  []Level{{Price: 103, Size: 3}, {Price: 105, Size: 1}},
			want:     []Level{{Price: 101, Size: 1, Orders: 1}, {Price: 103, Size: 3}, {Price: 104, Size: 2, Orders: 1}},
		},
		{
			name:    "implied only",
			side:    codec.SideAsk,
			implied: []Level{{Price: 105, Size: 1}, {Price: 106, Size: 2}},
			want:    []Level{{Price: 105, Size: 1}, {Price: 106, Size: 2}, {}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := LadderOf(tc.side, 3, tc.outright...)
			imp := LadderOf(tc.side, 2, tc.implied...)

			got := Consolidate(out, imp)
			assert.Equal(t, tc.want, got.Levels())
			assert.Equal(t, 3, got.Depth())

			// inputs untouched
			assert.True(t, out.Equal(LadderOf(tc.side, 3, tc.outright...)))
		})
	}
}
