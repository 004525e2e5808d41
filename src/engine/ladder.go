package engine

import (
	"fmt"

	"mdp-book/src/codec"
)

// Ladder is one side of a book: a fixed number of levels, best first.
// It is never modified in place; Apply returns a new Ladder.
type Ladder struct {
	side   codec.Side
	levels []Level
}

func NewLadder(side codec.Side, depth int) Ladder {
	return Ladder{side: side, levels: make([]Level, depth)}
}

// LadderOf builds a ladder from levels, padding with empty ones to depth.
func LadderOf(side codec.Side, depth int, levels ...Level) Ladder {
	l := NewLadder(side, depth)
	copy(l.levels, levels)
	return l
}

func (l Ladder) Side() codec.Side { return l.side }

func (l Ladder) Depth() int { return len(l.levels) }

// Level returns the 1-based level n.
func (l Ladder) Level(n int) Level {
	if n < 1 || n > len(l.levels) {
		return Level{}
	}
	return l.levels[n-1]
}

// Levels returns a copy of every level, empty ones included.
func (l Ladder) Levels() []Level {
	out := make([]Level, len(l.levels))
	copy(out, l.levels)
	return out
}

// Top returns the non-empty levels among the first n.
func (l Ladder) Top(n int) []Level {
	if n <= 0 || n > len(l.levels) {
		n = len(l.levels)
	}
	out := make([]Level, 0, n)
	for _, lv := range l.levels[:n] {
		if !lv.Empty() {
			out = append(out, lv)
		}
	}
	return out
}

func (l Ladder) IsEmpty() bool {
	for _, lv := range l.levels {
		if !lv.Empty() {
			return false
		}
	}
	return true
}

func (l Ladder) Equal(o Ladder) bool {
	if l.side != o.side || len(l.levels) != len(o.levels) {
		return false
	}
	for i := range l.levels {
		if l.levels[i] != o.levels[i] {
			return false
		}
	}
	return true
}

func (l Ladder) clone() Ladder {
	return Ladder{side: l.side, levels: l.Levels()}
}

// better reports whether price a ranks ahead of b on this side.
func (l Ladder) better(a, b int64) bool {
	if l.side == codec.SideBid {
		return a > b
	}
	return a < b
}

// insertAt shifts levels i.. down by one, evicting the last, and places lv
// at index i.
func (l Ladder) insertAt(i int, lv Level) {
	copy(l.levels[i+1:], l.levels[i:len(l.levels)-1])
	l.levels[i] = lv
}

// removeAt removes n levels starting at index i, shifts the rest up and
// clears the freed tail.
func (l Ladder) removeAt(i, n int) {
	if i+n > len(l.levels) {
		n = len(l.levels) - i
	}
	copy(l.levels[i:], l.levels[i+n:])
	for j := len(l.levels) - n; j < len(l.levels); j++ {
		l.levels[j] = Level{}
	}
}

// LevelOutOfRangeError is returned for a level beyond the ladder depth.
type LevelOutOfRangeError struct {
	Level int
	Depth int
}

func (e *LevelOutOfRangeError) Error() string {
	return fmt.Sprintf("price level %d outside ladder depth %d", e.Level, e.Depth)
}

// Apply returns the ladder after one update at the 1-based level n.
func (l Ladder) Apply(action codec.UpdateAction, n int, lv Level) (Ladder, error) {
	if action == codec.ActionDeleteThru {
		return NewLadder(l.side, len(l.levels)), nil
	}
	if n < 1 {
		return l, fmt.Errorf("invalid price level %d", n)
	}
	if n > len(l.levels) {
		return l, &LevelOutOfRangeError{Level: n, Depth: len(l.levels)}
	}

	next := l.clone()
	i := n - 1
	switch action {
	case codec.ActionNew:
		next.insertAt(i, lv)
	case codec.ActionChange, codec.ActionOverlay:
		next.levels[i] = lv
	case codec.ActionDelete:
		next.removeAt(i, 1)
	case codec.ActionDeleteFrom:
		// levels 1..n go, the rest move to the top
		next.removeAt(0, n)
	default:
		return l, fmt.Errorf("unsupported update action %s", action)
	}
	return next, nil
}
