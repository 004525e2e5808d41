package codec

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func le(width int, v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b[:width]
}

// TestNullSentinels checks every nullable semantic maps its sentinel to null
// and a neighbouring pattern to a value.
func TestNullSentinels(t *testing.T) {
	cases := []struct {
		name string
		typ  Type
	}{
		{"uint8", U8N},
		{"int8", I8N},
		{"uint16", U16N},
		{"date", Date},
		{"int32", I32N},
		{"uint32", U32N},
		{"uint64", U64N},
		{"price", PxN},
		{"qty", Qty},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pattern, ok := NullPattern(tc.typ.Semantic)
			if !ok {
				t.Fatalf("Expected a null pattern for %s", tc.name)
			}

			v, err := Decode(le(tc.typ.Width(), pattern), tc.typ)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !v.Null {
				t.Errorf("Expected null for sentinel 0x%x, got: %s", pattern, v)
			}
			if v.Kind != tc.typ.Kind() {
				t.Errorf("Expected kind %s, got: %s", tc.typ.Kind(), v.Kind)
			}

			v, err = Decode(le(tc.typ.Width(), pattern-1), tc.typ)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if v.Null {
				t.Errorf("Expected a value for 0x%x, got null", pattern-1)
			}
		})
	}
}

func TestNonNullableHasNoSentinel(t *testing.T) {
	for _, typ := range []Type{U8, U16, U32, U64, I64, Px} {
		if _, ok := NullPattern(typ.Semantic); ok {
			t.Errorf("Expected no null pattern for semantic %d", typ.Semantic)
		}
		v, err := Decode(le(typ.Width(), 0xFFFFFFFFFFFFFFFF), typ)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if v.Null {
			t.Errorf("Semantic %d decoded all-ones as null", typ.Semantic)
		}
	}
}

func TestDecodeSignedPrice(t *testing.T) {
	v, err := Decode(le(8, uint64(0xFFFFFFFFFFFFFF9C)), Px) // -100
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	got, ok := v.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(-100), got)
	assert.Equal(t, KindPrice, v.Kind)
}

func TestDecodeText(t *testing.T) {
	v, err := Decode([]byte("ESZ4\x00\x00  "), Str(8))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if v.Text != "ESZ4" {
		t.Errorf("Expected ESZ4, got: %q", v.Text)
	}
}

func TestDecodeCharNull(t *testing.T) {
	v, err := Decode([]byte{0}, Ch)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	assert.True(t, v.Null)

	v, err = Decode([]byte{'E'}, Ch)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	assert.Equal(t, "E", v.Text)
}

func TestDecodeMaturity(t *testing.T) {
	cases := []struct {
		b    []byte
		want string
	}{
		{[]byte{0xE8, 0x07, 12, 0xFF, 0xFF}, "202412"},
		{[]byte{0xE8, 0x07, 12, 20, 0xFF}, "20241220"},
		{[]byte{0xE8, 0x07, 12, 0xFF, 3}, "202412w3"},
	}
	for _, tc := range cases {
		v, err := Decode(tc.b, MatDate)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if v.Text != tc.want {
			t.Errorf("Expected %s, got: %s", tc.want, v.Text)
		}
	}

	v, _ := Decode([]byte{0xFF, 0xFF, 0, 0, 0}, MatDate)
	assert.True(t, v.Null)
}

func TestDecodeShortBuffer(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3}, U32)
	var short *ShortBufferError
	if !errors.As(err, &short) {
		t.Fatalf("Expected ShortBufferError, got: %v", err)
	}
	if short.Need != 4 || short.Have != 3 {
		t.Errorf("Expected need 4 have 3, got: need %d have %d", short.Need, short.Have)
	}
}

func TestEntryTypeSides(t *testing.T) {
	cases := []struct {
		code string
		side Side
		kind EntryKind
		book bool
	}{
		{"0", SideBid, Outright, true},
		{"1", SideAsk, Outright, true},
		{"E", SideBid, Implied, true},
		{"F", SideAsk, Implied, true},
		{"2", 0, Outright, false},
		{"J", 0, Outright, false},
	}
	for _, tc := range cases {
		et, err := ParseEntryType(tc.code)
		if err != nil {
			t.Fatalf("ParseEntryType(%q) failed: %v", tc.code, err)
		}
		side, ok := et.Side()
		if ok != tc.book {
			t.Errorf("%s: expected book entry %v, got: %v", tc.code, tc.book, ok)
			continue
		}
		if ok && side != tc.side {
			t.Errorf("%s: expected side %s, got: %s", tc.code, tc.side, side)
		}
		if et.Kind() != tc.kind {
			t.Errorf("%s: expected kind %s, got: %s", tc.code, tc.kind, et.Kind())
		}
	}

	if _, err := ParseEntryType("Z"); err == nil {
		t.Error("Expected error for unknown entry type")
	}
}

func TestParseUpdateAction(t *testing.T) {
	for code, want := range []UpdateAction{ActionNew, ActionChange, ActionDelete, ActionDeleteThru, ActionDeleteFrom, ActionOverlay} {
		got, err := ParseUpdateAction(uint64(code))
		if err != nil {
			t.Fatalf("ParseUpdateAction(%d) failed: %v", code, err)
		}
		if got != want {
			t.Errorf("Expected %s, got: %s", want, got)
		}
	}
	if _, err := ParseUpdateAction(6); err == nil {
		t.Error("Expected error for action 6")
	}
}
