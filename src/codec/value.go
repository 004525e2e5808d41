package codec

import (
	"strconv"
)

// Value is one decoded field. Exactly one of Int, Uint or Text is
// meaningful, selected by Kind; Null marks a sentinel on the wire.
type Value struct {
	Kind Kind
	Null bool
	Int  int64
	Uint uint64
	Text string
}

func NullOf(kind Kind) Value {
	return Value{Kind: kind, Null: true}
}

func IntValue(v int64) Value {
	return Value{Kind: KindInt, Int: v}
}

func UintValue(v uint64) Value {
	return Value{Kind: KindUint, Uint: v}
}

func PriceValue(mantissa int64) Value {
	return Value{Kind: KindPrice, Int: mantissa}
}

func TextValue(s string) Value {
	return Value{Kind: KindText, Text: s}
}

func CharValue(s string) Value {
	return Value{Kind: KindChar, Text: s}
}

func BitmaskValue(bits uint64) Value {
	return Value{Kind: KindBitmask, Uint: bits}
}

// Int64 returns the value as a signed integer for any numeric kind.
func (v Value) Int64() (int64, bool) {
	if v.Null {
		return 0, false
	}
	switch v.Kind {
	case KindInt, KindPrice:
		return v.Int, true
	case KindUint, KindBitmask:
		return int64(v.Uint), true
	}
	return 0, false
}

// Uint64 returns the value as an unsigned integer for any numeric kind.
func (v Value) Uint64() (uint64, bool) {
	if v.Null {
		return 0, false
	}
	switch v.Kind {
	case KindUint, KindBitmask:
		return v.Uint, true
	case KindInt, KindPrice:
		return uint64(v.Int), true
	}
	return 0, false
}

// Interface returns nil, int64, uint64 or string.
func (v Value) Interface() any {
	if v.Null {
		return nil
	}
	switch v.Kind {
	case KindInt, KindPrice:
		return v.Int
	case KindUint, KindBitmask:
		return v.Uint
	default:
		return v.Text
	}
}

func (v Value) String() string {
	if v.Null {
		return "null"
	}
	switch v.Kind {
	case KindInt, KindPrice:
		return strconv.FormatInt(v.Int, 10)
	case KindUint:
		return strconv.FormatUint(v.Uint, 10)
	case KindBitmask:
		return "0b" + strconv.FormatUint(v.Uint, 2)
	default:
		return v.Text
	}
}
