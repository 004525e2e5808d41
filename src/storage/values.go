package storage

import (
	"fmt"
	"strconv"

	"mdp-book/src/codec"
)

// columnType maps a field kind to its SQLite column affinity.
func columnType(k codec.Kind) string {
	if k == codec.KindText || k == codec.KindChar {
		return "TEXT"
	}
	return "INTEGER"
}

// sqlValue converts a value for database/sql. Unsigned values are stored as
// their int64 bit pattern; restore reverses it using the field type.
func sqlValue(v codec.Value) any {
	if v.Null {
		return nil
	}
	switch v.Kind {
	case codec.KindInt, codec.KindPrice:
		return v.Int
	case codec.KindUint, codec.KindBitmask:
		return int64(v.Uint)
	default:
		return v.Text
	}
}

// restore rebuilds a typed value from what a driver or parser handed back.
func restore(kind codec.Kind, raw any) (codec.Value, error) {
	if raw == nil {
		return codec.NullOf(kind), nil
	}

	switch kind {
	case codec.KindText, codec.KindChar:
		var s string
		switch x := raw.(type) {
		case string:
			s = x
		case []byte:
			s = string(x)
		default:
			return codec.Value{}, fmt.Errorf("expected text, got %T", raw)
		}
		if kind == codec.KindChar {
			return codec.CharValue(s), nil
		}
		return codec.TextValue(s), nil
	}

	var i int64
	var u uint64
	switch x := raw.(type) {
	case int64:
		i, u = x, uint64(x)
	case []byte:
		return restoreNumber(kind, string(x))
	case string:
		return restoreNumber(kind, x)
	default:
		return codec.Value{}, fmt.Errorf("expected integer, got %T", raw)
	}

	switch kind {
	case codec.KindInt:
		return codec.IntValue(i), nil
	case codec.KindPrice:
		return codec.PriceValue(i), nil
	case codec.KindBitmask:
		return codec.BitmaskValue(u), nil
	default:
		return codec.UintValue(u), nil
	}
}

func restoreNumber(kind codec.Kind, s string) (codec.Value, error) {
	switch kind {
	case codec.KindUint, codec.KindBitmask:
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return codec.Value{}, err
		}
		if kind == codec.KindBitmask {
			return codec.BitmaskValue(u), nil
		}
		return codec.UintValue(u), nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return codec.Value{}, err
	}
	if kind == codec.KindPrice {
		return codec.PriceValue(i), nil
	}
	return codec.IntValue(i), nil
}
