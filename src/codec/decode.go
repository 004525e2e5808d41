package codec

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ShortBufferError means a field was asked for more bytes than remain.
type ShortBufferError struct {
	Need int
	Have int
}

func (e *ShortBufferError) Error() string {
	return fmt.Sprintf("short buffer: need %d bytes, have %d", e.Need, e.Have)
}

func raw(b []byte, width int) uint64 {
	switch width {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}

func signExtend(bits uint64, width int) int64 {
	switch width {
	case 1:
		return int64(int8(bits))
	case 2:
		return int64(int16(bits))
	case 4:
		return int64(int32(bits))
	default:
		return int64(bits)
	}
}

// DecodeInt reads a little-endian integer of the semantic's width and maps
// its sentinel pattern to an explicit null.
func DecodeInt(b []byte, sem Semantic) (Value, error) {
	s := sentinels[sem]
	if s.width == 0 || s.kind == KindText || s.kind == KindChar {
		return Value{}, fmt.Errorf("semantic %d is not an integer type", sem)
	}
	if len(b) < s.width {
		return Value{}, &ShortBufferError{Need: s.width, Have: len(b)}
	}

	bits := raw(b, s.width)
	if s.hasNull && bits == s.null {
		return NullOf(s.kind), nil
	}

	switch {
	case s.kind == KindBitmask:
		return BitmaskValue(bits), nil
	case s.signed:
		return Value{Kind: s.kind, Int: signExtend(bits, s.width)}, nil
	default:
		return Value{Kind: s.kind, Uint: bits}, nil
	}
}

// DecodeText trims the space/NUL padding of a fixed-width ASCII field.
func DecodeText(b []byte) string {
	return strings.Trim(string(b), " \x00")
}

// DecodeBitmask keeps the raw bit pattern for later interpretation.
func DecodeBitmask(b []byte) Value {
	var bits uint64
	for i := len(b) - 1; i >= 0; i-- {
		bits = bits<<8 | uint64(b[i])
	}
	return BitmaskValue(bits)
}

// Decode reads one field of type t from the start of b.
func Decode(b []byte, t Type) (Value, error) {
	w := t.Width()
	if len(b) < w {
		return Value{}, &ShortBufferError{Need: w, Have: len(b)}
	}

	switch t.Semantic {
	case Text:
		return TextValue(DecodeText(b[:w])), nil
	case Char:
		// CHAR uses NUL as its null value
		if b[0] == 0 {
			return NullOf(KindChar), nil
		}
		return CharValue(string(b[:1])), nil
	case Bitmask8, Bitmask32:
		return DecodeBitmask(b[:w]), nil
	case MaturityMonthYear:
		return decodeMaturity(b[:w]), nil
	}
	return DecodeInt(b, t.Semantic)
}

// decodeMaturity renders the MaturityMonthYear composite (year, month,
// day, week) as YYYYMM, YYYYMMDD or YYYYMMwN.
func decodeMaturity(b []byte) Value {
	year := binary.LittleEndian.Uint16(b[0:2])
	month, day, week := b[2], b[3], b[4]
	if year == 0xFFFF {
		return NullOf(KindText)
	}

	s := fmt.Sprintf("%04d", year)
	if month != 0xFF {
		s += fmt.Sprintf("%02d", month)
	}
	if day != 0xFF {
		s += fmt.Sprintf("%02d", day)
	} else if week != 0xFF {
		s += fmt.Sprintf("w%d", week)
	}
	return TextValue(s)
}
