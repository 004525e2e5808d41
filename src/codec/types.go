package codec

// Kind is the shape of a decoded value once its wire type is resolved.
type Kind uint8

const (
	KindInt Kind = iota
	KindUint
	KindPrice // int64 mantissa, exponent -9
	KindText
	KindChar
	KindBitmask
)

var kindNames = [...]string{
	KindInt:     "INT64",
	KindUint:    "UINT64",
	KindPrice:   "PRICE9",
	KindText:    "TEXT",
	KindChar:    "CHAR",
	KindBitmask: "BITMASK",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UNKNOWN"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Semantic names a wire type from the MDP3 schema. Two semantics may share
// a width and still differ in their null sentinel, e.g. Uint16 has none
// while LocalMktDate uses 0xFFFF.
type Semantic uint8

const (
	Uint8 Semantic = iota
	Uint8Null
	Int8
	Int8Null
	Int16
	Uint16
	Uint16Null
	LocalMktDate
	Int32
	Int32Null
	Uint32
	Uint32Null
	Int64
	Uint64
	Uint64Null
	Price9
	PriceNull9
	DecimalQty
	Char
	Text
	Bitmask8
	Bitmask32
	MaturityMonthYear
)

type sentinel struct {
	width   int
	signed  bool
	kind    Kind
	hasNull bool
	null    uint64 // raw little-endian bit pattern
}

// sentinels is the single source of truth for null patterns. Every
// Semantic must have an entry.
var sentinels = [...]sentinel{
	Uint8:             {width: 1, kind: KindUint},
	Uint8Null:         {width: 1, kind: KindUint, hasNull: true, null: 0xFF},
	Int8:              {width: 1, signed: true, kind: KindInt},
	Int8Null:          {width: 1, signed: true, kind: KindInt, hasNull: true, null: 0x7F},
	Int16:             {width: 2, signed: true, kind: KindInt},
	Uint16:            {width: 2, kind: KindUint},
	Uint16Null:        {width: 2, kind: KindUint, hasNull: true, null: 0xFFFF},
	LocalMktDate:      {width: 2, kind: KindUint, hasNull: true, null: 0xFFFF},
	Int32:             {width: 4, signed: true, kind: KindInt},
	Int32Null:         {width: 4, signed: true, kind: KindInt, hasNull: true, null: 0x7FFFFFFF},
	Uint32:            {width: 4, kind: KindUint},
	Uint32Null:        {width: 4, kind: KindUint, hasNull: true, null: 0xFFFFFFFF},
	Int64:             {width: 8, signed: true, kind: KindInt},
	Uint64:            {width: 8, kind: KindUint},
	Uint64Null:        {width: 8, kind: KindUint, hasNull: true, null: 0xFFFFFFFFFFFFFFFF},
	Price9:            {width: 8, signed: true, kind: KindPrice},
	PriceNull9:        {width: 8, signed: true, kind: KindPrice, hasNull: true, null: 0x7FFFFFFFFFFFFFFF},
	DecimalQty:        {width: 4, signed: true, kind: KindInt, hasNull: true, null: 0x7FFFFFFF},
	Char:              {width: 1, kind: KindChar},
	Text:              {kind: KindText},
	Bitmask8:          {width: 1, kind: KindBitmask},
	Bitmask32:         {width: 4, kind: KindBitmask},
	MaturityMonthYear: {width: 5, kind: KindText},
}

// NullPattern reports the raw sentinel for sem, if it has one.
func NullPattern(sem Semantic) (uint64, bool) {
	s := sentinels[sem]
	return s.null, s.hasNull
}

// Type is a Semantic plus a byte size; Size only matters for Text.
type Type struct {
	Semantic Semantic
	Size     int
}

func (t Type) Width() int {
	if t.Semantic == Text {
		return t.Size
	}
	return sentinels[t.Semantic].width
}

func (t Type) Kind() Kind {
	return sentinels[t.Semantic].kind
}

// Shorthands used by the schema tables.
var (
	U8      = Type{Semantic: Uint8}
	U8N     = Type{Semantic: Uint8Null}
	I8      = Type{Semantic: Int8}
	I8N     = Type{Semantic: Int8Null}
	I16     = Type{Semantic: Int16}
	U16     = Type{Semantic: Uint16}
	U16N    = Type{Semantic: Uint16Null}
	Date    = Type{Semantic: LocalMktDate}
	I32     = Type{Semantic: Int32}
	I32N    = Type{Semantic: Int32Null}
	U32     = Type{Semantic: Uint32}
	U32N    = Type{Semantic: Uint32Null}
	I64     = Type{Semantic: Int64}
	U64     = Type{Semantic: Uint64}
	U64N    = Type{Semantic: Uint64Null}
	Px      = Type{Semantic: Price9}
	PxN     = Type{Semantic: PriceNull9}
	Qty     = Type{Semantic: DecimalQty}
	Ch      = Type{Semantic: Char}
	Mask8   = Type{Semantic: Bitmask8}
	Mask32  = Type{Semantic: Bitmask32}
	MatDate = Type{Semantic: MaturityMonthYear}
)

// Str is a fixed-width ASCII field of n bytes.
func Str(n int) Type {
	return Type{Semantic: Text, Size: n}
}
