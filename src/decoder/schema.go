package decoder

import (
	"mdp-book/src/codec"
)

// FieldDef places one field at a fixed offset inside a block or group
// entry. Since is the first schema version carrying the field; zero means
// it is part of the base layout.
type FieldDef struct {
	Name   string
	Offset int
	Type   codec.Type
	Since  uint16
}

func (f FieldDef) End() int {
	return f.Offset + f.Type.Width()
}

// GroupDef describes a repeating group. Pad is the number of bytes between
// the 2-byte entry length and the 1-byte entry count: 0 for groupSize,
// 5 for groupSize8Byte.
type GroupDef struct {
	Name   string
	Pad    int
	Since  uint16
	Fields []FieldDef
}

func (g GroupDef) HeaderLen() int {
	return 3 + g.Pad
}

// JoinDef links an order-detail group to a book-entry group through a
// 1-based reference field.
type JoinDef struct {
	Book      int
	Detail    int
	Reference string
}

type Template struct {
	ID     uint16
	Name   string
	Block  []FieldDef
	Groups []GroupDef
	Join   *JoinDef

	// EntriesOnly templates carry all of their meaning in group entries;
	// a message with no entries produces no records.
	EntriesOnly bool

	baseLen int
	types   map[string]codec.Type
	order   []string
}

func (t *Template) init() {
	t.baseLen = requiredLen(t.Block)
	t.types = make(map[string]codec.Type)
	t.order = t.order[:0]

	add := func(defs []FieldDef) {
		for _, f := range defs {
			if _, seen := t.types[f.Name]; seen {
				continue
			}
			t.types[f.Name] = f.Type
			t.order = append(t.order, f.Name)
		}
	}
	add(headerFields)
	add(t.Block)
	for _, g := range t.Groups {
		add(g.Fields)
	}
}

// FieldNames lists every field the template can emit, in record order.
func (t *Template) FieldNames() []string {
	return t.order
}

// FieldType resolves the wire type of any field this template can emit.
func (t *Template) FieldType(name string) (codec.Type, bool) {
	typ, ok := t.types[name]
	return typ, ok
}

func requiredLen(defs []FieldDef) int {
	n := 0
	for _, f := range defs {
		if f.Since == 0 && f.End() > n {
			n = f.End()
		}
	}
	return n
}

// col is one step of a sequential layout: either a field or a gap.
type col struct {
	name  string
	typ   codec.Type
	since uint16
	skip  int
}

func f(name string, t codec.Type) col {
	return col{name: name, typ: t}
}

func since(v uint16, name string, t codec.Type) col {
	return col{name: name, typ: t, since: v}
}

func pad(n int) col {
	return col{skip: n}
}

func cols(parts ...[]col) []col {
	var out []col
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// layout assigns offsets in declaration order, the way the SBE schema
// packs fields with no alignment.
func layout(cs ...col) []FieldDef {
	out := make([]FieldDef, 0, len(cs))
	off := 0
	for _, c := range cs {
		if c.name == "" {
			off += c.skip
			continue
		}
		out = append(out, FieldDef{Name: c.name, Offset: off, Type: c.typ, Since: c.since})
		off += c.typ.Width()
	}
	return out
}

func group(name string, cs ...col) GroupDef {
	return GroupDef{Name: name, Fields: layout(cs...)}
}

func group8(name string, cs ...col) GroupDef {
	return GroupDef{Name: name, Pad: 5, Fields: layout(cs...)}
}
