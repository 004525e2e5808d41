package decoder

import (
	"encoding/binary"
	"fmt"
	"sort"

	"mdp-book/src/codec"
)

// headerFields are the exchange packet header fields copied onto every
// record when the capture carries them.
var headerFields = []FieldDef{
	{Name: "MsgSeq", Type: codec.U32},
	{Name: "SendingTime", Type: codec.U64},
}

// DecodeFieldError is scoped to a single message; the stream continues at
// the next declared message boundary.
type DecodeFieldError struct {
	TemplateID uint16
	Version    uint16
	Group      string
	Entry      int
	Reason     string
}

func (e *DecodeFieldError) Error() string {
	if e.Group != "" {
		return fmt.Sprintf("template %d v%d: group %s entry %d: %s", e.TemplateID, e.Version, e.Group, e.Entry, e.Reason)
	}
	return fmt.Sprintf("template %d v%d: %s", e.TemplateID, e.Version, e.Reason)
}

// Message is everything a template needs to decode one SBE message.
type Message struct {
	TemplateID  uint16
	BlockLength uint16
	Version     uint16
	Ordinal     uint64
	MsgSeq      uint32
	SendingTime uint64
	HasHeader   bool
	Payload     []byte // message body after the 10-byte message header
}

type Registry struct {
	templates map[uint16]*Template
}

// NewRegistry returns a registry holding every supported template.
func NewRegistry() *Registry {
	r := &Registry{templates: make(map[uint16]*Template)}
	for _, t := range builtinTemplates() {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a template.
func (r *Registry) Register(t *Template) {
	t.init()
	r.templates[t.ID] = t
}

func (r *Registry) Lookup(id uint16) (*Template, bool) {
	t, ok := r.templates[id]
	return t, ok
}

func (r *Registry) IDs() []uint16 {
	ids := make([]uint16, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Decode routes a message to its template. Unknown templates decode to no
// records and no error.
func (r *Registry) Decode(m Message) ([]Record, error) {
	t, ok := r.templates[m.TemplateID]
	if !ok {
		return nil, nil
	}
	return t.Decode(m)
}

func (t *Template) fail(m Message, group string, entry int, format string, args ...any) error {
	return &DecodeFieldError{
		TemplateID: t.ID,
		Version:    m.Version,
		Group:      group,
		Entry:      entry,
		Reason:     fmt.Sprintf(format, args...),
	}
}

func (t *Template) Decode(m Message) ([]Record, error) {
	payload := m.Payload
	block := int(m.BlockLength)

	if block > len(payload) {
		return nil, t.fail(m, "", 0, "block length %d exceeds payload of %d bytes", block, len(payload))
	}
	if block < t.baseLen {
		return nil, t.fail(m, "", 0, "payload shorter than fixed block: %d < %d", block, t.baseLen)
	}

	fixed := make([]Field, 0, len(t.Block)+len(headerFields))
	if m.HasHeader {
		fixed = append(fixed,
			Field{Name: "MsgSeq", Value: codec.UintValue(uint64(m.MsgSeq))},
			Field{Name: "SendingTime", Value: codec.UintValue(m.SendingTime)},
		)
	}
	fixed, err := decodeFields(fixed, t.Block, payload[:block], m.Version)
	if err != nil {
		return nil, t.fail(m, "", 0, "%v", err)
	}

	entries := make([][][]Field, len(t.Groups))
	pos := block
	for gi, g := range t.Groups {
		if g.Since > m.Version {
			continue
		}
		// trailing groups may be absent altogether
		if pos == len(payload) {
			break
		}
		if pos+g.HeaderLen() > len(payload) {
			return nil, t.fail(m, g.Name, 0, "truncated group header at offset %d", pos)
		}

		entryLen := int(binary.LittleEndian.Uint16(payload[pos:]))
		count := int(payload[pos+2+g.Pad])
		pos += g.HeaderLen()

		required := requiredLen(g.Fields)
		if count > 0 && entryLen < required {
			return nil, t.fail(m, g.Name, 0, "entry length %d shorter than %d", entryLen, required)
		}

		entries[gi] = make([][]Field, 0, count)
		for i := 0; i < count; i++ {
			if pos+entryLen > len(payload) {
				return nil, t.fail(m, g.Name, i, "entry overruns payload at offset %d", pos)
			}
			fields, err := decodeFields(nil, g.Fields, payload[pos:pos+entryLen], m.Version)
			if err != nil {
				return nil, t.fail(m, g.Name, i, "%v", err)
			}
			entries[gi] = append(entries[gi], fields)
			// always step by the declared length, unknown trailing fields included
			pos += entryLen
		}
	}

	return t.emit(m, fixed, entries), nil
}

// decodeFields appends every field of defs present in buf at this version.
// Base fields must fit; fields added in later versions are read only when
// both the version and the buffer allow it.
func decodeFields(dst []Field, defs []FieldDef, buf []byte, version uint16) ([]Field, error) {
	for _, def := range defs {
		if def.Since > version {
			continue
		}
		if def.End() > len(buf) {
			if def.Since > 0 {
				continue
			}
			return nil, fmt.Errorf("field %s at %d needs %d bytes, have %d", def.Name, def.Offset, def.Type.Width(), len(buf))
		}
		v, err := codec.Decode(buf[def.Offset:], def.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", def.Name, err)
		}
		dst = append(dst, Field{Name: def.Name, Value: v})
	}
	return dst, nil
}

func (t *Template) record(m Message, parts ...[]Field) Record {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	fields := make([]Field, 0, n)
	for _, p := range parts {
		fields = append(fields, p...)
	}
	return Record{TemplateID: t.ID, Version: m.Version, Ordinal: m.Ordinal, Fields: fields}
}

func (t *Template) emit(m Message, fixed []Field, entries [][][]Field) []Record {
	var out []Record

	if t.Join != nil {
		out = t.emitJoined(m, fixed, entries)
		for gi, group := range entries {
			if gi == t.Join.Book || gi == t.Join.Detail {
				continue
			}
			for _, e := range group {
				out = append(out, t.record(m, fixed, e))
			}
		}
	} else {
		for _, group := range entries {
			for _, e := range group {
				out = append(out, t.record(m, fixed, e))
			}
		}
	}

	if len(out) == 0 && !t.EntriesOnly {
		out = append(out, t.record(m, fixed))
	}
	return out
}
