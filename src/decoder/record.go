package decoder

import (
	"bytes"

	"github.com/goccy/go-json"

	"mdp-book/src/codec"
)

type Field struct {
	Name  string
	Value codec.Value
}

// Record is one decoded row: the message's fixed block, optionally the
// exchange header, and at most one entry from each joined group.
type Record struct {
	TemplateID uint16
	Version    uint16
	Ordinal    uint64 // message index in the stream
	Fields     []Field
}

func (r *Record) Get(name string) (codec.Value, bool) {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			return r.Fields[i].Value, true
		}
	}
	return codec.Value{}, false
}

// Int returns a non-null numeric field as int64.
func (r *Record) Int(name string) (int64, bool) {
	v, ok := r.Get(name)
	if !ok {
		return 0, false
	}
	return v.Int64()
}

// Uint returns a non-null numeric field as uint64.
func (r *Record) Uint(name string) (uint64, bool) {
	v, ok := r.Get(name)
	if !ok {
		return 0, false
	}
	return v.Uint64()
}

func (r *Record) Text(name string) (string, bool) {
	v, ok := r.Get(name)
	if !ok || v.Null {
		return "", false
	}
	return v.Text, true
}

// Has reports whether the field is present, null or not.
func (r *Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// MarshalJSON writes the fields as one object in record order, after the
// template_id, version and ordinal keys.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"template_id":`)
	writeJSON(&buf, r.TemplateID)
	buf.WriteString(`,"version":`)
	writeJSON(&buf, r.Version)
	buf.WriteString(`,"ordinal":`)
	writeJSON(&buf, r.Ordinal)

	for _, f := range r.Fields {
		buf.WriteByte(',')
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value.Interface())
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any) {
	b, _ := json.Marshal(v)
	buf.Write(b)
}
