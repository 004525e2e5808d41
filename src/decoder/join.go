package decoder

// refKind tags where an order detail points.
type refKind uint8

const (
	refNone     refKind = iota // null reference
	refBook                    // valid index into the book-entry arena
	refDangling                // reference past the end of the arena
)

type detailRef struct {
	kind  refKind
	index int
}

func resolveRef(fields []Field, name string, arenaLen int) detailRef {
	for _, fd := range fields {
		if fd.Name != name {
			continue
		}
		r, ok := fd.Value.Int64()
		if !ok {
			return detailRef{kind: refNone}
		}
		if r < 1 || int(r) > arenaLen {
			return detailRef{kind: refDangling}
		}
		return detailRef{kind: refBook, index: int(r) - 1}
	}
	return detailRef{kind: refNone}
}

// emitJoined pairs order details with the book entries they reference.
// Book entries keep their arrival order; each carries its details in arrival
// order. Details without a usable reference follow as standalone records.
func (t *Template) emitJoined(m Message, fixed []Field, entries [][][]Field) []Record {
	book := entries[t.Join.Book]
	details := entries[t.Join.Detail]

	attached := make([][]int, len(book))
	var orphans []int
	for di, d := range details {
		ref := resolveRef(d, t.Join.Reference, len(book))
		if ref.kind != refBook {
			orphans = append(orphans, di)
			continue
		}
		attached[ref.index] = append(attached[ref.index], di)
	}

	out := make([]Record, 0, len(book)+len(details))
	for bi, entry := range book {
		if len(attached[bi]) == 0 {
			out = append(out, t.record(m, fixed, entry))
			continue
		}
		for _, di := range attached[bi] {
			out = append(out, t.record(m, fixed, entry, details[di]))
		}
	}
	for _, di := range orphans {
		out = append(out, t.record(m, fixed, details[di]))
	}
	return out
}
