package engine

import "fmt"

// SequencingError stops one instrument's reconstruction: an update arrived
// with a key below the last one applied.
type SequencingError struct {
	SecurityID int32
	Key        uint64
	Last       uint64
	Ordinal    uint64
	ByOrder    bool
}

func (e *SequencingError) Error() string {
	kind := "RptSeq"
	if e.ByOrder {
		kind = "order sequence"
	}
	return fmt.Sprintf("instrument %d: %s %d arrived after %d (record %d)", e.SecurityID, kind, e.Key, e.Last, e.Ordinal)
}
