package engine

import (
	"sort"
	"sync"
)

// Books holds one Book per instrument.
type Books struct {
	Depth        int
	ImpliedDepth int

	books map[int32]*Book
	mu    sync.RWMutex
}

func NewBooks(depth, impliedDepth int) *Books {
	return &Books{
		Depth:        depth,
		ImpliedDepth: impliedDepth,
		books:        make(map[int32]*Book),
	}
}

func (m *Books) Get(securityID int32) (*Book, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[securityID]
	return b, ok
}

func (m *Books) GetOrCreate(securityID int32) *Book {
	m.mu.RLock()
	if b, exists := m.books[securityID]; exists {
		m.mu.RUnlock()
		return b
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// edge case: double-check after acquiring write lock
	if b, exists := m.books[securityID]; exists {
		return b
	}

	b := NewBook(securityID, m.Depth, m.ImpliedDepth)
	m.books[securityID] = b
	return b
}

// IDs returns every known instrument in ascending order.
func (m *Books) IDs() []int32 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int32, 0, len(m.books))
	for id := range m.books {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *Books) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.books)
}

// ResetAll clears every book, as on a channel reset.
func (m *Books) ResetAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.books {
		b.Reset()
	}
}

// Failures returns the sequencing failure of every stopped instrument.
func (m *Books) Failures() []*SequencingError {
	var out []*SequencingError
	for _, id := range m.IDs() {
		b, _ := m.Get(id)
		if err := b.Err(); err != nil {
			out = append(out, err)
		}
	}
	return out
}
