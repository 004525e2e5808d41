package pipeline

import (
	"container/heap"
	"context"
	"io"

	"mdp-book/src/decoder"
	"mdp-book/src/storage"
)

// chunkStream walks one template's chunks in order, holding one chunk in
// memory at a time.
type chunkStream struct {
	reg    *decoder.Registry
	chunks []storage.ChunkInfo
	buf    []decoder.Record
	pos    int
	index  int // stream position, breaks ordinal ties deterministically
}

func (s *chunkStream) peek(ctx context.Context) (*decoder.Record, error) {
	for s.pos >= len(s.buf) {
		if len(s.chunks) == 0 {
			return nil, io.EOF
		}
		recs, err := storage.ReadChunk(ctx, s.chunks[0], s.reg)
		if err != nil {
			return nil, err
		}
		s.chunks = s.chunks[1:]
		s.buf, s.pos = recs, 0
	}
	return &s.buf[s.pos], nil
}

type streamHeap []*chunkStream

func (h streamHeap) Len() int { return len(h) }

func (h streamHeap) Less(i, j int) bool {
	a, b := h[i].buf[h[i].pos], h[j].buf[h[j].pos]
	if a.Ordinal != b.Ordinal {
		return a.Ordinal < b.Ordinal
	}
	return h[i].index < h[j].index
}

func (h streamHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *streamHeap) Push(x any) { *h = append(*h, x.(*chunkStream)) }

func (h *streamHeap) Pop() any {
	old := *h
	n := len(old)
	s := old[n-1]
	*h = old[:n-1]
	return s
}

// ChunkSource merges per-template chunk streams back into stream order by
// message ordinal. Records of one message share an ordinal and live in
// the same template stream, so they stay together and in order.
type ChunkSource struct {
	reg     *decoder.Registry
	pending []*chunkStream
	h       streamHeap
	primed  bool
}

func NewChunkSource(reg *decoder.Registry, chunks []storage.ChunkInfo) *ChunkSource {
	byTemplate := make(map[uint16]*chunkStream)
	var order []*chunkStream
	for _, c := range chunks {
		s := byTemplate[c.TemplateID]
		if s == nil {
			s = &chunkStream{reg: reg, index: len(order)}
			byTemplate[c.TemplateID] = s
			order = append(order, s)
		}
		s.chunks = append(s.chunks, c)
	}
	return &ChunkSource{reg: reg, pending: order}
}

func (c *ChunkSource) prime(ctx context.Context) error {
	for _, s := range c.pending {
		if _, err := s.peek(ctx); err == io.EOF {
			continue
		} else if err != nil {
			return err
		}
		c.h = append(c.h, s)
	}
	heap.Init(&c.h)
	c.pending = nil
	c.primed = true
	return nil
}

func (c *ChunkSource) Next(ctx context.Context) (decoder.Record, error) {
	if !c.primed {
		if err := c.prime(ctx); err != nil {
			return decoder.Record{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return decoder.Record{}, err
	}
	if len(c.h) == 0 {
		return decoder.Record{}, io.EOF
	}

	s := c.h[0]
	rec := s.buf[s.pos]
	s.pos++

	if _, err := s.peek(ctx); err == io.EOF {
		heap.Pop(&c.h)
	} else if err != nil {
		return decoder.Record{}, err
	} else {
		heap.Fix(&c.h, 0)
	}
	return rec, nil
}
