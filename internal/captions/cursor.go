package captions

import (
	"container/heap"
	"sort"
)

// span is a maximal run of frames [from, to] with the same winning entry.
type span struct {
	from, to int
	index    int
}

// Cursor answers sequential frame lookups against a Table. It resolves the
// first-match-wins winner for every frame range once, so walking frames in
// increasing order costs amortised O(1) per frame.
type Cursor struct {
	table Table
	spans []span
	pos   int
}

// NewCursor prepares a cursor over table.
func NewCursor(table Table) *Cursor {
	return &Cursor{table: table, spans: buildSpans(table)}
}

// At returns the entry drawn on frame, matching Table.Lookup.
func (c *Cursor) At(frame int) (Entry, bool) {
	if len(c.spans) == 0 {
		return Entry{}, false
	}
	if c.pos > 0 && frame <= c.spans[c.pos-1].to {
		c.pos = sort.Search(len(c.spans), func(i int) bool { return c.spans[i].to >= frame })
	}
	for c.pos < len(c.spans) && c.spans[c.pos].to < frame {
		c.pos++
	}
	if c.pos >= len(c.spans) {
		return Entry{}, false
	}
	s := c.spans[c.pos]
	if frame < s.from {
		return Entry{}, false
	}
	return c.table[s.index], true
}

// indexHeap orders live entry indices so the lowest (first) index is on top.
type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *indexHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func buildSpans(table Table) []span {
	bounds := make([]int, 0, 2*len(table))
	for _, e := range table {
		if !e.drawable() {
			continue
		}
		bounds = append(bounds, e.StartFrame, e.EndFrame+1)
	}
	if len(bounds) == 0 {
		return nil
	}
	sort.Ints(bounds)
	bounds = compactInts(bounds)

	byStart := make([]int, 0, len(table))
	for i, e := range table {
		if e.drawable() {
			byStart = append(byStart, i)
		}
	}
	sort.SliceStable(byStart, func(a, b int) bool {
		return table[byStart[a]].StartFrame < table[byStart[b]].StartFrame
	})

	var (
		live  indexHeap
		next  int
		spans []span
	)
	for k := 0; k < len(bounds)-1; k++ {
		from, to := bounds[k], bounds[k+1]-1
		for next < len(byStart) && table[byStart[next]].StartFrame <= from {
			heap.Push(&live, byStart[next])
			next++
		}
		for live.Len() > 0 && table[live[0]].EndFrame < from {
			heap.Pop(&live)
		}
		if live.Len() == 0 {
			continue
		}
		winner := live[0]
		if n := len(spans); n > 0 && spans[n-1].index == winner && spans[n-1].to == from-1 {
			spans[n-1].to = to
			continue
		}
		spans = append(spans, span{from: from, to: to, index: winner})
	}
	return spans
}

func compactInts(sorted []int) []int {
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
