package parking

import "container/heap"

// compactFactor bounds index growth: once the heap holds more than this many
// entries per grid cell it is rebuilt from the grid.
const compactFactor = 4

type indexEntry struct {
	distance int
	coord    Coord
}

type entryHeap []indexEntry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].distance != h[j].distance {
		return h[i].distance < h[j].distance
	}
	if h[i].coord.X != h[j].coord.X {
		return h[i].coord.X < h[j].coord.X
	}
	return h[i].coord.Y < h[j].coord.Y
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(indexEntry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// availabilityIndex is a min-heap of candidate spots ordered by
// (distance, x, y). Entries are not removed when a spot is taken; they go
// stale and are dropped the next time they reach the top.
type availabilityIndex struct {
	entries entryHeap
}

func (idx *availabilityIndex) rebuild(g *Grid, eligible func(Coord) bool) {
	idx.entries = idx.entries[:0]
	for i := range g.cells {
		c := g.coord(i)
		if eligible(c) {
			idx.entries = append(idx.entries, indexEntry{distance: g.cells[i].Distance, coord: c})
		}
	}
	heap.Init(&idx.entries)
}

func (idx *availabilityIndex) push(c Coord, distance int) {
	heap.Push(&idx.entries, indexEntry{distance: distance, coord: c})
}

// peek drops stale entries from the top until one satisfies valid, and
// returns it without removing it.
func (idx *availabilityIndex) peek(valid func(Coord) bool) (Coord, bool) {
	for len(idx.entries) > 0 {
		top := idx.entries[0].coord
		if valid(top) {
			return top, true
		}
		heap.Pop(&idx.entries)
	}
	return Coord{}, false
}

func (idx *availabilityIndex) Len() int {
	return len(idx.entries)
}
