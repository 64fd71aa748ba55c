package heap

import "github.com/monoheap/monoheap/internal/heap/heaperrs"

// occupancyLessThan40 and occupancyLessThan60 are the classification
// thresholds a young region is filed under for pairing purposes.
const (
	occupancyLessThan40 = 0.40
	occupancyLessThan60 = 0.60
)

// GC is the minor, relocating collector: it pairs young regions by
// occupancy, compacts each pair into a single fresh region, and rewrites
// the pointers stored inside each merged region so they follow the move.
// Pointers held in regions that were not paired are not rewritten. It
// implements no root set or reachability trace — every mono in a paired
// region is copied verbatim, a documented simplification rather than a bug.
type GC struct {
	heap  *Heap
	alloc *Allocator
}

// NewGC builds a minor collector over the given heap and allocator, and
// wires itself as the allocator's fallback when the heap is exhausted.
func NewGC(h *Heap, a *Allocator) *GC {
	gc := &GC{heap: h, alloc: a}
	a.attachGC(gc)

	return gc
}

// rebaseEntry records where a relocated source region's bytes now live:
// at newRegionIndex, at the same in-region offset plus extraOffset.
type rebaseEntry struct {
	newRegionIndex int
	extraOffset    uint32
}

type regionPair struct {
	a, b *Region
}

// classify files every region currently in the allocator's working set
// into the <=40% and the 40-60% occupancy buckets. Regions above 60%
// occupancy are left untouched by this cycle.
func (g *GC) classify() (lessThan40, lessThan60 []*Region) {
	for _, r := range g.alloc.Regions() {
		occ := r.Occupancy()

		switch {
		case occ <= occupancyLessThan40:
			lessThan40 = append(lessThan40, r)
		case occ <= occupancyLessThan60:
			lessThan60 = append(lessThan60, r)
		}
	}

	return lessThan40, lessThan60
}

// pairRegions matches each lessThan40 region with a lessThan60 region at the same
// list index; a surplus on either side is left for the next cycle.
func pairRegions(lessThan40, lessThan60 []*Region) []regionPair {
	n := len(lessThan40)
	if len(lessThan60) < n {
		n = len(lessThan60)
	}

	pairs := make([]regionPair, 0, n)
	for i := 0; i < n; i++ {
		pairs = append(pairs, regionPair{a: lessThan40[i], b: lessThan60[i]})
	}

	return pairs
}

// Collect runs one minor GC cycle: classify, pair, compact every pair into
// a fresh region, then rewrite pointers across all newly produced regions.
// The copy phase for every pair completes before any rewrite begins, so
// every pointee a rewritten pointer can reference already exists at its new
// location.
func (g *GC) Collect() error {
	lessThan40, lessThan60 := g.classify()
	pairs := pairRegions(lessThan40, lessThan60)

	if len(pairs) == 0 {
		return heaperrs.HeapIsFull("GC.Collect", NumberRegions)
	}

	return g.compactPairs(pairs)
}

// compactPairs runs compaction and pointer rewriting for an explicit set of
// region pairs, independent of classify/pairRegions. Collect is the normal
// entry point; this is separated out so the compaction-and-rewrite logic
// itself can be exercised directly against hand-built pairs.
func (g *GC) compactPairs(pairs []regionPair) error {
	rebase := make(map[int]rebaseEntry, len(pairs)*2)
	merged := make([]*Region, 0, len(pairs))
	paired := make(map[int]bool, len(pairs)*2)

	for _, pair := range pairs {
		newRegion, err := g.heap.NewRegion()
		if err != nil {
			return err
		}

		payloadA, err := pair.a.ContentCloneTo(newRegion, regionHeaderSize)
		if err != nil {
			return err
		}

		payloadB, err := pair.b.ContentCloneTo(newRegion, regionHeaderSize+payloadA)
		if err != nil {
			return err
		}

		if err := writeU32(newRegion.buf, regionCounterOff, regionHeaderSize+payloadA+payloadB); err != nil {
			return err
		}

		rebase[pair.a.index] = rebaseEntry{newRegionIndex: newRegion.index, extraOffset: 0}
		rebase[pair.b.index] = rebaseEntry{newRegionIndex: newRegion.index, extraOffset: payloadA}
		paired[pair.a.index] = true
		paired[pair.b.index] = true
		merged = append(merged, newRegion)
	}

	for _, region := range merged {
		if err := g.rewriteRegion(region, rebase); err != nil {
			return err
		}
	}

	surviving := make([]*Region, 0, len(g.alloc.Regions())+len(merged))

	for _, r := range g.alloc.Regions() {
		if !paired[r.index] {
			surviving = append(surviving, r)
		}
	}

	surviving = append(surviving, merged...)
	g.alloc.refreshRegions(surviving)

	return nil
}

// rewriteRegion rewrites every stored heap address in region so that
// addresses pointing into a relocated source region now point at the
// pointee's new location.
func (g *GC) rewriteRegion(region *Region, rebase map[int]rebaseEntry) error {
	return region.Traverse(func(m *Mono) error {
		return g.rewriteMono(m, rebase)
	})
}

func (g *GC) rewriteMono(m *Mono, rebase map[int]rebaseEntry) error {
	switch m.Kind() {
	case MonoAddress:
		return g.rewritePointerAt(m.region.buf, m.valueFrom(), rebase)
	case MonoArrayS8:
		return g.rewriteChunk(embeddedChunkMono(m), rebase)
	case MonoChunkS8:
		return g.rewriteChunk(m, rebase)
	default:
		// OBJECT_S8, STRING_S8, and NAMED_PROPERTY_S8 carry pointer fields
		// in the governing layout, but writes to them are unimplemented, so
		// their pointer fields are always zero and need no rewriting yet.
		return nil
	}
}

func (g *GC) rewriteChunk(chunkMono *Mono, rebase map[int]rebaseEntry) error {
	buf := chunkMono.region.buf
	base := chunkMono.valueFrom()

	for i := 0; i < ChunkCapacity; i++ {
		if err := g.rewritePointerAt(buf, base+chunkSlotOff(i), rebase); err != nil {
			return err
		}
	}

	return g.rewritePointerAt(buf, base+chunkNextOff, rebase)
}

func (g *GC) rewritePointerAt(buf []byte, offset uint32, rebase map[int]rebaseEntry) error {
	raw, err := readU32(buf, offset)
	if err != nil {
		return err
	}

	if raw == 0 {
		return nil
	}

	addr := Address(raw)

	entry, ok := rebase[addr.Region()]
	if !ok {
		return nil
	}

	newAddr := NewAddress(entry.newRegionIndex, entry.extraOffset+addr.Offset())

	stored, err := newAddr.checked("GC.rewritePointerAt")
	if err != nil {
		return err
	}

	return writeU32(buf, offset, stored)
}
