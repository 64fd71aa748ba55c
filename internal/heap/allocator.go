package heap

import "github.com/monoheap/monoheap/internal/heap/heaperrs"

// Allocator is a per-heap bump allocator over an ordered "nursery working
// set" of regions. The current region is always the last one pushed;
// allocation never reuses bytes within a region, so reclamation is
// exclusively the GC's job.
type Allocator struct {
	heap    *Heap
	regions []*Region
	gc      *GC
}

// NewAllocator builds an allocator over the given heap with an empty
// working set; the first allocation bootstraps its initial region.
func NewAllocator(h *Heap) *Allocator {
	return &Allocator{heap: h}
}

// attachGC wires the minor collector the allocator falls back to when the
// heap cannot supply a fresh region. Kept separate from NewAllocator since
// the GC itself needs a reference back to the allocator's working set.
func (a *Allocator) attachGC(gc *GC) { a.gc = gc }

// Regions returns the allocator's current nursery working set, in the order
// regions were pushed.
func (a *Allocator) Regions() []*Region { return a.regions }

// refreshRegions replaces the working set wholesale — used by the GC after
// a collection cycle, since the old regions are considered dead once their
// contents have been relocated.
func (a *Allocator) refreshRegions(regions []*Region) {
	a.regions = regions
}

func (a *Allocator) current() (*Region, error) {
	if len(a.regions) == 0 {
		region, err := a.heap.NewRegion()
		if err != nil {
			return nil, err
		}

		a.regions = append(a.regions, region)
	}

	return a.regions[len(a.regions)-1], nil
}

func isRegionFull(err error) bool {
	herr, ok := err.(*heaperrs.Error)
	return ok && herr.Kind == heaperrs.RegionFull
}

func isHeapFull(err error) bool {
	herr, ok := err.(*heaperrs.Error)
	return ok && herr.Kind == heaperrs.HeapFull
}

// rollRegion obtains a fresh region from the heap and pushes it as the new
// current region, invoking the minor GC first if the heap itself reports
// exhaustion.
func (a *Allocator) rollRegion() (*Region, error) {
	region, err := a.heap.NewRegion()
	if err == nil {
		a.regions = append(a.regions, region)
		return region, nil
	}

	if !isHeapFull(err) {
		return nil, err
	}

	if a.gc == nil {
		return nil, heaperrs.OutOfMemoryAt("Allocator.rollRegion", 0)
	}

	if gcErr := a.gc.Collect(); gcErr != nil {
		return nil, heaperrs.OutOfMemoryAt("Allocator.rollRegion", 0)
	}

	region, err = a.heap.NewRegion()
	if err != nil {
		return nil, heaperrs.OutOfMemoryAt("Allocator.rollRegion", 0)
	}

	a.regions = append(a.regions, region)

	return region, nil
}

// Allocate reserves a fresh mono of the given kind, rolling to a new region
// (triggering GC if necessary) when the current region cannot fit it.
func (a *Allocator) Allocate(kind MonoKind) (*Mono, error) {
	region, err := a.current()
	if err != nil {
		return nil, err
	}

	mono, err := region.CreateMono(kind)
	if err == nil {
		return mono, nil
	}

	if !isRegionFull(err) {
		return nil, err
	}

	region, err = a.rollRegion()
	if err != nil {
		return nil, err
	}

	return region.CreateMono(kind)
}

// Int32 allocates a fresh INT32 mono, writing v into it when provided.
func (a *Allocator) Int32(v ...int32) (*Int32Wrapper, error) {
	mono, err := a.Allocate(MonoInt32)
	if err != nil {
		return nil, err
	}

	w := &Int32Wrapper{mono: mono}
	if len(v) > 0 {
		if err := w.Write(v[0]); err != nil {
			return nil, err
		}
	}

	return w, nil
}

// Float64 allocates a fresh FLOAT64 mono, writing v into it when provided.
func (a *Allocator) Float64(v ...float64) (*Float64Wrapper, error) {
	mono, err := a.Allocate(MonoFloat64)
	if err != nil {
		return nil, err
	}

	w := &Float64Wrapper{mono: mono}
	if len(v) > 0 {
		if err := w.Write(v[0]); err != nil {
			return nil, err
		}
	}

	return w, nil
}

// Array allocates a fresh ARRAY_S8 mono with a zeroed embedded chunk and
// zero length.
func (a *Allocator) Array() (*ArrayWrapper, error) {
	mono, err := a.Allocate(MonoArrayS8)
	if err != nil {
		return nil, err
	}

	if err := writeU32(mono.region.buf, mono.valueFrom(), 0); err != nil {
		return nil, err
	}

	embedded := embeddedChunkMono(mono)
	if err := writeU8(mono.region.buf, embedded.begin, byte(MonoChunkS8)); err != nil {
		return nil, err
	}

	return &ArrayWrapper{mono: mono, heap: a.heap, alloc: a}, nil
}

// Chunk allocates a fresh standalone CHUNK_S8 mono with zero length and no
// next chunk.
func (a *Allocator) Chunk() (*ChunkWrapper, error) {
	mono, err := a.Allocate(MonoChunkS8)
	if err != nil {
		return nil, err
	}

	return &ChunkWrapper{mono: mono, heap: a.heap}, nil
}
