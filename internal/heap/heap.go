package heap

import (
	"github.com/monoheap/monoheap/internal/heap/heaperrs"
	"github.com/monoheap/monoheap/internal/heap/hostmem"
)

// Heap owns every region's backing bytes for the lifetime of the process.
// It is passed explicitly to every component that needs it; nothing in this
// module reaches it through ambient/global state.
//
// Region-kind promotion into an older generation (tenured/humongous) is out
// of scope: the minor GC in gc.go is the only collector this heap runs, and
// it never consults anything beyond a region's own occupancy.
type Heap struct {
	pool    hostmem.Pool
	regions []*Region
	used    int
}

// Config selects the heap's backing-store strategy.
type Config struct {
	Strategy hostmem.Strategy
}

// New constructs a heap with NumberRegions region slots, none yet handed
// out, backed by the requested hostmem strategy.
func New(cfg Config) (*Heap, error) {
	pool, err := hostmem.New(cfg.Strategy, NumberRegions, RegionSize)
	if err != nil {
		return nil, err
	}

	return &Heap{
		pool:    pool,
		regions: make([]*Region, NumberRegions),
	}, nil
}

// NewRegion hands out the next never-used region buffer as a fresh EDEN
// region, failing with HeapFull once every slot has been used.
func (h *Heap) NewRegion() (*Region, error) {
	if h.used >= NumberRegions {
		return nil, heaperrs.HeapIsFull("Heap.NewRegion", NumberRegions)
	}

	index := h.used
	region := newRegion(index, KindEden, h.pool.Region(index))
	h.regions[index] = region
	h.used++

	return region, nil
}

// RegionAt returns the region previously handed out at the given index,
// reading its kind byte (elevating a zero kind byte to EDEN, matching the
// source's read_kind behavior for freshly zeroed buffers).
func (h *Heap) RegionAt(index int) (*Region, error) {
	if index < 0 || index >= NumberRegions {
		return nil, heaperrs.New(heaperrs.Underflow, "Heap.RegionAt",
			"region index out of range", map[string]interface{}{"index": index})
	}

	region := h.regions[index]
	if region == nil {
		return nil, heaperrs.New(heaperrs.OutOfRange, "Heap.RegionAt",
			"region has never been allocated", map[string]interface{}{"index": index})
	}

	kindByte := region.buf[regionKindOff]
	if kindByte == 0 {
		region.SetKind(KindEden)
	}

	return region, nil
}

// FetchRegion resolves an absolute heap address to the region it falls
// within, failing with OutOfRange if the region index exceeds NumberRegions.
func (h *Heap) FetchRegion(addr Address) (*Region, error) {
	index := addr.Region()
	if index >= NumberRegions {
		return nil, heaperrs.New(heaperrs.OutOfRange, "Heap.FetchRegion",
			"region index exceeds NumberRegions", map[string]interface{}{"index": index})
	}

	return h.RegionAt(index)
}

// FetchMono resolves an absolute heap address to the mono descriptor whose
// header lives there. Two calls with the same address yield byte-equal
// descriptors, since both simply re-derive the view from the same bytes.
func (h *Heap) FetchMono(addr Address) (*Mono, error) {
	region, err := h.FetchRegion(addr)
	if err != nil {
		return nil, err
	}

	return region.monoAt(addr.Offset())
}

// Regions returns every region handed out so far, in allocation order.
func (h *Heap) Regions() []*Region {
	return h.regions[:h.used]
}

// Close releases the heap's backing store.
func (h *Heap) Close() error {
	return h.pool.Close()
}
