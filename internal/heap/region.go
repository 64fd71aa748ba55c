package heap

import (
	"github.com/monoheap/monoheap/internal/heap/heaperrs"
)

// RegionSize is the fixed byte size of every region's data buffer.
const RegionSize = 1_024_000

// NumberRegions is the total number of regions the heap preallocates.
const NumberRegions = 256

// RegionKind tags the generation a region belongs to.
type RegionKind byte

const (
	KindEden      RegionKind = 11
	KindSurvivor  RegionKind = 12
	KindTenured   RegionKind = 13
	KindHumongous RegionKind = 14
)

func (k RegionKind) String() string {
	switch k {
	case KindEden:
		return "EDEN"
	case KindSurvivor:
		return "SURVIVOR"
	case KindTenured:
		return "TENURED"
	case KindHumongous:
		return "HUMONGOUS"
	default:
		return "UNKNOWN"
	}
}

// Region header layout: 4-byte little-endian bump counter, then a 1-byte
// kind tag. The counter starts at regionHeaderSize so offset 0 is never a valid
// mono address within a region's data.
const (
	regionHeaderSize   = 5
	regionCounterOff   = 0
	regionKindOff      = 4
	regionCounterStart = regionHeaderSize
)

// Region is one fixed-size 1MB slab of the heap: a bump counter, a kind tag,
// and RegionSize-regionHeaderSize bytes of mono storage.
type Region struct {
	index int
	kind  RegionKind
	buf   []byte
}

func newRegion(index int, kind RegionKind, backing []byte) *Region {
	r := &Region{index: index, kind: kind, buf: backing}
	_ = writeU32(r.buf, regionCounterOff, regionCounterStart)
	r.buf[regionKindOff] = byte(kind)

	return r
}

// Index returns the region's position in the heap's region table.
func (r *Region) Index() int { return r.index }

// Kind returns the region's generation tag.
func (r *Region) Kind() RegionKind { return r.kind }

// SetKind overwrites the region's generation tag; Heap.RegionAt uses it to
// tag a region whose kind byte is still zero as EDEN.
func (r *Region) SetKind(kind RegionKind) {
	r.kind = kind
	r.buf[regionKindOff] = byte(kind)
}

// used returns the current bump-pointer offset, i.e. how many bytes of the
// region (including its header) are occupied.
func (r *Region) used() uint32 {
	v, err := readU32(r.buf, regionCounterOff)
	if err != nil {
		// The header field itself is always in range; a failure here means
		// the region's backing buffer was corrupted or truncated.
		panic(err)
	}

	return v
}

// free returns the number of bytes left for new monos in this region.
func (r *Region) free() uint32 {
	return uint32(len(r.buf)) - r.used()
}

// Used returns the current bump-pointer offset, i.e. how many bytes of the
// region (including its header) are occupied. Exported for introspection.
func (r *Region) Used() uint32 { return r.used() }

// Free returns the number of bytes left for new monos in this region.
// Exported for introspection.
func (r *Region) Free() uint32 { return r.free() }

// Occupancy returns the fraction, in [0,1], of the region's data area
// (everything after the header) that is in use.
func (r *Region) Occupancy() float64 {
	dataSize := float64(len(r.buf) - regionHeaderSize)
	usedData := float64(r.used() - regionCounterStart)

	if dataSize == 0 {
		return 0
	}

	return usedData / dataSize
}

// bump reserves size bytes at the end of the region and returns the offset
// they start at, or a RegionFull error if there isn't room.
func (r *Region) bump(size uint32) (uint32, error) {
	used := r.used()
	if uint64(used)+uint64(size) > uint64(len(r.buf)) {
		return 0, heaperrs.RegionIsFull("Region.bump", r.index, size, r.free())
	}

	if err := writeU32(r.buf, regionCounterOff, used+size); err != nil {
		return 0, err
	}

	return used, nil
}
