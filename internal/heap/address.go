package heap

import "github.com/monoheap/monoheap/internal/heap/heaperrs"

// Address is a heap-wide byte offset: region_index*RegionSize + offset. Zero
// means null. It is a uint64 in memory, but every on-heap stored pointer
// field is four bytes wide (see Mono's ADDRESS kind), so writers validate
// that an Address fits in 32 bits before persisting it.
type Address uint64

// NullAddress is the zero address: never a valid mono location.
const NullAddress Address = 0

// NewAddress builds an Address from a region index and an in-region offset.
func NewAddress(regionIndex int, offset uint32) Address {
	return Address(uint64(regionIndex)*RegionSize + uint64(offset))
}

// Region returns the region index this address falls within.
func (a Address) Region() int {
	return int(uint64(a) / RegionSize)
}

// Offset returns the in-region byte offset this address points to.
func (a Address) Offset() uint32 {
	return uint32(uint64(a) % RegionSize)
}

// IsNull reports whether this is the null address.
func (a Address) IsNull() bool {
	return a == NullAddress
}

// fitsStoredWidth reports whether the address can be written into the
// 4-byte ADDRESS mono field without loss.
func (a Address) fitsStoredWidth() bool {
	return uint64(a) <= 0xFFFFFFFF
}

func (a Address) checked(op string) (uint32, error) {
	if !a.fitsStoredWidth() {
		return 0, heaperrs.New(heaperrs.OutOfRange, op,
			"address does not fit in the 4-byte stored pointer width",
			map[string]interface{}{"address": uint64(a)})
	}

	return uint32(a), nil
}
