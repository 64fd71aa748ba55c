package heap

import "github.com/monoheap/monoheap/internal/heap/heaperrs"

// ArrayWrapper is a typed view over an ARRAY_S8 mono: a length field plus an
// embedded default CHUNK_S8, linked to further CHUNK_S8 monos as it grows
// past eight elements. Arrays are immutable once handed to a caller: the
// higher-level operations (Push, Pop, Shift, Remove) always return a new
// array rather than mutating the receiver.
type ArrayWrapper struct {
	mono  *Mono
	heap  *Heap
	alloc *Allocator
}

// Mono returns the underlying mono descriptor.
func (a *ArrayWrapper) Mono() *Mono { return a.mono }

// Length returns the total element count across all chunks.
func (a *ArrayWrapper) Length() (uint32, error) {
	return readU32(a.mono.region.buf, a.mono.valueFrom())
}

func (a *ArrayWrapper) setLength(n uint32) error {
	return writeU32(a.mono.region.buf, a.mono.valueFrom(), n)
}

func (a *ArrayWrapper) firstChunk() *ChunkWrapper {
	return &ChunkWrapper{mono: embeddedChunkMono(a.mono), heap: a.heap}
}

// chunkAt walks the chunk chain to the chunk at the given index (0 is the
// embedded default chunk), allocating and linking new chunks along the way
// when create is true and the chain doesn't reach far enough yet.
func (a *ArrayWrapper) chunkAt(index int, create bool) (*ChunkWrapper, error) {
	chunk := a.firstChunk()

	for i := 0; i < index; i++ {
		next, err := chunk.NextChunk()
		if err != nil {
			return nil, err
		}

		if next == nil {
			if !create {
				return nil, heaperrs.OutOfRangeAt("ArrayWrapper.chunkAt", uint32(index), uint32(i+1))
			}

			newChunk, err := a.alloc.Chunk()
			if err != nil {
				return nil, err
			}

			if err := chunk.SetNext(newChunk.mono.Address()); err != nil {
				return nil, err
			}

			next = newChunk
		}

		chunk = next
	}

	return chunk, nil
}

// Index resolves slot i to the mono it points at, walking chunk(⌊i/8⌋) and
// indexing i mod 8 within it.
func (a *ArrayWrapper) Index(i int) (*Mono, error) {
	length, err := a.Length()
	if err != nil {
		return nil, err
	}

	if i < 0 || i >= int(length) {
		return nil, heaperrs.OutOfRangeAt("ArrayWrapper.Index", uint32(i), length)
	}

	chunk, err := a.chunkAt(i/ChunkCapacity, false)
	if err != nil {
		return nil, err
	}

	return chunk.Index(i % ChunkCapacity)
}

// Append places element's header address at the next free slot, allocating
// and linking a new chunk when the current tail chunk is full, then
// increments the array's length. This is the low-level construction
// primitive; once an array is handed out, prefer Push/Pop/Shift/Remove.
func (a *ArrayWrapper) Append(element *Mono) error {
	length, err := a.Length()
	if err != nil {
		return err
	}

	chunk, err := a.chunkAt(int(length)/ChunkCapacity, true)
	if err != nil {
		return err
	}

	if err := chunk.Append(element); err != nil {
		return err
	}

	return a.setLength(length + 1)
}

// newWith builds a fresh array and appends the mono at each of the given
// addresses, resolved through the heap, in order.
func (a *ArrayWrapper) newWith(addrs []Address) (*ArrayWrapper, error) {
	out, err := a.alloc.Array()
	if err != nil {
		return nil, err
	}

	for _, addr := range addrs {
		element, err := a.heap.FetchMono(addr)
		if err != nil {
			return nil, err
		}

		if err := out.Append(element); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// addressesInRange collects the header addresses of elements [from, to]
// inclusive.
func (a *ArrayWrapper) addressesInRange(from, to int) ([]Address, error) {
	addrs := make([]Address, 0, to-from+1)

	for i := from; i <= to; i++ {
		mono, err := a.Index(i)
		if err != nil {
			return nil, err
		}

		addrs = append(addrs, mono.Address())
	}

	return addrs, nil
}

// Slice returns a new array holding elements [from, to] inclusive, sharing
// the same underlying element monos. Bounds are validated against the
// source array's current length.
func (a *ArrayWrapper) Slice(from, to int) (*ArrayWrapper, error) {
	length, err := a.Length()
	if err != nil {
		return nil, err
	}

	if from < 0 || to >= int(length) || from > to {
		return nil, heaperrs.OutOfRangeAt("ArrayWrapper.Slice", uint32(from), length)
	}

	addrs, err := a.addressesInRange(from, to)
	if err != nil {
		return nil, err
	}

	return a.newWith(addrs)
}

// Clone returns a new array with the same elements, in the same order, as
// the receiver.
func (a *ArrayWrapper) Clone() (*ArrayWrapper, error) {
	length, err := a.Length()
	if err != nil {
		return nil, err
	}

	if length == 0 {
		return a.alloc.Array()
	}

	return a.Slice(0, int(length)-1)
}

// Concat returns a new array holding the receiver's elements followed by
// other's.
func (a *ArrayWrapper) Concat(other *ArrayWrapper) (*ArrayWrapper, error) {
	selfLen, err := a.Length()
	if err != nil {
		return nil, err
	}

	otherLen, err := other.Length()
	if err != nil {
		return nil, err
	}

	addrs := make([]Address, 0, selfLen+otherLen)

	if selfLen > 0 {
		selfAddrs, err := a.addressesInRange(0, int(selfLen)-1)
		if err != nil {
			return nil, err
		}

		addrs = append(addrs, selfAddrs...)
	}

	if otherLen > 0 {
		otherAddrs, err := other.addressesInRange(0, int(otherLen)-1)
		if err != nil {
			return nil, err
		}

		addrs = append(addrs, otherAddrs...)
	}

	return a.newWith(addrs)
}

// Push returns a new array with element appended after the receiver's
// existing elements.
func (a *ArrayWrapper) Push(element *Mono) (*ArrayWrapper, error) {
	singleton, err := a.alloc.Array()
	if err != nil {
		return nil, err
	}

	if err := singleton.Append(element); err != nil {
		return nil, err
	}

	return a.Concat(singleton)
}

// Pop returns a new array missing the receiver's last element, along with
// the removed element's mono.
func (a *ArrayWrapper) Pop() (*ArrayWrapper, *Mono, error) {
	length, err := a.Length()
	if err != nil {
		return nil, nil, err
	}

	if length == 0 {
		return nil, nil, heaperrs.UnderflowAt("ArrayWrapper.Pop", uint64(a.mono.Address()))
	}

	removed, err := a.Index(int(length) - 1)
	if err != nil {
		return nil, nil, err
	}

	if length == 1 {
		empty, err := a.alloc.Array()
		return empty, removed, err
	}

	rest, err := a.Slice(0, int(length)-2)

	return rest, removed, err
}

// Shift returns a new array missing the receiver's first element, along
// with the removed element's mono.
func (a *ArrayWrapper) Shift() (*ArrayWrapper, *Mono, error) {
	length, err := a.Length()
	if err != nil {
		return nil, nil, err
	}

	if length == 0 {
		return nil, nil, heaperrs.UnderflowAt("ArrayWrapper.Shift", uint64(a.mono.Address()))
	}

	removed, err := a.Index(0)
	if err != nil {
		return nil, nil, err
	}

	if length == 1 {
		empty, err := a.alloc.Array()
		return empty, removed, err
	}

	rest, err := a.Slice(1, int(length)-1)

	return rest, removed, err
}

// Remove returns a new array missing element i, along with the removed
// element's mono.
func (a *ArrayWrapper) Remove(i int) (*ArrayWrapper, *Mono, error) {
	length, err := a.Length()
	if err != nil {
		return nil, nil, err
	}

	if i < 0 || i >= int(length) {
		return nil, nil, heaperrs.OutOfRangeAt("ArrayWrapper.Remove", uint32(i), length)
	}

	removed, err := a.Index(i)
	if err != nil {
		return nil, nil, err
	}

	if i == 0 {
		if length == 1 {
			empty, err := a.alloc.Array()
			return empty, removed, err
		}

		rest, err := a.Slice(1, int(length)-1)
		return rest, removed, err
	}

	if i == int(length)-1 {
		rest, err := a.Slice(0, i-1)
		return rest, removed, err
	}

	head, err := a.Slice(0, i-1)
	if err != nil {
		return nil, nil, err
	}

	tail, err := a.Slice(i+1, int(length)-1)
	if err != nil {
		return nil, nil, err
	}

	rest, err := head.Concat(tail)

	return rest, removed, err
}
