package heap

import "github.com/monoheap/monoheap/internal/heap/heaperrs"

// ChunkCapacity is the fixed number of element slots in a CHUNK_S8.
const ChunkCapacity = 8

const (
	chunkLengthOff = 0  // relative to valueFrom: 1-byte element count
	chunkSlotBase  = 1  // relative to valueFrom: 8 x 4-byte slot addresses start here
	chunkNextOff   = 33 // relative to valueFrom: 4-byte next-chunk address
)

func chunkSlotOff(i int) uint32 { return uint32(chunkSlotBase + 4*i) }

// ChunkWrapper is a typed view over a CHUNK_S8 mono — either a standalone
// one or the embedded default chunk of an ARRAY_S8 (see embeddedChunkMono).
type ChunkWrapper struct {
	mono *Mono
	heap *Heap
}

// Mono returns the underlying mono descriptor.
func (w *ChunkWrapper) Mono() *Mono { return w.mono }

// Length returns the number of occupied element slots, in [0, ChunkCapacity].
func (w *ChunkWrapper) Length() (byte, error) {
	return readU8(w.mono.region.buf, w.mono.valueFrom()+chunkLengthOff)
}

func (w *ChunkWrapper) setLength(n byte) error {
	return writeU8(w.mono.region.buf, w.mono.valueFrom()+chunkLengthOff, n)
}

// Append writes element's header address into the next free slot,
// failing with ChunkFull if all eight slots are occupied.
func (w *ChunkWrapper) Append(element *Mono) error {
	length, err := w.Length()
	if err != nil {
		return err
	}

	if length >= ChunkCapacity {
		return heaperrs.ChunkIsFull("ChunkWrapper.Append", uint64(w.mono.Address()))
	}

	addr, err := element.Address().checked("ChunkWrapper.Append")
	if err != nil {
		return err
	}

	if err := writeU32(w.mono.region.buf, w.mono.valueFrom()+chunkSlotOff(int(length)), addr); err != nil {
		return err
	}

	return w.setLength(length + 1)
}

// Index resolves slot i to the mono it points at, failing with OutOfRange
// if i is not less than Length.
func (w *ChunkWrapper) Index(i int) (*Mono, error) {
	length, err := w.Length()
	if err != nil {
		return nil, err
	}

	if i < 0 || i >= int(length) {
		return nil, heaperrs.OutOfRangeAt("ChunkWrapper.Index", uint32(i), uint32(length))
	}

	addr, err := readU32(w.mono.region.buf, w.mono.valueFrom()+chunkSlotOff(i))
	if err != nil {
		return nil, err
	}

	return w.heap.FetchMono(Address(addr))
}

// TraverseAddresses yields every (index, address) pair currently held by
// this chunk, in slot order.
func (w *ChunkWrapper) TraverseAddresses(visit func(i int, addr Address) error) error {
	length, err := w.Length()
	if err != nil {
		return err
	}

	for i := 0; i < int(length); i++ {
		addr, err := readU32(w.mono.region.buf, w.mono.valueFrom()+chunkSlotOff(i))
		if err != nil {
			return err
		}

		if err := visit(i, Address(addr)); err != nil {
			return err
		}
	}

	return nil
}

// SetNext links this chunk to the next chunk in its array's chain; a zero
// address means end of list.
func (w *ChunkWrapper) SetNext(addr Address) error {
	stored, err := addr.checked("ChunkWrapper.SetNext")
	if err != nil {
		return err
	}

	return writeU32(w.mono.region.buf, w.mono.valueFrom()+chunkNextOff, stored)
}

// Next returns the chunk's next-chunk address, or NullAddress at the end of
// the chain.
func (w *ChunkWrapper) Next() (Address, error) {
	v, err := readU32(w.mono.region.buf, w.mono.valueFrom()+chunkNextOff)
	if err != nil {
		return NullAddress, err
	}

	return Address(v), nil
}

// NextChunk resolves Next into a ChunkWrapper, or returns nil if there is no
// next chunk.
func (w *ChunkWrapper) NextChunk() (*ChunkWrapper, error) {
	addr, err := w.Next()
	if err != nil {
		return nil, err
	}

	if addr.IsNull() {
		return nil, nil
	}

	mono, err := w.heap.FetchMono(addr)
	if err != nil {
		return nil, err
	}

	return &ChunkWrapper{mono: mono, heap: w.heap}, nil
}

// embeddedChunkMono returns a Mono view over an ARRAY_S8's embedded default
// chunk: its header sits 5 bytes into the array mono (1 header + 4
// array-length), and its declared CHUNK_S8 size accounts for exactly the
// remaining bytes of the 43-byte array mono.
func embeddedChunkMono(array *Mono) *Mono {
	return &Mono{region: array.region, kind: MonoChunkS8, begin: array.begin + 5}
}
