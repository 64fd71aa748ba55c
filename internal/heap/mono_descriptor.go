package heap

import "github.com/monoheap/monoheap/internal/heap/heaperrs"

// Mono is a view over a fixed-size record inside a region: its header byte
// tags the kind, and its payload occupies the rest of its declared size.
// Mono values carry no storage of their own — they are descriptors computed
// on demand from a region and an offset.
type Mono struct {
	region *Region
	kind   MonoKind
	begin  uint32 // region-local offset of the header byte
}

// Kind reports the mono's tag.
func (m *Mono) Kind() MonoKind { return m.kind }

// Region returns the region this mono lives in.
func (m *Mono) Region() *Region { return m.region }

// Address returns the mono's absolute heap address (its header byte).
func (m *Mono) Address() Address { return NewAddress(m.region.index, m.begin) }

// PayloadAddress returns the absolute heap address of the first payload
// byte, i.e. one past the header.
func (m *Mono) PayloadAddress() Address { return NewAddress(m.region.index, m.begin+1) }

// valueFrom is the region-local offset of the first payload byte.
func (m *Mono) valueFrom() uint32 { return m.begin + 1 }

// End returns the region-local offset one past the mono's last byte.
func (m *Mono) End() uint32 { return m.begin + monoSize(m.kind) }

// PayloadBytes returns a defensive copy of the mono's payload bytes (every
// byte after the header), for inspection/dump purposes. Callers must not
// rely on this for mutation — it never aliases live region storage.
func (m *Mono) PayloadBytes() []byte {
	src := m.region.buf[m.valueFrom():m.End()]
	out := make([]byte, len(src))
	copy(out, src)

	return out
}

// CreateMono reserves a fresh mono of the given kind at the region's bump
// pointer, writes its header byte, and returns a descriptor for it.
func (r *Region) CreateMono(kind MonoKind) (*Mono, error) {
	size := monoSize(kind)
	if size == 0 {
		return nil, heaperrs.New(heaperrs.WrongKind, "Region.CreateMono",
			"unknown mono kind", map[string]interface{}{"kind": byte(kind)})
	}

	offset, err := r.bump(size)
	if err != nil {
		return nil, err
	}

	if err := writeU8(r.buf, offset, byte(kind)); err != nil {
		return nil, err
	}

	return &Mono{region: r, kind: kind, begin: offset}, nil
}

// monoAt materializes a Mono descriptor for a header already written at the
// given region-local offset, reading its kind byte.
func (r *Region) monoAt(offset uint32) (*Mono, error) {
	kindByte, err := readU8(r.buf, offset)
	if err != nil {
		return nil, err
	}

	kind := MonoKind(kindByte)
	if monoSize(kind) == 0 {
		return nil, heaperrs.New(heaperrs.WrongKind, "Region.monoAt",
			"unknown kind byte encountered while materializing a mono",
			map[string]interface{}{"kind": kindByte, "offset": offset})
	}

	return &Mono{region: r, kind: kind, begin: offset}, nil
}

// Traverse visits every mono in the region head-to-tail, starting just past
// the header, until the bump counter is reached. It guarantees monotonic
// progress: a zero-sized (invalid) kind byte halts traversal rather than
// looping forever.
func (r *Region) Traverse(visit func(*Mono) error) error {
	offset := uint32(regionHeaderSize)
	counter := r.used()

	for offset < counter {
		kindByte, err := readU8(r.buf, offset)
		if err != nil {
			return err
		}

		if kindByte == 0 {
			break
		}

		mono, err := r.monoAt(offset)
		if err != nil {
			return err
		}

		if err := visit(mono); err != nil {
			return err
		}

		offset = mono.End()
	}

	return nil
}

// ContentCloneTo copies this region's occupied payload bytes — everything
// from the header end to the bump counter — into dest starting at
// destOffset, without touching dest's own header. Used by the minor GC's
// compaction pass.
func (r *Region) ContentCloneTo(dest *Region, destOffset uint32) (uint32, error) {
	payload := r.buf[regionHeaderSize:r.used()]

	if uint64(destOffset)+uint64(len(payload)) > uint64(len(dest.buf)) {
		return 0, heaperrs.RegionIsFull("Region.ContentCloneTo", dest.index, uint32(len(payload)), dest.free())
	}

	copy(dest.buf[destOffset:], payload)

	return uint32(len(payload)), nil
}
