package heap

import "github.com/monoheap/monoheap/internal/heap/heaperrs"

// Dispatch selects the concrete typed wrapper for a mono from its kind
// byte, the way the governing spec's generic "wrapped" view is a tagged
// sum type rather than an open interface. Callers type-switch on the
// returned value. An unrecognized kind byte fails with WrongKind.
func Dispatch(h *Heap, a *Allocator, m *Mono) (interface{}, error) {
	switch m.Kind() {
	case MonoInt32:
		return &Int32Wrapper{mono: m}, nil
	case MonoFloat64:
		return &Float64Wrapper{mono: m}, nil
	case MonoArrayS8:
		return &ArrayWrapper{mono: m, heap: h, alloc: a}, nil
	case MonoChunkS8:
		return &ChunkWrapper{mono: m, heap: h}, nil
	case MonoAddress:
		return &AddressWrapper{mono: m}, nil
	case MonoStringS8:
		return &StringWrapper{mono: m}, nil
	case MonoObjectS8:
		return &ObjectWrapper{mono: m}, nil
	case MonoNamedPropertyS8:
		return &NamedPropertyWrapper{mono: m}, nil
	default:
		return nil, heaperrs.New(heaperrs.WrongKind, "Dispatch",
			"unrecognized mono kind", map[string]interface{}{"kind": byte(m.Kind())})
	}
}
