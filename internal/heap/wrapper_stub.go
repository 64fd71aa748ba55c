package heap

import "github.com/monoheap/monoheap/internal/heap/heaperrs"

// AddressWrapper, ObjectWrapper, StringWrapper, and NamedPropertyWrapper
// give the remaining declared mono kinds a concrete, correctly-sized
// presence without implementing guest-language semantics the source never
// exercises. Every write operation fails with Unimplemented; the kinds'
// declared sizes (§3 of the governing spec) are still honored by monoSize
// and by CreateMono/Traverse, so regions containing them remain byte-exact.

// AddressWrapper is a typed view over a standalone ADDRESS mono.
type AddressWrapper struct {
	mono *Mono
}

// Mono returns the underlying mono descriptor.
func (w *AddressWrapper) Mono() *Mono { return w.mono }

// Read returns the stored heap address.
func (w *AddressWrapper) Read() (Address, error) {
	v, err := readU32(w.mono.region.buf, w.mono.valueFrom())
	return Address(v), err
}

// Write is unimplemented: the source never constructs a standalone ADDRESS
// mono outside of pointer fields embedded in other kinds.
func (w *AddressWrapper) Write(Address) error {
	return heaperrs.NotImplemented("ADDRESS.write")
}

// StringWrapper is a typed view over a STRING_S8 mono.
type StringWrapper struct{ mono *Mono }

// Mono returns the underlying mono descriptor.
func (w *StringWrapper) Mono() *Mono { return w.mono }

// Read is unimplemented: the guest language's string semantics are outside
// this system's scope.
func (w *StringWrapper) Read() (string, error) {
	return "", heaperrs.NotImplemented("STRING_S8.read")
}

// Write is unimplemented for the same reason.
func (w *StringWrapper) Write(string) error {
	return heaperrs.NotImplemented("STRING_S8.write")
}

// ObjectWrapper is a typed view over an OBJECT_S8 mono.
type ObjectWrapper struct{ mono *Mono }

// Mono returns the underlying mono descriptor.
func (w *ObjectWrapper) Mono() *Mono { return w.mono }

// Get is unimplemented: guest-language property lookup is outside this
// system's scope.
func (w *ObjectWrapper) Get(name string) (*Mono, error) {
	return nil, heaperrs.NotImplemented("OBJECT_S8.get")
}

// Set is unimplemented for the same reason.
func (w *ObjectWrapper) Set(name string, value *Mono) error {
	return heaperrs.NotImplemented("OBJECT_S8.set")
}

// NamedPropertyWrapper is a typed view over a NAMED_PROPERTY_S8 mono.
type NamedPropertyWrapper struct{ mono *Mono }

// Mono returns the underlying mono descriptor.
func (w *NamedPropertyWrapper) Mono() *Mono { return w.mono }

// Name is unimplemented: the name-pointer slots exist only to keep the
// declared record size correct.
func (w *NamedPropertyWrapper) Name() (*Mono, error) {
	return nil, heaperrs.NotImplemented("NAMED_PROPERTY_S8.name")
}
