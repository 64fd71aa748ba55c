package heap

// Int32Wrapper is a typed view over an INT32 mono.
type Int32Wrapper struct {
	mono *Mono
}

// Mono returns the underlying mono descriptor.
func (w *Int32Wrapper) Mono() *Mono { return w.mono }

// Read returns the stored value.
func (w *Int32Wrapper) Read() (int32, error) {
	return readI32(w.mono.region.buf, w.mono.valueFrom())
}

// Write overwrites the stored value in place.
func (w *Int32Wrapper) Write(v int32) error {
	return writeI32(w.mono.region.buf, w.mono.valueFrom(), v)
}

// Float64Wrapper is a typed view over a FLOAT64 mono.
type Float64Wrapper struct {
	mono *Mono
}

// Mono returns the underlying mono descriptor.
func (w *Float64Wrapper) Mono() *Mono { return w.mono }

// Read returns the stored value.
func (w *Float64Wrapper) Read() (float64, error) {
	return readF64(w.mono.region.buf, w.mono.valueFrom())
}

// Write overwrites the stored value in place.
func (w *Float64Wrapper) Write(v float64) error {
	return writeF64(w.mono.region.buf, w.mono.valueFrom(), v)
}
