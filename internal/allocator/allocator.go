// Package allocator provides the arena allocator backing hostmem's slice
// strategy: a single preallocated buffer handed out with a bump pointer,
// carved once at heap-construction time. The region-carving policy itself
// lives in internal/heap; this package only owns the raw bytes.
package allocator

import "unsafe"

// AllocatorStats reports bump-allocator usage for diagnostics.
type AllocatorStats struct {
	TotalAllocated    uintptr
	TotalFreed        uintptr
	ActiveAllocations int
	PeakAllocations   int
	AllocationCount   uint64
	FreeCount         uint64
	BytesInUse        uintptr
	SystemMemory      uintptr
}

// Configuration for allocators.
type Config struct {
	ArenaSize     uintptr
	AlignmentSize uintptr
}

type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		ArenaSize:     64 * 1024 * 1024, // 64MB default arena
		AlignmentSize: 8,                // 8-byte alignment
	}
}

// Option functions.

func WithArenaSize(size uintptr) Option {
	return func(c *Config) { c.ArenaSize = size }
}

func WithAlignment(alignment uintptr) Option {
	return func(c *Config) { c.AlignmentSize = alignment }
}

// NewConfig builds a Config from the given options, starting from the
// package defaults.
func NewConfig(options ...Option) *Config {
	config := defaultConfig()
	for _, opt := range options {
		opt(config)
	}

	return config
}

// Utility functions.

// alignUp aligns a size up to the nearest multiple of alignment.
func alignUp(size, alignment uintptr) uintptr {
	return (size + alignment - 1) &^ (alignment - 1)
}

// copyMemory copies memory from src to dst.
func copyMemory(dst, src unsafe.Pointer, size uintptr) {
	dstSlice := (*[1 << 30]byte)(dst)[:size:size]
	srcSlice := (*[1 << 30]byte)(src)[:size:size]
	copy(dstSlice, srcSlice)
}
