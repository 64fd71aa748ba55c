// Package hostmem provides the heap's pluggable backing store: the raw byte
// pool that regions are carved from. The teacher's region allocator
// (internal/runtime/region_alloc.go, allocateSystemMemory) says it "would
// use mmap() on Unix systems" but falls back to a plain Go slice; this
// package actually does both, selected at construction time.
package hostmem

import (
	"fmt"
	"unsafe"

	"github.com/monoheap/monoheap/internal/allocator"
)

// Pool owns NumRegions*RegionSize contiguous bytes and hands out one
// region-sized slice per index. Implementations must return the same
// backing bytes on repeated calls with the same index.
type Pool interface {
	Region(index int) []byte
	Close() error
}

// Strategy selects how a Pool's backing bytes are obtained.
type Strategy int

const (
	// StrategySlice backs the pool with a single make([]byte, ...) — the
	// portable default, and the only option off unix.
	StrategySlice Strategy = iota
	// StrategyMmap backs the pool with an anonymous mmap mapping on unix,
	// so the heap's memory is allocated and reclaimed the way a production
	// VM would, rather than riding on the Go GC's own heap.
	StrategyMmap
)

// New builds a Pool of numRegions slabs of regionSize bytes each, using the
// requested strategy. StrategyMmap is only available on unix; requesting it
// elsewhere returns an error rather than silently falling back, so callers
// know which backing store they actually got.
func New(strategy Strategy, numRegions, regionSize int) (Pool, error) {
	switch strategy {
	case StrategySlice:
		return newSlicePool(numRegions, regionSize)
	case StrategyMmap:
		return newMmapPool(numRegions, regionSize)
	default:
		return nil, fmt.Errorf("hostmem: unknown strategy %d", strategy)
	}
}

// slicePool carves every region out of a single arena bump allocator
// (internal/allocator.ArenaAllocatorImpl), so the whole heap rides on top
// of the teacher's own arena implementation rather than a bare make([]byte).
// The arena is sized exactly to numRegions*regionSize and never reset, so
// every region it hands out stays valid for the pool's lifetime.
type slicePool struct {
	regionSize int
	arena      *allocator.ArenaAllocatorImpl
	regions    [][]byte
}

func newSlicePool(numRegions, regionSize int) (*slicePool, error) {
	total := uintptr(numRegions) * uintptr(regionSize)

	arena, err := allocator.NewArenaAllocator(total, allocator.NewConfig(allocator.WithAlignment(8)))
	if err != nil {
		return nil, fmt.Errorf("hostmem: building backing arena: %w", err)
	}

	regions := make([][]byte, numRegions)

	for i := 0; i < numRegions; i++ {
		ptr := arena.Alloc(uintptr(regionSize))
		if ptr == nil {
			return nil, fmt.Errorf("hostmem: arena exhausted carving region %d", i)
		}

		regions[i] = unsafe.Slice((*byte)(ptr), regionSize)
	}

	return &slicePool{regionSize: regionSize, arena: arena, regions: regions}, nil
}

func (p *slicePool) Region(index int) []byte {
	return p.regions[index]
}

func (p *slicePool) Close() error { return nil }
