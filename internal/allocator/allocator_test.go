package allocator

import (
	"testing"
	"unsafe"
)

// TestArenaAllocator tests the arena allocator implementation
func TestArenaAllocator(t *testing.T) {
	config := defaultConfig()
	allocator, err := NewArenaAllocator(64*1024, config)
	if err != nil {
		t.Fatalf("Failed to create arena allocator: %v", err)
	}

	t.Run("BasicAllocation", func(t *testing.T) {
		ptr := allocator.Alloc(1024)
		if ptr == nil {
			t.Fatal("Allocation failed")
		}

		// Write to memory
		data := (*[1024]byte)(ptr)
		for i := 0; i < 1024; i++ {
			data[i] = byte(i % 256)
		}

		// Verify data
		for i := 0; i < 1024; i++ {
			if data[i] != byte(i%256) {
				t.Errorf("Data corruption at index %d", i)
			}
		}
	})

	t.Run("ExhaustArena", func(t *testing.T) {
		allocator.Reset()

		// Allocate until exhausted
		var ptrs []unsafe.Pointer
		for {
			ptr := allocator.Alloc(1024)
			if ptr == nil {
				break
			}
			ptrs = append(ptrs, ptr)
		}

		if len(ptrs) == 0 {
			t.Error("Should have allocated at least one block")
		}

		// Verify we can't allocate more
		ptr := allocator.Alloc(1)
		if ptr != nil {
			t.Error("Should not be able to allocate from exhausted arena")
		}
	})

	t.Run("Reset", func(t *testing.T) {
		allocator.Reset()

		// Allocate some memory
		ptr1 := allocator.Alloc(1024)
		if ptr1 == nil {
			t.Fatal("Allocation failed")
		}

		usedBefore := allocator.Used()
		if usedBefore == 0 {
			t.Error("Used memory should be greater than 0")
		}

		// Reset arena
		allocator.Reset()

		usedAfter := allocator.Used()
		if usedAfter != 0 {
			t.Error("Used memory should be 0 after reset")
		}

		// Should be able to allocate again
		ptr2 := allocator.Alloc(1024)
		if ptr2 == nil {
			t.Fatal("Allocation failed after reset")
		}
	})

	t.Run("AlignedAllocation", func(t *testing.T) {
		allocator.Reset()

		ptr := allocator.AllocAligned(100, 32)
		if ptr == nil {
			t.Fatal("Aligned allocation failed")
		}

		// Check alignment
		addr := uintptr(ptr)
		if addr%32 != 0 {
			t.Errorf("Memory not aligned to 32 bytes: %x", addr)
		}
	})

	t.Run("SubArena", func(t *testing.T) {
		allocator.Reset()

		subArena, err := allocator.SubArena(8192)
		if err != nil {
			t.Fatalf("Failed to create sub-arena: %v", err)
		}

		// Allocate from sub-arena
		ptr := subArena.Alloc(1024)
		if ptr == nil {
			t.Fatal("Sub-arena allocation failed")
		}

		// Check that parent arena usage increased
		if allocator.Used() == 0 {
			t.Error("Parent arena should show usage")
		}
	})
}

func BenchmarkArenaAllocator(b *testing.B) {
	config := defaultConfig()
	allocator, _ := NewArenaAllocator(1024*1024, config)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%1000 == 0 {
			allocator.Reset() // Reset periodically to avoid exhaustion
		}
		allocator.Alloc(256)
	}
}
