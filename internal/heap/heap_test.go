package heap

import (
	"testing"

	"github.com/monoheap/monoheap/internal/heap/heaperrs"
	"github.com/monoheap/monoheap/internal/heap/hostmem"
)

func newTestHeap(t *testing.T) (*Heap, *Allocator) {
	t.Helper()

	h, err := New(Config{Strategy: hostmem.StrategySlice})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a := NewAllocator(h)
	NewGC(h, a)

	return h, a
}

func TestScalarRoundTrip(t *testing.T) {
	_, a := newTestHeap(t)

	t.Run("INT32", func(t *testing.T) {
		w, err := a.Int32(-1025)
		if err != nil {
			t.Fatalf("Int32: %v", err)
		}

		v, err := w.Read()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}

		if v != -1025 {
			t.Errorf("got %d, want -1025", v)
		}
	})

	t.Run("FLOAT64", func(t *testing.T) {
		w, err := a.Float64(0.9)
		if err != nil {
			t.Fatalf("Float64: %v", err)
		}

		v, err := w.Read()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}

		if v != 0.9 {
			t.Errorf("got %v, want 0.9", v)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		w, err := a.Int32(1)
		if err != nil {
			t.Fatalf("Int32: %v", err)
		}

		if err := w.Write(42); err != nil {
			t.Fatalf("Write: %v", err)
		}

		v, err := w.Read()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}

		if v != 42 {
			t.Errorf("got %d, want 42", v)
		}
	})
}

func TestRegionCounterInvariant(t *testing.T) {
	_, a := newTestHeap(t)

	region, err := a.current()
	if err != nil {
		t.Fatalf("current: %v", err)
	}

	var total uint32 = regionHeaderSize

	for i := 0; i < 10; i++ {
		if _, err := a.Int32(int32(i)); err != nil {
			t.Fatalf("Int32: %v", err)
		}

		total += monoSize(MonoInt32)

		if region.used() != total {
			t.Fatalf("after %d allocations: counter = %d, want %d", i+1, region.used(), total)
		}
	}
}

func TestTraverseMonotonic(t *testing.T) {
	_, a := newTestHeap(t)
	region, _ := a.current()

	var kinds []MonoKind

	if _, err := a.Int32(1); err != nil {
		t.Fatal(err)
	}

	if _, err := a.Float64(2); err != nil {
		t.Fatal(err)
	}

	if _, err := a.Int32(3); err != nil {
		t.Fatal(err)
	}

	if err := region.Traverse(func(m *Mono) error {
		kinds = append(kinds, m.Kind())
		return nil
	}); err != nil {
		t.Fatalf("Traverse: %v", err)
	}

	want := []MonoKind{MonoInt32, MonoFloat64, MonoInt32}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}

	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("mono %d: got %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestFetchMonoIsIdempotent(t *testing.T) {
	h, a := newTestHeap(t)

	w, err := a.Int32(7)
	if err != nil {
		t.Fatal(err)
	}

	addr := w.Mono().Address()

	m1, err := h.FetchMono(addr)
	if err != nil {
		t.Fatalf("FetchMono: %v", err)
	}

	m2, err := h.FetchMono(addr)
	if err != nil {
		t.Fatalf("FetchMono: %v", err)
	}

	if m1.Kind() != m2.Kind() || m1.Address() != m2.Address() {
		t.Errorf("repeated FetchMono produced different descriptors: %+v vs %+v", m1, m2)
	}
}

func TestArrayAppendAndLength(t *testing.T) {
	_, a := newTestHeap(t)

	arr, err := a.Array()
	if err != nil {
		t.Fatal(err)
	}

	floats := make([]float64, 6)
	ints := make([]int32, 6)

	for i := 0; i < 6; i++ {
		floats[i] = float64(i) + 0.9
		ints[i] = int32(-i)
	}

	for i := 0; i < 6; i++ {
		fw, err := a.Float64(floats[i])
		if err != nil {
			t.Fatal(err)
		}

		if err := arr.Append(fw.Mono()); err != nil {
			t.Fatalf("append float: %v", err)
		}

		iw, err := a.Int32(ints[i])
		if err != nil {
			t.Fatal(err)
		}

		if err := arr.Append(iw.Mono()); err != nil {
			t.Fatalf("append int: %v", err)
		}
	}

	length, err := arr.Length()
	if err != nil {
		t.Fatal(err)
	}

	if length != 12 {
		t.Fatalf("length = %d, want 12", length)
	}

	check := func(i int, want float64) {
		t.Helper()

		mono, err := arr.Index(i)
		if err != nil {
			t.Fatalf("index %d: %v", i, err)
		}

		v, err := (&Float64Wrapper{mono: mono}).Read()
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}

		if v != want {
			t.Errorf("index(%d) = %v, want %v", i, v, want)
		}
	}

	checkInt := func(i int, want int32) {
		t.Helper()

		mono, err := arr.Index(i)
		if err != nil {
			t.Fatalf("index %d: %v", i, err)
		}

		v, err := (&Int32Wrapper{mono: mono}).Read()
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}

		if v != want {
			t.Errorf("index(%d) = %v, want %v", i, v, want)
		}
	}

	check(0, 0.9)
	checkInt(1, 0)
	check(2, 1.9)
	checkInt(3, -1)
	checkInt(11, -5)
}

func TestArrayChunkOverflow(t *testing.T) {
	_, a := newTestHeap(t)

	arr, err := a.Array()
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 12; i++ {
		w, err := a.Int32(int32(i))
		if err != nil {
			t.Fatal(err)
		}

		if err := arr.Append(w.Mono()); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	length, err := arr.Length()
	if err != nil {
		t.Fatal(err)
	}

	if length != 12 {
		t.Fatalf("length = %d, want 12", length)
	}

	first := arr.firstChunk()
	firstLen, err := first.Length()
	if err != nil {
		t.Fatal(err)
	}

	if firstLen != 8 {
		t.Fatalf("first chunk length = %d, want 8", firstLen)
	}

	second, err := first.NextChunk()
	if err != nil {
		t.Fatal(err)
	}

	if second == nil {
		t.Fatal("expected a linked second chunk")
	}

	secondLen, err := second.Length()
	if err != nil {
		t.Fatal(err)
	}

	if secondLen != 4 {
		t.Fatalf("second chunk length = %d, want 4", secondLen)
	}
}

func buildSequentialArray(t *testing.T, a *Allocator, n int, start float64) *ArrayWrapper {
	t.Helper()

	arr, err := a.Array()
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < n; i++ {
		w, err := a.Float64(start + float64(i))
		if err != nil {
			t.Fatal(err)
		}

		if err := arr.Append(w.Mono()); err != nil {
			t.Fatal(err)
		}
	}

	return arr
}

func readFloat(t *testing.T, arr *ArrayWrapper, i int) float64 {
	t.Helper()

	mono, err := arr.Index(i)
	if err != nil {
		t.Fatalf("index %d: %v", i, err)
	}

	v, err := (&Float64Wrapper{mono: mono}).Read()
	if err != nil {
		t.Fatalf("read %d: %v", i, err)
	}

	return v
}

func TestArraySlicePreservesSource(t *testing.T) {
	_, a := newTestHeap(t)

	arr := buildSequentialArray(t, a, 24, -3.1)

	sliced, err := arr.Slice(10, 21)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}

	slicedLen, err := sliced.Length()
	if err != nil {
		t.Fatal(err)
	}

	if slicedLen != 12 {
		t.Fatalf("sliced length = %d, want 12", slicedLen)
	}

	srcLen, err := arr.Length()
	if err != nil {
		t.Fatal(err)
	}

	if srcLen != 24 {
		t.Errorf("source length changed: got %d, want 24", srcLen)
	}
}

func TestArrayPopAndRemove(t *testing.T) {
	_, a := newTestHeap(t)

	arr := buildSequentialArray(t, a, 12, -21)

	t.Run("Pop", func(t *testing.T) {
		shrunk, removed, err := arr.Pop()
		if err != nil {
			t.Fatalf("Pop: %v", err)
		}

		shrunkLen, err := shrunk.Length()
		if err != nil {
			t.Fatal(err)
		}

		if shrunkLen != 11 {
			t.Errorf("shrunk length = %d, want 11", shrunkLen)
		}

		v, err := (&Float64Wrapper{mono: removed}).Read()
		if err != nil {
			t.Fatal(err)
		}

		if v != -10 {
			t.Errorf("popped value = %v, want -10", v)
		}

		origLen, err := arr.Length()
		if err != nil {
			t.Fatal(err)
		}

		if origLen != 12 {
			t.Errorf("original array mutated: length = %d", origLen)
		}
	})

	t.Run("RemoveMiddle", func(t *testing.T) {
		newArr, removed, err := arr.Remove(5)
		if err != nil {
			t.Fatalf("Remove: %v", err)
		}

		newLen, err := newArr.Length()
		if err != nil {
			t.Fatal(err)
		}

		if newLen != 11 {
			t.Errorf("length after remove = %d, want 11", newLen)
		}

		wantRemoved := readFloat(t, arr, 5)

		v, err := (&Float64Wrapper{mono: removed}).Read()
		if err != nil {
			t.Fatal(err)
		}

		if v != wantRemoved {
			t.Errorf("removed value = %v, want %v", v, wantRemoved)
		}
	})
}

func TestMinorGCMergesPairedRegions(t *testing.T) {
	h, a := newTestHeap(t)

	regionA, err := h.NewRegion()
	if err != nil {
		t.Fatal(err)
	}

	floats := make([]*Mono, 4)

	for i := 0; i < 4; i++ {
		mono, err := regionA.CreateMono(MonoFloat64)
		if err != nil {
			t.Fatal(err)
		}

		if err := writeF64(regionA.buf, mono.valueFrom(), 0.91+float64(i)); err != nil {
			t.Fatal(err)
		}

		floats[i] = mono
	}

	regionB, err := h.NewRegion()
	if err != nil {
		t.Fatal(err)
	}

	a.refreshRegions([]*Region{regionA, regionB})

	arrMono, err := regionB.CreateMono(MonoArrayS8)
	if err != nil {
		t.Fatal(err)
	}

	if err := writeU32(regionB.buf, arrMono.valueFrom(), 0); err != nil {
		t.Fatal(err)
	}

	embedded := embeddedChunkMono(arrMono)
	if err := writeU8(regionB.buf, embedded.begin, byte(MonoChunkS8)); err != nil {
		t.Fatal(err)
	}

	arr := &ArrayWrapper{mono: arrMono, heap: h, alloc: a}

	for _, f := range floats {
		if err := arr.Append(f); err != nil {
			t.Fatalf("append float: %v", err)
		}
	}

	for i := 0; i < 4; i++ {
		mono, err := regionB.CreateMono(MonoInt32)
		if err != nil {
			t.Fatal(err)
		}

		if err := writeI32(regionB.buf, mono.valueFrom(), int32(i-1)); err != nil {
			t.Fatal(err)
		}

		if err := arr.Append(mono); err != nil {
			t.Fatalf("append int: %v", err)
		}
	}

	// Region occupancy at this scale never approaches the 40%/60%
	// thresholds against a 1MB region, so the pair is built directly
	// rather than relying on classify() to discover it — this test is
	// about compaction and pointer rewriting, not the bucket thresholds.
	gc := NewGC(h, a)
	if err := gc.compactPairs([]regionPair{{a: regionA, b: regionB}}); err != nil {
		t.Fatalf("compactPairs: %v", err)
	}

	merged := a.Regions()
	if len(merged) != 1 {
		t.Fatalf("expected exactly one surviving region, got %d", len(merged))
	}

	newArrMono, err := h.FetchMono(rewrittenArrayAddress(t, merged[0]))
	if err != nil {
		t.Fatalf("FetchMono: %v", err)
	}

	newArr := &ArrayWrapper{mono: newArrMono, heap: h, alloc: a}

	length, err := newArr.Length()
	if err != nil {
		t.Fatal(err)
	}

	if length != 8 {
		t.Fatalf("merged array length = %d, want 8", length)
	}

	check := func(i int, want float64) {
		t.Helper()

		mono, err := newArr.Index(i)
		if err != nil {
			t.Fatalf("index %d: %v", i, err)
		}

		if mono.region.index != merged[0].index {
			t.Errorf("index %d points outside merged region", i)
		}

		var got float64

		switch mono.Kind() {
		case MonoFloat64:
			got, err = (&Float64Wrapper{mono: mono}).Read()
		case MonoInt32:
			var v int32
			v, err = (&Int32Wrapper{mono: mono}).Read()
			got = float64(v)
		}

		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}

		if got != want {
			t.Errorf("index(%d) = %v, want %v", i, got, want)
		}
	}

	check(0, 0.91)
	check(3, 3.91)
	check(4, -1)
	check(7, 2)
}

// rewrittenArrayAddress locates the ARRAY_S8 mono within a post-GC region by
// traversal, since its address changed across the collection.
func rewrittenArrayAddress(t *testing.T, r *Region) Address {
	t.Helper()

	var found Address

	if err := r.Traverse(func(m *Mono) error {
		if m.Kind() == MonoArrayS8 {
			found = m.Address()
		}

		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if found.IsNull() {
		t.Fatal("no ARRAY_S8 mono found in merged region")
	}

	return found
}

func TestHeapFullBeforeAnyGC(t *testing.T) {
	h, err := New(Config{Strategy: hostmem.StrategySlice})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < NumberRegions; i++ {
		if _, err := h.NewRegion(); err != nil {
			t.Fatalf("NewRegion %d: %v", i, err)
		}
	}

	_, err = h.NewRegion()
	if err == nil {
		t.Fatal("expected HeapFull error")
	}

	herr, ok := err.(*heaperrs.Error)
	if !ok || herr.Kind != heaperrs.HeapFull {
		t.Errorf("got %v, want HeapFull", err)
	}
}

func TestDispatchUnknownKind(t *testing.T) {
	h, a := newTestHeap(t)

	w, err := a.Int32(1)
	if err != nil {
		t.Fatal(err)
	}

	bogus := &Mono{region: w.Mono().region, kind: MonoKind(200), begin: w.Mono().begin}

	_, err = Dispatch(h, a, bogus)
	if err == nil {
		t.Fatal("expected WrongKind error")
	}

	herr, ok := err.(*heaperrs.Error)
	if !ok || herr.Kind != heaperrs.WrongKind {
		t.Errorf("got %v, want WrongKind", err)
	}
}

func TestStubKindsReportUnimplemented(t *testing.T) {
	_, a := newTestHeap(t)

	mono, err := a.Allocate(MonoAddress)
	if err != nil {
		t.Fatal(err)
	}

	w := &AddressWrapper{mono: mono}

	err = w.Write(NewAddress(0, regionHeaderSize))
	if err == nil {
		t.Fatal("expected Unimplemented error")
	}

	herr, ok := err.(*heaperrs.Error)
	if !ok || herr.Kind != heaperrs.Unimplemented {
		t.Errorf("got %v, want Unimplemented", err)
	}
}
