// Package heapdump renders point-in-time JSON snapshots of a heap: one
// entry per region, one entry per mono within it, plus a byte-layout
// descriptor for every mono kind so a reader can predict where each field
// lives without re-deriving it from the governing byte tables by hand.
package heapdump

import (
	"fmt"

	"github.com/monoheap/monoheap/internal/heap"
	"github.com/monoheap/monoheap/internal/layout"
)

// monoLayoutFields names the header-plus-payload breakdown of each mono
// kind, in byte order. Every field is declared with Alignment 1: monos are
// packed byte records with no ABI padding, so the calculator that derives a
// compiler's struct layout degenerates cleanly into a flat offset table here.
var monoLayoutFields = map[heap.MonoKind][]layout.FieldInfo{
	heap.MonoInt32: {
		{Name: "header", Type: "u8", Size: 1, Alignment: 1},
		{Name: "value", Type: "i32", Size: 4, Alignment: 1},
	},
	heap.MonoFloat64: {
		{Name: "header", Type: "u8", Size: 1, Alignment: 1},
		{Name: "value", Type: "f64", Size: 8, Alignment: 1},
	},
	heap.MonoAddress: {
		{Name: "header", Type: "u8", Size: 1, Alignment: 1},
		{Name: "value", Type: "u32", Size: 4, Alignment: 1},
	},
	heap.MonoChunkS8: {
		{Name: "header", Type: "u8", Size: 1, Alignment: 1},
		{Name: "length", Type: "u8", Size: 1, Alignment: 1},
		{Name: "slots", Type: "[8]u32", Size: 32, Alignment: 1},
		{Name: "next", Type: "u32", Size: 4, Alignment: 1},
	},
	heap.MonoArrayS8: {
		{Name: "header", Type: "u8", Size: 1, Alignment: 1},
		{Name: "array_length", Type: "u32", Size: 4, Alignment: 1},
		{Name: "embedded_chunk", Type: "CHUNK_S8", Size: 38, Alignment: 1},
	},
	heap.MonoStringS8: {
		{Name: "header", Type: "u8", Size: 1, Alignment: 1},
		{Name: "unimplemented_payload", Type: "bytes", Size: 68, Alignment: 1},
	},
	heap.MonoObjectS8: {
		{Name: "header", Type: "u8", Size: 1, Alignment: 1},
		{Name: "unimplemented_payload", Type: "bytes", Size: 72, Alignment: 1},
	},
	heap.MonoNamedPropertyS8: {
		{Name: "header", Type: "u8", Size: 1, Alignment: 1},
		{Name: "unimplemented_payload", Type: "bytes", Size: 72, Alignment: 1},
	},
}

var monoLayouts = buildMonoLayouts()

func buildMonoLayouts() map[heap.MonoKind]*layout.StructLayout {
	calc := layout.NewLayoutCalculator()
	out := make(map[heap.MonoKind]*layout.StructLayout, len(monoLayoutFields))

	for kind, fields := range monoLayoutFields {
		sl, err := calc.CalculateStructLayout(kind.String(), fields)
		if err != nil {
			// Every entry above has a positive size and Alignment 1; this
			// can only fire if a future kind is added with a malformed
			// field table.
			panic(fmt.Sprintf("heapdump: building layout for %s: %v", kind, err))
		}

		out[kind] = sl
	}

	return out
}

// LayoutFor returns the byte-layout descriptor for a mono kind, or false if
// the kind is unrecognized.
func LayoutFor(kind heap.MonoKind) (*layout.StructLayout, bool) {
	sl, ok := monoLayouts[kind]

	return sl, ok
}
