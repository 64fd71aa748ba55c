package heapdump

import (
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/monoheap/monoheap/internal/heap"
)

// FormatVersion is the semver tag stamped on every dump this package
// produces. Bump the minor version for additive fields, the major version
// for anything that breaks a reader built against an earlier dump.
const FormatVersion = "1.0.0"

// Version parses FormatVersion, failing only if a future edit to the
// constant above breaks semver syntax.
func Version() (*semver.Version, error) {
	return semver.NewVersion(FormatVersion)
}

// CompatibleWith reports whether this package's dump format satisfies the
// given semver constraint (e.g. "^1.0.0"), for a consumer that wants to
// reject dumps from an incompatible future version.
func CompatibleWith(constraint string) (bool, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("heapdump: parsing constraint %q: %w", constraint, err)
	}

	v, err := Version()
	if err != nil {
		return false, err
	}

	return c.Check(v), nil
}

// MonoEntry is one mono record's dump: its kind, address, a best-effort
// decoded value for scalar kinds, and the layout descriptor that explains
// its raw bytes.
type MonoEntry struct {
	Kind    string         `json:"kind"`
	Address uint64         `json:"address"`
	Value   interface{}    `json:"value,omitempty"`
	Layout  *layoutSummary `json:"layout,omitempty"`
	Raw     []byte         `json:"raw"`
}

type layoutSummary struct {
	TotalSize  int64   `json:"total_size"`
	Efficiency float64 `json:"efficiency"`
	Fields     []field `json:"fields"`
}

type field struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
}

// RegionEntry is one region's dump: its generation, occupancy, and every
// mono it currently holds, in address order.
type RegionEntry struct {
	Index     int         `json:"index"`
	Kind      string      `json:"kind"`
	Used      uint32      `json:"used"`
	Free      uint32      `json:"free"`
	Occupancy float64     `json:"occupancy"`
	Monos     []MonoEntry `json:"monos"`
}

// Dump is a full heap snapshot: the format version plus every region the
// heap has handed out so far.
type Dump struct {
	FormatVersion string        `json:"format_version"`
	Regions       []RegionEntry `json:"regions"`
}

// Snapshot walks every region the heap has handed out and renders a Dump.
// It is read-only: it never allocates, mutates, or triggers GC.
func Snapshot(h *heap.Heap) (*Dump, error) {
	regions := h.Regions()
	out := &Dump{FormatVersion: FormatVersion, Regions: make([]RegionEntry, 0, len(regions))}

	for _, r := range regions {
		entry, err := dumpRegion(h, r)
		if err != nil {
			return nil, err
		}

		out.Regions = append(out.Regions, *entry)
	}

	return out, nil
}

func dumpRegion(h *heap.Heap, r *heap.Region) (*RegionEntry, error) {
	entry := &RegionEntry{
		Index:     r.Index(),
		Kind:      r.Kind().String(),
		Used:      r.Used(),
		Free:      r.Free(),
		Occupancy: r.Occupancy(),
	}

	err := r.Traverse(func(m *heap.Mono) error {
		me, err := dumpMono(h, m)
		if err != nil {
			return err
		}

		entry.Monos = append(entry.Monos, *me)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// dumpMono renders one mono. It dispatches through heap.Dispatch with a nil
// allocator: the reads performed here (Read, Length) never touch
// the allocator, only composing new arrays would, and this function never
// does that.
func dumpMono(h *heap.Heap, m *heap.Mono) (*MonoEntry, error) {
	entry := &MonoEntry{
		Kind:    m.Kind().String(),
		Address: uint64(m.Address()),
		Raw:     m.PayloadBytes(),
		Layout:  summarizeLayout(m.Kind()),
	}

	wrapped, err := heap.Dispatch(h, nil, m)
	if err != nil {
		return nil, err
	}

	switch w := wrapped.(type) {
	case *heap.Int32Wrapper:
		v, err := w.Read()
		if err != nil {
			return nil, err
		}

		entry.Value = v
	case *heap.Float64Wrapper:
		v, err := w.Read()
		if err != nil {
			return nil, err
		}

		entry.Value = v
	case *heap.ArrayWrapper:
		length, err := w.Length()
		if err != nil {
			return nil, err
		}

		entry.Value = map[string]interface{}{"length": length}
	case *heap.ChunkWrapper:
		length, err := w.Length()
		if err != nil {
			return nil, err
		}

		entry.Value = map[string]interface{}{"length": length}
	default:
		// ADDRESS, STRING_S8, OBJECT_S8, NAMED_PROPERTY_S8: no decoded
		// value beyond the raw bytes already attached above.
	}

	return entry, nil
}

func summarizeLayout(kind heap.MonoKind) *layoutSummary {
	sl, ok := LayoutFor(kind)
	if !ok {
		return nil
	}

	fields := make([]field, 0, len(sl.Fields))
	for _, f := range sl.Fields {
		fields = append(fields, field{Name: f.Name, Type: f.Type, Offset: f.Offset, Size: f.Size})
	}

	return &layoutSummary{TotalSize: sl.TotalSize, Efficiency: sl.GetEfficiencyRatio(), Fields: fields}
}

// Pretty renders a Dump as indented JSON text, the format cmd/heapscript's
// "dump" operation and internal/introspect's HTTP handlers both use.
func Pretty(d *Dump) (string, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", err
	}

	return string(data), nil
}
