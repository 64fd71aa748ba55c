package heap

import (
	"encoding/binary"
	"math"

	"github.com/monoheap/monoheap/internal/heap/heaperrs"
)

// The codec reads and writes fixed-width fields at a region-local byte
// offset, the way the teacher's region allocator addresses memory by raw
// offset rather than through an io.Reader/io.Writer. Each width gets its own
// pair of functions so a caller never has to think about byte order.

func checkRange(buf []byte, offset, width uint32, op string) error {
	if uint64(offset)+uint64(width) > uint64(len(buf)) {
		return heaperrs.OutOfRangeAt(op, offset, uint32(len(buf)))
	}

	return nil
}

func readU8(buf []byte, offset uint32) (byte, error) {
	if err := checkRange(buf, offset, 1, "readU8"); err != nil {
		return 0, err
	}

	return buf[offset], nil
}

func writeU8(buf []byte, offset uint32, v byte) error {
	if err := checkRange(buf, offset, 1, "writeU8"); err != nil {
		return err
	}

	buf[offset] = v

	return nil
}

func readU32(buf []byte, offset uint32) (uint32, error) {
	if err := checkRange(buf, offset, 4, "readU32"); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(buf[offset : offset+4]), nil
}

func writeU32(buf []byte, offset uint32, v uint32) error {
	if err := checkRange(buf, offset, 4, "writeU32"); err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(buf[offset:offset+4], v)

	return nil
}

func readU64(buf []byte, offset uint32) (uint64, error) {
	if err := checkRange(buf, offset, 8, "readU64"); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(buf[offset : offset+8]), nil
}

func writeU64(buf []byte, offset uint32, v uint64) error {
	if err := checkRange(buf, offset, 8, "writeU64"); err != nil {
		return err
	}

	binary.LittleEndian.PutUint64(buf[offset:offset+8], v)

	return nil
}

func readI8(buf []byte, offset uint32) (int8, error) {
	v, err := readU8(buf, offset)
	return int8(v), err
}

func writeI8(buf []byte, offset uint32, v int8) error {
	return writeU8(buf, offset, byte(v))
}

func readI32(buf []byte, offset uint32) (int32, error) {
	v, err := readU32(buf, offset)
	return int32(v), err
}

func writeI32(buf []byte, offset uint32, v int32) error {
	return writeU32(buf, offset, uint32(v))
}

func readF32(buf []byte, offset uint32) (float32, error) {
	v, err := readU32(buf, offset)
	if err != nil {
		return 0, err
	}

	return math.Float32frombits(v), nil
}

func writeF32(buf []byte, offset uint32, v float32) error {
	return writeU32(buf, offset, math.Float32bits(v))
}

func readF64(buf []byte, offset uint32) (float64, error) {
	v, err := readU64(buf, offset)
	if err != nil {
		return 0, err
	}

	return math.Float64frombits(v), nil
}

func writeF64(buf []byte, offset uint32, v float64) error {
	return writeU64(buf, offset, math.Float64bits(v))
}
