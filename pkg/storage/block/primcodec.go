package block

import (
	"encoding/binary"
	"math"

	"github.com/coldb/coldb/pkg/array"
)

// primCodec describes how a fixed-width Go value of type T is packed into
// and unpacked from `width` little-endian bytes. One instance per physical
// kind (bool/int32/int64/float64) lets PlainPrimitiveBuilder/Iterator,
// RLEBuilder and DictBuilder all be written once, generically.
type primCodec[T array.Number] struct {
	width int
	put   func([]byte, T)
	get   func([]byte) T
	less  func(a, b T) bool
}

var boolCodec = primCodec[bool]{
	width: 1,
	put:   func(b []byte, v bool) { if v { b[0] = 1 } else { b[0] = 0 } },
	get:   func(b []byte) bool { return b[0] != 0 },
	less:  func(a, b bool) bool { return !a && b },
}

var int32Codec = primCodec[int32]{
	width: 4,
	put:   func(b []byte, v int32) { binary.LittleEndian.PutUint32(b, uint32(v)) },
	get:   func(b []byte) int32 { return int32(binary.LittleEndian.Uint32(b)) },
	less:  func(a, b int32) bool { return a < b },
}

var int64Codec = primCodec[int64]{
	width: 8,
	put:   func(b []byte, v int64) { binary.LittleEndian.PutUint64(b, uint64(v)) },
	get:   func(b []byte) int64 { return int64(binary.LittleEndian.Uint64(b)) },
	less:  func(a, b int64) bool { return a < b },
}

var float64Codec = primCodec[float64]{
	width: 8,
	put:   func(b []byte, v float64) { binary.LittleEndian.PutUint64(b, math.Float64bits(v)) },
	get:   func(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) },
	less:  func(a, b float64) bool { return a < b },
}

// CodecFor returns the primCodec matching a physical kind. Callers type
// assert on the returned `any` to the concrete primCodec[T] they expect;
// the block/column layer always knows T from the array type it is
// building, so this is only used at the few generic-dispatch boundaries.
func CodecFor(p array.Physical) any {
	switch p {
	case array.PhysBool:
		return boolCodec
	case array.PhysI32:
		return int32Codec
	case array.PhysI64:
		return int64Codec
	case array.PhysF64:
		return float64Codec
	default:
		return nil
	}
}
