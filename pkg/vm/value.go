package vm

import "math"

// Value is the packed 32-bit tagged word (spec §3 "Value", §9 "Packed
// tagged words"): 0 is invalid/uninitialized, 1..3 reserved, the range
// [4, 1<<31) is a statics-arena reference, [1<<31, 1<<32) is a
// heap-arena reference. Primitives (int, float, boolean, byte, char,
// short) are stored sign/zero-extended across the full 32 bits and never
// fall inside the reference range at runtime because the interpreter
// never treats a primitive operand as a reference operand and vice
// versa -- the tagging is positional (by descriptor), not dynamic.
type Value uint32

const (
	// NullValue is the canonical encoding of a null reference.
	NullValue Value = 0

	heapBase = Value(1) << 31
)

// NewStaticRef encodes a reference into the statics arena.
func NewStaticRef(offset uint32) Value {
	v := Value(offset)
	if v < 4 || v >= heapBase {
		panic("vm: static offset out of encodable range")
	}
	return v
}

// NewHeapRef encodes a reference into the heap arena.
func NewHeapRef(offset uint32) Value {
	v := heapBase + Value(offset)
	if v < heapBase {
		panic("vm: heap offset out of encodable range")
	}
	return v
}

// IsNull reports whether v is the null reference.
func (v Value) IsNull() bool { return v == NullValue }

// IsStatic reports whether v addresses the statics arena.
func (v Value) IsStatic() bool { return v >= 4 && v < heapBase }

// IsHeap reports whether v addresses the heap arena.
func (v Value) IsHeap() bool { return v >= heapBase }

// StaticOffset returns the byte offset into the statics arena. Only
// valid when IsStatic is true.
func (v Value) StaticOffset() uint32 { return uint32(v) }

// HeapOffset returns the byte offset into the heap arena, past any
// class-id header word. Only valid when IsHeap is true.
func (v Value) HeapOffset() uint32 { return uint32(v - heapBase) }

// Int32 reinterprets v as a signed 32-bit int (iconst/iload/iadd/...).
func (v Value) Int32() int32 { return int32(v) }

// FromInt32 encodes a signed 32-bit int as a Value.
func FromInt32(i int32) Value { return Value(uint32(i)) }

// Float32 reinterprets v as IEEE-754 bits (fconst/fload/fadd/...).
func (v Value) Float32() float32 { return math.Float32frombits(uint32(v)) }

// FromFloat32 encodes a float32 as its IEEE-754 bit pattern.
func FromFloat32(f float32) Value { return Value(math.Float32bits(f)) }

// PackLong splits a int64 into its two Value halves, low half first, per
// spec §9's fixed convention (ldc2_w, arithmetic, load/store, compare,
// return all agree on this ordering).
func PackLong(x int64) (lo, hi Value) {
	u := uint64(x)
	return Value(uint32(u)), Value(uint32(u >> 32))
}

// UnpackLong reassembles a int64 from its low/high Value halves.
func UnpackLong(lo, hi Value) int64 {
	return int64(uint64(hi)<<32 | uint64(uint32(lo)))
}

// PackFloat64 splits a float64 into its two Value halves, low half first.
func PackFloat64(f float64) (lo, hi Value) {
	return PackLong(int64(math.Float64bits(f)))
}

// UnpackFloat64 reassembles a float64 from its low/high Value halves.
func UnpackFloat64(lo, hi Value) float64 {
	return math.Float64frombits(uint64(UnpackLong(lo, hi)))
}

// Bool reports the JVM truthiness of an int-typed Value (0 = false).
func (v Value) Bool() bool { return v.Int32() != 0 }

// FromBool encodes a boolean as the canonical 0/1 int Value.
func FromBool(b bool) Value {
	if b {
		return FromInt32(1)
	}
	return FromInt32(0)
}
