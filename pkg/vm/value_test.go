package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueReferenceRanges(t *testing.T) {
	assert.True(t, NullValue.IsNull())
	assert.False(t, NullValue.IsStatic())
	assert.False(t, NullValue.IsHeap())

	s := NewStaticRef(100)
	assert.False(t, s.IsNull())
	assert.True(t, s.IsStatic())
	assert.False(t, s.IsHeap())
	assert.Equal(t, uint32(100), s.StaticOffset())

	h := NewHeapRef(200)
	assert.False(t, h.IsNull())
	assert.False(t, h.IsStatic())
	assert.True(t, h.IsHeap())
	assert.Equal(t, uint32(200), h.HeapOffset())
}

func TestNewStaticRefRejectsReservedRange(t *testing.T) {
	for _, offset := range []uint32{0, 1, 2, 3} {
		assert.Panics(t, func() { NewStaticRef(offset) })
	}
}

// TestLongRoundTrip checks invariant-adjacent behavior for spec §9's
// low-half-first long/double pair encoding.
func TestLongRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 42, -42, 1 << 40, -(1 << 40), 9223372036854775807, -9223372036854775808}
	for _, x := range cases {
		lo, hi := PackLong(x)
		require.Equal(t, x, UnpackLong(lo, hi))
	}
}

func TestFloat64RoundTrip(t *testing.T) {
	cases := []float64{0, 1.5, -1.5, 3.14159265358979, -0.0}
	for _, f := range cases {
		lo, hi := PackFloat64(f)
		require.Equal(t, f, UnpackFloat64(lo, hi))
	}
}

func TestFloat32RoundTrip(t *testing.T) {
	cases := []float32{0, 1.5, -1.5, 3.14159}
	for _, f := range cases {
		v := FromFloat32(f)
		require.Equal(t, f, v.Float32())
	}
}

func TestBoolEncoding(t *testing.T) {
	assert.True(t, FromBool(true).Bool())
	assert.False(t, FromBool(false).Bool())
	assert.Equal(t, int32(1), FromBool(true).Int32())
	assert.Equal(t, int32(0), FromBool(false).Int32())
}
