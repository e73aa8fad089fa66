package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArenaAllocZeroedIsAligned(t *testing.T) {
	a := NewArena()
	for _, n := range []uint32{1, 2, 3, 5, 7} {
		off := a.AllocZeroed(n)
		require.Zero(t, a.Len()%4, "arena length must stay 4-byte aligned after allocating %d bytes", n)
		require.Zero(t, off%4, "offset %d returned for a %d-byte allocation must be 4-byte aligned", off, n)
	}
}

func TestArenaAllocZeroedNeverReturnsZero(t *testing.T) {
	a := NewArena()
	off := a.AllocZeroed(4)
	require.NotZero(t, off, "offset 0 is reserved so a zeroed Value field is never mistaken for a real reference")
}

func TestArenaStringRoundTrip(t *testing.T) {
	a := NewArena()
	off := a.AllocString("hi")
	require.Equal(t, "hi", a.ReadString(off))
}

func TestArenaWordReadWrite(t *testing.T) {
	a := NewArena()
	off := a.AllocZeroed(4)
	a.WriteU32(off, 0xdeadbeef)
	require.Equal(t, uint32(0xdeadbeef), a.ReadU32(off))

	a.WriteU16(off, 0x1234)
	require.Equal(t, uint16(0x1234), a.ReadU16(off))

	a.WriteU8(off, 0x42)
	require.Equal(t, uint8(0x42), a.ReadU8(off))
}

func TestArenaValueRoundTrip(t *testing.T) {
	a := NewArena()
	off := a.AllocZeroed(4)
	v := NewHeapRef(12)
	a.WriteValue(off, v)
	require.Equal(t, v, a.ReadValue(off))
}
