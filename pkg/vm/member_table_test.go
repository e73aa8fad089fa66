package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemberTableOverloadsByDescriptor(t *testing.T) {
	mt := NewMemberTable()
	mt.Put("foo", "(I)V", 1)
	mt.Put("foo", "(Ljava/lang/String;)V", 2)

	off, ok := mt.Get("foo", "(I)V")
	require.True(t, ok)
	require.Equal(t, uint16(1), off)

	off, ok = mt.Get("foo", "(Ljava/lang/String;)V")
	require.True(t, ok)
	require.Equal(t, uint16(2), off)

	_, ok = mt.Get("foo", "(D)V")
	require.False(t, ok)
}

func TestMemberTableGetAny(t *testing.T) {
	mt := NewMemberTable()
	mt.Put("x", "I", 4)

	desc, off, ok := mt.GetAny("x")
	require.True(t, ok)
	require.Equal(t, "I", desc)
	require.Equal(t, uint16(4), off)

	_, _, ok = mt.GetAny("missing")
	require.False(t, ok)
}
