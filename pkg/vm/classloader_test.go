package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daimatz/classvm/pkg/classfile"
)

// TestFieldLayout is spec §8 scenario S2: long a; byte b; int c; byte d
// lays out as a@0, c@8, b@12, d@13, with instance size 16 after
// alignment (invariant I5: larger fields get lower, naturally-aligned
// offsets).
func TestFieldLayout(t *testing.T) {
	rt := newTestRuntime(t)
	cf := &classfile.ClassFile{
		AccessFlags: classfile.AccPublic | classfile.AccSuper,
		Fields: []classfile.FieldInfo{
			{Name: "a", Descriptor: "J"},
			{Name: "b", Descriptor: "B"},
			{Name: "c", Descriptor: "I"},
			{Name: "d", Descriptor: "B"},
		},
	}
	id, err := rt.defineClass("test/Layout", cf)
	require.NoError(t, err)

	lc := rt.Class(id)
	offA, ok := lc.Fields.Get("a", "J")
	require.True(t, ok)
	offB, ok := lc.Fields.Get("b", "B")
	require.True(t, ok)
	offC, ok := lc.Fields.Get("c", "I")
	require.True(t, ok)
	offD, ok := lc.Fields.Get("d", "B")
	require.True(t, ok)

	require.Equal(t, uint16(0), offA)
	require.Equal(t, uint16(8), offC)
	require.Equal(t, uint16(12), offB)
	require.Equal(t, uint16(13), offD)
	require.Equal(t, uint32(16), lc.InstanceSize)
}

// TestFieldLayoutMonotonicity is invariant I5 in its general form: for
// any two instance fields sf >= sg, offset(f) <= offset(g), and every
// offset is naturally aligned.
func TestFieldLayoutMonotonicity(t *testing.T) {
	rt := newTestRuntime(t)
	cf := &classfile.ClassFile{
		AccessFlags: classfile.AccPublic | classfile.AccSuper,
		Fields: []classfile.FieldInfo{
			{Name: "s1", Descriptor: "S"},
			{Name: "d1", Descriptor: "D"},
			{Name: "i1", Descriptor: "I"},
			{Name: "b1", Descriptor: "Z"},
			{Name: "i2", Descriptor: "I"},
		},
	}
	id, err := rt.defineClass("test/Mixed", cf)
	require.NoError(t, err)
	lc := rt.Class(id)

	type fieldSize struct {
		name, desc string
		size       uint32
	}
	fields := []fieldSize{
		{"s1", "S", 2}, {"d1", "D", 8}, {"i1", "I", 4}, {"b1", "Z", 1}, {"i2", "I", 4},
	}
	for _, f := range fields {
		off, ok := lc.Fields.Get(f.name, f.desc)
		require.True(t, ok)
		require.Zero(t, uint32(off)%f.size, "field %s at offset %d is not aligned to its size %d", f.name, off, f.size)
	}

	offD1, _ := lc.Fields.Get("d1", "D")
	offI1, _ := lc.Fields.Get("i1", "I")
	offS1, _ := lc.Fields.Get("s1", "S")
	offB1, _ := lc.Fields.Get("b1", "Z")
	require.LessOrEqual(t, offD1, offI1)
	require.LessOrEqual(t, offI1, offS1)
	require.LessOrEqual(t, offS1, offB1)
}

// TestCodeArenaAddressability is invariant I6: a loaded method's
// recorded code offset is within the arena and the bytes at that
// offset match the source Code attribute exactly.
func TestCodeArenaAddressability(t *testing.T) {
	rt := newTestRuntime(t)
	raw := []byte{classfile.OpIconst0, classfile.OpIreturn}
	cf := &classfile.ClassFile{
		AccessFlags: classfile.AccPublic | classfile.AccSuper,
		Methods: []classfile.MethodInfo{
			{
				AccessFlags: classfile.AccPublic | classfile.AccStatic,
				Name:        "zero",
				Descriptor:  "()I",
				Code: &classfile.CodeAttribute{
					MaxStack:  1,
					MaxLocals: 0,
					Code:      raw,
				},
			},
		},
	}
	id, err := rt.defineClass("test/Zero", cf)
	require.NoError(t, err)

	lc := rt.Class(id)
	md := lc.FindMethod("zero", "()I")
	require.NotNil(t, md)
	require.LessOrEqual(t, int(md.CodeStart+md.CodeLen), len(rt.Code))
	require.Equal(t, raw, rt.Code[md.CodeStart:md.CodeStart+md.CodeLen])
}

// TestMethodWithoutCodeRejected covers spec §4.6's "a method with no
// Code attribute is rejected unless native or abstract".
func TestMethodWithoutCodeRejected(t *testing.T) {
	rt := newTestRuntime(t)
	cf := &classfile.ClassFile{
		AccessFlags: classfile.AccPublic | classfile.AccSuper,
		Methods: []classfile.MethodInfo{
			{AccessFlags: classfile.AccPublic, Name: "broken", Descriptor: "()V"},
		},
	}
	_, err := rt.defineClass("test/Broken", cf)
	require.ErrorIs(t, err, ErrLinkageError)
}

func TestAbstractMethodWithoutCodeAllowed(t *testing.T) {
	rt := newTestRuntime(t)
	cf := &classfile.ClassFile{
		AccessFlags: classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract,
		Methods: []classfile.MethodInfo{
			{AccessFlags: classfile.AccPublic | classfile.AccAbstract, Name: "spec", Descriptor: "()V"},
		},
	}
	id, err := rt.defineClass("test/Iface", cf)
	require.NoError(t, err)
	lc := rt.Class(id)
	md := lc.FindMethod("spec", "()V")
	require.NotNil(t, md)
	require.True(t, md.Abstract)
}
