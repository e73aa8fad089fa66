package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/daimatz/classvm/pkg/classfile"
)

// TestResolveVirtualFindsInterfaceDefaultMethod covers the
// ResolveVirtual fix: a method declared only on an interface (its own
// Code attribute, never overridden by the implementing class or any of
// its superclasses) must still resolve, checked at every level of the
// super-chain walk rather than only once it bottoms out at
// java/lang/Object.
func TestResolveVirtualFindsInterfaceDefaultMethod(t *testing.T) {
	rt := newTestRuntime(t)

	greeterCF := &classfile.ClassFile{
		AccessFlags: classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract,
		Methods: []classfile.MethodInfo{
			{
				AccessFlags: classfile.AccPublic,
				Name:        "greet",
				Descriptor:  "()I",
				Code: &classfile.CodeAttribute{
					MaxStack:  1,
					MaxLocals: 1,
					Code:      []byte{classfile.OpBipush, 7, classfile.OpIreturn},
				},
			},
		},
	}
	greeterID, err := rt.defineClass("test/Greeter", greeterCF)
	require.NoError(t, err)

	pool := []classfile.ConstantPoolEntry{
		nil,
		&classfile.ConstantClass{NameIndex: 2},         // #1 java/lang/Object
		&classfile.ConstantUtf8{Value: "java/lang/Object"}, // #2
		&classfile.ConstantClass{NameIndex: 4},         // #3 test/Greeter
		&classfile.ConstantUtf8{Value: "test/Greeter"}, // #4
	}
	implCF := &classfile.ClassFile{
		AccessFlags:  classfile.AccPublic | classfile.AccSuper,
		ConstantPool: pool,
		SuperClass:   1,
		Interfaces:   []uint16{3},
	}
	// pkg/vm's own tests link no builtin classes, so the root class that
	// Impl extends is defined here as an empty in-memory class.
	_, err = rt.defineClass("java/lang/Object", &classfile.ClassFile{AccessFlags: classfile.AccPublic | classfile.AccSuper})
	require.NoError(t, err)
	implID, err := rt.defineClass("test/Impl", implCF)
	require.NoError(t, err)

	ownerID, md := rt.ResolveVirtual(implID, "greet", "()I")
	require.NotNil(t, md)
	require.Equal(t, greeterID, ownerID)

	it := NewInterpreter(rt, zap.NewNop().Sugar())
	ret, thrown, err := it.callMethod(ownerID, md, nil)
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.Equal(t, []Value{FromInt32(7)}, ret)
}
