package native_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/daimatz/classvm/pkg/classfile"
	_ "github.com/daimatz/classvm/pkg/native"
	"github.com/daimatz/classvm/pkg/vm"
)

// TestHelloPrintsLine is spec §8 scenario S3: System.out.println("hi")
// produces stdout "hi\n". The class's statics-region Utf8 constant is
// pushed by ldc, then getstatic/invokevirtual route through
// java/lang/System and java/io/PrintStream exactly as loaded bytecode
// would.
func TestHelloPrintsLine(t *testing.T) {
	log := zap.NewNop().Sugar()
	rt := vm.NewRuntime(t.TempDir(), log)
	var out bytes.Buffer
	rt.Stdout = &out

	pool := []classfile.ConstantPoolEntry{
		nil,
		&classfile.ConstantClass{NameIndex: 2},                              // #1 Class java/lang/System
		&classfile.ConstantUtf8{Value: "java/lang/System"},                  // #2
		&classfile.ConstantNameAndType{NameIndex: 4, DescriptorIndex: 5},    // #3 out:Ljava/io/PrintStream;
		&classfile.ConstantUtf8{Value: "out"},                               // #4
		&classfile.ConstantUtf8{Value: "Ljava/io/PrintStream;"},             // #5
		&classfile.ConstantFieldref{ClassIndex: 1, NameAndTypeIndex: 3},     // #6
		&classfile.ConstantUtf8{Value: "hi"},                                // #7
		&classfile.ConstantString{StringIndex: 7},                          // #8
		&classfile.ConstantClass{NameIndex: 10},                             // #9 Class java/io/PrintStream
		&classfile.ConstantUtf8{Value: "java/io/PrintStream"},               // #10
		&classfile.ConstantNameAndType{NameIndex: 12, DescriptorIndex: 13}, // #11 println:(Ljava/lang/String;)V
		&classfile.ConstantUtf8{Value: "println"},                           // #12
		&classfile.ConstantUtf8{Value: "(Ljava/lang/String;)V"},             // #13
		&classfile.ConstantMethodref{ClassIndex: 9, NameAndTypeIndex: 11},   // #14
	}

	code := []byte{
		classfile.OpGetstatic, 0, 6,
		classfile.OpLdc, 8,
		classfile.OpInvokevirtual, 0, 14,
		classfile.OpReturn,
	}

	cf := &classfile.ClassFile{
		AccessFlags:  classfile.AccPublic | classfile.AccSuper,
		ThisClass:    0,
		ConstantPool: pool,
		Methods: []classfile.MethodInfo{
			{
				AccessFlags: classfile.AccPublic | classfile.AccStatic,
				Name:        "main",
				Descriptor:  "([Ljava/lang/String;)V",
				Code: &classfile.CodeAttribute{
					MaxStack:  2,
					MaxLocals: 1,
					Code:      code,
				},
			},
		},
	}

	_, err := rt.DefineClass("test/Hello", cf)
	require.NoError(t, err)

	it := vm.NewInterpreter(rt, log)
	err = it.RunMain("test/Hello", nil)
	require.NoError(t, err)
	require.Equal(t, "hi\n", out.String())
}

// TestGetClassIsStablePerClass covers spec §4.8's "getClass returns the
// receiver's class-object reference": two objects of the same loaded
// class must get back the identical reference from getClass(), not two
// distinct ones.
func TestGetClassIsStablePerClass(t *testing.T) {
	log := zap.NewNop().Sugar()
	rt := vm.NewRuntime(t.TempDir(), log)

	pointCF := &classfile.ClassFile{
		AccessFlags: classfile.AccPublic | classfile.AccSuper,
	}
	pointID, err := rt.DefineClass("test/Point", pointCF)
	require.NoError(t, err)

	objID, err := rt.Load("java/lang/Object")
	require.NoError(t, err)
	lc := rt.Class(objID)
	md := lc.FindMethod("getClass", "()Ljava/lang/Class;")
	require.NotNil(t, md)
	require.NotNil(t, md.Native)

	a := vm.AllocObject(rt, pointID, 0)
	b := vm.AllocObject(rt, pointID, 0)

	retA, err := md.Native(rt, []vm.Value{a})
	require.NoError(t, err)
	retB, err := md.Native(rt, []vm.Value{b})
	require.NoError(t, err)

	require.Len(t, retA, 1)
	require.Len(t, retB, 1)
	require.Equal(t, retA[0], retB[0])
	require.Equal(t, pointID, vm.ClassObjectTarget(rt, retA[0]))
}
