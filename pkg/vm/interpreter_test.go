package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/daimatz/classvm/pkg/classfile"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	return NewRuntime(t.TempDir(), zap.NewNop().Sugar())
}

// TestAdd is spec §8 scenario S1: a static add(int,int) returning their
// sum via ireturn.
func TestAdd(t *testing.T) {
	rt := newTestRuntime(t)
	cf := &classfile.ClassFile{
		AccessFlags: classfile.AccPublic | classfile.AccSuper,
		Methods: []classfile.MethodInfo{
			{
				AccessFlags: classfile.AccPublic | classfile.AccStatic,
				Name:        "add",
				Descriptor:  "(II)I",
				Code: &classfile.CodeAttribute{
					MaxStack:  2,
					MaxLocals: 2,
					Code:      []byte{classfile.OpIload0, classfile.OpIload1, classfile.OpIadd, classfile.OpIreturn},
				},
			},
		},
	}
	id, err := rt.defineClass("test/Adder", cf)
	require.NoError(t, err)

	lc := rt.Class(id)
	md := lc.FindMethod("add", "(II)I")
	require.NotNil(t, md)

	it := NewInterpreter(rt, zap.NewNop().Sugar())
	ret, thrown, err := it.callMethod(id, md, []Value{FromInt32(40), FromInt32(2)})
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.Equal(t, []Value{FromInt32(42)}, ret)
}

// TestBranchLoop is spec §8 scenario S4: for (i=0;i<3;i++) sum+=i;
// return sum; -- assembled as a static no-arg method using iinc,
// if_icmpge, and goto.
func TestBranchLoop(t *testing.T) {
	rt := newTestRuntime(t)
	// locals: 0 = i, 1 = sum
	// 0: iconst_0
	// 1: istore_0      (i = 0)
	// 2: iconst_0
	// 3: istore_1      (sum = 0)
	// 4: iload_0
	// 5: bipush 3
	// 7: if_icmpge 20  (-> end, offset from instr start=7, delta 13)
	// 10: iload_1
	// 11: iload_0
	// 12: iadd
	// 13: istore_1     (sum += i)
	// 14: iinc 0, 1    (i++)
	// 17: goto 4        (offset from instr start=17, target 4 -> delta -13)
	// 20: iload_1
	// 21: ireturn
	code := []byte{
		classfile.OpIconst0,
		classfile.OpIstore0,
		classfile.OpIconst0,
		classfile.OpIstore1,
		// pc 4
		classfile.OpIload0,
		classfile.OpBipush, 3,
		// pc 7
		classfile.OpIfIcmpge, 0, 0, // patched below
		// pc 10
		classfile.OpIload1,
		classfile.OpIload0,
		classfile.OpIadd,
		classfile.OpIstore1,
		// pc 14
		classfile.OpIinc, 0, 1,
		// pc 17
		classfile.OpGoto, 0, 0, // patched below
		// pc 20
		classfile.OpIload1,
		classfile.OpIreturn,
	}
	// if_icmpge at pc 7 should branch to pc 20 on exit: delta = 20-7 = 13
	code[8] = 0
	code[9] = 13
	// goto at pc 17 should branch back to pc 4: delta = 4-17 = -13
	be := uint16(int16(-13))
	code[18] = byte(be >> 8)
	code[19] = byte(be)

	cf := &classfile.ClassFile{
		AccessFlags: classfile.AccPublic | classfile.AccSuper,
		Methods: []classfile.MethodInfo{
			{
				AccessFlags: classfile.AccPublic | classfile.AccStatic,
				Name:        "sumTo3",
				Descriptor:  "()I",
				Code: &classfile.CodeAttribute{
					MaxStack:  2,
					MaxLocals: 2,
					Code:      code,
				},
			},
		},
	}
	id, err := rt.defineClass("test/Loop", cf)
	require.NoError(t, err)

	lc := rt.Class(id)
	md := lc.FindMethod("sumTo3", "()I")
	require.NotNil(t, md)

	it := NewInterpreter(rt, zap.NewNop().Sugar())
	ret, thrown, err := it.callMethod(id, md, nil)
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.Equal(t, []Value{FromInt32(3)}, ret)
}

// TestNewPutGetField is spec §8 scenario S5: new C(); c.x = 7; return c.x;
func TestNewPutGetField(t *testing.T) {
	rt := newTestRuntime(t)

	pool := []classfile.ConstantPoolEntry{
		nil,
		&classfile.ConstantClass{NameIndex: 2},         // #1 Class test/Point
		&classfile.ConstantUtf8{Value: "test/Point"},    // #2
		&classfile.ConstantNameAndType{NameIndex: 4, DescriptorIndex: 5}, // #3
		&classfile.ConstantUtf8{Value: "x"},             // #4
		&classfile.ConstantUtf8{Value: "I"},              // #5
		&classfile.ConstantFieldref{ClassIndex: 1, NameAndTypeIndex: 3}, // #6
	}

	code := []byte{
		classfile.OpNew, 0, 1,
		classfile.OpDup,
		classfile.OpBipush, 7,
		classfile.OpPutfield, 0, 6,
		classfile.OpGetfield, 0, 6,
		classfile.OpIreturn,
	}

	cf := &classfile.ClassFile{
		AccessFlags:  classfile.AccPublic | classfile.AccSuper,
		ThisClass:    1,
		ConstantPool: pool,
		Fields: []classfile.FieldInfo{
			{Name: "x", Descriptor: "I"},
		},
		Methods: []classfile.MethodInfo{
			{
				AccessFlags: classfile.AccPublic | classfile.AccStatic,
				Name:        "run",
				Descriptor:  "()I",
				Code: &classfile.CodeAttribute{
					MaxStack:  2,
					MaxLocals: 0,
					Code:      code,
				},
			},
		},
	}
	id, err := rt.defineClass("test/Point", cf)
	require.NoError(t, err)

	lc := rt.Class(id)
	md := lc.FindMethod("run", "()I")
	require.NotNil(t, md)

	it := NewInterpreter(rt, zap.NewNop().Sugar())
	ret, thrown, err := it.callMethod(id, md, nil)
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.Equal(t, []Value{FromInt32(7)}, ret)
}
