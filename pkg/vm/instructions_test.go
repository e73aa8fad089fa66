package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/daimatz/classvm/pkg/classfile"
)

// runStatic assembles code into a no-arg static method and runs it to
// completion, returning whatever values the return instruction pushed.
func runStatic(t *testing.T, code []byte, maxStack, maxLocals uint16) []Value {
	t.Helper()
	rt := newTestRuntime(t)
	cf := &classfile.ClassFile{
		AccessFlags: classfile.AccPublic | classfile.AccSuper,
		Methods: []classfile.MethodInfo{
			{
				AccessFlags: classfile.AccPublic | classfile.AccStatic,
				Name:        "run",
				Descriptor:  "()V",
				Code: &classfile.CodeAttribute{
					MaxStack:  maxStack,
					MaxLocals: maxLocals,
					Code:      code,
				},
			},
		},
	}
	id, err := rt.defineClass("test/Ops", cf)
	require.NoError(t, err)
	lc := rt.Class(id)
	md := lc.FindMethod("run", "()V")
	require.NotNil(t, md)

	it := NewInterpreter(rt, zap.NewNop().Sugar())
	ret, thrown, err := it.callMethod(id, md, nil)
	require.NoError(t, err)
	require.Nil(t, thrown)
	return ret
}

func runStaticInt(t *testing.T, code []byte, maxStack, maxLocals uint16) int32 {
	t.Helper()
	ret := runStatic(t, code, maxStack, maxLocals)
	require.Len(t, ret, 1)
	return ret[0].Int32()
}

// TestIconstFamily covers every iconst_* and the bipush/sipush
// immediate forms, each followed immediately by ireturn.
func TestIconstFamily(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want int32
	}{
		{"iconst_m1", []byte{classfile.OpIconstM1, classfile.OpIreturn}, -1},
		{"iconst_0", []byte{classfile.OpIconst0, classfile.OpIreturn}, 0},
		{"iconst_1", []byte{classfile.OpIconst1, classfile.OpIreturn}, 1},
		{"iconst_5", []byte{classfile.OpIconst5, classfile.OpIreturn}, 5},
		{"bipush", []byte{classfile.OpBipush, 0x7f, classfile.OpIreturn}, 127},
		{"bipush_negative", []byte{classfile.OpBipush, 0x80, classfile.OpIreturn}, -128},
		{"sipush", []byte{classfile.OpSipush, 0x01, 0x00, classfile.OpIreturn}, 256},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, runStaticInt(t, tc.code, 2, 0))
		})
	}
}

// TestIntArithmetic covers the binary int ALU ops plus ineg.
func TestIntArithmetic(t *testing.T) {
	tests := []struct {
		name string
		op   byte
		a, b int32
		want int32
	}{
		{"iadd", classfile.OpIadd, 40, 2, 42},
		{"isub", classfile.OpIsub, 10, 3, 7},
		{"imul", classfile.OpImul, 6, 7, 42},
		{"idiv", classfile.OpIdiv, 44, 2, 22},
		{"irem", classfile.OpIrem, 10, 3, 1},
		{"iand", classfile.OpIand, 0xf0, 0x3c, 0x30},
		{"ior", classfile.OpIor, 0x0f, 0x30, 0x3f},
		{"ixor", classfile.OpIxor, 0xff, 0x0f, -16}, // bipush sign-extends 0xff to -1
		{"ishl", classfile.OpIshl, 1, 4, 16},
		{"ishr", classfile.OpIshr, -16, 2, -4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code := []byte{
				classfile.OpBipush, byte(tc.a),
				classfile.OpBipush, byte(tc.b),
				tc.op,
				classfile.OpIreturn,
			}
			require.Equal(t, tc.want, runStaticInt(t, code, 2, 0))
		})
	}
}

func TestIneg(t *testing.T) {
	code := []byte{classfile.OpBipush, 9, classfile.OpIneg, classfile.OpIreturn}
	require.Equal(t, int32(-9), runStaticInt(t, code, 1, 0))
}

// TestIfIcmpFamily walks every if_icmp<cond> comparison, taken and not
// taken, assembled as: push a, push b, if_icmp<cond> L1; iconst_0;
// goto L2; L1: iconst_1; L2: ireturn.
func TestIfIcmpFamily(t *testing.T) {
	build := func(op byte, a, b int32) []byte {
		// pc: 0,1 bipush a; 2,3 bipush b; 4,5,6 if_icmp<cond> (opStart=4);
		// 7 iconst_0; 8,9,10 goto (opStart=8); 11 iconst_1; 12 ireturn.
		// if_icmp branches to 11 (delta 11-4=7) when taken; goto always
		// jumps from 8 to 12 (delta 4) to skip the iconst_1 fallthrough.
		code := []byte{
			classfile.OpBipush, byte(a),
			classfile.OpBipush, byte(b),
			op, 0, 7,
			classfile.OpIconst0,
			classfile.OpGoto, 0, 4,
			classfile.OpIconst1,
			classfile.OpIreturn,
		}
		return code
	}
	tests := []struct {
		name string
		op   byte
		a, b int32
		want int32
	}{
		{"icmpeq_taken", classfile.OpIfIcmpeq, 3, 3, 1},
		{"icmpeq_not_taken", classfile.OpIfIcmpeq, 3, 4, 0},
		{"icmpne_taken", classfile.OpIfIcmpne, 3, 4, 1},
		{"icmplt_taken", classfile.OpIfIcmplt, 1, 2, 1},
		{"icmpge_taken", classfile.OpIfIcmpge, 2, 2, 1},
		{"icmpgt_taken", classfile.OpIfIcmpgt, 5, 2, 1},
		{"icmple_taken", classfile.OpIfIcmple, 2, 2, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, runStaticInt(t, build(tc.op, tc.a, tc.b), 2, 0))
		})
	}
}

// TestLongArithmetic checks the low-half-first long encoding survives
// ladd/lsub through lreturn.
func TestLongArithmetic(t *testing.T) {
	code := []byte{
		classfile.OpLconst1,
		classfile.OpLconst1,
		classfile.OpLadd,
		classfile.OpLreturn,
	}
	ret := runStatic(t, code, 4, 0)
	require.Len(t, ret, 2)
	require.Equal(t, int64(2), UnpackLong(ret[0], ret[1]))
}

// TestConversions covers the widening/narrowing conversion family.
func TestConversions(t *testing.T) {
	t.Run("i2l", func(t *testing.T) {
		code := []byte{classfile.OpBipush, 7, classfile.OpI2l, classfile.OpLreturn}
		ret := runStatic(t, code, 2, 0)
		require.Equal(t, int64(7), UnpackLong(ret[0], ret[1]))
	})
	t.Run("l2i", func(t *testing.T) {
		code := []byte{classfile.OpLconst1, classfile.OpL2i, classfile.OpIreturn}
		require.Equal(t, int32(1), runStaticInt(t, code, 2, 0))
	})
	t.Run("i2b_truncates", func(t *testing.T) {
		code := []byte{classfile.OpSipush, 0x01, 0x00, classfile.OpI2b, classfile.OpIreturn}
		require.Equal(t, int32(0), runStaticInt(t, code, 1, 0))
	})
}

// TestDupFamily exercises dup and swap against the shared operand
// stack to make sure frame-relative indexing (not per-frame slices, as
// the teacher's Frame.OperandStack does it) is correct.
func TestDupFamily(t *testing.T) {
	t.Run("dup", func(t *testing.T) {
		code := []byte{
			classfile.OpBipush, 5,
			classfile.OpDup,
			classfile.OpIadd,
			classfile.OpIreturn,
		}
		require.Equal(t, int32(10), runStaticInt(t, code, 2, 0))
	})
	t.Run("swap", func(t *testing.T) {
		code := []byte{
			classfile.OpBipush, 3,
			classfile.OpBipush, 9,
			classfile.OpSwap,
			classfile.OpIsub, // (9) - (top after swap: 3) = 6
			classfile.OpIreturn,
		}
		require.Equal(t, int32(6), runStaticInt(t, code, 2, 0))
	})
}

// TestNewarrayRoundTrip covers spec §4's array record layout: newarray
// allocates, iastore/iaload round-trip a value, and arraylength reports
// the element count.
func TestNewarrayRoundTrip(t *testing.T) {
	code := []byte{
		classfile.OpBipush, 4,
		classfile.OpNewarray, classfile.ATInt,
		classfile.OpDup,
		classfile.OpBipush, 2, // index
		classfile.OpBipush, 99, // value
		classfile.OpIastore,
		classfile.OpDup,
		classfile.OpBipush, 2,
		classfile.OpIaload,
		classfile.OpSwap,
		classfile.OpArraylength,
		classfile.OpIadd, // 99 + 4 = 103
		classfile.OpIreturn,
	}
	require.Equal(t, int32(103), runStaticInt(t, code, 4, 0))
}

// TestIincAndLocals exercises iinc against a stored local.
func TestIincAndLocals(t *testing.T) {
	code := []byte{
		classfile.OpBipush, 10,
		classfile.OpIstore0,
		classfile.OpIinc, 0, 5,
		classfile.OpIload0,
		classfile.OpIreturn,
	}
	require.Equal(t, int32(15), runStaticInt(t, code, 1, 1))
}
