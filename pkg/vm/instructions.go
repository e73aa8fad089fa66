package vm

import (
	"math"

	"github.com/daimatz/classvm/pkg/classfile"
)

// slotKind distinguishes one-word locals (int/float/reference) from
// two-word locals (long/double) for the shared load/store helpers.
type slotKind int

const (
	kindSingle slotKind = iota
	kindWide
)

func wideKindOf(opcode uint8) slotKind {
	switch opcode {
	case classfile.OpLload, classfile.OpDload, classfile.OpLstore, classfile.OpDstore:
		return kindWide
	default:
		return kindSingle
	}
}

func (it *Interpreter) doLoad(frame *Frame, kind slotKind, index int) execResult {
	frame.Push(frame.GetLocal(index))
	if kind == kindWide {
		frame.Push(frame.GetLocal(index + 1))
	}
	return contResult()
}

func (it *Interpreter) doStore(frame *Frame, kind slotKind, index int) execResult {
	if kind == kindWide {
		hi := frame.Pop()
		lo := frame.Pop()
		frame.SetLocal(index, lo)
		frame.SetLocal(index+1, hi)
		return contResult()
	}
	frame.SetLocal(index, frame.Pop())
	return contResult()
}

// doWide handles the `wide` prefix instruction: its sub-opcode and
// 2-byte index, plus iinc's extra 2-byte signed delta.
func (it *Interpreter) doWide(frame *Frame, code []byte) execResult {
	sub := frame.ReadU8(code)
	index := int(frame.ReadU16(code))
	switch sub {
	case classfile.OpIload, classfile.OpLload, classfile.OpFload, classfile.OpDload, classfile.OpAload:
		return it.doLoad(frame, wideKindOf(sub), index)
	case classfile.OpIstore, classfile.OpLstore, classfile.OpFstore, classfile.OpDstore, classfile.OpAstore:
		return it.doStore(frame, wideKindOf(sub), index)
	case classfile.OpRet:
		frame.PC = int(frame.GetLocal(index).Int32())
		return contResult()
	case classfile.OpIinc:
		delta := frame.ReadI16(code)
		v := frame.GetLocal(index).Int32()
		frame.SetLocal(index, FromInt32(v+int32(delta)))
		return contResult()
	default:
		return faultResult(ErrReservedInstruction)
	}
}

// --- dup family ------------------------------------------------------

func (it *Interpreter) doDup(frame *Frame) execResult {
	frame.Push(frame.Peek())
	return contResult()
}

func (it *Interpreter) doDupX1(frame *Frame) execResult {
	v1, v2 := frame.Pop(), frame.Pop()
	frame.Push(v1)
	frame.Push(v2)
	frame.Push(v1)
	return contResult()
}

func (it *Interpreter) doDupX2(frame *Frame) execResult {
	v1, v2, v3 := frame.Pop(), frame.Pop(), frame.Pop()
	frame.Push(v1)
	frame.Push(v3)
	frame.Push(v2)
	frame.Push(v1)
	return contResult()
}

func (it *Interpreter) doDup2(frame *Frame) execResult {
	v1, v2 := frame.Pop(), frame.Pop()
	frame.Push(v2)
	frame.Push(v1)
	frame.Push(v2)
	frame.Push(v1)
	return contResult()
}

func (it *Interpreter) doDup2X1(frame *Frame) execResult {
	v1, v2, v3 := frame.Pop(), frame.Pop(), frame.Pop()
	frame.Push(v2)
	frame.Push(v1)
	frame.Push(v3)
	frame.Push(v2)
	frame.Push(v1)
	return contResult()
}

func (it *Interpreter) doDup2X2(frame *Frame) execResult {
	v1, v2, v3, v4 := frame.Pop(), frame.Pop(), frame.Pop(), frame.Pop()
	frame.Push(v2)
	frame.Push(v1)
	frame.Push(v4)
	frame.Push(v3)
	frame.Push(v2)
	frame.Push(v1)
	return contResult()
}

func (it *Interpreter) doSwap(frame *Frame) execResult {
	v1, v2 := frame.Pop(), frame.Pop()
	frame.Push(v1)
	frame.Push(v2)
	return contResult()
}

// --- numeric conversions, per JVMS §2.8.3's saturating float/double ->
// integral rules: NaN converts to zero, out-of-range saturates to the
// nearest representable bound. ------------------------------------------

func floatToInt32(f float32) int32 {
	switch {
	case f != f:
		return 0
	case f >= 1<<31:
		return math.MaxInt32
	case f <= -(1 << 31):
		return math.MinInt32
	default:
		return int32(f)
	}
}

func floatToInt64(f float32) int64 {
	switch {
	case f != f:
		return 0
	case f >= 1<<63:
		return math.MaxInt64
	case f <= -(1 << 63):
		return math.MinInt64
	default:
		return int64(f)
	}
}

func doubleToInt32(d float64) int32 {
	switch {
	case d != d:
		return 0
	case d >= 1<<31:
		return math.MaxInt32
	case d <= -(1 << 31):
		return math.MinInt32
	default:
		return int32(d)
	}
}

func doubleToInt64(d float64) int64 {
	switch {
	case d != d:
		return 0
	case d >= 1<<63:
		return math.MaxInt64
	case d <= -(1 << 63):
		return math.MinInt64
	default:
		return int64(d)
	}
}

func floatCompare(a, b float32, nanResult int32) int32 {
	if a != a || b != b {
		return nanResult
	}
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

func doubleCompare(a, b float64, nanResult int32) int32 {
	if a != a || b != b {
		return nanResult
	}
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

// --- tableswitch / lookupswitch ---------------------------------------
//
// Padding aligns to a 4-byte boundary measured from the start of the
// method's own code (JVMS §6.5.tableswitch), not the global code
// arena's base offset -- the arena concatenates every method's bytecode
// back to back, so only the method-relative offset is guaranteed a
// multiple of 4 at the instruction's start.

func switchPadding(md *MethodDef, opStart int) int {
	rel := opStart - int(md.CodeStart)
	return (4 - (rel+1)%4) % 4
}

func (it *Interpreter) doTableswitch(frame *Frame, md *MethodDef, code []byte, opStart int) execResult {
	frame.PC += switchPadding(md, opStart)
	defaultOffset := frame.ReadI32(code)
	low := frame.ReadI32(code)
	high := frame.ReadI32(code)
	key := frame.Pop().Int32()
	if key < low || key > high {
		frame.PC = opStart + int(defaultOffset)
		return contResult()
	}
	frame.PC += int(key-low) * 4
	offset := frame.ReadI32(code)
	frame.PC = opStart + int(offset)
	return contResult()
}

func (it *Interpreter) doLookupswitch(frame *Frame, md *MethodDef, code []byte, opStart int) execResult {
	frame.PC += switchPadding(md, opStart)
	defaultOffset := frame.ReadI32(code)
	npairs := frame.ReadI32(code)
	key := frame.Pop().Int32()
	target := opStart + int(defaultOffset)
	for i := int32(0); i < npairs; i++ {
		match := frame.ReadI32(code)
		offset := frame.ReadI32(code)
		if match == key {
			target = opStart + int(offset)
		}
	}
	frame.PC = target
	return contResult()
}

// intCmpTrue evaluates an if<cond> comparison of a against b, keyed by
// the ifeq..ifle opcode range (if_icmp<cond> rebases into that range
// before calling this, since the two families share comparator order).
func intCmpTrue(opcode byte, a, b int32) bool {
	switch opcode {
	case classfile.OpIfeq:
		return a == b
	case classfile.OpIfne:
		return a != b
	case classfile.OpIflt:
		return a < b
	case classfile.OpIfge:
		return a >= b
	case classfile.OpIfgt:
		return a > b
	case classfile.OpIfle:
		return a <= b
	default:
		return false
	}
}

// exec decodes and runs exactly one instruction starting at opStart
// (frame.PC already past the opcode byte itself), per spec §4.7.
func (it *Interpreter) exec(frame *Frame, md *MethodDef, opcode byte, opStart int) execResult {
	code := it.rt.Code

	switch opcode {
	case classfile.OpNop:
		return contResult()
	case classfile.OpAconstNull:
		frame.Push(NullValue)
		return contResult()
	case classfile.OpIconstM1, classfile.OpIconst0, classfile.OpIconst1, classfile.OpIconst2,
		classfile.OpIconst3, classfile.OpIconst4, classfile.OpIconst5:
		frame.Push(FromInt32(int32(opcode) - int32(classfile.OpIconst0)))
		return contResult()
	case classfile.OpLconst0, classfile.OpLconst1:
		it.pushLong(frame, int64(opcode-classfile.OpLconst0))
		return contResult()
	case classfile.OpFconst0, classfile.OpFconst1, classfile.OpFconst2:
		frame.Push(FromFloat32(float32(opcode - classfile.OpFconst0)))
		return contResult()
	case classfile.OpDconst0, classfile.OpDconst1:
		it.pushDouble(frame, float64(opcode-classfile.OpDconst0))
		return contResult()
	case classfile.OpBipush:
		frame.Push(FromInt32(int32(frame.ReadI8(code))))
		return contResult()
	case classfile.OpSipush:
		frame.Push(FromInt32(int32(frame.ReadI16(code))))
		return contResult()

	case classfile.OpLdc:
		return it.doLdc(frame, uint16(frame.ReadU8(code)))
	case classfile.OpLdcW:
		return it.doLdc(frame, frame.ReadU16(code))
	case classfile.OpLdc2W:
		return it.doLdc2W(frame, frame.ReadU16(code))

	case classfile.OpIload, classfile.OpFload, classfile.OpAload:
		return it.doLoad(frame, kindSingle, int(frame.ReadU8(code)))
	case classfile.OpLload, classfile.OpDload:
		return it.doLoad(frame, kindWide, int(frame.ReadU8(code)))
	case classfile.OpIload0, classfile.OpFload0, classfile.OpAload0:
		return it.doLoad(frame, kindSingle, 0)
	case classfile.OpIload1, classfile.OpFload1, classfile.OpAload1:
		return it.doLoad(frame, kindSingle, 1)
	case classfile.OpIload2, classfile.OpFload2, classfile.OpAload2:
		return it.doLoad(frame, kindSingle, 2)
	case classfile.OpIload3, classfile.OpFload3, classfile.OpAload3:
		return it.doLoad(frame, kindSingle, 3)
	case classfile.OpLload0, classfile.OpDload0:
		return it.doLoad(frame, kindWide, 0)
	case classfile.OpLload1, classfile.OpDload1:
		return it.doLoad(frame, kindWide, 1)
	case classfile.OpLload2, classfile.OpDload2:
		return it.doLoad(frame, kindWide, 2)
	case classfile.OpLload3, classfile.OpDload3:
		return it.doLoad(frame, kindWide, 3)

	case classfile.OpIstore, classfile.OpFstore, classfile.OpAstore:
		return it.doStore(frame, kindSingle, int(frame.ReadU8(code)))
	case classfile.OpLstore, classfile.OpDstore:
		return it.doStore(frame, kindWide, int(frame.ReadU8(code)))
	case classfile.OpIstore0, classfile.OpFstore0, classfile.OpAstore0:
		return it.doStore(frame, kindSingle, 0)
	case classfile.OpIstore1, classfile.OpFstore1, classfile.OpAstore1:
		return it.doStore(frame, kindSingle, 1)
	case classfile.OpIstore2, classfile.OpFstore2, classfile.OpAstore2:
		return it.doStore(frame, kindSingle, 2)
	case classfile.OpIstore3, classfile.OpFstore3, classfile.OpAstore3:
		return it.doStore(frame, kindSingle, 3)
	case classfile.OpLstore0, classfile.OpDstore0:
		return it.doStore(frame, kindWide, 0)
	case classfile.OpLstore1, classfile.OpDstore1:
		return it.doStore(frame, kindWide, 1)
	case classfile.OpLstore2, classfile.OpDstore2:
		return it.doStore(frame, kindWide, 2)
	case classfile.OpLstore3, classfile.OpDstore3:
		return it.doStore(frame, kindWide, 3)

	case classfile.OpIaload, classfile.OpFaload, classfile.OpAaload:
		return it.loadArrayWord(frame)
	case classfile.OpLaload, classfile.OpDaload:
		return it.loadArrayWide(frame)
	case classfile.OpBaload:
		return it.loadArrayNarrow(frame, 1, true)
	case classfile.OpCaload:
		return it.loadArrayNarrow(frame, 2, false)
	case classfile.OpSaload:
		return it.loadArrayNarrow(frame, 2, true)

	case classfile.OpIastore, classfile.OpFastore, classfile.OpAastore:
		return it.storeArrayWord(frame)
	case classfile.OpLastore, classfile.OpDastore:
		return it.storeArrayWide(frame)
	case classfile.OpBastore:
		return it.storeArrayNarrow(frame, 1)
	case classfile.OpCastore, classfile.OpSastore:
		return it.storeArrayNarrow(frame, 2)

	case classfile.OpPop:
		frame.Pop()
		return contResult()
	case classfile.OpPop2:
		frame.Pop()
		frame.Pop()
		return contResult()
	case classfile.OpDup:
		return it.doDup(frame)
	case classfile.OpDupX1:
		return it.doDupX1(frame)
	case classfile.OpDupX2:
		return it.doDupX2(frame)
	case classfile.OpDup2:
		return it.doDup2(frame)
	case classfile.OpDup2X1:
		return it.doDup2X1(frame)
	case classfile.OpDup2X2:
		return it.doDup2X2(frame)
	case classfile.OpSwap:
		return it.doSwap(frame)

	case classfile.OpIadd:
		b, a := frame.Pop().Int32(), frame.Pop().Int32()
		frame.Push(FromInt32(a + b))
		return contResult()
	case classfile.OpIsub:
		b, a := frame.Pop().Int32(), frame.Pop().Int32()
		frame.Push(FromInt32(a - b))
		return contResult()
	case classfile.OpImul:
		b, a := frame.Pop().Int32(), frame.Pop().Int32()
		frame.Push(FromInt32(a * b))
		return contResult()
	case classfile.OpIdiv:
		b, a := frame.Pop().Int32(), frame.Pop().Int32()
		if b == 0 {
			return throwResult(newFault("java/lang/ArithmeticException"))
		}
		frame.Push(FromInt32(a / b))
		return contResult()
	case classfile.OpIrem:
		b, a := frame.Pop().Int32(), frame.Pop().Int32()
		if b == 0 {
			return throwResult(newFault("java/lang/ArithmeticException"))
		}
		frame.Push(FromInt32(a % b))
		return contResult()
	case classfile.OpIneg:
		frame.Push(FromInt32(-frame.Pop().Int32()))
		return contResult()
	case classfile.OpIshl:
		b, a := frame.Pop().Int32(), frame.Pop().Int32()
		frame.Push(FromInt32(a << (uint32(b) & 31)))
		return contResult()
	case classfile.OpIshr:
		b, a := frame.Pop().Int32(), frame.Pop().Int32()
		frame.Push(FromInt32(a >> (uint32(b) & 31)))
		return contResult()
	case classfile.OpIushr:
		b, a := frame.Pop().Int32(), frame.Pop().Int32()
		frame.Push(FromInt32(int32(uint32(a) >> (uint32(b) & 31))))
		return contResult()
	case classfile.OpIand:
		b, a := frame.Pop().Int32(), frame.Pop().Int32()
		frame.Push(FromInt32(a & b))
		return contResult()
	case classfile.OpIor:
		b, a := frame.Pop().Int32(), frame.Pop().Int32()
		frame.Push(FromInt32(a | b))
		return contResult()
	case classfile.OpIxor:
		b, a := frame.Pop().Int32(), frame.Pop().Int32()
		frame.Push(FromInt32(a ^ b))
		return contResult()

	case classfile.OpLadd:
		b, a := it.popLong(frame), it.popLong(frame)
		it.pushLong(frame, a+b)
		return contResult()
	case classfile.OpLsub:
		b, a := it.popLong(frame), it.popLong(frame)
		it.pushLong(frame, a-b)
		return contResult()
	case classfile.OpLmul:
		b, a := it.popLong(frame), it.popLong(frame)
		it.pushLong(frame, a*b)
		return contResult()
	case classfile.OpLdiv:
		b, a := it.popLong(frame), it.popLong(frame)
		if b == 0 {
			return throwResult(newFault("java/lang/ArithmeticException"))
		}
		it.pushLong(frame, a/b)
		return contResult()
	case classfile.OpLrem:
		b, a := it.popLong(frame), it.popLong(frame)
		if b == 0 {
			return throwResult(newFault("java/lang/ArithmeticException"))
		}
		it.pushLong(frame, a%b)
		return contResult()
	case classfile.OpLneg:
		it.pushLong(frame, -it.popLong(frame))
		return contResult()
	case classfile.OpLshl:
		b := frame.Pop().Int32()
		a := it.popLong(frame)
		it.pushLong(frame, a<<(uint32(b)&63))
		return contResult()
	case classfile.OpLshr:
		b := frame.Pop().Int32()
		a := it.popLong(frame)
		it.pushLong(frame, a>>(uint32(b)&63))
		return contResult()
	case classfile.OpLushr:
		b := frame.Pop().Int32()
		a := it.popLong(frame)
		it.pushLong(frame, int64(uint64(a)>>(uint32(b)&63)))
		return contResult()
	case classfile.OpLand:
		b, a := it.popLong(frame), it.popLong(frame)
		it.pushLong(frame, a&b)
		return contResult()
	case classfile.OpLor:
		b, a := it.popLong(frame), it.popLong(frame)
		it.pushLong(frame, a|b)
		return contResult()
	case classfile.OpLxor:
		b, a := it.popLong(frame), it.popLong(frame)
		it.pushLong(frame, a^b)
		return contResult()

	case classfile.OpFadd:
		b, a := frame.Pop().Float32(), frame.Pop().Float32()
		frame.Push(FromFloat32(a + b))
		return contResult()
	case classfile.OpFsub:
		b, a := frame.Pop().Float32(), frame.Pop().Float32()
		frame.Push(FromFloat32(a - b))
		return contResult()
	case classfile.OpFmul:
		b, a := frame.Pop().Float32(), frame.Pop().Float32()
		frame.Push(FromFloat32(a * b))
		return contResult()
	case classfile.OpFdiv:
		b, a := frame.Pop().Float32(), frame.Pop().Float32()
		frame.Push(FromFloat32(a / b))
		return contResult()
	case classfile.OpFrem:
		b, a := frame.Pop().Float32(), frame.Pop().Float32()
		frame.Push(FromFloat32(float32(math.Mod(float64(a), float64(b)))))
		return contResult()
	case classfile.OpFneg:
		frame.Push(FromFloat32(-frame.Pop().Float32()))
		return contResult()

	case classfile.OpDadd:
		b, a := it.popDouble(frame), it.popDouble(frame)
		it.pushDouble(frame, a+b)
		return contResult()
	case classfile.OpDsub:
		b, a := it.popDouble(frame), it.popDouble(frame)
		it.pushDouble(frame, a-b)
		return contResult()
	case classfile.OpDmul:
		b, a := it.popDouble(frame), it.popDouble(frame)
		it.pushDouble(frame, a*b)
		return contResult()
	case classfile.OpDdiv:
		b, a := it.popDouble(frame), it.popDouble(frame)
		it.pushDouble(frame, a/b)
		return contResult()
	case classfile.OpDrem:
		b, a := it.popDouble(frame), it.popDouble(frame)
		it.pushDouble(frame, math.Mod(a, b))
		return contResult()
	case classfile.OpDneg:
		it.pushDouble(frame, -it.popDouble(frame))
		return contResult()

	case classfile.OpIinc:
		index := int(frame.ReadU8(code))
		delta := frame.ReadI8(code)
		v := frame.GetLocal(index).Int32()
		frame.SetLocal(index, FromInt32(v+int32(delta)))
		return contResult()

	case classfile.OpI2l:
		it.pushLong(frame, int64(frame.Pop().Int32()))
		return contResult()
	case classfile.OpI2f:
		frame.Push(FromFloat32(float32(frame.Pop().Int32())))
		return contResult()
	case classfile.OpI2d:
		it.pushDouble(frame, float64(frame.Pop().Int32()))
		return contResult()
	case classfile.OpL2i:
		frame.Push(FromInt32(int32(it.popLong(frame))))
		return contResult()
	case classfile.OpL2f:
		frame.Push(FromFloat32(float32(it.popLong(frame))))
		return contResult()
	case classfile.OpL2d:
		it.pushDouble(frame, float64(it.popLong(frame)))
		return contResult()
	case classfile.OpF2i:
		frame.Push(FromInt32(floatToInt32(frame.Pop().Float32())))
		return contResult()
	case classfile.OpF2l:
		it.pushLong(frame, floatToInt64(frame.Pop().Float32()))
		return contResult()
	case classfile.OpF2d:
		it.pushDouble(frame, float64(frame.Pop().Float32()))
		return contResult()
	case classfile.OpD2i:
		frame.Push(FromInt32(doubleToInt32(it.popDouble(frame))))
		return contResult()
	case classfile.OpD2l:
		it.pushLong(frame, doubleToInt64(it.popDouble(frame)))
		return contResult()
	case classfile.OpD2f:
		frame.Push(FromFloat32(float32(it.popDouble(frame))))
		return contResult()
	case classfile.OpI2b:
		frame.Push(FromInt32(int32(int8(frame.Pop().Int32()))))
		return contResult()
	case classfile.OpI2c:
		frame.Push(FromInt32(int32(uint16(frame.Pop().Int32()))))
		return contResult()
	case classfile.OpI2s:
		frame.Push(FromInt32(int32(int16(frame.Pop().Int32()))))
		return contResult()

	case classfile.OpLcmp:
		b, a := it.popLong(frame), it.popLong(frame)
		switch {
		case a > b:
			frame.Push(FromInt32(1))
		case a < b:
			frame.Push(FromInt32(-1))
		default:
			frame.Push(FromInt32(0))
		}
		return contResult()
	case classfile.OpFcmpl:
		b, a := frame.Pop().Float32(), frame.Pop().Float32()
		frame.Push(FromInt32(floatCompare(a, b, -1)))
		return contResult()
	case classfile.OpFcmpg:
		b, a := frame.Pop().Float32(), frame.Pop().Float32()
		frame.Push(FromInt32(floatCompare(a, b, 1)))
		return contResult()
	case classfile.OpDcmpl:
		b, a := it.popDouble(frame), it.popDouble(frame)
		frame.Push(FromInt32(doubleCompare(a, b, -1)))
		return contResult()
	case classfile.OpDcmpg:
		b, a := it.popDouble(frame), it.popDouble(frame)
		frame.Push(FromInt32(doubleCompare(a, b, 1)))
		return contResult()

	case classfile.OpIfeq, classfile.OpIfne, classfile.OpIflt, classfile.OpIfge, classfile.OpIfgt, classfile.OpIfle:
		offset := frame.ReadI16(code)
		v := frame.Pop().Int32()
		if intCmpTrue(opcode, v, 0) {
			frame.PC = opStart + int(offset)
		}
		return contResult()
	case classfile.OpIfIcmpeq, classfile.OpIfIcmpne, classfile.OpIfIcmplt,
		classfile.OpIfIcmpge, classfile.OpIfIcmpgt, classfile.OpIfIcmple:
		offset := frame.ReadI16(code)
		b, a := frame.Pop().Int32(), frame.Pop().Int32()
		if intCmpTrue(opcode-(classfile.OpIfIcmpeq-classfile.OpIfeq), a, b) {
			frame.PC = opStart + int(offset)
		}
		return contResult()
	case classfile.OpIfAcmpeq:
		offset := frame.ReadI16(code)
		b, a := frame.Pop(), frame.Pop()
		if a == b {
			frame.PC = opStart + int(offset)
		}
		return contResult()
	case classfile.OpIfAcmpne:
		offset := frame.ReadI16(code)
		b, a := frame.Pop(), frame.Pop()
		if a != b {
			frame.PC = opStart + int(offset)
		}
		return contResult()
	case classfile.OpIfnull:
		offset := frame.ReadI16(code)
		if frame.Pop().IsNull() {
			frame.PC = opStart + int(offset)
		}
		return contResult()
	case classfile.OpIfnonnull:
		offset := frame.ReadI16(code)
		if !frame.Pop().IsNull() {
			frame.PC = opStart + int(offset)
		}
		return contResult()
	case classfile.OpGoto:
		offset := frame.ReadI16(code)
		frame.PC = opStart + int(offset)
		return contResult()
	case classfile.OpGotoW:
		offset := frame.ReadI32(code)
		frame.PC = opStart + int(offset)
		return contResult()
	case classfile.OpJsr:
		offset := frame.ReadI16(code)
		frame.Push(FromInt32(int32(frame.PC)))
		frame.PC = opStart + int(offset)
		return contResult()
	case classfile.OpJsrW:
		offset := frame.ReadI32(code)
		frame.Push(FromInt32(int32(frame.PC)))
		frame.PC = opStart + int(offset)
		return contResult()
	case classfile.OpRet:
		index := int(frame.ReadU8(code))
		frame.PC = int(frame.GetLocal(index).Int32())
		return contResult()

	case classfile.OpTableswitch:
		return it.doTableswitch(frame, md, code, opStart)
	case classfile.OpLookupswitch:
		return it.doLookupswitch(frame, md, code, opStart)
	case classfile.OpWide:
		return it.doWide(frame, code)

	case classfile.OpIreturn, classfile.OpFreturn, classfile.OpAreturn:
		return returnResult(frame.Pop())
	case classfile.OpLreturn, classfile.OpDreturn:
		hi, lo := frame.Pop(), frame.Pop()
		return returnResult(lo, hi)
	case classfile.OpReturn:
		return returnResult()

	case classfile.OpGetstatic:
		return it.doGetStatic(frame, frame.ReadU16(code))
	case classfile.OpPutstatic:
		return it.doPutStatic(frame, frame.ReadU16(code))
	case classfile.OpGetfield:
		return it.doGetField(frame, frame.ReadU16(code))
	case classfile.OpPutfield:
		return it.doPutField(frame, frame.ReadU16(code))

	case classfile.OpInvokevirtual:
		return it.doInvokeVirtual(frame, frame.ReadU16(code))
	case classfile.OpInvokespecial:
		return it.doInvokeSpecial(frame, frame.ReadU16(code))
	case classfile.OpInvokestatic:
		return it.doInvokeStatic(frame, frame.ReadU16(code))
	case classfile.OpInvokeinterface:
		index := frame.ReadU16(code)
		frame.ReadU8(code) // count: redundant with the resolved descriptor, not needed
		frame.ReadU8(code) // reserved
		return it.doInvokeVirtual(frame, index)
	case classfile.OpInvokedynamic:
		frame.ReadU16(code) // bootstrap/call-site index, decoded but unused
		frame.ReadU8(code)  // reserved
		frame.ReadU8(code)  // reserved
		return faultResult(ErrLinkageError)

	case classfile.OpNew:
		return it.doNew(frame, frame.ReadU16(code))
	case classfile.OpNewarray:
		return it.doNewarray(frame, frame.ReadU8(code))
	case classfile.OpAnewarray:
		frame.ReadU16(code) // element type's class index: every reference slot is word-sized regardless
		return it.doAnewarray(frame)
	case classfile.OpMultianewarray:
		frame.ReadU16(code)
		dims := frame.ReadU8(code)
		return it.doMultianewarray(frame, dims)
	case classfile.OpArraylength:
		return it.doArraylength(frame)

	case classfile.OpAthrow:
		return it.doAthrow(frame)
	case classfile.OpCheckcast:
		return it.doCheckcast(frame, frame.ReadU16(code))
	case classfile.OpInstanceof:
		return it.doInstanceof(frame, frame.ReadU16(code))

	case classfile.OpMonitorenter, classfile.OpMonitorexit:
		frame.Pop()
		return contResult()

	default:
		return faultResult(ErrReservedInstruction)
	}
}
