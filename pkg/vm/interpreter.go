package vm

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/daimatz/classvm/pkg/classfile"
)

// Interpreter runs loaded bytecode against a Runtime's heap/statics/code
// arenas (spec §4.7). Every frame of one call chain shares a single
// growable operand+local stack (frame.go); invocation nesting itself
// rides on Go's own call stack -- callMethod calls itself recursively
// for invoke* -- while the spec's explicit return-link stack
// (ReturnLink) is still pushed/popped around every call, so the data
// model spec §3 describes is genuinely present, not just implied by the
// Go call stack.
type Interpreter struct {
	rt    *Runtime
	stack []Value
	links []ReturnLink
	log   *zap.SugaredLogger
}

// NewInterpreter builds an Interpreter over rt. Pass zap.NewNop().Sugar()
// for silent operation.
func NewInterpreter(rt *Runtime, log *zap.SugaredLogger) *Interpreter {
	return &Interpreter{rt: rt, log: log}
}

// execKind is what one opcode handler reports back to callMethod's
// dispatch loop.
type execKind int

const (
	execContinue execKind = iota
	execReturn
	execThrow
	execFault
)

type execResult struct {
	kind   execKind
	values []Value // execReturn: 0, 1 (single-word) or 2 (long/double) words
	thrown *ThrownException
	err    error
}

func contResult() execResult                   { return execResult{kind: execContinue} }
func returnResult(v ...Value) execResult        { return execResult{kind: execReturn, values: v} }
func throwResult(t *ThrownException) execResult { return execResult{kind: execThrow, thrown: t} }
func faultResult(err error) execResult          { return execResult{kind: execFault, err: err} }

// RunMain resolves and executes classpath's main([Ljava/lang/String;)V
// (spec §6), building a String[] out of args.
func (it *Interpreter) RunMain(classpath string, args []string) error {
	classID, err := it.rt.Load(classpath)
	if err != nil {
		return errors.Wrapf(err, "loading %s", classpath)
	}
	lc := it.rt.Class(classID)
	md := lc.FindMethod("main", "([Ljava/lang/String;)V")
	if md == nil {
		return errors.Wrapf(ErrLinkageError, "%s has no main([Ljava/lang/String;)V", classpath)
	}

	argv, err := it.allocStringArray(args)
	if err != nil {
		return err
	}
	_, thrown, err := it.callMethod(classID, md, []Value{argv})
	if err != nil {
		return err
	}
	if thrown != nil {
		return errors.Wrapf(ErrUncaughtException, "%s", thrown.ClassName)
	}
	return nil
}

func (it *Interpreter) allocStringArray(args []string) (Value, error) {
	arr := AllocArray(it.rt, uint32(len(args)), 4)
	for i, s := range args {
		offset := it.rt.Statics.AllocString(s)
		strVal, err := it.rt.NewStringFromStatic(offset)
		if err != nil {
			return NullValue, err
		}
		it.rt.Heap.WriteValue(arrayElementOffset(arr, uint32(i), 4), strVal)
	}
	return arr, nil
}

// callMethod is the invocation/return protocol of spec §4.7 (doCall has
// already pushed a return link describing the caller): open max_locals
// slots beyond the args already pushed, run until a return or an unhandled exception
// escapes this frame, then restore the shared stack to its depth on
// entry. Exception-table scanning (spec §9 "Exception handling") is
// retried at this level on every fault or propagated throw before
// giving up and handing it to our own caller.
func (it *Interpreter) callMethod(classID uint32, md *MethodDef, args []Value) (ret []Value, thrown *ThrownException, err error) {
	it.log.Debugw("invoking method", "class", classID, "method", md.Name+md.Descriptor)
	if md.Native != nil {
		vals, nerr := md.Native(it.rt, args)
		if nerr != nil {
			if te, ok := nerr.(*ThrownException); ok {
				return nil, te, nil
			}
			return nil, nil, nerr
		}
		return vals, nil, nil
	}
	if md.Abstract || md.CodeLen == 0 {
		return nil, nil, errors.Wrapf(ErrLinkageError, "no code for %s%s", md.Name, md.Descriptor)
	}

	fp := len(it.stack)
	it.stack = append(it.stack, args...)
	for len(it.stack) < fp+int(md.MaxLocals) {
		it.stack = append(it.stack, NullValue)
	}
	frame := &Frame{Stack: &it.stack, FP: fp, MaxLocals: md.MaxLocals, Class: classID, PC: int(md.CodeStart), Links: &it.links}
	defer func() { it.stack = it.stack[:fp] }()

	codeEnd := int(md.CodeStart + md.CodeLen)
	for {
		if frame.PC >= codeEnd {
			return nil, nil, nil
		}
		opStart := frame.PC
		opcode := it.rt.Code[frame.PC]
		frame.PC++

		res := it.safeExec(frame, md, opcode, opStart)
		switch res.kind {
		case execContinue:
			continue
		case execReturn:
			return res.values, nil, nil
		case execFault:
			return nil, nil, res.err
		case execThrow:
			h := findHandler(md, it.rt, uint32(opStart), res.thrown)
			if h == nil {
				return nil, res.thrown, nil
			}
			*frame.Stack = (*frame.Stack)[:frame.FP+int(frame.MaxLocals)]
			frame.Push(res.thrown.Value)
			frame.PC = int(h.HandlerPC)
		}
	}
}

// safeExec recovers a panic from Frame.Pop/GetLocal/SetLocal (stack
// underflow or out-of-bounds local access) into a fault, matching spec
// §7: these are VM-fatal, not Java-catchable.
func (it *Interpreter) safeExec(frame *Frame, md *MethodDef, opcode byte, opStart int) (r execResult) {
	defer func() {
		if p := recover(); p != nil {
			if e, ok := p.(error); ok {
				r = faultResult(e)
			} else {
				r = faultResult(errors.Errorf("interpreter panic: %v", p))
			}
		}
	}()
	return it.exec(frame, md, opcode, opStart)
}

func (it *Interpreter) popN(frame *Frame, n int) []Value {
	vals := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		vals[i] = frame.Pop()
	}
	return vals
}

func (it *Interpreter) popLong(frame *Frame) int64 {
	hi := frame.Pop()
	lo := frame.Pop()
	return UnpackLong(lo, hi)
}

func (it *Interpreter) pushLong(frame *Frame, x int64) {
	lo, hi := PackLong(x)
	frame.Push(lo)
	frame.Push(hi)
}

func (it *Interpreter) popDouble(frame *Frame) float64 {
	hi := frame.Pop()
	lo := frame.Pop()
	return UnpackFloat64(lo, hi)
}

func (it *Interpreter) pushDouble(frame *Frame, x float64) {
	lo, hi := PackFloat64(x)
	frame.Push(lo)
	frame.Push(hi)
}

// --- method resolution & invocation -----------------------------------

// resolveMethodStatic walks the super chain for a statically-bound
// lookup (invokestatic, invokespecial): unlike invokevirtual/
// invokeinterface it never considers the dynamic class of a receiver.
func (it *Interpreter) resolveMethodStatic(classID uint32, name, descriptor string) (uint32, *MethodDef) {
	id := classID
	for {
		lc := it.rt.Class(id)
		if md := lc.FindMethod(name, descriptor); md != nil {
			return id, md
		}
		if lc.SuperID < 0 {
			return 0, nil
		}
		id = uint32(lc.SuperID)
	}
}

// argSlotsFor finds how many argument words (name, descriptor) takes,
// preferring the declaring class's own MethodDef (present even for
// abstract interface methods) and falling back to parsing descriptor
// directly for an inherited-only member.
func (it *Interpreter) argSlotsFor(className, name, descriptor string) (int, error) {
	declID, err := it.rt.Load(className)
	if err != nil {
		return 0, err
	}
	if md := it.rt.Class(declID).FindMethod(name, descriptor); md != nil {
		return md.ArgSlotCount, nil
	}
	parsed, err := classfile.ParseMethodDescriptor([]byte(descriptor))
	if err != nil {
		return 0, err
	}
	return parsed.ArgSlotCount(), nil
}

// doCall pushes a return link for bookkeeping, recurses into
// callMethod, and either pushes the result(s) or turns a propagated
// exception/fault into an execResult for the caller's dispatch loop.
func (it *Interpreter) doCall(frame *Frame, ownerID uint32, md *MethodDef, args []Value) execResult {
	it.links = append(it.links, ReturnLink{CallerClass: frame.Class, CallerFP: frame.FP, CallerPC: frame.PC, CallerMaxLocals: frame.MaxLocals})
	vals, thrown, err := it.callMethod(ownerID, md, args)
	it.links = it.links[:len(it.links)-1]
	if err != nil {
		return faultResult(err)
	}
	if thrown != nil {
		return throwResult(thrown)
	}
	for _, v := range vals {
		frame.Push(v)
	}
	return contResult()
}

func (it *Interpreter) doInvokeStatic(frame *Frame, index uint16) execResult {
	lc := it.rt.Class(frame.Class)
	className, name, descriptor := it.rt.ResolveRef(lc, index)
	ownerID, err := it.rt.Load(className)
	if err != nil {
		return faultResult(err)
	}
	targetID, md := it.resolveMethodStatic(ownerID, name, descriptor)
	if md == nil {
		return faultResult(errors.Wrapf(ErrLinkageError, "no such static method %s.%s%s", className, name, descriptor))
	}
	args := it.popN(frame, md.ArgSlotCount)
	return it.doCall(frame, targetID, md, args)
}

func (it *Interpreter) doInvokeSpecial(frame *Frame, index uint16) execResult {
	lc := it.rt.Class(frame.Class)
	className, name, descriptor := it.rt.ResolveRef(lc, index)
	ownerID, err := it.rt.Load(className)
	if err != nil {
		return faultResult(err)
	}
	targetID, md := it.resolveMethodStatic(ownerID, name, descriptor)
	if md == nil {
		return faultResult(errors.Wrapf(ErrLinkageError, "no such method %s.%s%s", className, name, descriptor))
	}
	args := it.popN(frame, md.ArgSlotCount+1)
	if args[0].IsNull() {
		return throwResult(newFault("java/lang/NullPointerException"))
	}
	return it.doCall(frame, targetID, md, args)
}

// doInvokeVirtual serves both invokevirtual and invokeinterface: the
// only difference between them is immediate-byte shape, decoded by the
// caller in instructions.go. Dispatch walks the receiver's dynamic
// class-id chain (spec §9's redesign) via Runtime.ResolveVirtual.
func (it *Interpreter) doInvokeVirtual(frame *Frame, index uint16) execResult {
	lc := it.rt.Class(frame.Class)
	className, name, descriptor := it.rt.ResolveRef(lc, index)
	n, err := it.argSlotsFor(className, name, descriptor)
	if err != nil {
		return faultResult(err)
	}
	args := it.popN(frame, n+1)
	receiver := args[0]
	if receiver.IsNull() {
		return throwResult(newFault("java/lang/NullPointerException"))
	}
	dynClassID := ObjectClassID(it.rt, receiver)
	ownerID, md := it.rt.ResolveVirtual(dynClassID, name, descriptor)
	if md == nil {
		return faultResult(errors.Wrapf(ErrLinkageError, "no such virtual method %s.%s%s", className, name, descriptor))
	}
	return it.doCall(frame, ownerID, md, args)
}

// --- field access -------------------------------------------------------

func fieldUnitSize(descriptor string) int {
	fd, _, err := classfile.ParseFieldDescriptor([]byte(descriptor))
	if err != nil {
		return 1
	}
	return fd.UnitSize()
}

func (it *Interpreter) doGetField(frame *Frame, index uint16) execResult {
	lc := it.rt.Class(frame.Class)
	className, name, descriptor := it.rt.ResolveRef(lc, index)
	ownerID, err := it.rt.Load(className)
	if err != nil {
		return faultResult(err)
	}
	offset, ok := it.rt.Class(ownerID).Fields.Get(name, descriptor)
	if !ok {
		return faultResult(errors.Wrapf(ErrLinkageError, "no such field %s.%s", className, name))
	}
	objRef := frame.Pop()
	if objRef.IsNull() {
		return throwResult(newFault("java/lang/NullPointerException"))
	}
	base := objRef.HeapOffset() + uint32(offset)
	if fieldUnitSize(descriptor) == 2 {
		frame.Push(it.rt.Heap.ReadValue(base))
		frame.Push(it.rt.Heap.ReadValue(base + 4))
	} else {
		frame.Push(it.rt.Heap.ReadValue(base))
	}
	return contResult()
}

func (it *Interpreter) doPutField(frame *Frame, index uint16) execResult {
	lc := it.rt.Class(frame.Class)
	className, name, descriptor := it.rt.ResolveRef(lc, index)
	ownerID, err := it.rt.Load(className)
	if err != nil {
		return faultResult(err)
	}
	offset, ok := it.rt.Class(ownerID).Fields.Get(name, descriptor)
	if !ok {
		return faultResult(errors.Wrapf(ErrLinkageError, "no such field %s.%s", className, name))
	}
	wide := fieldUnitSize(descriptor) == 2
	var hi, lo Value
	if wide {
		hi = frame.Pop()
		lo = frame.Pop()
	} else {
		lo = frame.Pop()
	}
	objRef := frame.Pop()
	if objRef.IsNull() {
		return throwResult(newFault("java/lang/NullPointerException"))
	}
	base := objRef.HeapOffset() + uint32(offset)
	it.rt.Heap.WriteValue(base, lo)
	if wide {
		it.rt.Heap.WriteValue(base+4, hi)
	}
	return contResult()
}

// resolveStaticField walks the super chain: static fields aren't copied
// into a subclass's StaticFields table the way instance fields are
// (classloader.go's inheritFields only copies Fields), so getstatic via
// a subclass name needs its own chain walk.
func (it *Interpreter) resolveStaticField(classID uint32, name, descriptor string) (uint32, bool) {
	id := classID
	for {
		lc := it.rt.Class(id)
		if off, ok := lc.StaticFields.Get(name, descriptor); ok {
			return uint32(off), true
		}
		if lc.SuperID < 0 {
			return 0, false
		}
		id = uint32(lc.SuperID)
	}
}

func (it *Interpreter) doGetStatic(frame *Frame, index uint16) execResult {
	lc := it.rt.Class(frame.Class)
	className, name, descriptor := it.rt.ResolveRef(lc, index)
	ownerID, err := it.rt.Load(className)
	if err != nil {
		return faultResult(err)
	}
	offset, ok := it.resolveStaticField(ownerID, name, descriptor)
	if !ok {
		return faultResult(errors.Wrapf(ErrLinkageError, "no such static field %s.%s", className, name))
	}
	if fieldUnitSize(descriptor) == 2 {
		frame.Push(it.rt.Statics.ReadValue(offset))
		frame.Push(it.rt.Statics.ReadValue(offset + 4))
	} else {
		frame.Push(it.rt.Statics.ReadValue(offset))
	}
	return contResult()
}

func (it *Interpreter) doPutStatic(frame *Frame, index uint16) execResult {
	lc := it.rt.Class(frame.Class)
	className, name, descriptor := it.rt.ResolveRef(lc, index)
	ownerID, err := it.rt.Load(className)
	if err != nil {
		return faultResult(err)
	}
	offset, ok := it.resolveStaticField(ownerID, name, descriptor)
	if !ok {
		return faultResult(errors.Wrapf(ErrLinkageError, "no such static field %s.%s", className, name))
	}
	wide := fieldUnitSize(descriptor) == 2
	var hi, lo Value
	if wide {
		hi = frame.Pop()
		lo = frame.Pop()
	} else {
		lo = frame.Pop()
	}
	it.rt.Statics.WriteValue(offset, lo)
	if wide {
		it.rt.Statics.WriteValue(offset+4, hi)
	}
	return contResult()
}

// --- object/array allocation --------------------------------------------

func (it *Interpreter) doNew(frame *Frame, index uint16) execResult {
	lc := it.rt.Class(frame.Class)
	className := it.rt.ResolveClassName(lc, index)
	classID, err := it.rt.Load(className)
	if err != nil {
		return faultResult(err)
	}
	target := it.rt.Class(classID)
	frame.Push(AllocObject(it.rt, classID, target.InstanceSize))
	return contResult()
}

func arrayElemSize(atype uint8) uint32 {
	switch atype {
	case classfile.ATBoolean, classfile.ATByte:
		return 1
	case classfile.ATChar, classfile.ATShort:
		return 2
	case classfile.ATFloat, classfile.ATInt:
		return 4
	case classfile.ATDouble, classfile.ATLong:
		return 8
	default:
		return 4
	}
}

func (it *Interpreter) doNewarray(frame *Frame, atype uint8) execResult {
	count := frame.Pop().Int32()
	if count < 0 {
		return throwResult(newFault("java/lang/NegativeArraySizeException"))
	}
	frame.Push(AllocArray(it.rt, uint32(count), arrayElemSize(atype)))
	return contResult()
}

func (it *Interpreter) doAnewarray(frame *Frame) execResult {
	count := frame.Pop().Int32()
	if count < 0 {
		return throwResult(newFault("java/lang/NegativeArraySizeException"))
	}
	frame.Push(AllocArray(it.rt, uint32(count), 4))
	return contResult()
}

// allocMultiArray recurses dimension by dimension; every slot (including
// the innermost primitive element, whatever its declared type) is
// word-sized.
func (it *Interpreter) allocMultiArray(counts []int32) Value {
	n := uint32(counts[0])
	arr := AllocArray(it.rt, n, 4)
	if len(counts) == 1 {
		return arr
	}
	for i := uint32(0); i < n; i++ {
		sub := it.allocMultiArray(counts[1:])
		it.rt.Heap.WriteValue(arrayElementOffset(arr, i, 4), sub)
	}
	return arr
}

func (it *Interpreter) doMultianewarray(frame *Frame, dims uint8) execResult {
	counts := make([]int32, dims)
	for i := int(dims) - 1; i >= 0; i-- {
		counts[i] = frame.Pop().Int32()
		if counts[i] < 0 {
			return throwResult(newFault("java/lang/NegativeArraySizeException"))
		}
	}
	frame.Push(it.allocMultiArray(counts))
	return contResult()
}

func (it *Interpreter) doArraylength(frame *Frame) execResult {
	ref := frame.Pop()
	if ref.IsNull() {
		return throwResult(newFault("java/lang/NullPointerException"))
	}
	frame.Push(FromInt32(int32(ArrayLength(it.rt, ref))))
	return contResult()
}

func (it *Interpreter) arrayBoundsCheck(ref Value, index int32) *ThrownException {
	if ref.IsNull() {
		return newFault("java/lang/NullPointerException")
	}
	if index < 0 || uint32(index) >= ArrayLength(it.rt, ref) {
		return newFault("java/lang/ArrayIndexOutOfBoundsException")
	}
	return nil
}

func (it *Interpreter) loadArrayWord(frame *Frame) execResult {
	index := frame.Pop().Int32()
	ref := frame.Pop()
	if t := it.arrayBoundsCheck(ref, index); t != nil {
		return throwResult(t)
	}
	frame.Push(it.rt.Heap.ReadValue(arrayElementOffset(ref, uint32(index), 4)))
	return contResult()
}

func (it *Interpreter) storeArrayWord(frame *Frame) execResult {
	value := frame.Pop()
	index := frame.Pop().Int32()
	ref := frame.Pop()
	if t := it.arrayBoundsCheck(ref, index); t != nil {
		return throwResult(t)
	}
	it.rt.Heap.WriteValue(arrayElementOffset(ref, uint32(index), 4), value)
	return contResult()
}

func (it *Interpreter) loadArrayWide(frame *Frame) execResult {
	index := frame.Pop().Int32()
	ref := frame.Pop()
	if t := it.arrayBoundsCheck(ref, index); t != nil {
		return throwResult(t)
	}
	off := arrayElementOffset(ref, uint32(index), 8)
	frame.Push(it.rt.Heap.ReadValue(off))
	frame.Push(it.rt.Heap.ReadValue(off + 4))
	return contResult()
}

func (it *Interpreter) storeArrayWide(frame *Frame) execResult {
	hi := frame.Pop()
	lo := frame.Pop()
	index := frame.Pop().Int32()
	ref := frame.Pop()
	if t := it.arrayBoundsCheck(ref, index); t != nil {
		return throwResult(t)
	}
	off := arrayElementOffset(ref, uint32(index), 8)
	it.rt.Heap.WriteValue(off, lo)
	it.rt.Heap.WriteValue(off+4, hi)
	return contResult()
}

func (it *Interpreter) loadArrayNarrow(frame *Frame, elemSize uint32, signed bool) execResult {
	index := frame.Pop().Int32()
	ref := frame.Pop()
	if t := it.arrayBoundsCheck(ref, index); t != nil {
		return throwResult(t)
	}
	off := arrayElementOffset(ref, uint32(index), elemSize)
	var v int32
	switch elemSize {
	case 1:
		b := it.rt.Heap.ReadU8(off)
		if signed {
			v = int32(int8(b))
		} else {
			v = int32(b)
		}
	case 2:
		h := it.rt.Heap.ReadU16(off)
		if signed {
			v = int32(int16(h))
		} else {
			v = int32(h)
		}
	}
	frame.Push(FromInt32(v))
	return contResult()
}

func (it *Interpreter) storeArrayNarrow(frame *Frame, elemSize uint32) execResult {
	value := frame.Pop().Int32()
	index := frame.Pop().Int32()
	ref := frame.Pop()
	if t := it.arrayBoundsCheck(ref, index); t != nil {
		return throwResult(t)
	}
	off := arrayElementOffset(ref, uint32(index), elemSize)
	switch elemSize {
	case 1:
		it.rt.Heap.WriteU8(off, uint8(value))
	case 2:
		it.rt.Heap.WriteU16(off, uint16(value))
	}
	return contResult()
}

// --- type checks, throw, constant loading -------------------------------

func (it *Interpreter) doCheckcast(frame *Frame, index uint16) execResult {
	lc := it.rt.Class(frame.Class)
	className := it.rt.ResolveClassName(lc, index)
	ref := frame.Peek()
	if ref.IsNull() {
		return contResult()
	}
	if !it.rt.IsInstanceOf(ObjectClassID(it.rt, ref), className) {
		return throwResult(newFault("java/lang/ClassCastException"))
	}
	return contResult()
}

func (it *Interpreter) doInstanceof(frame *Frame, index uint16) execResult {
	lc := it.rt.Class(frame.Class)
	className := it.rt.ResolveClassName(lc, index)
	ref := frame.Pop()
	if ref.IsNull() {
		frame.Push(FromInt32(0))
		return contResult()
	}
	frame.Push(FromBool(it.rt.IsInstanceOf(ObjectClassID(it.rt, ref), className)))
	return contResult()
}

func (it *Interpreter) doAthrow(frame *Frame) execResult {
	ref := frame.Pop()
	if ref.IsNull() {
		return throwResult(newFault("java/lang/NullPointerException"))
	}
	className := it.rt.Class(ObjectClassID(it.rt, ref)).Name
	return throwResult(&ThrownException{ClassName: className, Value: ref})
}

func (it *Interpreter) doLdc(frame *Frame, index uint16) execResult {
	lc := it.rt.Class(frame.Class)
	switch entry := lc.Source.ConstantPool[index].(type) {
	case *classfile.ConstantInteger:
		frame.Push(FromInt32(entry.Value))
	case *classfile.ConstantFloat:
		frame.Push(FromFloat32(entry.Value))
	case *classfile.ConstantString:
		offset := lc.ConstantPool[entry.StringIndex].Bits()
		v, err := it.rt.NewStringFromStatic(offset)
		if err != nil {
			return faultResult(err)
		}
		frame.Push(v)
	default:
		return faultResult(errors.Wrapf(ErrLinkageError, "unsupported ldc constant at index %d", index))
	}
	return contResult()
}

func (it *Interpreter) doLdc2W(frame *Frame, index uint16) execResult {
	lc := it.rt.Class(frame.Class)
	switch entry := lc.Source.ConstantPool[index].(type) {
	case *classfile.ConstantLong:
		it.pushLong(frame, entry.Value)
	case *classfile.ConstantDouble:
		it.pushDouble(frame, entry.Value)
	default:
		return faultResult(errors.Wrapf(ErrLinkageError, "ldc2_w at index %d is not Long/Double", index))
	}
	return contResult()
}
