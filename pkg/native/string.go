package native

import "github.com/daimatz/classvm/pkg/vm"

func init() {
	vm.RegisterBuiltin("java/lang/String", registerString)
}

// registerString builds java/lang/String per spec §4.8: its own data
// layout is implementer-defined, fixed here (DESIGN.md's open question 3
// explains why) as a single word addressing a [length:u32][UTF-8 bytes]
// heap record -- the same shape the loader's Utf8-constant lowering
// already produces in the statics arena for ldc, so both arenas read
// through the same StringBackingRecord/Length/Bytes helpers. Only
// <init>([B)V and length()I are implemented; spec §4.8 flags String
// methods as "currently absent" and this repo adds just enough to let a
// program construct and measure a String, not a full String API.
func registerString(rt *vm.Runtime) *vm.LoadedClass {
	superID, err := rt.Load("java/lang/Object")
	if err != nil {
		panic("native: java/lang/Object failed to register: " + err.Error())
	}
	methods := vm.NewMemberTable()
	defs := []vm.MethodDef{
		{Name: "<init>", Descriptor: "([B)V", ArgSlotCount: 1, Native: stringInit},
		{Name: "length", Descriptor: "()I", ArgSlotCount: 0, Native: stringLength},
	}
	methods.Put("<init>", "([B)V", 0)
	methods.Put("length", "()I", 1)
	return &vm.LoadedClass{
		SuperID:      int32(superID),
		InstanceSize: 4,
		Fields:       vm.NewMemberTable(),
		StaticFields: vm.NewMemberTable(),
		Methods:      methods,
		MethodDefs:   defs,
	}
}

// byteArrayByte reads element i of a byte[] (elemSize 1, tightly packed
// per spec §3's array layout) addressed by ref.
func byteArrayByte(rt *vm.Runtime, ref vm.Value, i uint32) byte {
	return rt.Heap.ReadU8(ref.HeapOffset() + 4 + i)
}

func stringInit(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	this, bytesRef := args[0], args[1]
	if bytesRef.IsNull() {
		return nil, nullPointer()
	}
	n := vm.ArrayLength(rt, bytesRef)
	buf := make([]byte, n)
	for i := uint32(0); i < n; i++ {
		buf[i] = byteArrayByte(rt, bytesRef, i)
	}
	offset := rt.Heap.AllocString(string(buf))
	rt.Heap.WriteValue(this.HeapOffset(), vm.NewHeapRef(offset))
	return nil, nil
}

func stringLength(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	this := args[0]
	if this.IsNull() {
		return nil, nullPointer()
	}
	record := vm.StringBackingRecord(rt, this)
	return []vm.Value{vm.FromInt32(int32(vm.StringBackingLength(rt, record)))}, nil
}
