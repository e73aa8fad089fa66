package native

import "github.com/daimatz/classvm/pkg/vm"

func init() {
	vm.RegisterBuiltin("java/lang/System", registerSystem)
}

// registerSystem builds java/lang/System per spec §4.8 and
// original_source's load_builtin arm: a single static field "out" of
// type java/io/PrintStream, pre-populated at registration time rather
// than by a <clinit> this implementation never triggers (SPEC_FULL.md
// carries no class-initialization model). original_source reserves
// three static stream slots (out/err/in); only "out" has a
// member_table entry there too, so this repo wires just that one --
// System.err/in are not reachable from bytecode either way.
func registerSystem(rt *vm.Runtime) *vm.LoadedClass {
	objID, err := rt.Load("java/lang/Object")
	if err != nil {
		panic("native: java/lang/Object failed to register: " + err.Error())
	}
	psID, err := rt.Load("java/io/PrintStream")
	if err != nil {
		panic("native: java/io/PrintStream failed to register: " + err.Error())
	}

	statics := vm.NewMemberTable()
	offset := rt.Statics.AllocZeroed(4)
	statics.Put("out", "Ljava/io/PrintStream;", uint16(offset))

	out := vm.AllocObject(rt, psID, 0)
	rt.Statics.WriteValue(offset, out)

	return &vm.LoadedClass{
		SuperID:      int32(objID),
		InstanceSize: 0,
		Fields:       vm.NewMemberTable(),
		StaticFields: statics,
		Methods:      vm.NewMemberTable(),
		MethodDefs:   nil,
	}
}
