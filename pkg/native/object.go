// Package native provides the builtin host classes spec §4.8 scopes
// this implementation to: java/lang/Object, java/lang/Class,
// java/lang/String, java/lang/System, and java/io/PrintStream. Each
// file registers its class with pkg/vm via vm.RegisterBuiltin in an
// init(), following the database/sql driver pattern vm/classloader.go
// documents -- pkg/vm never imports this package, breaking what would
// otherwise be an import cycle (the loader needs these constructors,
// native methods need the loader's Runtime/Value/Arena types).
package native

import (
	"fmt"

	"github.com/daimatz/classvm/pkg/vm"
)

func init() {
	vm.RegisterBuiltin("java/lang/Object", registerObject)
}

func registerObject(rt *vm.Runtime) *vm.LoadedClass {
	methods := vm.NewMemberTable()
	defs := []vm.MethodDef{
		{Name: "<init>", Descriptor: "()V", ArgSlotCount: 0, Native: objectInit},
		{Name: "hashCode", Descriptor: "()I", ArgSlotCount: 0, Native: objectHashCode},
		{Name: "equals", Descriptor: "(Ljava/lang/Object;)Z", ArgSlotCount: 1, Native: objectEquals},
		{Name: "toString", Descriptor: "()Ljava/lang/String;", ArgSlotCount: 0, Native: objectToString},
		{Name: "getClass", Descriptor: "()Ljava/lang/Class;", ArgSlotCount: 0, Native: objectGetClass},
	}
	methods.Put("<init>", "()V", 0)
	methods.Put("hashCode", "()I", 1)
	methods.Put("equals", "(Ljava/lang/Object;)Z", 2)
	methods.Put("toString", "()Ljava/lang/String;", 3)
	methods.Put("getClass", "()Ljava/lang/Class;", 4)
	return &vm.LoadedClass{
		SuperID:      -1,
		InstanceSize: 0,
		Fields:       vm.NewMemberTable(),
		StaticFields: vm.NewMemberTable(),
		Methods:      methods,
		MethodDefs:   defs,
	}
}

func nullPointer() *vm.ThrownException {
	return &vm.ThrownException{ClassName: "java/lang/NullPointerException"}
}

func objectInit(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	return nil, nil
}

// objectHashCode reuses the receiver's own reference bits as its
// identity hash, grounded on original_source's obj_hash_code (which
// pushes `this` unchanged) rather than re-deriving a separate value.
func objectHashCode(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	this := args[0]
	if this.IsNull() {
		return nil, nullPointer()
	}
	return []vm.Value{vm.FromInt32(int32(this))}, nil
}

// objectEquals is reference equality: the default Object.equals before
// any subclass override.
func objectEquals(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	return []vm.Value{vm.FromBool(args[0] == args[1])}, nil
}

// objectGetClass returns the receiver's class-object reference (spec
// §4.8), reusing the class-id header every heap object already carries
// for dynamic dispatch rather than tracking class identity separately.
func objectGetClass(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	this := args[0]
	if this.IsNull() {
		return nil, nullPointer()
	}
	classID := vm.ObjectClassID(rt, this)
	cls, err := rt.ClassObject(classID)
	if err != nil {
		return nil, err
	}
	return []vm.Value{cls}, nil
}

func objectToString(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	this := args[0]
	if this.IsNull() {
		return nil, nullPointer()
	}
	classID := vm.ObjectClassID(rt, this)
	name := rt.Class(classID).Name
	offset := rt.Heap.AllocString(fmt.Sprintf("%s@%x", name, uint32(this)))
	v, err := rt.NewStringFromHeap(offset)
	if err != nil {
		return nil, err
	}
	return []vm.Value{v}, nil
}
