package native

import "github.com/daimatz/classvm/pkg/vm"

func init() {
	vm.RegisterBuiltin("java/lang/Class", registerClass)
}

// registerClass builds java/lang/Class, the class-object type
// Object.getClass() returns (spec §4.6 item 1, §4.8). It declares no
// methods of its own -- equals/hashCode/toString/<init> are inherited
// from java/lang/Object through the super chain -- and its only
// instance data is the one word vm.ClassObject writes: the classID it
// represents.
func registerClass(rt *vm.Runtime) *vm.LoadedClass {
	objID, err := rt.Load("java/lang/Object")
	if err != nil {
		panic("native: java/lang/Object failed to register: " + err.Error())
	}
	return &vm.LoadedClass{
		SuperID:      int32(objID),
		InstanceSize: 4,
		Fields:       vm.NewMemberTable(),
		StaticFields: vm.NewMemberTable(),
		Methods:      vm.NewMemberTable(),
		MethodDefs:   nil,
	}
}
