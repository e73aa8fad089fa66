package native

import (
	"fmt"

	"github.com/daimatz/classvm/pkg/vm"
)

func init() {
	vm.RegisterBuiltin("java/io/PrintStream", registerPrintStream)
}

// registerPrintStream builds java/io/PrintStream per spec §4.8,
// supplementing original_source's single println(String) builtin
// (builtin_methods.rs's printstream_println_str) with the per-primitive
// overloads javac actually emits for println/print calls, grounded on
// the teacher's old handlePrintStream descriptor dispatch. A
// PrintStream instance carries no fields of its own -- every instance
// writes to the one Runtime.Stdout target, since spec scope is just
// System.out, not a general java.io.OutputStream wrapper.
func registerPrintStream(rt *vm.Runtime) *vm.LoadedClass {
	superID, err := rt.Load("java/lang/Object")
	if err != nil {
		panic("native: java/lang/Object failed to register: " + err.Error())
	}
	methods := vm.NewMemberTable()
	var defs []vm.MethodDef
	add := func(name, descriptor string, slots int, fn vm.NativeFunc) {
		methods.Put(name, descriptor, uint16(len(defs)))
		defs = append(defs, vm.MethodDef{Name: name, Descriptor: descriptor, ArgSlotCount: slots, Native: fn})
	}

	add("println", "()V", 0, printlnVoid)
	add("println", "(Ljava/lang/String;)V", 1, printlnString)
	add("println", "(I)V", 1, printlnInt)
	add("println", "(J)V", 2, printlnLong)
	add("println", "(F)V", 1, printlnFloat)
	add("println", "(D)V", 2, printlnDouble)
	add("println", "(Z)V", 1, printlnBool)
	add("println", "(C)V", 1, printlnChar)
	add("println", "(Ljava/lang/Object;)V", 1, printlnObject)

	add("print", "(Ljava/lang/String;)V", 1, printString)
	add("print", "(I)V", 1, printInt)
	add("print", "(J)V", 2, printLong)
	add("print", "(F)V", 1, printFloat)
	add("print", "(D)V", 2, printDouble)
	add("print", "(Z)V", 1, printBool)
	add("print", "(C)V", 1, printChar)
	add("print", "(Ljava/lang/Object;)V", 1, printObject)

	return &vm.LoadedClass{
		SuperID:      int32(superID),
		InstanceSize: 0,
		Fields:       vm.NewMemberTable(),
		StaticFields: vm.NewMemberTable(),
		Methods:      methods,
		MethodDefs:   defs,
	}
}

// objectArgText renders a (Ljava/lang/Object;)V argument: the literal
// text of a java/lang/String, "null" for a null reference, and the
// default Object.toString() rendering (class@hash) for anything else --
// this implementation has no general dynamic-dispatch callback from
// native code back into bytecode, so a user-overridden toString() is
// not consulted here.
func objectArgText(rt *vm.Runtime, v vm.Value) string {
	if v.IsNull() {
		return "null"
	}
	classID := vm.ObjectClassID(rt, v)
	if rt.Class(classID).Name == "java/lang/String" {
		return vm.StringBackingBytes(rt, vm.StringBackingRecord(rt, v))
	}
	return fmt.Sprintf("%s@%x", rt.Class(classID).Name, uint32(v))
}

func printlnVoid(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	fmt.Fprintln(rt.Stdout)
	return nil, nil
}

func printlnString(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	s := args[1]
	if s.IsNull() {
		fmt.Fprintln(rt.Stdout, "null")
		return nil, nil
	}
	fmt.Fprintln(rt.Stdout, vm.StringBackingBytes(rt, vm.StringBackingRecord(rt, s)))
	return nil, nil
}

func printString(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	s := args[1]
	if s.IsNull() {
		fmt.Fprint(rt.Stdout, "null")
		return nil, nil
	}
	fmt.Fprint(rt.Stdout, vm.StringBackingBytes(rt, vm.StringBackingRecord(rt, s)))
	return nil, nil
}

func printlnInt(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	fmt.Fprintln(rt.Stdout, args[1].Int32())
	return nil, nil
}

func printInt(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	fmt.Fprint(rt.Stdout, args[1].Int32())
	return nil, nil
}

func printlnLong(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	fmt.Fprintln(rt.Stdout, vm.UnpackLong(args[1], args[2]))
	return nil, nil
}

func printLong(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	fmt.Fprint(rt.Stdout, vm.UnpackLong(args[1], args[2]))
	return nil, nil
}

func printlnFloat(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	fmt.Fprintln(rt.Stdout, args[1].Float32())
	return nil, nil
}

func printFloat(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	fmt.Fprint(rt.Stdout, args[1].Float32())
	return nil, nil
}

func printlnDouble(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	fmt.Fprintln(rt.Stdout, vm.UnpackFloat64(args[1], args[2]))
	return nil, nil
}

func printDouble(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	fmt.Fprint(rt.Stdout, vm.UnpackFloat64(args[1], args[2]))
	return nil, nil
}

func printlnBool(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	fmt.Fprintln(rt.Stdout, args[1].Bool())
	return nil, nil
}

func printBool(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	fmt.Fprint(rt.Stdout, args[1].Bool())
	return nil, nil
}

func printlnChar(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	fmt.Fprintln(rt.Stdout, string(rune(args[1].Int32())))
	return nil, nil
}

func printChar(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	fmt.Fprint(rt.Stdout, string(rune(args[1].Int32())))
	return nil, nil
}

func printlnObject(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	fmt.Fprintln(rt.Stdout, objectArgText(rt, args[1]))
	return nil, nil
}

func printObject(rt *vm.Runtime, args []vm.Value) ([]vm.Value, error) {
	fmt.Fprint(rt.Stdout, objectArgText(rt, args[1]))
	return nil, nil
}
