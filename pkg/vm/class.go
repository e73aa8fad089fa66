package vm

import "github.com/daimatz/classvm/pkg/classfile"

// RtConstant is one packed 32-bit word of a class's runtime constant
// pool (spec §3 "Runtime constant pool"). Its interpretation is
// positional: the opcode that indexes into the pool determines whether
// the word is a pair of u16 indices, raw IEEE-754/int32 bits, or a
// pool-index chain terminating at a statics-region string offset --
// exactly as the source class file's verifier-assumed well-formedness
// guarantees, so no parallel tag array is carried at runtime (grounded
// on original_source/src/rt.rs's RuntimeConstant(u32) newtype).
type RtConstant uint32

// Pair splits a two-index constant (Fieldref, Methodref,
// InterfaceMethodref, NameAndType, Dynamic, InvokeDynamic) into its
// high/low u16 halves.
func (c RtConstant) Pair() (hi, lo uint16) { return uint16(c >> 16), uint16(c) }

// Index reads a single-index constant (Class, MethodType, Module,
// Package, String).
func (c RtConstant) Index() uint16 { return uint16(c) }

// Bits returns the raw 32 bits (Integer/Float, or one half of a
// Long/Double split across its declared slot and the following Gap).
func (c RtConstant) Bits() uint32 { return uint32(c) }

// ExceptionHandler is a load-time copy of classfile.ExceptionHandler
// with CatchType pre-resolved to a class name (empty string means
// catch-all / finally), so athrow's scan never re-touches the constant
// pool.
type ExceptionHandler struct {
	StartPC, EndPC, HandlerPC uint32 // absolute offsets into the global code arena
	CatchClassName            string
}

// MethodDef is one method of a loaded class, lowered from
// classfile.MethodInfo (spec §4.6).
type MethodDef struct {
	Name          string
	Descriptor    string
	AccessFlags   uint16
	IsStatic      bool
	MaxLocals     uint16
	MaxStack      uint16
	CodeStart     uint32 // absolute offset into the shared code arena
	CodeLen       uint32
	ArgSlotCount  int // argument words, not counting an implicit `this`
	Handlers      []ExceptionHandler
	Native        NativeFunc // non-nil for builtin/native methods
	Abstract      bool
}

// NativeFunc implements a builtin method body (spec §4.8). args holds
// `this` (if any) followed by declared arguments, each occupying
// UnitSize() words (long/double spread across two). The return value
// occupies 0, 1, or 2 words matching the method's declared return type.
type NativeFunc func(rt *Runtime, args []Value) ([]Value, error)

// LoadedClass is the loader's output for one class (spec §4.6): its
// hierarchy, member table, lowered constant pool, and method defs.
type LoadedClass struct {
	ID          uint32
	Name        string
	SuperID     int32 // -1 for java/lang/Object
	Interfaces  []uint32
	AccessFlags uint16
	IsInterface bool

	InstanceSize uint32 // total instance data size including inherited fields
	Fields       *MemberTable // field name -> descriptor -> byte offset (relative to post-header data start for instances, absolute for statics)
	StaticFields *MemberTable

	Methods    *MemberTable // method name -> descriptor -> index into MethodDefs
	MethodDefs []MethodDef

	ConstantPool []RtConstant // nil for builtin classes
	Source       *classfile.ClassFile
}

// FindMethod resolves (name, descriptor) to a *MethodDef declared
// directly on this class (not walking superclasses -- callers walk the
// class-id chain themselves per the dynamic-dispatch redesign).
func (c *LoadedClass) FindMethod(name, descriptor string) *MethodDef {
	idx, ok := c.Methods.Get(name, descriptor)
	if !ok {
		return nil
	}
	return &c.MethodDefs[idx]
}
