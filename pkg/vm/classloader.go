package vm

import (
	"bytes"
	"io"
	"os"
	"sort"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/daimatz/classvm/pkg/classfile"
)

// builtinFactories is a registry of builtin-class constructors, filled
// by pkg/native's init() functions via RegisterBuiltin. Runtime never
// imports pkg/native directly -- pkg/native imports pkg/vm -- so the
// registry (the database/sql driver pattern) is what breaks the cycle.
var builtinFactories = map[string]func(rt *Runtime) *LoadedClass{}

// RegisterBuiltin registers a builtin class constructor under its
// fully qualified classpath (e.g. "java/lang/Object").
func RegisterBuiltin(classpath string, factory func(rt *Runtime) *LoadedClass) {
	builtinFactories[classpath] = factory
}

// Runtime is the class loader, layout engine, and arena owner (spec
// §4.6). classvm's interpreter also holds a *Runtime to resolve classes
// encountered mid-execution (new, invoke*, getstatic/putstatic).
type Runtime struct {
	ClassPath string    // directory user classes are resolved relative to
	Stdout    io.Writer // java/io/PrintStream's System.out target
	Heap      *Arena
	Statics   *Arena
	Code      []byte // the global, monotonically-growing code arena

	classes []*LoadedClass
	ids     map[string]uint32

	classObjects map[uint32]Value // classID -> cached java/lang/Class singleton, see ClassObject

	log *zap.SugaredLogger
}

// NewRuntime creates a Runtime rooted at classPath for resolving user
// classes, logging through log (pass zap.NewNop().Sugar() for silence).
// Stdout defaults to os.Stdout; callers (tests, in particular) can
// overwrite it after construction to capture PrintStream output. When a
// java/lang/Object builtin is registered (pkg/native is linked in), it
// is preloaded at id 0.
func NewRuntime(classPath string, log *zap.SugaredLogger) *Runtime {
	rt := &Runtime{
		ClassPath:    classPath,
		Stdout:       os.Stdout,
		Heap:         NewArena(),
		Statics:      NewArena(),
		ids:          make(map[string]uint32),
		classObjects: make(map[uint32]Value),
		log:          log,
	}
	if _, ok := builtinFactories["java/lang/Object"]; ok {
		// A builtin load never fails, so the error is always nil here.
		_, _ = rt.Load("java/lang/Object")
	}
	return rt
}

// Class returns the LoadedClass for a previously resolved id.
func (rt *Runtime) Class(id uint32) *LoadedClass { return rt.classes[id] }

// DefineClass lowers an already-decoded ClassFile under classpath,
// exactly as Load does for one it has read and parsed off disk. It
// exists for callers that obtain a ClassFile some other way than
// reading "<classpath>.class" relative to rt.ClassPath -- in practice,
// tests that assemble a ClassFile in memory rather than shipping a
// binary fixture.
func (rt *Runtime) DefineClass(classpath string, cf *classfile.ClassFile) (uint32, error) {
	return rt.defineClass(classpath, cf)
}

// Load resolves a classpath (e.g. "java/lang/Object" or "com/example/Foo")
// to its class id, loading and laying it out on first use (spec §4.6).
func (rt *Runtime) Load(classpath string) (uint32, error) {
	if id, ok := rt.ids[classpath]; ok {
		return id, nil
	}

	if factory, ok := builtinFactories[classpath]; ok {
		id := uint32(len(rt.classes))
		lc := factory(rt)
		lc.ID = id
		lc.Name = classpath
		rt.classes = append(rt.classes, lc)
		rt.ids[classpath] = id
		rt.log.Debugw("loaded builtin class", "class", classpath, "id", id)
		return id, nil
	}

	rt.log.Debugw("loading class from classpath", "class", classpath)
	cf, err := rt.readClassFile(classpath)
	if err != nil {
		return 0, errors.Wrapf(err, "loading %s", classpath)
	}
	return rt.defineClass(classpath, cf)
}

func (rt *Runtime) readClassFile(classpath string) (*classfile.ClassFile, error) {
	path := rt.ClassPath + "/" + classpath + ".class"
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(classfile.ErrIO, "opening %s: %s", path, err)
	}
	defer f.Close()

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(classfile.ErrIO, "mmapping %s: %s", path, err)
	}
	defer data.Unmap()

	return classfile.Parse(bytes.NewReader([]byte(data)))
}

// defineClass performs spec §4.6 steps 1-5 for a decoded class file: it
// reserves the class id before recursing into the superclass/interfaces
// (so self-referential constant-pool entries resolve), then lays out
// fields, methods, and the runtime constant pool.
func (rt *Runtime) defineClass(classpath string, cf *classfile.ClassFile) (uint32, error) {
	id := uint32(len(rt.classes))
	lc := &LoadedClass{
		ID:           id,
		Name:         classpath,
		SuperID:      -1,
		AccessFlags:  cf.AccessFlags,
		IsInterface:  cf.AccessFlags&classfile.AccInterface != 0,
		Fields:       NewMemberTable(),
		StaticFields: NewMemberTable(),
		Methods:      NewMemberTable(),
		Source:       cf,
	}
	rt.classes = append(rt.classes, lc)
	rt.ids[classpath] = id

	superName, err := cf.SuperClassName()
	if err != nil {
		return 0, errors.Wrap(err, "resolving super_class")
	}
	var superSize uint32
	if superName != "" {
		superID, err := rt.Load(superName)
		if err != nil {
			return 0, errors.Wrapf(err, "loading superclass %s", superName)
		}
		lc.SuperID = int32(superID)
		superSize = rt.classes[superID].InstanceSize
		rt.inheritFields(lc, rt.classes[superID])
	}

	ifaceNames, err := cf.InterfaceNames()
	if err != nil {
		return 0, errors.Wrap(err, "resolving interfaces")
	}
	lc.Interfaces = make([]uint32, len(ifaceNames))
	for i, name := range ifaceNames {
		ifaceID, err := rt.Load(name)
		if err != nil {
			return 0, errors.Wrapf(err, "loading interface %s", name)
		}
		lc.Interfaces[i] = ifaceID
	}

	if err := rt.layoutFields(lc, cf, superSize); err != nil {
		return 0, errors.Wrap(err, "laying out fields")
	}
	if err := rt.layoutMethods(lc, cf); err != nil {
		return 0, errors.Wrap(err, "laying out methods")
	}
	lc.ConstantPool = lowerConstantPool(cf.ConstantPool, rt.Statics)

	rt.log.Debugw("loaded class", "class", classpath, "id", id, "instanceSize", lc.InstanceSize)
	return id, nil
}

// inheritFields copies a superclass's field member table so lookups on
// the subclass see inherited (name, descriptor) entries without
// walking the class-id chain on every field access -- only dynamic
// method dispatch needs that walk, for overrides.
func (rt *Runtime) inheritFields(lc, super *LoadedClass) {
	for name, descs := range super.Fields.byName {
		for desc, off := range descs {
			lc.Fields.Put(name, desc, off)
		}
	}
}

// layoutFields assigns instance offsets (own fields sorted by size
// descending, starting after the inherited size) and static offsets
// (allocated in the global statics arena), per spec §4.6 step 3 and
// invariant I5 (field layout monotonicity).
func (rt *Runtime) layoutFields(lc *LoadedClass, cf *classfile.ClassFile, superSize uint32) error {
	type ownField struct {
		name, descriptor string
		desc             classfile.FieldDescriptor
		static           bool
	}
	var fields []ownField
	for _, f := range cf.Fields {
		fd, _, err := classfile.ParseFieldDescriptor([]byte(f.Descriptor))
		if err != nil {
			return errors.Wrapf(err, "parsing descriptor of field %s", f.Name)
		}
		fields = append(fields, ownField{f.Name, f.Descriptor, fd, f.AccessFlags&classfile.AccStatic != 0})
	}
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].desc.ByteSize() > fields[j].desc.ByteSize()
	})

	instanceOffset := superSize
	for _, f := range fields {
		size := uint32(f.desc.ByteSize())
		if f.static {
			offset := rt.Statics.AllocZeroed(size)
			lc.StaticFields.Put(f.name, f.descriptor, uint16(offset))
			continue
		}
		// Natural alignment: round up to the field's own size boundary.
		instanceOffset = (instanceOffset + size - 1) / size * size
		lc.Fields.Put(f.name, f.descriptor, uint16(instanceOffset))
		instanceOffset += size
	}
	lc.InstanceSize = align4(instanceOffset)
	return nil
}

// layoutMethods concatenates each method's bytecode into the shared
// code arena and records its absolute start offset, per spec §4.6 step
// 4 and invariant I6 (code arena addressability).
func (rt *Runtime) layoutMethods(lc *LoadedClass, cf *classfile.ClassFile) error {
	for _, m := range cf.Methods {
		md, err := classfile.ParseMethodDescriptor([]byte(m.Descriptor))
		if err != nil {
			return errors.Wrapf(err, "parsing descriptor of method %s", m.Name)
		}
		isStatic := m.AccessFlags&classfile.AccStatic != 0
		isNative := m.AccessFlags&classfile.AccNative != 0
		isAbstract := m.AccessFlags&classfile.AccAbstract != 0

		def := MethodDef{
			Name:         m.Name,
			Descriptor:   m.Descriptor,
			AccessFlags:  m.AccessFlags,
			IsStatic:     isStatic,
			ArgSlotCount: md.ArgSlotCount(),
			Abstract:     isAbstract,
		}

		switch {
		case m.Code != nil:
			def.MaxLocals = m.Code.MaxLocals
			def.MaxStack = m.Code.MaxStack
			def.CodeStart = uint32(len(rt.Code))
			def.CodeLen = uint32(len(m.Code.Code))
			rt.Code = append(rt.Code, m.Code.Code...)
			def.Handlers = make([]ExceptionHandler, len(m.Code.ExceptionHandlers))
			for i, h := range m.Code.ExceptionHandlers {
				catchName := ""
				if h.CatchType != 0 {
					catchName, err = classfile.GetClassName(cf.ConstantPool, h.CatchType)
					if err != nil {
						return errors.Wrap(err, "resolving exception handler catch type")
					}
				}
				def.Handlers[i] = ExceptionHandler{
					StartPC:        def.CodeStart + uint32(h.StartPC),
					EndPC:          def.CodeStart + uint32(h.EndPC),
					HandlerPC:      def.CodeStart + uint32(h.HandlerPC),
					CatchClassName: catchName,
				}
			}
		case isNative || isAbstract:
			// No Code attribute, but permitted at load time. Only the
			// builtin classes bind host routines (MethodDef.Native); a
			// native method of a loaded class has none, so calling it
			// fails with ErrLinkageError, as calling an abstract one does.
		default:
			return errors.Wrapf(ErrLinkageError, "method %s%s has no Code attribute", m.Name, m.Descriptor)
		}

		idx := len(lc.MethodDefs)
		lc.MethodDefs = append(lc.MethodDefs, def)
		lc.Methods.Put(m.Name, m.Descriptor, uint16(idx))
	}
	return nil
}

// lowerConstantPool implements spec §3's "Runtime constant pool"
// lowering, grounded 1:1 on original_source/src/rt.rs's constant-pool
// map over Constant variants.
func lowerConstantPool(pool []classfile.ConstantPoolEntry, statics *Arena) []RtConstant {
	out := make([]RtConstant, len(pool))
	var gapVal uint32
	for i, c := range pool {
		switch v := c.(type) {
		case nil:
			// index 0, or a slot skipped for other reasons; left zero.
		case *classfile.ConstantFieldref:
			out[i] = RtConstant(uint32(v.ClassIndex)<<16 | uint32(v.NameAndTypeIndex))
		case *classfile.ConstantMethodref:
			out[i] = RtConstant(uint32(v.ClassIndex)<<16 | uint32(v.NameAndTypeIndex))
		case *classfile.ConstantInterfaceMethodref:
			out[i] = RtConstant(uint32(v.ClassIndex)<<16 | uint32(v.NameAndTypeIndex))
		case *classfile.ConstantNameAndType:
			out[i] = RtConstant(uint32(v.NameIndex)<<16 | uint32(v.DescriptorIndex))
		case *classfile.ConstantDynamic:
			out[i] = RtConstant(uint32(v.BootstrapMethodAttrIndex)<<16 | uint32(v.NameAndTypeIndex))
		case *classfile.ConstantInvokeDynamic:
			out[i] = RtConstant(uint32(v.BootstrapMethodAttrIndex)<<16 | uint32(v.NameAndTypeIndex))
		case *classfile.ConstantMethodHandle:
			out[i] = RtConstant(uint32(v.ReferenceKind)<<16 | uint32(v.ReferenceIndex))
		case *classfile.ConstantClass:
			out[i] = RtConstant(v.NameIndex)
		case *classfile.ConstantMethodType:
			out[i] = RtConstant(v.DescriptorIndex)
		case *classfile.ConstantModule:
			out[i] = RtConstant(v.NameIndex)
		case *classfile.ConstantPackage:
			out[i] = RtConstant(v.NameIndex)
		case *classfile.ConstantString:
			out[i] = RtConstant(v.StringIndex)
		case *classfile.ConstantInteger:
			out[i] = RtConstant(uint32(v.Value))
		case *classfile.ConstantFloat:
			out[i] = RtConstant(FromFloat32(v.Value))
		case *classfile.ConstantLong:
			lo, hi := PackLong(v.Value)
			out[i] = RtConstant(lo)
			gapVal = uint32(hi)
		case *classfile.ConstantDouble:
			lo, hi := PackFloat64(v.Value)
			out[i] = RtConstant(lo)
			gapVal = uint32(hi)
		case *classfile.ConstantGap:
			out[i] = RtConstant(gapVal)
		case *classfile.ConstantUtf8:
			out[i] = RtConstant(statics.AllocString(v.Value))
		}
	}
	return out
}

// ResolveUtf8 follows a pool index that the loader lowered from a
// CONSTANT_Utf8 entry (now a statics-region string offset) back to its
// text.
func (rt *Runtime) ResolveUtf8(lc *LoadedClass, index uint16) string {
	offset := lc.ConstantPool[index].Bits()
	return rt.Statics.ReadString(offset)
}

// ResolveClassName follows a CONSTANT_Class pool index through its
// name_index indirection to the class's textual name.
func (rt *Runtime) ResolveClassName(lc *LoadedClass, classIndex uint16) string {
	nameIndex := lc.ConstantPool[classIndex].Index()
	return rt.ResolveUtf8(lc, nameIndex)
}

// ResolveNameAndType follows a CONSTANT_NameAndType pool index to its
// (name, descriptor) pair.
func (rt *Runtime) ResolveNameAndType(lc *LoadedClass, natIndex uint16) (name, descriptor string) {
	nameIndex, descIndex := lc.ConstantPool[natIndex].Pair()
	return rt.ResolveUtf8(lc, nameIndex), rt.ResolveUtf8(lc, descIndex)
}

// ResolveRef follows a CONSTANT_Fieldref/Methodref/InterfaceMethodref
// pool index to its (class name, member name, descriptor) triple -- all
// three share the (class_index, name_and_type_index) shape, so one
// method serves invokestatic/invokespecial/invokevirtual/invokeinterface
// and getfield/putfield/getstatic/putstatic alike.
func (rt *Runtime) ResolveRef(lc *LoadedClass, index uint16) (className, name, descriptor string) {
	classIndex, natIndex := lc.ConstantPool[index].Pair()
	name, descriptor = rt.ResolveNameAndType(lc, natIndex)
	className = rt.ResolveClassName(lc, classIndex)
	return
}
