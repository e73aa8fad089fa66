package vm

// Heap object layout (spec §3 "Heap and statics" plus the dynamic-dispatch
// redesign of spec §9): every `new`-allocated object is preceded in the
// heap by a 4-byte class-id header word; the Value pushed by `new` points
// at the first byte *after* that header, i.e. at the instance data, so
// getfield/putfield offsets are unaffected by the header's presence.
// Arrays carry no header -- they are exactly `[length:u32][elements...]`
// as spec §3 literally describes, since array ops never need dynamic
// class resolution in this implementation's scope.
const headerSize = 4

// AllocObject reserves a new instance of classID on the heap: a 4-byte
// class-id header followed by dataSize zeroed instance bytes. The
// returned Value addresses the data, not the header.
func AllocObject(rt *Runtime, classID uint32, dataSize uint32) Value {
	headerOffset := rt.Heap.AllocZeroed(headerSize + dataSize)
	rt.Heap.WriteU32(headerOffset, classID)
	return NewHeapRef(headerOffset + headerSize)
}

// ObjectClassID reads the class-id header preceding ref's data.
func ObjectClassID(rt *Runtime, ref Value) uint32 {
	return rt.Heap.ReadU32(ref.HeapOffset() - headerSize)
}

// AllocArray reserves a `[length:u32][elements...]` record holding
// count elements of elemSize bytes each (1, 2, 4, or 8 per the element
// descriptor), per spec §3.
func AllocArray(rt *Runtime, count uint32, elemSize uint32) Value {
	offset := rt.Heap.AllocZeroed(4 + count*elemSize)
	rt.Heap.WriteU32(offset, count)
	return NewHeapRef(offset)
}

// ArrayLength reads the length prefix of an array reference.
func ArrayLength(rt *Runtime, ref Value) uint32 {
	return rt.Heap.ReadU32(ref.HeapOffset())
}

// arrayElementOffset is the byte offset of element i in an elemSize-wide
// array addressed by ref.
func arrayElementOffset(ref Value, i uint32, elemSize uint32) uint32 {
	return ref.HeapOffset() + 4 + i*elemSize
}

// NewStringFromStatic wraps an already-allocated
// [length:u32][UTF-8 bytes] record at a statics-arena offset (built by
// the loader's Utf8-constant lowering, or by AllocString for CLI args)
// in a java/lang/String instance, for `ldc`/`ldc_w` and the CLI's
// argv -> String[] setup. Per spec §4.8, String's own instance data is
// just the one word addressing its backing record -- which may live in
// either arena, so length()/the other builtin methods dispatch on
// Value.IsHeap()/IsStatic() to find it (see pkg/native/string.go).
func (rt *Runtime) NewStringFromStatic(staticsOffset uint32) (Value, error) {
	classID, err := rt.Load("java/lang/String")
	if err != nil {
		return NullValue, err
	}
	obj := AllocObject(rt, classID, 4)
	rt.Heap.WriteValue(obj.HeapOffset(), NewStaticRef(staticsOffset))
	return obj, nil
}

// NewStringFromHeap wraps an already-allocated [length:u32][UTF-8 bytes]
// record at a heap offset (built by AllocString, e.g. from
// pkg/native/string.go's String.<init>([B)V) in a java/lang/String
// instance. Mirrors NewStringFromStatic for the heap-backed case spec
// §4.8 fixes as String's own data layout.
func (rt *Runtime) NewStringFromHeap(heapOffset uint32) (Value, error) {
	classID, err := rt.Load("java/lang/String")
	if err != nil {
		return NullValue, err
	}
	obj := AllocObject(rt, classID, 4)
	rt.Heap.WriteValue(obj.HeapOffset(), NewHeapRef(heapOffset))
	return obj, nil
}

// StringBackingRecord reads the [length:u32][bytes] record a
// java/lang/String instance's data word addresses, regardless of which
// arena it lives in.
func StringBackingRecord(rt *Runtime, this Value) Value {
	return rt.Heap.ReadValue(this.HeapOffset())
}

// StringBackingLength reports the byte length of a string backing
// record addressed by ref (heap or statics).
func StringBackingLength(rt *Runtime, ref Value) uint32 {
	if ref.IsHeap() {
		return rt.Heap.ReadU32(ref.HeapOffset())
	}
	return rt.Statics.ReadU32(ref.StaticOffset())
}

// StringBackingBytes reads the UTF-8 text of a string backing record.
func StringBackingBytes(rt *Runtime, ref Value) string {
	if ref.IsHeap() {
		return rt.Heap.ReadString(ref.HeapOffset())
	}
	return rt.Statics.ReadString(ref.StaticOffset())
}

// ClassObject returns the java/lang/Class instance representing
// classID, per spec §4.8's Object.getClass ("returns the receiver's
// class-object reference") and the §9 open question on what that
// reference addresses. Allocated lazily and cached per classID so two
// getClass() calls on instances of the same class return the identical
// reference, mirroring original_source/src/rt/builtin_methods.rs's
// obj_get_class routing through a single ctx.get_class_object. Like
// java/lang/String (NewStringFromStatic/NewStringFromHeap), the
// class-object's own instance data is just the one word identifying
// what it represents -- here the raw classID rather than a reference.
func (rt *Runtime) ClassObject(classID uint32) (Value, error) {
	if v, ok := rt.classObjects[classID]; ok {
		return v, nil
	}
	classClassID, err := rt.Load("java/lang/Class")
	if err != nil {
		return NullValue, err
	}
	obj := AllocObject(rt, classClassID, 4)
	rt.Heap.WriteU32(obj.HeapOffset(), classID)
	rt.classObjects[classID] = obj
	return obj, nil
}

// ClassObjectTarget reads back the classID a java/lang/Class instance
// represents.
func ClassObjectTarget(rt *Runtime, ref Value) uint32 {
	return rt.Heap.ReadU32(ref.HeapOffset())
}
