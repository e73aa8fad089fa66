package classfile

// Access flags (JVMS §4.1/§4.5/§4.6, subset used by this loader).
const (
	AccPublic     = 0x0001
	AccPrivate    = 0x0002
	AccProtected  = 0x0004
	AccStatic     = 0x0008
	AccFinal      = 0x0010
	AccSuper      = 0x0020
	AccSynchroniz = 0x0020
	AccVolatile   = 0x0040
	AccBridge     = 0x0040
	AccTransient  = 0x0080
	AccVarargs    = 0x0080
	AccNative     = 0x0100
	AccInterface  = 0x0200
	AccAbstract   = 0x0400
	AccStrict     = 0x0800
	AccSynthetic  = 0x1000
	AccAnnotation = 0x2000
	AccEnum       = 0x4000
)

// ClassFile is the decoder's output (spec §3 "ClassFile (decoder output)").
type ClassFile struct {
	MinorVersion     uint16
	MajorVersion     uint16
	ConstantPool     []ConstantPoolEntry
	AccessFlags      uint16
	ThisClass        uint16
	SuperClass       uint16
	Interfaces       []uint16
	Fields           []FieldInfo
	Methods          []MethodInfo
	Attributes       []AttributeInfo
	BootstrapMethods []BootstrapMethod
}

// ConstantPoolEntry is implemented by every Constant tagged variant of
// spec §3.
type ConstantPoolEntry interface {
	Tag() uint8
}

type ConstantUtf8 struct{ Value string }

func (c *ConstantUtf8) Tag() uint8 { return TagUtf8 }

type ConstantInteger struct{ Value int32 }

func (c *ConstantInteger) Tag() uint8 { return TagInteger }

type ConstantFloat struct{ Value float32 }

func (c *ConstantFloat) Tag() uint8 { return TagFloat }

type ConstantLong struct{ Value int64 }

func (c *ConstantLong) Tag() uint8 { return TagLong }

type ConstantDouble struct{ Value float64 }

func (c *ConstantDouble) Tag() uint8 { return TagDouble }

type ConstantClass struct{ NameIndex uint16 }

func (c *ConstantClass) Tag() uint8 { return TagClass }

type ConstantString struct{ StringIndex uint16 }

func (c *ConstantString) Tag() uint8 { return TagString }

type ConstantFieldref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantFieldref) Tag() uint8 { return TagFieldref }

type ConstantMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantMethodref) Tag() uint8 { return TagMethodref }

type ConstantInterfaceMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantInterfaceMethodref) Tag() uint8 { return TagInterfaceMethodref }

type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndType) Tag() uint8 { return TagNameAndType }

// ConstantMethodHandle is CONSTANT_MethodHandle_info (JVMS §4.4.8).
type ConstantMethodHandle struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

func (c *ConstantMethodHandle) Tag() uint8 { return TagMethodHandle }

// ConstantMethodType is CONSTANT_MethodType_info.
type ConstantMethodType struct{ DescriptorIndex uint16 }

func (c *ConstantMethodType) Tag() uint8 { return TagMethodType }

// ConstantDynamic is CONSTANT_Dynamic_info.
type ConstantDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantDynamic) Tag() uint8 { return TagDynamic }

// ConstantInvokeDynamic is CONSTANT_InvokeDynamic_info; decoded here so
// the disassembler can display it, though execution rejects invokedynamic
// per spec §1's non-goals.
type ConstantInvokeDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantInvokeDynamic) Tag() uint8 { return TagInvokeDynamic }

type ConstantModule struct{ NameIndex uint16 }

func (c *ConstantModule) Tag() uint8 { return TagModule }

type ConstantPackage struct{ NameIndex uint16 }

func (c *ConstantPackage) Tag() uint8 { return TagPackage }

// ConstantGap occupies the slot following a Long/Double's declared index
// (spec §3 "Long/Double occupy the slot of their declared index; the
// next slot is a Gap").
type ConstantGap struct{}

func (c *ConstantGap) Tag() uint8 { return TagGap }

// BootstrapMethod is one entry of the BootstrapMethods attribute.
type BootstrapMethod struct {
	MethodRef          uint16
	BootstrapArguments []uint16
}

// MethodInfo is a method record (spec §3 "Field/Method record").
type MethodInfo struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []AttributeInfo
	Code        *CodeAttribute
}

// FieldInfo is a field record.
type FieldInfo struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Attributes  []AttributeInfo
}

// AttributeInfo is a raw (name, bytes) attribute record; attributes the
// decoder structurally recognizes additionally populate Code/other
// typed fields attached to the owning MethodInfo/ClassFile (spec §4.3).
type AttributeInfo struct {
	Name string
	Data []byte
}

// ExceptionHandler is one row of a Code attribute's exception table.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16 // 0 means "catch all" (finally)
}

// LineNumberEntry is one row of a LineNumberTable attribute.
type LineNumberEntry struct {
	StartPC    uint16
	LineNumber uint16
}

// LocalVariableEntry is one row of a LocalVariableTable attribute.
type LocalVariableEntry struct {
	StartPC    uint16
	Length     uint16
	Name       string
	Descriptor string
	Index      uint16
}

// LocalVariableTypeEntry is one row of a LocalVariableTypeTable attribute.
type LocalVariableTypeEntry struct {
	StartPC   uint16
	Length    uint16
	Name      string
	Signature string
	Index     uint16
}

// VerificationType is one StackMapTable verification_type_info entry.
// Tag values follow JVMS §4.7.4; CP/Offset are valid only for the
// Object/Uninitialized tags.
type VerificationType struct {
	Tag    uint8
	CPOrPC uint16
}

// StackMapFrame is one decoded entry of a StackMapTable attribute, per
// the tag-byte table in spec §4.3.
type StackMapFrame struct {
	FrameType   uint8
	OffsetDelta uint16
	Locals      []VerificationType // append_frame, full_frame
	Stack       []VerificationType // same_locals_1_stack_item*, full_frame
}

// CodeAttribute is the decoded Code attribute (spec §3/§4.3), including
// its nested attributes.
type CodeAttribute struct {
	MaxStack           uint16
	MaxLocals          uint16
	Code               []byte
	ExceptionHandlers  []ExceptionHandler
	LineNumbers        []LineNumberEntry
	LocalVariables     []LocalVariableEntry
	LocalVariableTypes []LocalVariableTypeEntry
	StackMapTable      []StackMapFrame
	Attributes         []AttributeInfo
}
