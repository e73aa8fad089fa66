package classfile

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Constant pool tags (JVMS §4.4).
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
	TagGap                = 0xFF // synthetic tag for the runtime-only gap placeholder
)

// parseConstantPool reads constant_pool_count-1 entries from r. The
// returned slice is 1-indexed (index 0 is nil); every wide (Long,
// Double) entry additionally synthesizes a Gap at the following index,
// per spec §3/§4.3.
func parseConstantPool(r io.Reader, count uint16) ([]ConstantPoolEntry, error) {
	pool := make([]ConstantPoolEntry, count)

	for i := uint16(1); i < count; i++ {
		tag, err := readU8(r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading constant pool tag at index %d", i)
		}

		switch tag {
		case TagUtf8:
			length, err := readU16(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading Utf8 length at index %d", i)
			}
			raw, err := readBytes(r, int(length))
			if err != nil {
				return nil, errors.Wrapf(err, "reading Utf8 bytes at index %d", i)
			}
			s, err := DecodeModifiedUTF8(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "decoding Utf8 at index %d", i)
			}
			pool[i] = &ConstantUtf8{Value: s}

		case TagInteger:
			bits, err := readU32(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading Integer at index %d", i)
			}
			pool[i] = &ConstantInteger{Value: int32(bits)}

		case TagFloat:
			bits, err := readU32(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading Float at index %d", i)
			}
			pool[i] = &ConstantFloat{Value: math.Float32frombits(bits)}

		case TagLong:
			hi, err := readU32(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading Long high bytes at index %d", i)
			}
			lo, err := readU32(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading Long low bytes at index %d", i)
			}
			pool[i] = &ConstantLong{Value: int64(uint64(hi)<<32 | uint64(lo))}
			i++
			if i < count {
				pool[i] = &ConstantGap{}
			}

		case TagDouble:
			hi, err := readU32(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading Double high bytes at index %d", i)
			}
			lo, err := readU32(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading Double low bytes at index %d", i)
			}
			pool[i] = &ConstantDouble{Value: math.Float64frombits(uint64(hi)<<32 | uint64(lo))}
			i++
			if i < count {
				pool[i] = &ConstantGap{}
			}

		case TagClass:
			nameIndex, err := readU16(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading Class at index %d", i)
			}
			pool[i] = &ConstantClass{NameIndex: nameIndex}

		case TagString:
			stringIndex, err := readU16(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading String at index %d", i)
			}
			pool[i] = &ConstantString{StringIndex: stringIndex}

		case TagFieldref:
			classIndex, natIndex, err := readTwoU16(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading Fieldref at index %d", i)
			}
			pool[i] = &ConstantFieldref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagMethodref:
			classIndex, natIndex, err := readTwoU16(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading Methodref at index %d", i)
			}
			pool[i] = &ConstantMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagInterfaceMethodref:
			classIndex, natIndex, err := readTwoU16(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading InterfaceMethodref at index %d", i)
			}
			pool[i] = &ConstantInterfaceMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}

		case TagNameAndType:
			nameIndex, descIndex, err := readTwoU16(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading NameAndType at index %d", i)
			}
			pool[i] = &ConstantNameAndType{NameIndex: nameIndex, DescriptorIndex: descIndex}

		case TagMethodHandle:
			kind, err := readU8(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading MethodHandle kind at index %d", i)
			}
			refIndex, err := readU16(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading MethodHandle reference_index at index %d", i)
			}
			pool[i] = &ConstantMethodHandle{ReferenceKind: kind, ReferenceIndex: refIndex}

		case TagMethodType:
			descIndex, err := readU16(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading MethodType at index %d", i)
			}
			pool[i] = &ConstantMethodType{DescriptorIndex: descIndex}

		case TagDynamic:
			bsmIndex, natIndex, err := readTwoU16(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading Dynamic at index %d", i)
			}
			pool[i] = &ConstantDynamic{BootstrapMethodAttrIndex: bsmIndex, NameAndTypeIndex: natIndex}

		case TagInvokeDynamic:
			bsmIndex, natIndex, err := readTwoU16(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading InvokeDynamic at index %d", i)
			}
			pool[i] = &ConstantInvokeDynamic{BootstrapMethodAttrIndex: bsmIndex, NameAndTypeIndex: natIndex}

		case TagModule:
			nameIndex, err := readU16(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading Module at index %d", i)
			}
			pool[i] = &ConstantModule{NameIndex: nameIndex}

		case TagPackage:
			nameIndex, err := readU16(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading Package at index %d", i)
			}
			pool[i] = &ConstantPackage{NameIndex: nameIndex}

		default:
			return nil, errors.Wrapf(ErrMalformedInput, "unknown constant pool tag %d at index %d", tag, i)
		}
	}

	return pool, nil
}

func readTwoU16(r io.Reader) (uint16, uint16, error) {
	var buf [4]byte
	if err := binary.Read(r, binary.BigEndian, buf[:]); err != nil {
		return 0, 0, errors.Wrap(ErrIO, err.Error())
	}
	return binary.BigEndian.Uint16(buf[0:2]), binary.BigEndian.Uint16(buf[2:4]), nil
}

// GetUtf8 returns the Utf8 string at the given constant pool index.
func GetUtf8(pool []ConstantPoolEntry, index uint16) (string, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return "", errors.Wrapf(ErrMalformedInput, "invalid constant pool index %d", index)
	}
	utf8, ok := pool[index].(*ConstantUtf8)
	if !ok {
		return "", errors.Wrapf(ErrMalformedInput, "constant pool index %d is not Utf8 (tag=%d)", index, pool[index].Tag())
	}
	return utf8.Value, nil
}

// GetClassName returns the class name referenced by a CONSTANT_Class entry.
func GetClassName(pool []ConstantPoolEntry, classIndex uint16) (string, error) {
	if int(classIndex) >= len(pool) || pool[classIndex] == nil {
		return "", errors.Wrapf(ErrMalformedInput, "invalid constant pool index %d", classIndex)
	}
	class, ok := pool[classIndex].(*ConstantClass)
	if !ok {
		return "", errors.Wrapf(ErrMalformedInput, "constant pool index %d is not Class", classIndex)
	}
	return GetUtf8(pool, class.NameIndex)
}

// MethodRefInfo holds a resolved Methodref/InterfaceMethodref.
type MethodRefInfo struct {
	ClassName  string
	MethodName string
	Descriptor string
}

func resolveNameAndType(pool []ConstantPoolEntry, natIndex uint16) (name, descriptor string, err error) {
	if int(natIndex) >= len(pool) || pool[natIndex] == nil {
		return "", "", errors.Wrapf(ErrMalformedInput, "invalid NameAndType index %d", natIndex)
	}
	nat, ok := pool[natIndex].(*ConstantNameAndType)
	if !ok {
		return "", "", errors.Wrapf(ErrMalformedInput, "constant pool index %d is not NameAndType", natIndex)
	}
	name, err = GetUtf8(pool, nat.NameIndex)
	if err != nil {
		return "", "", errors.Wrap(err, "resolving name")
	}
	descriptor, err = GetUtf8(pool, nat.DescriptorIndex)
	if err != nil {
		return "", "", errors.Wrap(err, "resolving descriptor")
	}
	return name, descriptor, nil
}

// ResolveMethodref resolves a CONSTANT_Methodref entry.
func ResolveMethodref(pool []ConstantPoolEntry, index uint16) (*MethodRefInfo, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return nil, errors.Wrapf(ErrMalformedInput, "invalid constant pool index %d", index)
	}
	mref, ok := pool[index].(*ConstantMethodref)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedInput, "constant pool index %d is not Methodref", index)
	}
	className, err := GetClassName(pool, mref.ClassIndex)
	if err != nil {
		return nil, errors.Wrap(err, "resolving Methodref class")
	}
	name, desc, err := resolveNameAndType(pool, mref.NameAndTypeIndex)
	if err != nil {
		return nil, err
	}
	return &MethodRefInfo{ClassName: className, MethodName: name, Descriptor: desc}, nil
}

// ResolveInterfaceMethodref resolves a CONSTANT_InterfaceMethodref entry.
func ResolveInterfaceMethodref(pool []ConstantPoolEntry, index uint16) (*MethodRefInfo, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return nil, errors.Wrapf(ErrMalformedInput, "invalid constant pool index %d", index)
	}
	mref, ok := pool[index].(*ConstantInterfaceMethodref)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedInput, "constant pool index %d is not InterfaceMethodref", index)
	}
	className, err := GetClassName(pool, mref.ClassIndex)
	if err != nil {
		return nil, errors.Wrap(err, "resolving InterfaceMethodref class")
	}
	name, desc, err := resolveNameAndType(pool, mref.NameAndTypeIndex)
	if err != nil {
		return nil, err
	}
	return &MethodRefInfo{ClassName: className, MethodName: name, Descriptor: desc}, nil
}

// FieldRefInfo holds a resolved Fieldref.
type FieldRefInfo struct {
	ClassName  string
	FieldName  string
	Descriptor string
}

// ResolveFieldref resolves a CONSTANT_Fieldref entry.
func ResolveFieldref(pool []ConstantPoolEntry, index uint16) (*FieldRefInfo, error) {
	if int(index) >= len(pool) || pool[index] == nil {
		return nil, errors.Wrapf(ErrMalformedInput, "invalid constant pool index %d", index)
	}
	fref, ok := pool[index].(*ConstantFieldref)
	if !ok {
		return nil, errors.Wrapf(ErrMalformedInput, "constant pool index %d is not Fieldref", index)
	}
	className, err := GetClassName(pool, fref.ClassIndex)
	if err != nil {
		return nil, errors.Wrap(err, "resolving Fieldref class")
	}
	name, desc, err := resolveNameAndType(pool, fref.NameAndTypeIndex)
	if err != nil {
		return nil, err
	}
	return &FieldRefInfo{ClassName: className, FieldName: name, Descriptor: desc}, nil
}
