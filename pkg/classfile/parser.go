package classfile

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
)

const classMagic = 0xCAFEBABE

// ParseFile opens and parses a .class file from the given path.
func ParseFile(path string) (*ClassFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrIO, "opening %s: %s", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a .class file from r and returns its decoded ClassFile
// (spec §3/§4.3).
func Parse(r io.Reader) (*ClassFile, error) {
	cf := &ClassFile{}

	magic, err := readU32(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading magic number")
	}
	if magic != classMagic {
		return nil, errors.Wrapf(ErrMalformedInput, "invalid magic number: 0x%X (expected 0xCAFEBABE)", magic)
	}

	if cf.MinorVersion, err = readU16(r); err != nil {
		return nil, errors.Wrap(err, "reading minor version")
	}
	if cf.MajorVersion, err = readU16(r); err != nil {
		return nil, errors.Wrap(err, "reading major version")
	}

	cpCount, err := readU16(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading constant pool count")
	}
	pool, err := parseConstantPool(r, cpCount)
	if err != nil {
		return nil, errors.Wrap(err, "parsing constant pool")
	}
	cf.ConstantPool = pool

	if cf.AccessFlags, err = readU16(r); err != nil {
		return nil, errors.Wrap(err, "reading access flags")
	}
	if cf.ThisClass, err = readU16(r); err != nil {
		return nil, errors.Wrap(err, "reading this_class")
	}
	if cf.SuperClass, err = readU16(r); err != nil {
		return nil, errors.Wrap(err, "reading super_class")
	}

	interfacesCount, err := readU16(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading interfaces count")
	}
	cf.Interfaces = make([]uint16, interfacesCount)
	for i := uint16(0); i < interfacesCount; i++ {
		if cf.Interfaces[i], err = readU16(r); err != nil {
			return nil, errors.Wrapf(err, "reading interface %d", i)
		}
	}

	fieldsCount, err := readU16(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading fields count")
	}
	if cf.Fields, err = parseFields(r, pool, fieldsCount); err != nil {
		return nil, errors.Wrap(err, "parsing fields")
	}

	methodsCount, err := readU16(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading methods count")
	}
	if cf.Methods, err = parseMethods(r, pool, methodsCount); err != nil {
		return nil, errors.Wrap(err, "parsing methods")
	}

	attrCount, err := readU16(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading class attribute count")
	}
	attrs, err := parseAttributeInfos(r, pool, attrCount)
	if err != nil {
		return nil, errors.Wrap(err, "parsing class attributes")
	}
	cf.Attributes = attrs
	for _, attr := range attrs {
		if attr.Name == "BootstrapMethods" {
			bsm, err := parseBootstrapMethods(attr.Data)
			if err != nil {
				return nil, errors.Wrap(err, "parsing BootstrapMethods")
			}
			cf.BootstrapMethods = bsm
		}
	}

	return cf, nil
}

func parseFields(r io.Reader, pool []ConstantPoolEntry, count uint16) ([]FieldInfo, error) {
	fields := make([]FieldInfo, count)
	for i := uint16(0); i < count; i++ {
		accessFlags, err := readU16(r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading field %d access flags", i)
		}
		nameIndex, err := readU16(r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading field %d name index", i)
		}
		descIndex, err := readU16(r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading field %d descriptor index", i)
		}
		attrCount, err := readU16(r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading field %d attribute count", i)
		}

		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving field %d name", i)
		}
		desc, err := GetUtf8(pool, descIndex)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving field %d descriptor", i)
		}
		attrs, err := parseAttributeInfos(r, pool, attrCount)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing field %d attributes", i)
		}

		fields[i] = FieldInfo{AccessFlags: accessFlags, Name: name, Descriptor: desc, Attributes: attrs}
	}
	return fields, nil
}

func parseMethods(r io.Reader, pool []ConstantPoolEntry, count uint16) ([]MethodInfo, error) {
	methods := make([]MethodInfo, count)
	for i := uint16(0); i < count; i++ {
		accessFlags, err := readU16(r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading method %d access flags", i)
		}
		nameIndex, err := readU16(r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading method %d name index", i)
		}
		descIndex, err := readU16(r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading method %d descriptor index", i)
		}
		attrCount, err := readU16(r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading method %d attribute count", i)
		}

		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving method %d name", i)
		}
		desc, err := GetUtf8(pool, descIndex)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving method %d descriptor", i)
		}
		attrs, err := parseAttributeInfos(r, pool, attrCount)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing method %d attributes", i)
		}

		m := MethodInfo{AccessFlags: accessFlags, Name: name, Descriptor: desc, Attributes: attrs}
		for _, attr := range attrs {
			if attr.Name == "Code" {
				code, err := parseCodeAttribute(pool, attr.Data)
				if err != nil {
					return nil, errors.Wrapf(err, "parsing Code attribute for method %s", name)
				}
				m.Code = code
				break
			}
		}
		methods[i] = m
	}
	return methods, nil
}

func parseBootstrapMethods(data []byte) ([]BootstrapMethod, error) {
	r := bytes.NewReader(data)
	n, err := readU16(r)
	if err != nil {
		return nil, err
	}
	methods := make([]BootstrapMethod, n)
	for i := uint16(0); i < n; i++ {
		methodRef, err := readU16(r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading bootstrap method %d ref", i)
		}
		numArgs, err := readU16(r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading bootstrap method %d arg count", i)
		}
		args := make([]uint16, numArgs)
		for j := uint16(0); j < numArgs; j++ {
			if args[j], err = readU16(r); err != nil {
				return nil, errors.Wrapf(err, "reading bootstrap method %d arg %d", i, j)
			}
		}
		methods[i] = BootstrapMethod{MethodRef: methodRef, BootstrapArguments: args}
	}
	return methods, nil
}

// ClassName returns the fully qualified name of this class.
func (cf *ClassFile) ClassName() (string, error) {
	return GetClassName(cf.ConstantPool, cf.ThisClass)
}

// SuperClassName returns the fully qualified name of the superclass, or
// "" if ThisClass is java/lang/Object (SuperClass == 0).
func (cf *ClassFile) SuperClassName() (string, error) {
	if cf.SuperClass == 0 {
		return "", nil
	}
	return GetClassName(cf.ConstantPool, cf.SuperClass)
}

// InterfaceNames resolves all declared interface class names.
func (cf *ClassFile) InterfaceNames() ([]string, error) {
	names := make([]string, len(cf.Interfaces))
	for i, idx := range cf.Interfaces {
		name, err := GetClassName(cf.ConstantPool, idx)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving interface %d", i)
		}
		names[i] = name
	}
	return names, nil
}

// FindMethod finds a method by name and descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].Descriptor == descriptor {
			return &cf.Methods[i]
		}
	}
	return nil
}

// FindMethodByName finds a method by name only (first match).
func (cf *ClassFile) FindMethodByName(name string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name {
			return &cf.Methods[i]
		}
	}
	return nil
}
