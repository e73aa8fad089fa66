package classfile

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// parseAttributeInfos reads `count` (name_index, length, bytes) records
// and resolves each name against the pool, per spec §4.3.
func parseAttributeInfos(r io.Reader, pool []ConstantPoolEntry, count uint16) ([]AttributeInfo, error) {
	attrs := make([]AttributeInfo, count)
	for i := uint16(0); i < count; i++ {
		nameIndex, err := readU16(r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading attribute %d name index", i)
		}
		length, err := readU32(r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading attribute %d length", i)
		}
		data, err := readBytes(r, int(length))
		if err != nil {
			return nil, errors.Wrapf(err, "reading attribute %d data", i)
		}
		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving attribute %d name", i)
		}
		attrs[i] = AttributeInfo{Name: name, Data: data}
	}
	return attrs, nil
}

// parseCodeAttribute fully decodes a Code attribute's body, including its
// nested attribute list (spec §4.3: "A Code attribute additionally
// recursively decodes its own nested attribute list").
func parseCodeAttribute(pool []ConstantPoolEntry, data []byte) (*CodeAttribute, error) {
	r := bytes.NewReader(data)
	maxStack, err := readU16(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading max_stack")
	}
	maxLocals, err := readU16(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading max_locals")
	}
	codeLength, err := readU32(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading code_length")
	}
	code, err := readBytes(r, int(codeLength))
	if err != nil {
		return nil, errors.Wrap(err, "reading code bytes")
	}

	exTableLen, err := readU16(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading exception_table_length")
	}
	handlers := make([]ExceptionHandler, exTableLen)
	for i := uint16(0); i < exTableLen; i++ {
		var buf [8]byte
		if err := binary.Read(r, binary.BigEndian, buf[:]); err != nil {
			return nil, errors.Wrapf(ErrIO, "reading exception handler %d: %s", i, err)
		}
		handlers[i] = ExceptionHandler{
			StartPC:   binary.BigEndian.Uint16(buf[0:2]),
			EndPC:     binary.BigEndian.Uint16(buf[2:4]),
			HandlerPC: binary.BigEndian.Uint16(buf[4:6]),
			CatchType: binary.BigEndian.Uint16(buf[6:8]),
		}
	}

	attrCount, err := readU16(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading code attribute count")
	}
	rawAttrs, err := parseAttributeInfos(r, pool, attrCount)
	if err != nil {
		return nil, errors.Wrap(err, "parsing code attributes")
	}

	ca := &CodeAttribute{
		MaxStack:          maxStack,
		MaxLocals:         maxLocals,
		Code:              code,
		ExceptionHandlers: handlers,
		Attributes:        rawAttrs,
	}

	for _, attr := range rawAttrs {
		switch attr.Name {
		case "LineNumberTable":
			lnt, err := parseLineNumberTable(attr.Data)
			if err != nil {
				return nil, errors.Wrap(err, "parsing LineNumberTable")
			}
			ca.LineNumbers = lnt
		case "LocalVariableTable":
			lvt, err := parseLocalVariableTable(pool, attr.Data)
			if err != nil {
				return nil, errors.Wrap(err, "parsing LocalVariableTable")
			}
			ca.LocalVariables = lvt
		case "LocalVariableTypeTable":
			lvtt, err := parseLocalVariableTypeTable(pool, attr.Data)
			if err != nil {
				return nil, errors.Wrap(err, "parsing LocalVariableTypeTable")
			}
			ca.LocalVariableTypes = lvtt
		case "StackMapTable":
			smt, err := parseStackMapTable(attr.Data)
			if err != nil {
				return nil, errors.Wrap(err, "parsing StackMapTable")
			}
			ca.StackMapTable = smt
		}
	}

	return ca, nil
}

func parseLineNumberTable(data []byte) ([]LineNumberEntry, error) {
	r := bytes.NewReader(data)
	n, err := readU16(r)
	if err != nil {
		return nil, err
	}
	out := make([]LineNumberEntry, n)
	for i := uint16(0); i < n; i++ {
		startPC, err := readU16(r)
		if err != nil {
			return nil, err
		}
		line, err := readU16(r)
		if err != nil {
			return nil, err
		}
		out[i] = LineNumberEntry{StartPC: startPC, LineNumber: line}
	}
	return out, nil
}

func parseLocalVariableTable(pool []ConstantPoolEntry, data []byte) ([]LocalVariableEntry, error) {
	r := bytes.NewReader(data)
	n, err := readU16(r)
	if err != nil {
		return nil, err
	}
	out := make([]LocalVariableEntry, n)
	for i := uint16(0); i < n; i++ {
		startPC, err := readU16(r)
		if err != nil {
			return nil, err
		}
		length, err := readU16(r)
		if err != nil {
			return nil, err
		}
		nameIndex, err := readU16(r)
		if err != nil {
			return nil, err
		}
		descIndex, err := readU16(r)
		if err != nil {
			return nil, err
		}
		index, err := readU16(r)
		if err != nil {
			return nil, err
		}
		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			return nil, err
		}
		desc, err := GetUtf8(pool, descIndex)
		if err != nil {
			return nil, err
		}
		out[i] = LocalVariableEntry{StartPC: startPC, Length: length, Name: name, Descriptor: desc, Index: index}
	}
	return out, nil
}

func parseLocalVariableTypeTable(pool []ConstantPoolEntry, data []byte) ([]LocalVariableTypeEntry, error) {
	r := bytes.NewReader(data)
	n, err := readU16(r)
	if err != nil {
		return nil, err
	}
	out := make([]LocalVariableTypeEntry, n)
	for i := uint16(0); i < n; i++ {
		startPC, err := readU16(r)
		if err != nil {
			return nil, err
		}
		length, err := readU16(r)
		if err != nil {
			return nil, err
		}
		nameIndex, err := readU16(r)
		if err != nil {
			return nil, err
		}
		sigIndex, err := readU16(r)
		if err != nil {
			return nil, err
		}
		index, err := readU16(r)
		if err != nil {
			return nil, err
		}
		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			return nil, err
		}
		sig, err := GetUtf8(pool, sigIndex)
		if err != nil {
			return nil, err
		}
		out[i] = LocalVariableTypeEntry{StartPC: startPC, Length: length, Name: name, Signature: sig, Index: index}
	}
	return out, nil
}

// parseStackMapTable decodes entries per the tag-byte table in spec
// §4.3: 0..63 same_frame, 64..127 same_locals_1_stack_item, 128..246
// reserved (fails), 247 same_locals_1_stack_item_extended, 248..250
// chop_frame, 251 same_frame_extended, 252..254 append_frame, 255
// full_frame.
func parseStackMapTable(data []byte) ([]StackMapFrame, error) {
	r := bytes.NewReader(data)
	n, err := readU16(r)
	if err != nil {
		return nil, err
	}
	frames := make([]StackMapFrame, n)
	for i := uint16(0); i < n; i++ {
		frameType, err := readU8(r)
		if err != nil {
			return nil, err
		}
		f := StackMapFrame{FrameType: frameType}
		switch {
		case frameType <= 63:
			f.OffsetDelta = uint16(frameType)
		case frameType <= 127:
			f.OffsetDelta = uint16(frameType) - 64
			vt, err := readVerificationType(r)
			if err != nil {
				return nil, err
			}
			f.Stack = []VerificationType{vt}
		case frameType <= 246:
			return nil, errors.Wrapf(ErrMalformedInput, "reserved stack map frame type %d", frameType)
		case frameType == 247:
			delta, err := readU16(r)
			if err != nil {
				return nil, err
			}
			f.OffsetDelta = delta
			vt, err := readVerificationType(r)
			if err != nil {
				return nil, err
			}
			f.Stack = []VerificationType{vt}
		case frameType <= 250:
			delta, err := readU16(r)
			if err != nil {
				return nil, err
			}
			f.OffsetDelta = delta
		case frameType == 251:
			delta, err := readU16(r)
			if err != nil {
				return nil, err
			}
			f.OffsetDelta = delta
		case frameType <= 254:
			delta, err := readU16(r)
			if err != nil {
				return nil, err
			}
			f.OffsetDelta = delta
			k := int(frameType) - 251
			locals := make([]VerificationType, k)
			for j := 0; j < k; j++ {
				vt, err := readVerificationType(r)
				if err != nil {
					return nil, err
				}
				locals[j] = vt
			}
			f.Locals = locals
		default: // 255: full_frame
			delta, err := readU16(r)
			if err != nil {
				return nil, err
			}
			f.OffsetDelta = delta
			numLocals, err := readU16(r)
			if err != nil {
				return nil, err
			}
			locals := make([]VerificationType, numLocals)
			for j := uint16(0); j < numLocals; j++ {
				vt, err := readVerificationType(r)
				if err != nil {
					return nil, err
				}
				locals[j] = vt
			}
			f.Locals = locals
			numStack, err := readU16(r)
			if err != nil {
				return nil, err
			}
			stack := make([]VerificationType, numStack)
			for j := uint16(0); j < numStack; j++ {
				vt, err := readVerificationType(r)
				if err != nil {
					return nil, err
				}
				stack[j] = vt
			}
			f.Stack = stack
		}
		frames[i] = f
	}
	return frames, nil
}

// Verification type tags (JVMS §4.7.4).
const (
	VTTop = iota
	VTInteger
	VTFloat
	VTDouble
	VTLong
	VTNull
	VTUninitializedThis
	VTObject
	VTUninitialized
)

func readVerificationType(r *bytes.Reader) (VerificationType, error) {
	tag, err := readU8(r)
	if err != nil {
		return VerificationType{}, err
	}
	vt := VerificationType{Tag: tag}
	if tag == VTObject || tag == VTUninitialized {
		cpOrPC, err := readU16(r)
		if err != nil {
			return VerificationType{}, err
		}
		vt.CPOrPC = cpOrPC
	}
	return vt, nil
}
