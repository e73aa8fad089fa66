package classfile

import (
	"strings"
)

// FieldKind tags the variant of a FieldDescriptor (spec §3/§4.2), ported
// from original_source/src/descriptor.rs's FieldDescriptor enum.
type FieldKind int

const (
	FDByte FieldKind = iota
	FDChar
	FDDouble
	FDFloat
	FDInt
	FDLong
	FDClassRef
	FDShort
	FDBoolean
	FDArray
)

// FieldDescriptor is a recursive tagged field/array type descriptor.
type FieldDescriptor struct {
	Kind      FieldKind
	ClassName string           // valid when Kind == FDClassRef
	Elem      *FieldDescriptor // valid when Kind == FDArray
}

// ParseFieldDescriptor parses the prefix of bytes as one field descriptor
// and returns it along with the number of bytes consumed (spec §4.2).
func ParseFieldDescriptor(b []byte) (FieldDescriptor, int, error) {
	if len(b) == 0 {
		return FieldDescriptor{}, 0, DescEmpty
	}
	switch b[0] {
	case 'B':
		return FieldDescriptor{Kind: FDByte}, 1, nil
	case 'C':
		return FieldDescriptor{Kind: FDChar}, 1, nil
	case 'D':
		return FieldDescriptor{Kind: FDDouble}, 1, nil
	case 'F':
		return FieldDescriptor{Kind: FDFloat}, 1, nil
	case 'I':
		return FieldDescriptor{Kind: FDInt}, 1, nil
	case 'J':
		return FieldDescriptor{Kind: FDLong}, 1, nil
	case 'S':
		return FieldDescriptor{Kind: FDShort}, 1, nil
	case 'Z':
		return FieldDescriptor{Kind: FDBoolean}, 1, nil
	case 'L':
		idx := -1
		for i := 1; i < len(b); i++ {
			if b[i] == ';' {
				idx = i
				break
			}
		}
		if idx < 0 {
			return FieldDescriptor{}, 0, DescInfiniteClassName
		}
		return FieldDescriptor{Kind: FDClassRef, ClassName: string(b[1:idx])}, idx + 1, nil
	case '[':
		elem, n, err := ParseFieldDescriptor(b[1:])
		if err != nil {
			return FieldDescriptor{}, 0, err
		}
		return FieldDescriptor{Kind: FDArray, Elem: &elem}, n + 1, nil
	default:
		return FieldDescriptor{}, 0, DescUnknownType
	}
}

// UnitSize is the number of 32-bit stack/local slots the type occupies:
// 2 for long/double, 1 for everything else (spec §3 "FieldDescriptor").
func (f FieldDescriptor) UnitSize() int {
	if f.Kind == FDLong || f.Kind == FDDouble {
		return 2
	}
	return 1
}

// ByteSize is the in-memory footprint used for field layout (spec §4.6
// step 3): 8 for long/double, 4 for int/float/references, 2 for
// short/char, 1 for byte/boolean.
func (f FieldDescriptor) ByteSize() int {
	switch f.Kind {
	case FDLong, FDDouble:
		return 8
	case FDInt, FDFloat, FDClassRef, FDArray:
		return 4
	case FDShort, FDChar:
		return 2
	case FDByte, FDBoolean:
		return 1
	default:
		return 4
	}
}

// String reproduces the canonical descriptor form, used for invariant I4
// (descriptor round-trip) and member-table keys.
func (f FieldDescriptor) String() string {
	switch f.Kind {
	case FDByte:
		return "B"
	case FDChar:
		return "C"
	case FDDouble:
		return "D"
	case FDFloat:
		return "F"
	case FDInt:
		return "I"
	case FDLong:
		return "J"
	case FDShort:
		return "S"
	case FDBoolean:
		return "Z"
	case FDClassRef:
		return "L" + f.ClassName + ";"
	case FDArray:
		return "[" + f.Elem.String()
	default:
		return "?"
	}
}

// DisplayType renders the Java source-level spelling (int, String[], ...).
func (f FieldDescriptor) DisplayType() string {
	switch f.Kind {
	case FDByte:
		return "byte"
	case FDChar:
		return "char"
	case FDDouble:
		return "double"
	case FDFloat:
		return "float"
	case FDInt:
		return "int"
	case FDLong:
		return "long"
	case FDShort:
		return "short"
	case FDBoolean:
		return "boolean"
	case FDClassRef:
		return strings.ReplaceAll(f.ClassName, "/", ".")
	case FDArray:
		return f.Elem.DisplayType() + "[]"
	default:
		return "?"
	}
}

// MethodDescriptor is an ordered argument list plus an optional return
// type (nil return means void), per spec §3/§4.2.
type MethodDescriptor struct {
	Args   []FieldDescriptor
	Return *FieldDescriptor
}

// ParseMethodDescriptor parses "(args)ret" per spec §4.2.
func ParseMethodDescriptor(b []byte) (MethodDescriptor, error) {
	if len(b) == 0 {
		return MethodDescriptor{}, DescEmpty
	}
	if b[0] != '(' {
		return MethodDescriptor{}, DescNoArguments
	}
	rest := b[1:]
	var args []FieldDescriptor
	for {
		if len(rest) == 0 {
			return MethodDescriptor{}, DescInfiniteArguments
		}
		if rest[0] == ')' {
			rest = rest[1:]
			break
		}
		fd, n, err := ParseFieldDescriptor(rest)
		if err != nil {
			if err == DescEmpty {
				return MethodDescriptor{}, DescInfiniteArguments
			}
			return MethodDescriptor{}, err
		}
		args = append(args, fd)
		rest = rest[n:]
	}
	if len(rest) > 0 && rest[0] == 'V' {
		return MethodDescriptor{Args: args, Return: nil}, nil
	}
	ret, _, err := ParseFieldDescriptor(rest)
	if err != nil {
		return MethodDescriptor{}, err
	}
	return MethodDescriptor{Args: args, Return: &ret}, nil
}

// ArgSlotCount sums unit sizes of the argument list (spec §4.6 step 4:
// "arg_slot_count"); the caller adds one extra slot for `this` when the
// method is non-static.
func (m MethodDescriptor) ArgSlotCount() int {
	n := 0
	for _, a := range m.Args {
		n += a.UnitSize()
	}
	return n
}

// String reproduces the canonical "(args)ret" form.
func (m MethodDescriptor) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, a := range m.Args {
		sb.WriteString(a.String())
	}
	sb.WriteByte(')')
	if m.Return == nil {
		sb.WriteByte('V')
	} else {
		sb.WriteString(m.Return.String())
	}
	return sb.String()
}

// DisplayType renders "rettype name(argtypes)".
func (m MethodDescriptor) DisplayType(name string) string {
	var sb strings.Builder
	if m.Return == nil {
		sb.WriteString("void")
	} else {
		sb.WriteString(m.Return.DisplayType())
	}
	sb.WriteByte(' ')
	sb.WriteString(name)
	sb.WriteByte('(')
	for i, a := range m.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.DisplayType())
	}
	sb.WriteByte(')')
	return sb.String()
}

// ParseAnyDescriptor tries the method form first, falling back to the
// field form on DescNoArguments, per spec §4.2.
func ParseAnyDescriptor(b []byte) (method *MethodDescriptor, field *FieldDescriptor, err error) {
	md, err := ParseMethodDescriptor(b)
	if err == nil {
		return &md, nil, nil
	}
	if err == DescNoArguments {
		fd, _, ferr := ParseFieldDescriptor(b)
		if ferr != nil {
			return nil, nil, ferr
		}
		return nil, &fd, nil
	}
	return nil, nil, err
}
