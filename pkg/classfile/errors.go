package classfile

import "github.com/pkg/errors"

// Sentinel errors matching the taxonomy of spec §7. Use errors.Is to
// classify a failure returned from this package; wrapped context is
// added with errors.Wrapf so the original sentinel survives unwrapping.
var (
	ErrIO              = errors.New("io error")
	ErrMalformedInput  = errors.New("malformed input")
	ErrDescriptorError = errors.New("descriptor error")
)

// DescriptorError is the finer-grained reason behind ErrDescriptorError.
type DescriptorError int

const (
	DescEmpty DescriptorError = iota
	DescInfiniteClassName
	DescUnknownType
	DescInvalidUtf8
	DescNoArguments
	DescInfiniteArguments
)

func (d DescriptorError) Error() string {
	switch d {
	case DescEmpty:
		return "empty descriptor"
	case DescInfiniteClassName:
		return "infinite class name"
	case DescUnknownType:
		return "unknown type"
	case DescInvalidUtf8:
		return "invalid utf8"
	case DescNoArguments:
		return "no method arguments"
	case DescInfiniteArguments:
		return "infinite method arguments"
	default:
		return "descriptor error"
	}
}

// Unwrap lets errors.Is(err, ErrDescriptorError) succeed for any DescriptorError.
func (d DescriptorError) Unwrap() error { return ErrDescriptorError }
