package vm

import "github.com/pkg/errors"

// Sentinel errors matching spec §7's runtime taxonomy. errors.Is
// classifies a failure; errors.Wrapf adds call-site context while
// keeping the sentinel recoverable.
var (
	ErrReservedInstruction = errors.New("reserved or unimplemented instruction")
	ErrNullReference       = errors.New("null reference dereferenced")
	ErrOutOfBounds         = errors.New("array index out of bounds")
	ErrLinkageError        = errors.New("linkage error")
	ErrArithmetic          = errors.New("arithmetic exception")
	ErrStackOverflow       = errors.New("operand stack overflow")
	ErrStackUnderflow      = errors.New("operand stack underflow")
	ErrUncaughtException   = errors.New("uncaught java exception")
)
