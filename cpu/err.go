package cpu

import (
	"errors"

	"github.com/ezrec/intcode/translate"
)

var f = translate.From

var (
	// Cpu state
	ErrHalt = errors.New(f("halt"))

	// Cpu faults
	ErrOpcodeInvalid  = errors.New(f("opcode invalid"))
	ErrModeInvalid    = errors.New(f("addressing mode invalid"))
	ErrAddressInvalid = errors.New(f("address out of bounds"))
	ErrInputMissing   = errors.New(f("no input channel"))
	ErrOutputMissing  = errors.New(f("no output channel"))
	ErrInputExhausted = errors.New(f("input exhausted"))

	// Program load errors
	ErrProgramEmpty = errors.New(f("program empty"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrLabelInvalid       = errors.New(f("label invalid"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrTargetInvalid      = errors.New(f("target invalid"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

// ErrArgument indicates which argument of an instruction is at fault.
type ErrArgument int

func (err ErrArgument) Error() string {
	return f("argument %d", int(err))
}

// ErrAddress is the out of bounds address of a memory access.
type ErrAddress int64

func (err ErrAddress) Error() string {
	return f("address %d", int64(err))
}

// ErrFault indicates the location of a fatal cpu fault.
type ErrFault struct {
	Ip   int   // Address of the faulting instruction.
	Word int64 // Instruction word at Ip, if Ip is in bounds.
	Err  error
}

func (err *ErrFault) Error() string {
	return f("ip %d word %d: %v", err.Ip, err.Word, err.Err)
}

func (err *ErrFault) Unwrap() error {
	return err.Err
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
