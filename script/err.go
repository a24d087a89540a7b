package script

import (
	"errors"

	"github.com/ezrec/intcode/translate"
)

var f = translate.From

var (
	ErrListExpected = errors.New(f("list expected"))
	ErrIntExpected  = errors.New(f("int expected"))
	ErrIntRange     = errors.New(f("int out of range"))
)

// ErrIndex is the index of a bad list element.
type ErrIndex int

func (err ErrIndex) Error() string {
	return f("index %d", int(err))
}

// ErrBuiltin indicates the builtin, and the argument, that failed.
type ErrBuiltin struct {
	Name string
	Arg  string // Argument name, or empty for the builtin as a whole.
	Err  error
}

func (err *ErrBuiltin) Error() string {
	if len(err.Arg) == 0 {
		return f("%v: %v", err.Name, err.Err)
	}
	return f("%v: %v: %v", err.Name, err.Arg, err.Err)
}

func (err *ErrBuiltin) Unwrap() error {
	return err.Err
}
