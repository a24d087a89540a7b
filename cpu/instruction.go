package cpu

import (
	"errors"
	"fmt"
	"strings"
)

// Argument is the raw value of an instruction argument and its addressing mode.
type Argument struct {
	Value int64
	Mode  Mode
}

// String returns the assembly language form of the argument.
func (arg Argument) String() string {
	if arg.Mode == MODE_IMMEDIATE {
		return fmt.Sprintf("#%d", arg.Value)
	}
	return fmt.Sprintf("%d", arg.Value)
}

// Instruction is a decoded view of an instruction in memory.
type Instruction struct {
	Operation Operation
	Arguments []Argument
}

// Len returns the number of memory cells the instruction occupies.
func (inst Instruction) Len() int {
	return inst.Operation.Arity() + 1
}

// Word returns the instruction word encoding of the instruction.
func (inst Instruction) Word() int64 {
	modes := make([]Mode, len(inst.Arguments))
	for n, arg := range inst.Arguments {
		modes[n] = arg.Mode
	}
	return MakeWord(inst.Operation, modes...)
}

// String returns the assembly language representation of the instruction.
// Destinations are always shown as addresses.
func (inst Instruction) String() string {
	words := []string{inst.Operation.String()}
	target := inst.Operation.Target()
	for n, arg := range inst.Arguments {
		if n == target {
			arg.Mode = MODE_POSITION
		}
		words = append(words, arg.String())
	}
	return strings.Join(words, " ")
}

// Decode decodes the instruction at address.
//
// Decoding does not modify memory.
func Decode(memory []int64, address int) (inst Instruction, err error) {
	if address < 0 || address >= len(memory) {
		err = errors.Join(ErrAddressInvalid, ErrAddress(address))
		return
	}

	word := memory[address]

	op := Operation(word % 100)
	if !op.Valid() {
		err = ErrOpcodeInvalid
		return
	}

	modes := word / 100
	arity := op.Arity()
	args := make([]Argument, arity)
	for n := range arity {
		mode := Mode(modes % 10)
		modes /= 10
		if !mode.Valid() {
			err = errors.Join(ErrModeInvalid, ErrArgument(n))
			return
		}
		loc := address + 1 + n
		if loc >= len(memory) {
			err = errors.Join(ErrAddressInvalid, ErrAddress(loc))
			return
		}
		args[n] = Argument{Value: memory[loc], Mode: mode}
	}

	inst = Instruction{
		Operation: op,
		Arguments: args,
	}

	return
}
