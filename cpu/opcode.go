package cpu

// Operation is an Intcode operation.
type Operation int

//go:generate go tool stringer -linecomment -type=Operation
const (
	OP_ADD  = Operation(1)  // add
	OP_MUL  = Operation(2)  // mul
	OP_IN   = Operation(3)  // in
	OP_OUT  = Operation(4)  // out
	OP_JT   = Operation(5)  // jt
	OP_JF   = Operation(6)  // jf
	OP_LT   = Operation(7)  // lt
	OP_EQ   = Operation(8)  // eq
	OP_HALT = Operation(99) // halt
)

// operationInfo is the fixed table of operation arities.
var operationInfo = map[Operation](struct {
	arity  int
	target int
}){
	OP_ADD:  {3, 2},
	OP_MUL:  {3, 2},
	OP_IN:   {1, 0},
	OP_OUT:  {1, -1},
	OP_JT:   {2, -1},
	OP_JF:   {2, -1},
	OP_LT:   {3, 2},
	OP_EQ:   {3, 2},
	OP_HALT: {0, -1},
}

// Valid returns true if the operation is in the instruction set.
func (op Operation) Valid() bool {
	_, ok := operationInfo[op]
	return ok
}

// Arity returns the number of arguments that follow the instruction word.
func (op Operation) Arity() int {
	return operationInfo[op].arity
}

// Target returns the index of the destination argument, or -1 if
// the operation does not write to memory.
func (op Operation) Target() int {
	info, ok := operationInfo[op]
	if !ok {
		return -1
	}
	return info.target
}

// Mode is an argument addressing mode.
type Mode int

//go:generate go tool stringer -linecomment -type=Mode
const (
	MODE_POSITION  = Mode(0) // pos
	MODE_IMMEDIATE = Mode(1) // imm
)

// Valid returns true for a known addressing mode.
func (mode Mode) Valid() bool {
	return mode == MODE_POSITION || mode == MODE_IMMEDIATE
}

// MakeWord encodes an instruction word from an operation and the
// addressing modes of its arguments, in argument order.
func MakeWord(op Operation, modes ...Mode) (word int64) {
	scale := int64(100)
	for _, mode := range modes {
		word += int64(mode) * scale
		scale *= 10
	}
	word += int64(op)
	return
}
