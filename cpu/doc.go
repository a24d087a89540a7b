// Package cpu implements the Intcode processor and assembler.
//
// The processor is a flat array of signed 64-bit memory cells and an
// instruction pointer (IP). Each instruction word holds a two digit
// opcode, and one addressing mode digit per argument above that. The
// arguments follow the instruction word in memory.
//
// The assembler provides a small assembly language for the Intcode
// instruction set, supporting labels, equates, and compile-time
// expression evaluation.
package cpu
