package cpu

import (
	"fmt"
	"io"
	"iter"
	"slices"
	"strconv"
	"strings"
)

// Opcode represents a line of assembled code with its source location
// and generated memory values.
type Opcode struct {
	LineNo int
	Ip     int
	Words  []string
	Values []int64
	Links  map[int]string // Value index to label to link.
}

// Program is an initial memory image, with optional assembler debug information.
type Program struct {
	Image   []int64
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

// ParseProgram parses a comma separated list of base 10 integers.
func ParseProgram(text string) (prog *Program, err error) {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		err = ErrProgramEmpty
		return
	}

	tokens := strings.Split(text, ",")
	image := make([]int64, len(tokens))
	for n, token := range tokens {
		token = strings.TrimSpace(token)
		if strings.HasPrefix(token, "+") {
			err = ErrParseNumber(token)
			return
		}
		image[n], err = strconv.ParseInt(token, 10, 64)
		if err != nil {
			err = ErrParseNumber(token)
			return
		}
	}

	prog = &Program{Image: image}

	return
}

// ReadProgram parses a program from a stream.
func ReadProgram(input io.Reader) (prog *Program, err error) {
	data, err := io.ReadAll(input)
	if err != nil {
		return
	}

	return ParseProgram(string(data))
}

// Memory returns a copy of the program image.
func (prog *Program) Memory() []int64 {
	return slices.Clone(prog.Image)
}

// String returns the program image in its comma separated form.
func (prog *Program) String() string {
	words := make([]string, len(prog.Image))
	for n, value := range prog.Image {
		words[n] = strconv.FormatInt(value, 10)
	}
	return strings.Join(words, ",")
}

// Debug finds the assembler opcode that generated the value at ip.
func (prog *Program) Debug(ip int) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if ip >= op.Ip && ip < op.Ip+len(op.Values) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  ip - op.Ip,
			}
			break
		}
	}

	return
}

// Listing disassembles the program image, yielding the address and text
// of each line. Words that do not decode are listed as '.data'.
func (prog *Program) Listing() iter.Seq2[int, string] {
	return func(yield func(ip int, text string) bool) {
		ip := 0
		for ip < len(prog.Image) {
			var text string
			inst, err := Decode(prog.Image, ip)
			if err != nil {
				text = fmt.Sprintf(".data %d", prog.Image[ip])
			} else {
				text = inst.String()
			}
			if !yield(ip, text) {
				return
			}
			if err != nil {
				ip++
			} else {
				ip += inst.Len()
			}
		}
	}
}
