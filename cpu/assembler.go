// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":    "0",
	"POSITION":  fmt.Sprintf("%d", MODE_POSITION),
	"IMMEDIATE": fmt.Sprintf("%d", MODE_IMMEDIATE),
}

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
	reLabel      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// mnemonicMap maps assembler mnemonics to operations.
var mnemonicMap = func() (mnemonics map[string]Operation) {
	mnemonics = make(map[string]Operation, len(operationInfo))
	for op := range operationInfo {
		mnemonics[op.String()] = op
	}
	return
}()

// Assembler is a single pass assembler for Intcode.
//
// Each line holds an optional set of 'label:' prefixes, and a single
// instruction or directive. Arguments are addresses (position mode)
// unless prefixed with '#' (immediate mode). Text after ';' is ignored.
//
//	.equ LIMIT 8
//	start:  in   value
//	        lt   value #LIMIT flag
//	        jt   flag #start
//	        out  value
//	        halt
//	value:  .data 0
//	flag:   .data 0
type Assembler struct {
	Verbose bool         // If set, verbosely logs the assembler actions.
	Log     *slog.Logger // Trace destination. Defaults to slog.Default().
	Opcode  []Opcode     // List of generated opcodes.

	predefine map[string]string // Predefines
	Label     map[string]int    // Map of labels to addresses.
	Equate    map[string]string // Map of equates.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

func (asm *Assembler) logger() *slog.Logger {
	if asm.Log != nil {
		return asm.Log
	}
	return slog.Default()
}

// valueOf returns the value of a simple word, or the label it references.
func (asm *Assembler) valueOf(word string) (value int64, label string, err error) {
	if len(word) == 0 {
		err = ErrOpcodeValueMissing
		return
	}

	equate, ok := asm.Equate[word]
	if ok {
		word = equate
	}

	value, err = strconv.ParseInt(word, 0, 64)
	if err == nil {
		return
	}

	if reLabel.MatchString(word) {
		err = nil
		value = 0
		label = word
		return
	}

	err = ErrParseNumber(word)
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value64 int64
		var label string
		value64, label, err = asm.valueOf(str)
		if err != nil || len(label) != 0 {
			// Ignore non-integer equates.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt64(value64)
	}
	for key, ip := range asm.Label {
		pred[key] = starlark.MakeInt(ip)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// parseLine expands a single line into words.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "t":
				str = "\t"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%d", value)
	})
	if err != nil {
		return
	}

	words = strings.Fields(line)
	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for len(words) > 0 && strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		if !reLabel.MatchString(label) {
			err = ErrLabelInvalid
			return
		}
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		asm.Label[label] = asm.currentIp()
		words = words[1:]
	}

	return
}

// currentIp gets the current Ip
func (asm *Assembler) currentIp() int {
	if len(asm.Opcode) == 0 {
		return 0
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Ip + len(last.Values)
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Label = make(map[string]int, 16)
	asm.Opcode = asm.Opcode[:0]
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			asm.logger().Debug("asm", "line", lineno, "text", text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])

		var words []string
		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	// Final linking of labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]
		lineno = op.LineNo
		line = strings.Join(op.Words, " ")
		for index, label := range op.Links {
			ip, ok := asm.Label[label]
			if !ok {
				err = ErrLabelMissing(label)
				return
			}
			op.Values[index] += int64(ip)
		}
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}
	for _, op := range prog.Opcodes {
		prog.Image = append(prog.Image, op.Values...)
	}

	return
}

// argumentOf parses an instruction argument.
// A '#' prefix selects immediate mode.
func (asm *Assembler) argumentOf(word string) (arg Argument, label string, err error) {
	arg.Mode = MODE_POSITION
	if strings.HasPrefix(word, "#") {
		arg.Mode = MODE_IMMEDIATE
		word = word[1:]
	}

	arg.Value, label, err = asm.valueOf(word)

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var values []int64
	links := map[int]string{}

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if err != nil || len(values) == 0 {
			return
		}
		if len(links) == 0 {
			links = nil
		}
		opcode := Opcode{LineNo: lineno, Ip: asm.currentIp(), Words: initial_words, Values: values, Links: links}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	if words[0] == ".data" {
		if len(words) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		for n, word := range words[1:] {
			var value int64
			var label string
			value, label, err = asm.valueOf(word)
			if err != nil {
				return
			}
			if len(label) != 0 {
				links[n] = label
			}
			values = append(values, value)
		}
		return
	}

	op, ok := mnemonicMap[words[0]]
	if !ok {
		err = ErrInstructionInvalid
		return
	}

	args := words[1:]
	if len(args) < op.Arity() {
		err = ErrOpcodeValueMissing
		return
	}
	if len(args) > op.Arity() {
		err = ErrOpcodeExtraArgs
		return
	}

	arguments := make([]Argument, len(args))
	for n, word := range args {
		var label string
		arguments[n], label, err = asm.argumentOf(word)
		if err != nil {
			return
		}
		if n == op.Target() && arguments[n].Mode != MODE_POSITION {
			err = ErrTargetInvalid
			return
		}
		if len(label) != 0 {
			links[1+n] = label
		}
	}

	inst := Instruction{Operation: op, Arguments: arguments}
	values = append(values, inst.Word())
	for _, arg := range arguments {
		values = append(values, arg.Value)
	}

	return
}
