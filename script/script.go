// Package script runs starlark scripts that drive Intcode programs.
//
// The following builtins are predeclared:
//
//	program(text)              parse a comma separated image into a list
//	assemble(text)             assemble source text into an image list
//	disassemble(image)         list of "ip: text" listing lines
//	run(image, inputs=[])      struct(output, memory, ip, ticks)
//	chain(images, inputs=[])   outputs of running each image in series
package script

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"

	"github.com/ezrec/intcode/cpu"
	"github.com/ezrec/intcode/emulator"
)

// Runner executes scripts.
type Runner struct {
	Verbose bool         // If set, traces each emulator run.
	Log     *slog.Logger // Trace destination. Defaults to slog.Default().
	Output  io.Writer    // Destination of print(); discarded if nil.
}

// Exec executes a script, returning its global variables.
func (rn *Runner) Exec(filename string, src any) (globals starlark.StringDict, err error) {
	thread := &starlark.Thread{
		Name: filename,
		Print: func(_ *starlark.Thread, msg string) {
			if rn.Output != nil {
				fmt.Fprintln(rn.Output, msg)
			}
		},
	}

	opts := syntax.FileOptions{}

	return starlark.ExecFileOptions(&opts, thread, filename, src, rn.Predeclared())
}

// Predeclared returns the builtins available to scripts.
func (rn *Runner) Predeclared() starlark.StringDict {
	return starlark.StringDict{
		"program":     starlark.NewBuiltin("program", rn.program),
		"assemble":    starlark.NewBuiltin("assemble", rn.assemble),
		"disassemble": starlark.NewBuiltin("disassemble", rn.disassemble),
		"run":         starlark.NewBuiltin("run", rn.run),
		"chain":       starlark.NewBuiltin("chain", rn.chain),
	}
}

// newEmulator creates an emulator for an image.
func (rn *Runner) newEmulator(image []int64) (emu *emulator.Emulator) {
	emu = emulator.NewEmulator()
	emu.Verbose = rn.Verbose
	if rn.Log != nil {
		emu.SetLogger(rn.Log)
	}
	emu.Program = &cpu.Program{Image: image}
	return
}

func (rn *Runner) program(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var text string
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &text); err != nil {
		return nil, err
	}

	prog, err := cpu.ParseProgram(text)
	if err != nil {
		return nil, &ErrBuiltin{Name: fn.Name(), Err: err}
	}

	return fromInts(prog.Image), nil
}

func (rn *Runner) assemble(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var text string
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &text); err != nil {
		return nil, err
	}

	asm := &cpu.Assembler{Verbose: rn.Verbose, Log: rn.Log}
	prog, err := asm.Parse(strings.NewReader(text))
	if err != nil {
		return nil, &ErrBuiltin{Name: fn.Name(), Err: err}
	}

	return fromInts(prog.Image), nil
}

func (rn *Runner) disassemble(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var image *starlark.List
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &image); err != nil {
		return nil, err
	}

	values, err := toInts(image)
	if err != nil {
		return nil, &ErrBuiltin{Name: fn.Name(), Err: err}
	}

	var lines []starlark.Value
	prog := &cpu.Program{Image: values}
	for ip, text := range prog.Listing() {
		lines = append(lines, starlark.String(fmt.Sprintf("%d: %s", ip, text)))
	}

	return starlark.NewList(lines), nil
}

func (rn *Runner) run(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var image *starlark.List
	inputs := starlark.NewList(nil)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "image", &image, "inputs?", &inputs); err != nil {
		return nil, err
	}

	values, err := toInts(image)
	if err != nil {
		return nil, &ErrBuiltin{Name: fn.Name(), Arg: "image", Err: err}
	}
	in, err := toInts(inputs)
	if err != nil {
		return nil, &ErrBuiltin{Name: fn.Name(), Arg: "inputs", Err: err}
	}

	emu := rn.newEmulator(values)
	err = emu.Reset()
	if err != nil {
		return nil, err
	}
	emu.Send(in...)
	err = emu.Run()
	if err != nil {
		return nil, &ErrBuiltin{Name: fn.Name(), Err: err}
	}

	return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"output": fromInts(emu.Outputs()),
		"memory": fromInts(emu.Cpu.Memory),
		"ip":     starlark.MakeInt(emu.Cpu.Ip),
		"ticks":  starlark.MakeInt(emu.Cpu.Ticks),
	}), nil
}

func (rn *Runner) chain(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var images *starlark.List
	inputs := starlark.NewList(nil)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "images", &images, "inputs?", &inputs); err != nil {
		return nil, err
	}

	in, err := toInts(inputs)
	if err != nil {
		return nil, &ErrBuiltin{Name: fn.Name(), Arg: "inputs", Err: err}
	}

	var emus []*emulator.Emulator
	for n := range images.Len() {
		image, ok := images.Index(n).(*starlark.List)
		if !ok {
			return nil, &ErrBuiltin{Name: fn.Name(), Arg: "images", Err: errors.Join(ErrListExpected, ErrIndex(n))}
		}
		values, err := toInts(image)
		if err != nil {
			return nil, &ErrBuiltin{Name: fn.Name(), Arg: "images", Err: errors.Join(err, ErrIndex(n))}
		}
		emus = append(emus, rn.newEmulator(values))
	}

	outputs, err := emulator.Chain(in, emus...)
	if err != nil {
		return nil, &ErrBuiltin{Name: fn.Name(), Err: err}
	}

	return fromInts(outputs), nil
}

// toInts converts a starlark list of integers.
func toInts(list *starlark.List) (values []int64, err error) {
	values = make([]int64, 0, list.Len())
	for n := range list.Len() {
		st_int, ok := list.Index(n).(starlark.Int)
		if !ok {
			err = errors.Join(ErrIntExpected, ErrIndex(n))
			return
		}
		value, ok := st_int.Int64()
		if !ok {
			err = errors.Join(ErrIntRange, ErrIndex(n))
			return
		}
		values = append(values, value)
	}
	return
}

// fromInts converts integers to a starlark list.
func fromInts(values []int64) *starlark.List {
	elems := make([]starlark.Value, len(values))
	for n, value := range values {
		elems[n] = starlark.MakeInt64(value)
	}
	return starlark.NewList(elems)
}
