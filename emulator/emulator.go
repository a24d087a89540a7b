// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator runs Intcode programs with in-memory input and output.
package emulator

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/ezrec/intcode/channel"
	"github.com/ezrec/intcode/cpu"
)

// Emulator state. CPU + program + IO channels.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently loaded program.

	Input  channel.Pipe // Input channel.
	Output channel.Pipe // Output channel.
}

// NewEmulator creates a new emulator, with its own input and output pipes bound.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(nil),
		Program: &cpu.Program{},
	}

	emu.Cpu.SetInput(&emu.Input)
	emu.Cpu.SetOutput(&emu.Output)

	return
}

// SetLogger sets the trace destination.
func (emu *Emulator) SetLogger(log *slog.Logger) {
	emu.Cpu.Log = log
}

// Reset the emulator state.
// - Empties the input and output pipes.
// - Loads a fresh copy of the program into memory.
func (emu *Emulator) Reset() (err error) {
	emu.Input.Rewind()
	emu.Output.Rewind()

	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset(emu.Program.Image)

	return
}

// Send queues values on the input pipe.
func (emu *Emulator) Send(values ...int64) {
	_ = channel.SendAll(&emu.Input, values...)
}

// Outputs drains, and returns, all of the pending output values.
func (emu *Emulator) Outputs() []int64 {
	return slices.Collect(channel.Values(&emu.Output))
}

// Ip returns current instruction pointer.
func (emu *Emulator) Ip() int {
	return emu.Cpu.Ip
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Ip)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single tick of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	ip := emu.Cpu.Ip
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Ip: ip, LineNo: lineno, Err: err}
		}
	}()

	err = emu.Cpu.Tick()
	if errors.Is(err, cpu.ErrHalt) {
		err = nil
		done = true
		return
	}

	return
}

// Run ticks the emulator until the program halts, or faults.
func (emu *Emulator) Run() (err error) {
	var done bool
	for !done {
		done, err = emu.Tick()
		if err != nil {
			return
		}
	}

	return
}

// Chain runs each emulator in turn, from a fresh reset. The inputs are
// sent to the first emulator, and the outputs of each emulator are the
// inputs to the next. The outputs of the last emulator are returned.
func Chain(inputs []int64, emus ...*Emulator) (outputs []int64, err error) {
	outputs = slices.Clone(inputs)
	for _, emu := range emus {
		err = emu.Reset()
		if err != nil {
			return
		}
		emu.Send(outputs...)
		err = emu.Run()
		if err != nil {
			return
		}
		outputs = emu.Outputs()
	}

	return
}
