package cpu

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ezrec/intcode/channel"
)

// Channel is an I/O channel interface.
type Channel channel.Channel

// Cpu is the execution context of a single Intcode program.
type Cpu struct {
	Verbose bool         // Set to enable verbose logging.
	Log     *slog.Logger // Trace destination. Defaults to slog.Default().

	Memory []int64 // Memory cells, owned by the Cpu.
	Ip     int     // Current instruction pointer.
	Halted bool    // Set once a halt instruction has executed.

	Ticks int // Instructions executed since reset.

	input  Channel
	output Channel
}

// NewCpu creates a new CPU with a copy of the program image as memory.
func NewCpu(image []int64) (cpu *Cpu) {
	cpu = &Cpu{}
	cpu.Reset(image)

	return
}

// Reset the CPU state.
// - Replaces memory with a copy of the image.
// - Sets the IP to zero.
// - Zeros statistics counters.
//
// Bound channels are left untouched.
func (cpu *Cpu) Reset(image []int64) {
	cpu.Memory = slices.Clone(image)
	if cpu.Memory == nil {
		cpu.Memory = []int64{}
	}
	cpu.Ip = 0
	cpu.Halted = false
	cpu.Ticks = 0

	if cpu.Verbose {
		cpu.logger().Debug("cpu: reset", "size", len(cpu.Memory))
	}
}

// SetInput binds the channel consumed by the 'in' operation.
func (cpu *Cpu) SetInput(ch Channel) {
	cpu.input = ch
}

// SetOutput binds the channel appended to by the 'out' operation.
func (cpu *Cpu) SetOutput(ch Channel) {
	cpu.output = ch
}

// Input returns the bound input channel, if any.
func (cpu *Cpu) Input() Channel {
	return cpu.input
}

// Output returns the bound output channel, if any.
func (cpu *Cpu) Output() Channel {
	return cpu.output
}

func (cpu *Cpu) logger() *slog.Logger {
	if cpu.Log != nil {
		return cpu.Log
	}
	return slog.Default()
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("   ip: %d\n", cpu.Ip)
	text += fmt.Sprintf("ticks: %d\n", cpu.Ticks)
	text += fmt.Sprintf(" size: %d\n", len(cpu.Memory))
	inst, err := cpu.Fetch()
	if err != nil {
		text += fmt.Sprintf(" next: %v\n", err)
	} else {
		text += fmt.Sprintf(" next: %v\n", inst)
	}

	return
}

// Fetch decodes the instruction at the IP.
func (cpu *Cpu) Fetch() (inst Instruction, err error) {
	return Decode(cpu.Memory, cpu.Ip)
}

// Run executes instructions until halt, or the first fault.
// A normal halt returns nil.
func (cpu *Cpu) Run() (err error) {
	for {
		err = cpu.Tick()
		if errors.Is(err, ErrHalt) {
			err = nil
			return
		}
		if err != nil {
			return
		}
	}
}

// Tick executes a single instruction cycle.
//
// Returns ErrHalt when a halt instruction executes. Faults are
// returned as *ErrFault.
func (cpu *Cpu) Tick() (err error) {
	ip := cpu.Ip
	defer func() {
		if err != nil && err != ErrHalt {
			err = &ErrFault{Ip: ip, Word: cpu.word(ip), Err: err}
		}
	}()

	inst, err := cpu.Fetch()
	if err != nil {
		return
	}

	err = cpu.Execute(inst)

	return
}

// word returns the memory at address, or 0 if out of bounds.
func (cpu *Cpu) word(address int) int64 {
	if address < 0 || address >= len(cpu.Memory) {
		return 0
	}
	return cpu.Memory[address]
}

// Execute executes a single decoded instruction at the IP.
func (cpu *Cpu) Execute(inst Instruction) (err error) {
	if cpu.Verbose {
		cpu.logger().Debug("exec", "ip", cpu.Ip, "inst", inst.String())
	}

	if len(inst.Arguments) != inst.Operation.Arity() {
		err = ErrInstructionInvalid
		return
	}

	args := inst.Arguments
	next_ip := cpu.Ip + inst.Len()

	switch inst.Operation {
	case OP_ADD, OP_MUL, OP_LT, OP_EQ:
		var a, b int64
		a, err = cpu.load(args[0])
		if err != nil {
			err = errors.Join(ErrArgument(0), err)
			return
		}
		b, err = cpu.load(args[1])
		if err != nil {
			err = errors.Join(ErrArgument(1), err)
			return
		}
		var value int64
		switch inst.Operation {
		case OP_ADD:
			value = a + b
		case OP_MUL:
			value = a * b
		case OP_LT:
			if a < b {
				value = 1
			}
		case OP_EQ:
			if a == b {
				value = 1
			}
		}
		err = cpu.store(args[2], value)
		if err != nil {
			err = errors.Join(ErrArgument(2), err)
			return
		}
	case OP_IN:
		if cpu.input == nil {
			err = ErrInputMissing
			return
		}
		if !cpu.input.Ready() {
			err = errors.Join(ErrInputExhausted, channel.ErrChannelEmpty)
			return
		}
		// Check the destination before consuming input.
		if !cpu.valid(args[0].Value) {
			err = errors.Join(ErrArgument(0), ErrAddressInvalid, ErrAddress(args[0].Value))
			return
		}
		var value int64
		value, err = cpu.input.Receive()
		if err != nil {
			return
		}
		if cpu.Verbose {
			cpu.logger().Debug("read", "value", value)
		}
		err = cpu.store(args[0], value)
		if err != nil {
			return
		}
	case OP_OUT:
		if cpu.output == nil {
			err = ErrOutputMissing
			return
		}
		var value int64
		value, err = cpu.load(args[0])
		if err != nil {
			err = errors.Join(ErrArgument(0), err)
			return
		}
		err = cpu.output.Send(value)
		if err != nil {
			return
		}
		if cpu.Verbose {
			cpu.logger().Debug("wrote", "value", value)
		}
	case OP_JT, OP_JF:
		var cond, target int64
		cond, err = cpu.load(args[0])
		if err != nil {
			err = errors.Join(ErrArgument(0), err)
			return
		}
		target, err = cpu.load(args[1])
		if err != nil {
			err = errors.Join(ErrArgument(1), err)
			return
		}
		if (cond != 0) == (inst.Operation == OP_JT) {
			next_ip = int(target)
		}
	case OP_HALT:
		if cpu.Verbose {
			cpu.logger().Debug("halted", "ip", cpu.Ip, "ticks", cpu.Ticks)
		}
		cpu.Halted = true
		err = ErrHalt
		return
	default:
		err = ErrOpcodeInvalid
		return
	}

	cpu.Ip = next_ip
	cpu.Ticks += 1

	return
}

// valid returns true if the address is in memory.
func (cpu *Cpu) valid(address int64) bool {
	return address >= 0 && address < int64(len(cpu.Memory))
}

// load resolves a value argument through its addressing mode.
func (cpu *Cpu) load(arg Argument) (value int64, err error) {
	switch arg.Mode {
	case MODE_IMMEDIATE:
		value = arg.Value
	case MODE_POSITION:
		if !cpu.valid(arg.Value) {
			err = errors.Join(ErrAddressInvalid, ErrAddress(arg.Value))
			return
		}
		value = cpu.Memory[arg.Value]
	default:
		err = ErrModeInvalid
	}

	return
}

// store writes to a destination argument. The mode of a destination
// is ignored; its value is always an address.
func (cpu *Cpu) store(arg Argument, value int64) (err error) {
	if !cpu.valid(arg.Value) {
		err = errors.Join(ErrAddressInvalid, ErrAddress(arg.Value))
		return
	}

	cpu.Memory[arg.Value] = value

	if cpu.Verbose {
		cpu.logger().Debug("mem", "address", arg.Value, "value", value)
	}

	return
}
