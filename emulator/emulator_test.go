package emulator

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/intcode/cpu"
)

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	assert.False(emu.Verbose)
	assert.NotNil(emu.Cpu)
	assert.NotNil(emu.Program)
	assert.Same(&emu.Input, emu.Cpu.Input())
	assert.Same(&emu.Output, emu.Cpu.Output())
}

func doAssemble(t *testing.T, program []string) *cpu.Program {
	asm := &cpu.Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}
	return prog
}

func doRunSingle(emu *Emulator, program []string, input []int64, t *testing.T) (output []int64) {
	assert := assert.New(t)

	prog := doAssemble(t, program)
	emu.Program = prog

	err := emu.Reset()
	assert.NoError(err)

	emu.Send(input...)

	for _, op := range prog.Opcodes {
		if op.Words[0] == ".data" {
			break
		}
		here := program[op.LineNo-1]
		assert.Equal(op.LineNo, emu.LineNo(), here)
		assert.Equal(op.Ip, emu.Ip(), here)
		done, err := emu.Tick()
		if err != nil {
			t.Log(emu.Cpu.String())
			t.Fatalf("%v", err)
		}
		assert.Equal(op.Words[0] == "halt", done, here)
	}

	output = emu.Outputs()
	return
}

func TestEmulatorStraightLine(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	program := []string{
		"in a",
		"in b",
		"add a b sum",
		"mul a b product",
		"out sum",
		"out product",
		"out #-1",
		"halt",
		"a: .data 0",
		"b: .data 0",
		"sum: .data 0",
		"product: .data 0",
	}

	output := doRunSingle(emu, program, []int64{6, 7}, t)
	assert.Equal([]int64{13, 42, -1}, output)
	assert.True(emu.Cpu.Halted)

	// Re-running after reset gives the same result.
	output = doRunSingle(emu, program, []int64{6, 7}, t)
	assert.Equal([]int64{13, 42, -1}, output)
}

func TestEmulatorRun(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	// Count down from the input to zero.
	program := []string{
		"      in n",
		"loop: out n",
		"      add n #-1 n",
		"      lt #-1 n more",
		"      jt more #loop",
		"      halt",
		"n:    .data 0",
		"more: .data 0",
	}
	emu.Program = doAssemble(t, program)

	assert.NoError(emu.Reset())
	emu.Send(3)
	assert.NoError(emu.Run())
	assert.Equal([]int64{3, 2, 1, 0}, emu.Outputs())
	assert.Empty(emu.Outputs())
}

func TestEmulatorFault(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	program := []string{
		"out #1",
		"in 0",
		"halt",
	}
	emu.Program = doAssemble(t, program)

	assert.NoError(emu.Reset())
	err := emu.Run()
	assert.ErrorIs(err, cpu.ErrInputExhausted)

	var rerr *ErrRuntime
	if assert.True(errors.As(err, &rerr)) {
		assert.Equal(2, rerr.LineNo)
		assert.Equal(2, rerr.Ip)
	}

	var ferr *cpu.ErrFault
	if assert.True(errors.As(err, &ferr)) {
		assert.Equal(2, ferr.Ip)
		assert.Equal(int64(3), ferr.Word)
	}

	// Output before the fault is still available.
	assert.Equal([]int64{1}, emu.Outputs())
}

func TestEmulatorFaultUnassembled(t *testing.T) {
	assert := assert.New(t)

	prog, err := cpu.ParseProgram("1101,1,1,0,77")
	assert.NoError(err)

	emu := NewEmulator()
	emu.Program = prog
	assert.NoError(emu.Reset())

	err = emu.Run()
	assert.ErrorIs(err, cpu.ErrOpcodeInvalid)

	var rerr *ErrRuntime
	if assert.True(errors.As(err, &rerr)) {
		assert.Equal(0, rerr.LineNo)
		assert.Equal(4, rerr.Ip)
	}
}

func TestEmulatorVerbose(t *testing.T) {
	assert := assert.New(t)

	trace := &bytes.Buffer{}

	emu := NewEmulator()
	emu.Verbose = true
	emu.SetLogger(slog.New(slog.NewJSONHandler(trace, &slog.HandlerOptions{Level: slog.LevelDebug})))
	emu.Program = doAssemble(t, []string{"out #5", "halt"})

	assert.NoError(emu.Reset())
	assert.NoError(emu.Run())
	assert.Equal([]int64{5}, emu.Outputs())

	assert.Contains(trace.String(), `"msg":"exec"`)
	assert.Contains(trace.String(), `"inst":"out #5"`)
}

func TestChain(t *testing.T) {
	assert := assert.New(t)

	// Each stage reads a value, adds its phase, and writes the result.
	stage := func(phase int64) *Emulator {
		emu := NewEmulator()
		emu.Program = doAssemble(t, []string{
			"in x",
			"add x #0 x",
			"out x",
			"halt",
			"x: .data 0",
		})
		// Patch the immediate addend.
		emu.Program.Image[4] = phase
		return emu
	}

	outputs, err := Chain([]int64{1}, stage(10), stage(100), stage(1000))
	assert.NoError(err)
	assert.Equal([]int64{1111}, outputs)

	// An empty chain passes the inputs through.
	outputs, err = Chain([]int64{4, 5})
	assert.NoError(err)
	assert.Equal([]int64{4, 5}, outputs)

	// A fault stops the chain.
	bad := NewEmulator()
	bad.Program = doAssemble(t, []string{"in 0", "in 0", "halt"})
	_, err = Chain([]int64{1}, stage(1), bad)
	assert.ErrorIs(err, cpu.ErrInputExhausted)
}
