package cpu

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/intcode/channel"
)

const compareTo8 = "3,21,1008,21,8,20,1005,20,22,107,8,21,20,1006,20,31,1106,0,36,98,0,0,1002,21,125,20,4,20,1105,1,46,104,999,1105,1,46,1101,1000,1,20,4,20,1105,1,46,98,99"

func mustParse(t *testing.T, text string) []int64 {
	prog, err := ParseProgram(text)
	if err != nil {
		t.Fatalf("%v: %v", text, err)
	}
	return prog.Memory()
}

// doRun runs a program with a set of inputs, and returns the outputs.
func doRun(t *testing.T, text string, inputs ...int64) (cpu *Cpu, outputs []int64, err error) {
	cpu = NewCpu(mustParse(t, text))

	input := channel.NewPipe(inputs...)
	output := &channel.Pipe{}
	cpu.SetInput(input)
	cpu.SetOutput(output)

	err = cpu.Run()

	for output.Ready() {
		value, rerr := output.Receive()
		if rerr != nil {
			t.Fatal(rerr)
		}
		outputs = append(outputs, value)
	}

	return
}

func TestCpu_Memory(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		program string
		memory  []int64
	}){
		{"1,0,0,0,99", []int64{2, 0, 0, 0, 99}},
		{"2,3,0,3,99", []int64{2, 3, 0, 6, 99}},
		{"2,4,4,5,99,0", []int64{2, 4, 4, 5, 99, 9801}},
		{"1,1,1,4,99,5,6,0,99", []int64{30, 1, 1, 4, 2, 5, 6, 0, 99}},
		{"1002,4,3,4,33", []int64{1002, 4, 3, 4, 99}},
		{"1101,100,-1,4,0", []int64{1101, 100, -1, 4, 99}},
		{"3,1,1001,1,1,1,99", []int64{3, 5, 1001, 1, 1, 1, 99}},
	}

	for _, entry := range table {
		cpu, _, err := doRun(t, entry.program, 4)
		assert.NoError(err, entry.program)
		assert.Equal(entry.memory, cpu.Memory, entry.program)
		assert.True(cpu.Halted, entry.program)
	}
}

func TestCpu_DestinationMode(t *testing.T) {
	assert := assert.New(t)

	// An immediate mode digit on a destination still writes to its address.
	table := [](struct {
		program string
		input   int64
		memory  []int64
	}){
		{"11101,2,3,0,99", 0, []int64{5, 2, 3, 0, 99}},
		{"11102,2,3,0,99", 0, []int64{6, 2, 3, 0, 99}},
		{"11107,1,2,0,99", 0, []int64{1, 1, 2, 0, 99}},
		{"11108,1,1,0,99", 0, []int64{1, 1, 1, 0, 99}},
		{"103,0,99", 42, []int64{42, 0, 99}},
	}

	for _, entry := range table {
		cpu, _, err := doRun(t, entry.program, entry.input)
		assert.NoError(err, entry.program)
		assert.Equal(entry.memory, cpu.Memory, entry.program)
	}
}

func TestCpu_InputOutput(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		program string
		input   int64
		output  []int64
	}){
		{"eq_position_true", "3,9,8,9,10,9,4,9,99,-1,8", 8, []int64{1}},
		{"eq_position_false", "3,9,8,9,10,9,4,9,99,-1,8", 42, []int64{0}},
		{"lt_position_true", "3,9,7,9,10,9,4,9,99,-1,8", 7, []int64{1}},
		{"lt_position_false", "3,9,7,9,10,9,4,9,99,-1,8", 9, []int64{0}},
		{"eq_immediate_true", "3,3,1108,-1,8,3,4,3,99", 8, []int64{1}},
		{"eq_immediate_false", "3,3,1108,-1,8,3,4,3,99", 7, []int64{0}},
		{"lt_immediate_true", "3,3,1107,-1,8,3,4,3,99", 7, []int64{1}},
		{"lt_immediate_false", "3,3,1107,-1,8,3,4,3,99", 8, []int64{0}},
		{"jump_zero", "3,12,6,12,15,1,13,14,13,4,13,99,-1,0,1,9", 0, []int64{0}},
		{"jump_nonzero", "3,12,6,12,15,1,13,14,13,4,13,99,-1,0,1,9", 10, []int64{1}},
		{"jump_immediate_zero", "3,3,1105,-1,9,1101,0,0,12,4,12,99,1", 0, []int64{0}},
		{"jump_immediate_nonzero", "3,3,1105,-1,9,1101,0,0,12,4,12,99,1", 5, []int64{1}},
		{"larger_lt", compareTo8, 4, []int64{999}},
		{"larger_eq", compareTo8, 8, []int64{1000}},
		{"larger_gt", compareTo8, 10, []int64{1001}},
	}

	for _, entry := range table {
		_, output, err := doRun(t, entry.program, entry.input)
		assert.NoError(err, entry.name)
		assert.Equal(entry.output, output, entry.name)
	}
}

func TestCpu_OutputOrder(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(mustParse(t, "104,1,104,2,4,0,104,3,99"))
	output := &channel.Pipe{}
	cpu.SetOutput(output)

	err := cpu.Run()
	assert.NoError(err)

	for _, expected := range []int64{1, 2, 104, 3} {
		assert.True(output.Ready())
		value, err := output.Receive()
		assert.NoError(err)
		assert.Equal(expected, value)
	}
	assert.False(output.Ready())
}

func TestCpu_ImmediatePositionEquivalence(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		immediate string
		position  string
	}){
		{"1101,5,7,0,99", "1,5,6,0,99,5,7"},
		{"1102,5,7,0,99", "2,5,6,0,99,5,7"},
		{"1107,5,7,0,99", "7,5,6,0,99,5,7"},
		{"1108,7,7,0,99", "8,5,6,0,99,7,7"},
	}

	for _, entry := range table {
		imm, _, err := doRun(t, entry.immediate)
		assert.NoError(err, entry.immediate)
		pos, _, err := doRun(t, entry.position)
		assert.NoError(err, entry.position)
		assert.Equal(imm.Memory[0], pos.Memory[0], entry.immediate)
	}
}

func TestCpu_Jump(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		program string
		ip      int
		ticks   int
	}){
		{"1105,1,4,99,1106,0,8,99,99", 8, 2}, // both taken
		{"1105,0,7,99", 3, 1},                 // jt not taken
		{"1106,1,7,99", 3, 1},                 // jf not taken
		{"1105,1,0,99", -1, -1},               // loops forever
	}

	for _, entry := range table {
		cpu := NewCpu(mustParse(t, entry.program))
		if entry.ip < 0 {
			for range 100 {
				assert.NoError(cpu.Tick(), entry.program)
				assert.Equal(0, cpu.Ip, entry.program)
			}
			assert.False(cpu.Halted, entry.program)
			continue
		}
		err := cpu.Run()
		assert.NoError(err, entry.program)
		assert.Equal(entry.ip, cpu.Ip, entry.program)
		assert.Equal(entry.ticks, cpu.Ticks, entry.program)
	}
}

func TestCpu_Compare(t *testing.T) {
	assert := assert.New(t)

	for _, a := range []int64{-3, 0, 5, 1 << 40} {
		for _, b := range []int64{-3, 0, 5, 1 << 40} {
			for _, op := range []Operation{OP_LT, OP_EQ} {
				word := MakeWord(op, MODE_IMMEDIATE, MODE_IMMEDIATE)
				cpu := NewCpu([]int64{word, a, b, 0, 99})
				assert.NoError(cpu.Run())
				result := cpu.Memory[0]
				assert.Contains([]int64{0, 1}, result)
				if op == OP_LT {
					assert.Equal(a < b, result == 1)
				} else {
					assert.Equal(a == b, result == 1)
				}
			}
		}
	}
}

func TestCpu_Halt(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu([]int64{99, 1, 2})
	assert.ErrorIs(cpu.Tick(), ErrHalt)
	assert.ErrorIs(cpu.Tick(), ErrHalt)
	assert.Equal(0, cpu.Ip)
	assert.Equal(0, cpu.Ticks)
	assert.Equal([]int64{99, 1, 2}, cpu.Memory)
	assert.True(cpu.Halted)
}

func TestCpu_Copy(t *testing.T) {
	assert := assert.New(t)

	image := []int64{1, 0, 0, 0, 99}
	cpu := NewCpu(image)
	assert.NoError(cpu.Run())
	assert.Equal([]int64{1, 0, 0, 0, 99}, image)
	assert.Equal([]int64{2, 0, 0, 0, 99}, cpu.Memory)

	cpu.Reset(image)
	assert.Equal(image, cpu.Memory)
	assert.Equal(0, cpu.Ip)
	assert.Equal(0, cpu.Ticks)
	assert.False(cpu.Halted)
}

func TestCpu_Faults(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		program string
		input   []int64 // nil to leave input unbound
		output  bool    // bind output
		ip      int
		err     error
	}){
		{"opcode", "98,0,0", []int64{}, true, 0, ErrOpcodeInvalid},
		{"opcode_later", "1101,1,1,0,42", []int64{}, true, 4, ErrOpcodeInvalid},
		{"mode", "201,0,0,0,99", []int64{}, true, 0, ErrModeInvalid},
		{"input_missing", "3,0,99", nil, true, 0, ErrInputMissing},
		{"input_exhausted", "3,0,99", []int64{}, true, 0, ErrInputExhausted},
		{"input_exhausted_later", "3,0,3,0,99", []int64{7}, true, 2, ErrInputExhausted},
		{"output_missing", "4,0,99", []int64{}, false, 0, ErrOutputMissing},
		{"store_oob", "1,0,0,10,99", []int64{}, true, 0, ErrAddressInvalid},
		{"store_negative", "1,0,0,-1,99", []int64{}, true, 0, ErrAddressInvalid},
		{"load_oob", "1,10,0,0,99", []int64{}, true, 0, ErrAddressInvalid},
		{"input_oob", "3,50,99", []int64{1}, true, 0, ErrAddressInvalid},
		{"truncated", "1,0,0", []int64{}, true, 0, ErrAddressInvalid},
		{"jump_oob", "1105,1,100", []int64{}, true, 100, ErrAddressInvalid},
		{"jump_negative", "1105,1,-5", []int64{}, true, -5, ErrAddressInvalid},
		{"run_off_end", "1101,1,1,0", []int64{}, true, 4, ErrAddressInvalid},
	}

	for _, entry := range table {
		image := mustParse(t, entry.program)
		cpu := NewCpu(image)
		if entry.input != nil {
			cpu.SetInput(channel.NewPipe(entry.input...))
		}
		if entry.output {
			cpu.SetOutput(&channel.Pipe{})
		}

		err := cpu.Run()
		assert.ErrorIs(err, entry.err, entry.name)
		assert.False(errors.Is(err, ErrHalt), entry.name)
		assert.False(cpu.Halted, entry.name)

		var fault *ErrFault
		if assert.True(errors.As(err, &fault), entry.name) {
			assert.Equal(entry.ip, fault.Ip, entry.name)
		}
		assert.Equal(entry.ip, cpu.Ip, entry.name)
	}
}

func TestCpu_FaultHasNoEffect(t *testing.T) {
	assert := assert.New(t)

	// The destination is out of bounds; the input must not be consumed.
	input := channel.NewPipe(5)
	cpu := NewCpu([]int64{3, 100, 99})
	cpu.SetInput(input)
	assert.ErrorIs(cpu.Run(), ErrAddressInvalid)
	assert.True(input.Ready())
	assert.Equal([]int64{3, 100, 99}, cpu.Memory)

	cpu = NewCpu([]int64{3, 0, 99})
	cpu.SetInput(&channel.Pipe{})
	err := cpu.Run()
	assert.ErrorIs(err, ErrInputExhausted)
	assert.ErrorIs(err, channel.ErrChannelEmpty)
	assert.Equal([]int64{3, 0, 99}, cpu.Memory)
}

func TestCpu_BoundedOutput(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(mustParse(t, "104,1,104,2,99"))
	cpu.SetOutput(channel.NewRing(1))

	err := cpu.Run()
	assert.ErrorIs(err, channel.ErrChannelFull)
	assert.Equal(2, cpu.Ip)
}

func TestCpu_Verbose(t *testing.T) {
	assert := assert.New(t)

	trace := &bytes.Buffer{}
	cpu := NewCpu(mustParse(t, "1101,2,3,0,104,7,99"))
	cpu.SetOutput(&channel.Pipe{})
	cpu.Verbose = true
	cpu.Log = slog.New(slog.NewTextHandler(trace, &slog.HandlerOptions{Level: slog.LevelDebug}))

	assert.NoError(cpu.Run())

	text := trace.String()
	assert.Contains(text, "msg=exec")
	assert.Contains(text, `inst="add #2 #3 0"`)
	assert.Contains(text, "msg=mem address=0 value=5")
	assert.Contains(text, "msg=wrote value=7")
	assert.Contains(text, "msg=halted")
}

func TestCpu_String(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu([]int64{1101, 2, 3, 0, 99})
	assert.Contains(cpu.String(), "next: add #2 #3 0")

	cpu = NewCpu(nil)
	assert.NotNil(cpu.Memory)
	assert.Contains(cpu.String(), "next: ")
}
