package channel

import (
	"bufio"
	"io"
	"strconv"
)

// Tape provides sequential I/O of decimal values over byte streams.
// Input values may be separated by commas or white space; each output
// value is written on its own line.
type Tape struct {
	Input  io.Reader
	Output io.Writer

	scanner *bufio.Scanner
	pending string
	loaded  bool
	done    bool
	err     error // Read error, not yet received.
	buffer  []byte
}

var _ Channel = (*Tape)(nil)

// Rewind is not possible on a tape.
func (tc *Tape) Rewind() {
}

// isSeparator returns true for bytes separating tape values.
func isSeparator(b byte) bool {
	switch b {
	case ',', ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	}
	return false
}

// scanValues is a bufio.SplitFunc for comma or space separated values.
func scanValues(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && isSeparator(data[start]) {
		start++
	}

	for n := start; n < len(data); n++ {
		if isSeparator(data[n]) {
			return n + 1, data[start:n], nil
		}
	}

	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}

	return start, nil, nil
}

// Ready reads ahead one token from the input stream, if needed.
// A read error is ready to be returned by Receive.
func (tc *Tape) Ready() bool {
	if tc.loaded || tc.err != nil {
		return true
	}

	if tc.done || tc.Input == nil {
		return false
	}

	if tc.scanner == nil {
		tc.scanner = bufio.NewScanner(tc.Input)
		tc.scanner.Split(scanValues)
	}

	if !tc.scanner.Scan() {
		tc.done = true
		tc.err = tc.scanner.Err()
		return tc.err != nil
	}

	tc.pending = tc.scanner.Text()
	tc.loaded = true

	return true
}

// Receive parses the next value from the input stream.
func (tc *Tape) Receive() (value int64, err error) {
	if !tc.Ready() {
		err = ErrChannelEmpty
		return
	}

	if tc.err != nil {
		err = tc.err
		tc.err = nil
		return
	}

	token := tc.pending
	tc.pending = ""
	tc.loaded = false

	value, err = strconv.ParseInt(token, 10, 64)
	if err != nil {
		err = ErrParseValue(token)
		return
	}

	return
}

// Send writes a value, and a newline, to the output stream.
func (tc *Tape) Send(value int64) (err error) {
	if tc.Output == nil {
		err = ErrChannelFull
		return
	}

	tc.buffer = strconv.AppendInt(tc.buffer[:0], value, 10)
	tc.buffer = append(tc.buffer, '\n')

	_, err = tc.Output.Write(tc.buffer)

	return
}
