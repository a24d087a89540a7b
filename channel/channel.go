// Package channel provides the in-order integer channels used for
// Intcode program input and output.
//
// A channel is an append-only sequence of values with a single read
// cursor. Values are sent to the tail and received from the head; a
// received value is never seen again.
package channel

import (
	"iter"
)

// Channel defines the interface for all Intcode I/O channels.
type Channel interface {
	// Rewind resets the channel to its initial state.
	Rewind()
	// Ready returns true if at least one unconsumed value remains.
	Ready() bool
	// Receive returns the next unconsumed value.
	// Returns ErrChannelEmpty if the channel is not Ready().
	Receive() (value int64, err error)
	// Send appends a value to the channel.
	Send(value int64) error
}

// Drain returns an iterator that drains all ready values from a channel.
// A receive error is yielded once, and ends the sequence.
func Drain(ch Channel) iter.Seq2[int64, error] {
	return func(yield func(value int64, err error) bool) {
		for ch.Ready() {
			value, err := ch.Receive()
			if err != nil {
				yield(0, err)
				return
			}
			if !yield(value, nil) {
				return
			}
		}
	}
}

// Values returns an iterator that drains all ready values from a channel.
// It stops silently at the first receive error; use Drain to see it.
func Values(ch Channel) iter.Seq[int64] {
	return func(yield func(value int64) bool) {
		for ch.Ready() {
			value, err := ch.Receive()
			if err != nil {
				return
			}
			if !yield(value) {
				return
			}
		}
	}
}

// SendAll sends each of the values to the channel, in order.
func SendAll(ch Channel, values ...int64) (err error) {
	for _, value := range values {
		err = ch.Send(value)
		if err != nil {
			return
		}
	}
	return
}
