package channel

// Pipe is an unbounded in-memory channel.
//
// A *Pipe is the shared handle between a producer and a consumer; all
// access is expected to be sequential.
type Pipe struct {
	Data      []int64 // All values ever sent.
	ReadIndex int     // Index of the next value to receive.
}

var _ Channel = (*Pipe)(nil)

// NewPipe creates a pipe pre-filled with values.
func NewPipe(values ...int64) (pipe *Pipe) {
	pipe = &Pipe{}
	pipe.Data = append(pipe.Data, values...)
	return
}

// Rewind discards all values.
func (pipe *Pipe) Rewind() {
	pipe.Data = pipe.Data[:0]
	pipe.ReadIndex = 0
}

// Len returns the number of unconsumed values.
func (pipe *Pipe) Len() int {
	return len(pipe.Data) - pipe.ReadIndex
}

func (pipe *Pipe) Ready() bool {
	return pipe.ReadIndex < len(pipe.Data)
}

func (pipe *Pipe) Receive() (value int64, err error) {
	if !pipe.Ready() {
		err = ErrChannelEmpty
		return
	}

	value = pipe.Data[pipe.ReadIndex]
	pipe.ReadIndex++

	return
}

// Send always succeeds.
func (pipe *Pipe) Send(value int64) (err error) {
	pipe.Data = append(pipe.Data, value)
	return
}
