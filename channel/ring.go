package channel

const (
	RING_DEFAULT_CAPACITY = 4096
)

// Ring implements a bounded circular FIFO.
// It operates as a queue with a fixed capacity and separate read/write positions.
type Ring struct {
	Capacity int // Capacity in values. Zero selects RING_DEFAULT_CAPACITY.

	ReadIndex  int
	WriteIndex int
	Size       int
	Data       []int64
}

var _ Channel = (*Ring)(nil)

// NewRing creates a ring with the given capacity.
func NewRing(capacity int) (ring *Ring) {
	ring = &Ring{Capacity: capacity}
	ring.Rewind()
	return
}

// Rewind resets the ring to empty, resetting indices and
// reinitializing the data buffer.
func (ring *Ring) Rewind() {
	if ring.Capacity <= 0 {
		ring.Capacity = RING_DEFAULT_CAPACITY
	}
	ring.ReadIndex = 0
	ring.WriteIndex = 0
	ring.Size = 0
	ring.Data = make([]int64, ring.Capacity)
}

func (ring *Ring) Ready() bool {
	return ring.Size > 0
}

// Receive returns the oldest value. The buffer wraps around at the
// capacity boundary.
func (ring *Ring) Receive() (value int64, err error) {
	if ring.Size == 0 {
		err = ErrChannelEmpty
		return
	}

	value = ring.Data[ring.ReadIndex]
	ring.ReadIndex++
	if ring.ReadIndex == ring.Capacity {
		ring.ReadIndex = 0
	}
	ring.Size--

	return
}

// Send writes a value at the current write position.
// Returns ErrChannelFull if the ring has reached capacity.
func (ring *Ring) Send(value int64) (err error) {
	if ring.Data == nil {
		ring.Rewind()
	}

	if ring.Size >= ring.Capacity {
		err = ErrChannelFull
		return
	}

	ring.Data[ring.WriteIndex] = value

	ring.WriteIndex++
	if ring.WriteIndex == ring.Capacity {
		ring.WriteIndex = 0
	}
	ring.Size++

	return
}
