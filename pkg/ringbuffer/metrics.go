// ABOUTME: Cursor and occupancy bookkeeping for a circular frame index space
// ABOUTME: Splits reads, writes and flushes into at most two contiguous segments
package ringbuffer

// Metrics tracks the read and write cursors of a ring of Capacity frames.
// All values are frame indices, not byte offsets.
type Metrics struct {
	Capacity      int
	ReadPosition  int
	WritePosition int
	Buffered      int
}

// Init sets the capacity and empties the ring
func (m *Metrics) Init(capacity int) {
	if capacity <= 0 {
		panic("ringbuffer: capacity must be positive")
	}
	m.Capacity = capacity
	m.Reset()
}

// Reset empties the ring, keeping the capacity
func (m *Metrics) Reset() {
	m.ReadPosition = 0
	m.WritePosition = 0
	m.Buffered = 0
}

// Free returns the number of frames that can still be written
func (m *Metrics) Free() int {
	return m.Capacity - m.Buffered
}

// Flush drops up to n frames from the read side and returns how many were dropped
func (m *Metrics) Flush(n int) int {
	amount := min(max(n, 0), m.Buffered)
	m.ReadPosition = (m.ReadPosition + amount) % m.Capacity
	m.Buffered -= amount
	return amount
}

// Read consumes up to n frames. offset is where the first segment starts and
// lengths holds the frame counts before and after the wrap boundary.
func (m *Metrics) Read(n int) (amount, offset int, lengths [2]int) {
	amount = min(max(n, 0), m.Buffered)
	offset = m.ReadPosition
	lengths = m.split(offset, amount)

	m.ReadPosition = (m.ReadPosition + amount) % m.Capacity
	m.Buffered -= amount
	return amount, offset, lengths
}

// Write reserves up to n frames of free space, with the same result shape as Read
func (m *Metrics) Write(n int) (amount, offset int, lengths [2]int) {
	amount = min(max(n, 0), m.Free())
	offset = m.WritePosition
	lengths = m.split(offset, amount)

	m.WritePosition = (m.WritePosition + amount) % m.Capacity
	m.Buffered += amount
	return amount, offset, lengths
}

func (m *Metrics) split(offset, amount int) [2]int {
	first := min(m.Capacity-offset, amount)
	return [2]int{first, amount - first}
}
