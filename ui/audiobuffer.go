package ui

import (
	"io"
	"sync"
)

// frameBytes is one interleaved int16 stereo frame.
const frameBytes = 4

// AudioRingBuffer is a thread-safe ring buffer implementing io.Reader.
// The playback goroutine writes frames via Write(), and oto's player
// reads them via Read(). Read blocks when empty; Write drops the oldest
// whole frames on overflow so the producer never stalls and the stereo
// pairing survives.
type AudioRingBuffer struct {
	buf      []byte
	readPos  int
	writePos int
	count    int
	capacity int
	mu       sync.Mutex
	cond     *sync.Cond
	closed   bool
}

// NewAudioRingBuffer creates a ring buffer holding capacity bytes, rounded
// down to whole frames.
func NewAudioRingBuffer(capacity int) *AudioRingBuffer {
	capacity -= capacity % frameBytes
	if capacity < frameBytes {
		capacity = frameBytes
	}
	rb := &AudioRingBuffer{
		buf:      make([]byte, capacity),
		capacity: capacity,
	}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// Write adds whole frames to the buffer. A trailing partial frame is
// discarded. Returns the number of bytes dropped to make room.
func (rb *AudioRingBuffer) Write(p []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.closed {
		return 0
	}

	p = p[:len(p)-len(p)%frameBytes]
	n := len(p)
	if n == 0 {
		return 0
	}

	dropped := 0
	if n > rb.capacity {
		dropped = n - rb.capacity
		p = p[dropped:]
		n = rb.capacity
	}

	if overflow := rb.count + n - rb.capacity; overflow > 0 {
		rb.readPos = (rb.readPos + overflow) % rb.capacity
		rb.count -= overflow
		dropped += overflow
	}

	first := rb.capacity - rb.writePos
	if first >= n {
		copy(rb.buf[rb.writePos:], p)
	} else {
		copy(rb.buf[rb.writePos:], p[:first])
		copy(rb.buf, p[first:])
	}
	rb.writePos = (rb.writePos + n) % rb.capacity
	rb.count += n

	rb.cond.Signal()
	return dropped
}

// Read implements io.Reader. Blocks until data is available or the buffer
// is closed. Returns io.EOF when closed and empty.
func (rb *AudioRingBuffer) Read(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for rb.count == 0 {
		if rb.closed {
			return 0, io.EOF
		}
		rb.cond.Wait()
	}

	n := len(p)
	if n > rb.count {
		n = rb.count
	}

	first := rb.capacity - rb.readPos
	if first >= n {
		copy(p, rb.buf[rb.readPos:rb.readPos+n])
	} else {
		copy(p, rb.buf[rb.readPos:])
		copy(p[first:], rb.buf[:n-first])
	}
	rb.readPos = (rb.readPos + n) % rb.capacity
	rb.count -= n

	return n, nil
}

// Buffered returns the number of bytes currently in the buffer.
func (rb *AudioRingBuffer) Buffered() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Clear discards all buffered data.
func (rb *AudioRingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.readPos = 0
	rb.writePos = 0
	rb.count = 0
}

// Close signals shutdown. Subsequent Reads return io.EOF once the buffer
// is empty. Unblocks any goroutines waiting in Read.
func (rb *AudioRingBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	rb.cond.Broadcast()
}
