// ABOUTME: Thread-safe circular buffer of interleaved S16 samples
// ABOUTME: Blocks writers while full and zero-fills readers on underrun
package output

import (
	"encoding/binary"
	"sync"
	"time"
)

// RingBuffer provides thread-safe circular buffer for audio samples
type RingBuffer struct {
	buffer    []int16
	readPos   int
	writePos  int
	size      int
	count     int // Number of samples currently in buffer
	closed    bool
	underruns uint64
	mu        sync.Mutex
	cond      *sync.Cond
}

// NewRingBuffer creates a ring buffer with given capacity (in samples)
func NewRingBuffer(capacity int) *RingBuffer {
	rb := &RingBuffer{
		buffer: make([]int16, capacity),
		size:   capacity,
	}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// TryWrite adds as many samples as fit without blocking
func (rb *RingBuffer) TryWrite(samples []int16) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.closed {
		return 0
	}
	return rb.put(samples)
}

// Write adds all samples, waiting for the reader while the buffer is full.
// It returns early with a short count if the buffer is closed.
func (rb *RingBuffer) Write(samples []int16) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	written := 0
	for written < len(samples) {
		for rb.count == rb.size && !rb.closed {
			rb.cond.Wait()
		}
		if rb.closed {
			break
		}
		written += rb.put(samples[written:])
	}
	return written
}

// put must hold rb.mu
func (rb *RingBuffer) put(samples []int16) int {
	written := 0
	for i := 0; i < len(samples) && rb.count < rb.size; i++ {
		rb.buffer[rb.writePos] = samples[i]
		rb.writePos = (rb.writePos + 1) % rb.size
		rb.count++
		written++
	}
	return written
}

// Read retrieves samples from the ring buffer
func (rb *RingBuffer) Read(samples []int16) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	read := 0
	for i := 0; i < len(samples) && rb.count > 0; i++ {
		samples[i] = rb.buffer[rb.readPos]
		rb.readPos = (rb.readPos + 1) % rb.size
		rb.count--
		read++
	}

	// Zero-fill remaining if underrun
	for i := read; i < len(samples); i++ {
		samples[i] = 0
	}
	if read < len(samples) && !rb.closed {
		rb.underruns++
	}

	rb.cond.Broadcast()
	return read
}

// ReadBytes fills out with little-endian samples, using scratch to hold
// them. scratch must have room for len(out)/2 samples.
func (rb *RingBuffer) ReadBytes(out []byte, scratch []int16) int {
	samples := scratch[:len(out)/2]
	n := rb.Read(samples)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return n
}

// Available returns the number of samples available to read
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Underruns counts reads that came up short
func (rb *RingBuffer) Underruns() uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.underruns
}

// WaitEmpty polls until the reader has consumed everything or timeout passes
func (rb *RingBuffer) WaitEmpty(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for rb.Available() > 0 {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
	return true
}

// Close wakes blocked writers and rejects further writes
func (rb *RingBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	rb.cond.Broadcast()
}
