// SPDX-License-Identifier: MIT
package rppg

// Sample is one accepted observation.
type Sample struct {
	Value     float64 // Mean green intensity.
	Timestamp float64 // Capture time in milliseconds on a monotonic clock.
}

// Buffer is a fixed-capacity FIFO of paired values and timestamps. Pushing onto a
// full buffer evicts the oldest pair. Storage is allocated once at construction.
//
// Buffer is not safe for concurrent use; it is owned by a single session.
type Buffer struct {
	values     []float64
	timestamps []float64
	head       int // index of the oldest sample
	size       int
}

// NewBuffer allocates a buffer holding at most capacity samples. Capacities below
// one are raised to one.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		values:     make([]float64, capacity),
		timestamps: make([]float64, capacity),
	}
}

// Push appends a pair, evicting the oldest one when the buffer is full.
func (b *Buffer) Push(value, timestamp float64) {
	capacity := len(b.values)
	if b.size < capacity {
		idx := b.head + b.size
		if idx >= capacity {
			idx -= capacity
		}
		b.values[idx] = value
		b.timestamps[idx] = timestamp
		b.size++
		return
	}

	// Full: overwrite the oldest slot and advance head.
	b.values[b.head] = value
	b.timestamps[b.head] = timestamp
	b.head++
	if b.head == capacity {
		b.head = 0
	}
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int { return b.size }

// Cap returns the maximum number of samples.
func (b *Buffer) Cap() int { return len(b.values) }

// At returns the i-th sample, 0 being the oldest. It panics if i is out of range.
func (b *Buffer) At(i int) Sample {
	if i < 0 || i >= b.size {
		panic("rppg: buffer index out of range")
	}
	idx := b.index(i)
	return Sample{Value: b.values[idx], Timestamp: b.timestamps[idx]}
}

// First returns the oldest sample and false when the buffer is empty.
func (b *Buffer) First() (Sample, bool) {
	if b.size == 0 {
		return Sample{}, false
	}
	return b.At(0), true
}

// Last returns the newest sample and false when the buffer is empty.
func (b *Buffer) Last() (Sample, bool) {
	if b.size == 0 {
		return Sample{}, false
	}
	return b.At(b.size - 1), true
}

// Values copies the values oldest-first into dst, growing it if needed, and returns
// the filled slice.
func (b *Buffer) Values(dst []float64) []float64 {
	return b.copyOrdered(dst, b.values)
}

// Timestamps copies the timestamps oldest-first into dst.
func (b *Buffer) Timestamps(dst []float64) []float64 {
	return b.copyOrdered(dst, b.timestamps)
}

// Reset empties the buffer without releasing storage.
func (b *Buffer) Reset() {
	b.head = 0
	b.size = 0
}

func (b *Buffer) index(i int) int {
	idx := b.head + i
	if idx >= len(b.values) {
		idx -= len(b.values)
	}
	return idx
}

func (b *Buffer) copyOrdered(dst, src []float64) []float64 {
	if cap(dst) < b.size {
		dst = make([]float64, b.size)
	}
	dst = dst[:b.size]

	// The live region is at most two contiguous runs.
	first := len(src) - b.head
	if first > b.size {
		first = b.size
	}
	copy(dst, src[b.head:b.head+first])
	copy(dst[first:], src[:b.size-first])
	return dst
}
