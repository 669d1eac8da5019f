package wiegand

import (
	"sync"
	"time"
)

// bitBuffer is the shared collector between the edge-handler context and
// the assembler's poll loop.  All access goes through the mutex; the
// assembler takes the contents with a single swap so no bit can be lost or
// duplicated at the frame boundary.
type bitBuffer struct {
	mu   sync.Mutex
	bits []uint8
	last time.Time
	max  int
}

func newBitBuffer(max int) *bitBuffer {
	return &bitBuffer{bits: make([]uint8, 0, max), max: max}
}

// Append records one bit.  Once the buffer reaches its cap (expected frame
// length + slack) further bits are silently ignored until the next take,
// so a jammed or noisy line cannot grow the buffer without bound.  Runs in
// the chip's event-delivery goroutine: constant time, no I/O.
func (b *bitBuffer) Append(bit uint8) {
	b.mu.Lock()
	if len(b.bits) < b.max {
		b.bits = append(b.bits, bit)
		b.last = time.Now()
	}
	b.mu.Unlock()
}

// TakeIfStale atomically removes and returns the buffered bits when the
// buffer is non-empty and no bit has arrived for longer than timeout.
func (b *bitBuffer) TakeIfStale(timeout time.Duration) ([]uint8, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.bits) == 0 || time.Since(b.last) <= timeout {
		return nil, false
	}
	bits := b.bits
	b.bits = make([]uint8, 0, b.max)
	return bits, true
}

func (b *bitBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.bits)
}
