package bash

import "sync"

// streamBuffer accumulates everything a pipe produces between commands.
// The exec copier goroutines write into it; Run snapshots and clears it.
// It grows without bound, but Run resets it after every framed command, so
// the high-water mark is a single command's worth of output.
type streamBuffer struct {
	mu   sync.Mutex
	data []byte
}

// Write appends p to the buffer. Implements io.Writer.
func (b *streamBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append(b.data, p...)
	return len(p), nil
}

// String snapshots the accumulated bytes without consuming them.
func (b *streamBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return string(b.data)
}

// Len returns the number of accumulated bytes.
func (b *streamBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.data)
}

// Reset discards everything accumulated so far.
func (b *streamBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = b.data[:0]
}
