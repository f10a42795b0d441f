package session

import "sync"

// Buffer accumulates the merged output of a single command session. It has
// exactly one writer (the session's collector) and any number of readers.
// Readers address content by absolute byte offset: offsets count every byte
// ever appended, so a reader's cursor stays valid even after old bytes have
// been evicted to honour the size cap.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	start  int64 // absolute offset of data[0]
	max    int
	closed bool
	wake   chan struct{}
}

// DefaultBufferSize caps retained output per session when no explicit limit
// is configured.
const DefaultBufferSize = 8 * 1024 * 1024

// NewBuffer constructs a buffer retaining at most max bytes. A non-positive
// max selects DefaultBufferSize.
func NewBuffer(max int) *Buffer {
	if max <= 0 {
		max = DefaultBufferSize
	}
	return &Buffer{
		max:  max,
		wake: make(chan struct{}),
	}
}

// Append adds bytes to the buffer and wakes any blocked readers. Appends to a
// closed buffer are ignored; the collector stops writing once the session is
// finalized, so a late append only occurs when termination raced a drain.
func (b *Buffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.data = append(b.data, p...)
	if len(b.data) > b.max {
		excess := len(b.data) - b.max
		b.data = b.data[excess:]
		b.start += int64(excess)
	}
	b.broadcastLocked()
}

// ReadFrom returns a copy of every byte at or beyond cursor that is still
// retained, together with the cursor for the following read. A cursor inside
// the evicted prefix reads from the earliest retained byte; a cursor at or
// past the end returns nil with the cursor unchanged, clamped to the end.
func (b *Buffer) ReadFrom(cursor int64) ([]byte, int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	end := b.start + int64(len(b.data))
	if cursor >= end {
		return nil, end
	}
	if cursor < b.start {
		cursor = b.start
	}
	out := make([]byte, end-cursor)
	copy(out, b.data[cursor-b.start:])
	return out, end
}

// Snapshot returns a copy of all retained content.
func (b *Buffer) Snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Size reports the total number of bytes ever appended, including any that
// have since been evicted.
func (b *Buffer) Size() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.start + int64(len(b.data))
}

// Close marks the buffer complete and wakes blocked readers. It is safe to
// call more than once.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.broadcastLocked()
}

// Closed reports whether the buffer has been closed for writes.
func (b *Buffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Changed returns a channel that is closed on the next append or close.
// Readers select on it alongside their deadline to implement bounded waits.
func (b *Buffer) Changed() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.wake
}

func (b *Buffer) broadcastLocked() {
	close(b.wake)
	b.wake = make(chan struct{})
}
