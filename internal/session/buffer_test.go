package session

import (
	"bytes"
	"testing"
	"time"
)

func TestBufferReadFromReturnsAppendedBytes(t *testing.T) {
	buf := NewBuffer(0)
	buf.Append([]byte("hello "))
	buf.Append([]byte("world"))

	data, next := buf.ReadFrom(0)
	if got, want := string(data), "hello world"; got != want {
		t.Fatalf("ReadFrom(0) = %q, want %q", got, want)
	}
	if next != 11 {
		t.Fatalf("next cursor = %d, want 11", next)
	}

	data, next = buf.ReadFrom(next)
	if len(data) != 0 {
		t.Fatalf("ReadFrom at end returned %q, want empty", data)
	}
	if next != 11 {
		t.Fatalf("cursor moved to %d at end of buffer", next)
	}
}

func TestBufferIndependentCursors(t *testing.T) {
	buf := NewBuffer(0)
	buf.Append([]byte("abc"))

	dataA, cursorA := buf.ReadFrom(0)
	if string(dataA) != "abc" {
		t.Fatalf("reader A got %q, want %q", dataA, "abc")
	}

	buf.Append([]byte("def"))

	dataA, cursorA = buf.ReadFrom(cursorA)
	if string(dataA) != "def" {
		t.Fatalf("reader A got %q after second append, want %q", dataA, "def")
	}
	if cursorA != 6 {
		t.Fatalf("reader A cursor = %d, want 6", cursorA)
	}

	// Reader B starts late and still sees the whole stream.
	dataB, cursorB := buf.ReadFrom(0)
	if string(dataB) != "abcdef" {
		t.Fatalf("reader B got %q, want %q", dataB, "abcdef")
	}
	if cursorB != cursorA {
		t.Fatalf("cursors diverged: A=%d B=%d", cursorA, cursorB)
	}
}

func TestBufferEvictionClampsCursor(t *testing.T) {
	buf := NewBuffer(4)
	buf.Append([]byte("abcdef"))

	if got := buf.Size(); got != 6 {
		t.Fatalf("Size() = %d, want 6 (counts evicted bytes)", got)
	}

	// Cursor 0 points into the evicted prefix; the read starts at the
	// earliest retained byte instead of failing.
	data, next := buf.ReadFrom(0)
	if string(data) != "cdef" {
		t.Fatalf("ReadFrom(0) after eviction = %q, want %q", data, "cdef")
	}
	if next != 6 {
		t.Fatalf("next cursor = %d, want 6", next)
	}

	if got := string(buf.Snapshot()); got != "cdef" {
		t.Fatalf("Snapshot() = %q, want %q", got, "cdef")
	}
}

func TestBufferChangedWakesOnAppend(t *testing.T) {
	buf := NewBuffer(0)
	changed := buf.Changed()

	go buf.Append([]byte("x"))

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("Changed channel not closed after append")
	}

	data, _ := buf.ReadFrom(0)
	if !bytes.Equal(data, []byte("x")) {
		t.Fatalf("ReadFrom(0) = %q, want %q", data, "x")
	}
}

func TestBufferChangedWakesOnClose(t *testing.T) {
	buf := NewBuffer(0)
	changed := buf.Changed()

	go buf.Close()

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("Changed channel not closed after Close")
	}
	if !buf.Closed() {
		t.Fatal("Closed() = false after Close")
	}
}

func TestBufferAppendAfterCloseIgnored(t *testing.T) {
	buf := NewBuffer(0)
	buf.Append([]byte("kept"))
	buf.Close()
	buf.Append([]byte("dropped"))

	if got := string(buf.Snapshot()); got != "kept" {
		t.Fatalf("Snapshot() = %q, want %q", got, "kept")
	}
	if got := buf.Size(); got != 4 {
		t.Fatalf("Size() = %d, want 4", got)
	}
}
