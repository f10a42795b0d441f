// Package eventmux fans in session lifecycle events from multiple sources
// and delivers them via a bounded channel. When downstream consumers cannot
// keep up and the output buffer would overflow, the mux drops events and
// emits a synthesized warning to surface the number of discarded entries.
package eventmux

import (
	"fmt"
	"sync"
	"time"

	"github.com/example/deskd/internal/engine"
)

// Mux multiplexes engine event sources into one bounded output channel.
type Mux struct {
	out chan engine.Event

	mu     sync.Mutex
	drops  map[int64]int
	inputs sync.WaitGroup
}

// New constructs a mux backed by a channel of the provided size. A size of
// zero results in a minimally buffered channel.
func New(size int) *Mux {
	if size <= 0 {
		size = 1
	}
	return &Mux{
		out:   make(chan engine.Event, size),
		drops: make(map[int64]int),
	}
}

// Output exposes the muxed event channel.
func (m *Mux) Output() <-chan engine.Event {
	return m.out
}

// Add registers a new source channel. The mux consumes events until the
// source channel is closed.
func (m *Mux) Add(source <-chan engine.Event) {
	if source == nil {
		return
	}
	m.inputs.Add(1)
	go func() {
		defer m.inputs.Done()
		for evt := range source {
			m.deliver(normalize(evt))
		}
	}()
}

// Close waits for all sources to be drained, emits any pending drop
// metadata, and closes the output channel.
func (m *Mux) Close() {
	m.inputs.Wait()
	m.flushDrops()
	close(m.out)
}

func (m *Mux) deliver(evt engine.Event) {
	if !m.flushPending(evt.SessionID) {
		m.recordDrops(evt.SessionID, 1)
		return
	}
	if m.trySend(evt) {
		return
	}
	m.recordDrops(evt.SessionID, 1)
}

func (m *Mux) flushPending(sessionID int64) bool {
	for {
		count := m.takeDrops(sessionID)
		if count == 0 {
			return true
		}
		meta := synthesizeDropEvent(sessionID, count)
		if m.trySend(meta) {
			continue
		}
		m.recordDrops(sessionID, count)
		return false
	}
}

func (m *Mux) takeDrops(sessionID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := m.drops[sessionID]
	if count != 0 {
		delete(m.drops, sessionID)
	}
	return count
}

func (m *Mux) recordDrops(sessionID int64, count int) {
	if count <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drops[sessionID] += count
}

func (m *Mux) flushDrops() {
	pending := m.collectDrops()
	for sessionID, count := range pending {
		m.out <- synthesizeDropEvent(sessionID, count)
	}
}

func (m *Mux) collectDrops() map[int64]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.drops) == 0 {
		return nil
	}
	dup := make(map[int64]int, len(m.drops))
	for id, count := range m.drops {
		if count == 0 {
			continue
		}
		dup[id] = count
	}
	m.drops = make(map[int64]int)
	return dup
}

func (m *Mux) trySend(evt engine.Event) bool {
	select {
	case m.out <- evt:
		return true
	default:
		return false
	}
}

func normalize(evt engine.Event) engine.Event {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	if evt.Level == "" {
		evt.Level = "info"
	}
	return evt
}

func synthesizeDropEvent(sessionID int64, count int) engine.Event {
	return engine.Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Type:      engine.EventTypeDrop,
		Message:   fmt.Sprintf("dropped=%d", count),
		Level:     "warn",
	}
}
