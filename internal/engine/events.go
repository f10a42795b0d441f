package engine

import (
	"time"

	"github.com/example/deskd/internal/session"
)

// EventType categorises session lifecycle events.
type EventType string

const (
	EventTypeStart        EventType = "start"
	EventTypeSpawnFailure EventType = "spawn_failure"
	EventTypeExit         EventType = "exit"
	EventTypeTerminated   EventType = "terminated"
	// EventTypeDrop is synthesized by observers when delivery pressure
	// forced events to be discarded.
	EventTypeDrop EventType = "drop"
)

// Event describes one session lifecycle transition for observers (daemon
// log, CLI streams). Events are advisory; session state lives in the
// registry.
type Event struct {
	Timestamp time.Time
	SessionID int64
	Type      EventType
	Status    session.Status
	Message   string
	Level     string
}

func (e *Engine) emit(evt Event) {
	if e.events == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	select {
	case e.events <- evt:
	default:
	}
}
