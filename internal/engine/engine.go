// Package engine implements the background command execution subsystem:
// launching commands, draining their output into per-session buffers,
// serving bounded-wait polling reads, and forceful termination.
package engine

import (
	"github.com/example/deskd/internal/runtime"
	"github.com/example/deskd/internal/session"
)

// Options configures an Engine.
type Options struct {
	// Sessions is the process-wide session registry. A nil value gets a
	// fresh registry with default retention.
	Sessions *session.Registry
	// Spawners maps runner names to execution backends.
	Spawners runtime.Registry
	// DefaultRunner names the spawner used when a request does not pick
	// one. Defaults to "process".
	DefaultRunner string
	// DefaultShell is the interpreter used when a request does not name
	// one. Empty selects the platform default.
	DefaultShell string
	// BufferSize caps retained output bytes per session.
	BufferSize int
	// Events receives lifecycle events. Delivery is best-effort: when the
	// channel is full or nil the event is dropped rather than blocking
	// session work.
	Events chan<- Event
}

// Engine coordinates executors, collectors, readers and the terminator over
// one shared session registry.
type Engine struct {
	sessions      *session.Registry
	spawners      runtime.Registry
	defaultRunner string
	defaultShell  string
	bufferSize    int
	events        chan<- Event
}

// New constructs an Engine from the provided options.
func New(opts Options) *Engine {
	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewRegistry(0)
	}
	defaultRunner := opts.DefaultRunner
	if defaultRunner == "" {
		defaultRunner = "process"
	}
	spawners := opts.Spawners
	if spawners == nil {
		spawners = runtime.Registry{}
	}
	return &Engine{
		sessions:      sessions,
		spawners:      spawners.Clone(),
		defaultRunner: defaultRunner,
		defaultShell:  opts.DefaultShell,
		bufferSize:    opts.BufferSize,
		events:        opts.Events,
	}
}

// Sessions exposes the underlying registry.
func (e *Engine) Sessions() *session.Registry {
	return e.sessions
}

// Counts reports the total and running session counts.
func (e *Engine) Counts() (total, running int) {
	for _, sess := range e.sessions.List() {
		total++
		if !sess.Status().Terminal() {
			running++
		}
	}
	return total, running
}
