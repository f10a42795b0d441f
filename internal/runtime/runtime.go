package runtime

import (
	"context"
	"io"
)

// Spec describes one command to launch. Argv carries the shell-wrapped
// argument vector for local execution; Command keeps the original command
// line for runners that re-wrap it themselves (the docker runner executes it
// through the container's own shell).
type Spec struct {
	Command string
	Argv    []string
	Shell   string
	Dir     string
	Env     []string
}

// Handle represents a single launched command. Stdout and stderr are merged
// into one stream at spawn time, preserving interleaving order as produced.
type Handle interface {
	// PID returns the platform-native process identity, zero when the
	// runner cannot provide one.
	PID() int

	// Output returns the merged output stream. It yields io.EOF once the
	// process has closed its output.
	Output() io.Reader

	// Wait blocks until the process has exited and returns its exit code.
	// It is safe to call from multiple goroutines; all callers observe the
	// same outcome. The error reports wait-mechanics failures only — a
	// nonzero exit code is data, not an error.
	Wait(ctx context.Context) (int, error)

	// Terminate forcefully stops the process and, where the platform
	// permits, its descendants. Implementations must be idempotent and
	// safe to call while Output is being drained.
	Terminate(ctx context.Context) error
}

// Spawner launches commands for one execution backend.
type Spawner interface {
	Start(ctx context.Context, spec Spec) (Handle, error)
}

// Registry maps runner identifiers to their concrete implementations.
type Registry map[string]Spawner

// Clone returns a shallow copy of the registry, allowing callers to avoid
// accidental mutation of shared maps.
func (r Registry) Clone() Registry {
	dup := make(Registry, len(r))
	for k, v := range r {
		dup[k] = v
	}
	return dup
}
