package session

import (
	"sync"
	"time"

	"github.com/example/deskd/internal/runtime"
)

// Status describes the lifecycle state of a session.
type Status string

const (
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusTerminated Status = "terminated"
)

// Terminal reports whether no further status transitions can occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTerminated:
		return true
	}
	return false
}

// Session tracks one background command: its process handle, accumulated
// output, and lifecycle state. A session owns exactly one handle and one
// buffer; both are released together when the session is reaped.
type Session struct {
	ID        int64
	Command   string
	Shell     string
	Runner    string
	CreatedAt time.Time

	buffer *Buffer

	mu         sync.Mutex
	status     Status
	exitCode   *int
	finishedAt time.Time
	pid        int
	handle     runtime.Handle
}

func newSession(id int64, command, shell, runner string, bufferSize int) *Session {
	return &Session{
		ID:        id,
		Command:   command,
		Shell:     shell,
		Runner:    runner,
		CreatedAt: time.Now(),
		buffer:    NewBuffer(bufferSize),
		status:    StatusRunning,
	}
}

// Buffer returns the session's output buffer.
func (s *Session) Buffer() *Buffer {
	return s.buffer
}

// Attach records the spawned handle and its pid. It is called once, by the
// executor, immediately after a successful spawn. The return value reports
// whether the session is already terminal: a terminator may finalize the
// session while the spawn is still in flight, and then the caller must stop
// the freshly spawned process itself.
func (s *Session) Attach(h runtime.Handle) (alreadyTerminal bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handle = h
	if h != nil {
		s.pid = h.PID()
	}
	return s.status.Terminal()
}

// Handle returns the process handle, or nil when the spawn failed or the
// session has been reaped.
func (s *Session) Handle() runtime.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// PID returns the platform process id, zero when unknown.
func (s *Session) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ExitCode returns the process exit code once the session is terminal. The
// pointer is nil while the session is running or when no process ever ran.
func (s *Session) ExitCode() *int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}

// Runtime reports how long the session has been (or was) alive.
func (s *Session) Runtime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finishedAt.IsZero() {
		return s.finishedAt.Sub(s.CreatedAt)
	}
	return time.Since(s.CreatedAt)
}

// Finalize transitions the session into a terminal state exactly once and
// closes the output buffer. It returns false when the session was already
// terminal, which is how the collector and the terminator resolve their
// race: whichever arrives second becomes a no-op.
func (s *Session) Finalize(status Status, exitCode *int) bool {
	if !status.Terminal() {
		return false
	}
	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return false
	}
	s.status = status
	s.exitCode = exitCode
	s.finishedAt = time.Now()
	s.mu.Unlock()

	s.buffer.Close()
	return true
}

// Info is a point-in-time projection of a session for list operations.
type Info struct {
	ID             int64     `json:"session_id"`
	Status         Status    `json:"status"`
	PID            int       `json:"pid,omitempty"`
	Shell          string    `json:"shell,omitempty"`
	Runner         string    `json:"runner,omitempty"`
	Command        string    `json:"command"`
	CreatedAt      time.Time `json:"created_at"`
	RuntimeSeconds float64   `json:"runtime_seconds"`
	ExitCode       *int      `json:"exit_code,omitempty"`
	OutputBytes    int64     `json:"output_bytes"`
}

// Snapshot captures the session's current state.
func (s *Session) Snapshot() Info {
	s.mu.Lock()
	info := Info{
		ID:        s.ID,
		Status:    s.status,
		PID:       s.pid,
		Shell:     s.Shell,
		Runner:    s.Runner,
		Command:   s.Command,
		CreatedAt: s.CreatedAt,
		ExitCode:  s.exitCode,
	}
	finished := s.finishedAt
	s.mu.Unlock()

	if finished.IsZero() {
		info.RuntimeSeconds = time.Since(s.CreatedAt).Seconds()
	} else {
		info.RuntimeSeconds = finished.Sub(s.CreatedAt).Seconds()
	}
	info.OutputBytes = s.buffer.Size()
	return info
}

// release drops the handle reference so the OS process can be collected once
// the registry reaps the session.
func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handle = nil
}
