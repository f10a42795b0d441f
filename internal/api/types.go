package api

import (
	"context"
	"errors"
	"time"

	"github.com/example/deskd/internal/session"
)

var (
	ErrSessionNotFound   = errors.New("unknown session")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrTerminationFailed = errors.New("termination failed")
)

// ExecuteRequest launches a command. A zero Timeout selects background mode:
// the call returns as soon as the session is registered. A positive Timeout
// blocks up to that long for the process to exit; on expiry the process keeps
// running and the partial output collected so far is returned.
type ExecuteRequest struct {
	Command string
	Shell   string
	Runner  string
	Timeout time.Duration
}

// ExecuteResult reports the outcome of an execute call. Completed and
// StillRunning distinguish "the process is dead" from "I gave up waiting".
type ExecuteResult struct {
	SessionID    int64          `json:"session_id"`
	PID          int            `json:"pid,omitempty"`
	Status       session.Status `json:"status"`
	Output       string         `json:"output"`
	ExitCode     *int           `json:"exit_code,omitempty"`
	Completed    bool           `json:"completed"`
	StillRunning bool           `json:"still_running"`
	Error        string         `json:"error,omitempty"`
}

// ReadRequest polls a session for output beyond the caller's cursor. A nil
// Cursor replays from the start. A zero Timeout returns immediately; a
// positive one blocks until new bytes arrive, the session turns terminal, or
// the deadline lapses.
type ReadRequest struct {
	SessionID int64
	Cursor    *int64
	Timeout   time.Duration
}

// ReadResult carries the bytes appended since the supplied cursor together
// with the cursor for the caller's next read. TimedOut marks a bounded wait
// that elapsed without news; it is a normal outcome, never an error.
type ReadResult struct {
	SessionID      int64          `json:"session_id"`
	NewOutput      string         `json:"new_output"`
	Cursor         int64          `json:"cursor"`
	Completed      bool           `json:"completed"`
	Status         session.Status `json:"status"`
	ExitCode       *int           `json:"exit_code,omitempty"`
	RuntimeSeconds float64        `json:"runtime_seconds"`
	FullOutput     string         `json:"full_output,omitempty"`
	TimedOut       bool           `json:"timed_out"`
}

// TerminateResult reports a force-terminate outcome. Terminating an already
// terminal session succeeds without effect.
type TerminateResult struct {
	SessionID  int64          `json:"session_id"`
	Terminated bool           `json:"terminated"`
	Status     session.Status `json:"status"`
}

// SessionListResult is a read-only projection over the session registry.
type SessionListResult struct {
	Sessions []session.Info `json:"sessions"`
}

// ReadFileRequest fetches a text file from the host.
type ReadFileRequest struct {
	Path string
}

type ReadFileResult struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Size    int64  `json:"size"`
}

// WriteFileRequest writes a text file on the host, creating it when absent.
type WriteFileRequest struct {
	Path    string
	Content string
}

type WriteFileResult struct {
	Path         string `json:"path"`
	BytesWritten int    `json:"bytes_written"`
}

// SessionCounts summarises the registry for system-info responses.
type SessionCounts struct {
	Total   int `json:"total"`
	Running int `json:"running"`
}

type SystemInfoResult struct {
	Hostname      string        `json:"hostname"`
	OS            string        `json:"os"`
	Arch          string        `json:"arch"`
	CPUs          int           `json:"cpus"`
	GoVersion     string        `json:"go_version"`
	PID           int           `json:"pid"`
	Version       string        `json:"version"`
	UptimeSeconds float64       `json:"uptime_seconds"`
	Sessions      SessionCounts `json:"sessions"`
}

// Controller exposes the operations reachable through the dispatch boundary.
type Controller interface {
	Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error)
	ReadOutput(ctx context.Context, req ReadRequest) (*ReadResult, error)
	Terminate(ctx context.Context, sessionID int64) (*TerminateResult, error)
	ListSessions(ctx context.Context) (*SessionListResult, error)
	ReadFile(ctx context.Context, req ReadFileRequest) (*ReadFileResult, error)
	WriteFile(ctx context.Context, req WriteFileRequest) (*WriteFileResult, error)
	SystemInfo(ctx context.Context) (*SystemInfoResult, error)
}
