package engine

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/deskd/internal/api"
	"github.com/example/deskd/internal/metrics"
	"github.com/example/deskd/internal/runtime"
	"github.com/example/deskd/internal/session"
	"github.com/example/deskd/internal/shell"
)

// Execute launches a command. Every call allocates a session id, including
// calls whose spawn fails: those return a result describing the failed
// session rather than an error. Only argument validation errors surface as
// errors.
func (e *Engine) Execute(ctx context.Context, req api.ExecuteRequest) (*api.ExecuteResult, error) {
	command := strings.TrimSpace(req.Command)
	if command == "" {
		return nil, fmt.Errorf("%w: command is required", api.ErrInvalidArgument)
	}
	runner := req.Runner
	if runner == "" {
		runner = e.defaultRunner
	}

	requested := req.Shell
	if requested == "" {
		requested = e.defaultShell
	}
	kind, kindErr := shell.Resolve(requested)
	shellName := string(kind)
	if kindErr != nil {
		shellName = requested
	}

	sess := e.sessions.Create(command, shellName, runner, e.bufferSize)
	metrics.IncSessionsStarted()
	metrics.AddRunningSessions(1)

	if kindErr != nil {
		return e.failSession(sess, kindErr.Error()), nil
	}
	spawner, ok := e.spawners[runner]
	if !ok {
		return e.failSession(sess, fmt.Sprintf("unknown runner %q", runner)), nil
	}

	spec := runtime.Spec{
		Command: command,
		Argv:    shell.Wrap(kind, command),
		Shell:   string(kind),
	}
	handle, err := spawner.Start(ctx, spec)
	if err != nil {
		return e.failSession(sess, err.Error()), nil
	}
	if sess.Attach(handle) {
		// A force_terminate finalized the session while the spawn was in
		// flight; stop the fresh process so it cannot outlive its session.
		// The collector still runs below to drain and reap it.
		_ = handle.Terminate(ctx)
	} else {
		e.emit(Event{
			SessionID: sess.ID,
			Type:      EventTypeStart,
			Status:    session.StatusRunning,
			Message:   command,
			Level:     "info",
		})
	}

	go e.collect(sess, handle)

	if req.Timeout <= 0 {
		status := sess.Status()
		return &api.ExecuteResult{
			SessionID:    sess.ID,
			PID:          sess.PID(),
			Status:       status,
			ExitCode:     sess.ExitCode(),
			Completed:    status.Terminal(),
			StillRunning: !status.Terminal(),
		}, nil
	}

	output := e.collectWindow(ctx, sess, req.Timeout)
	status := sess.Status()
	completed := status.Terminal()
	return &api.ExecuteResult{
		SessionID:    sess.ID,
		PID:          sess.PID(),
		Status:       status,
		Output:       output,
		ExitCode:     sess.ExitCode(),
		Completed:    completed,
		StillRunning: !completed,
	}, nil
}

// failSession records a spawn failure: the error message becomes the
// session's only output and the session finalizes as failed. The caller
// still receives a result object, never an error.
func (e *Engine) failSession(sess *session.Session, msg string) *api.ExecuteResult {
	sess.Buffer().Append([]byte(msg))
	if sess.Finalize(session.StatusFailed, nil) {
		metrics.AddRunningSessions(-1)
		metrics.IncSessionsFinished(string(session.StatusFailed))
		e.emit(Event{
			SessionID: sess.ID,
			Type:      EventTypeSpawnFailure,
			Status:    session.StatusFailed,
			Message:   msg,
			Level:     "error",
		})
		e.sessions.Prune()
	}
	return &api.ExecuteResult{
		SessionID: sess.ID,
		Status:    session.StatusFailed,
		Output:    msg,
		Completed: true,
		Error:     msg,
	}
}

// collectWindow accumulates output from the start of the session's buffer
// until the session turns terminal or the window lapses. The process is
// never killed on expiry; the caller is told it is still running.
func (e *Engine) collectWindow(ctx context.Context, sess *session.Session, window time.Duration) string {
	buf := sess.Buffer()
	timer := time.NewTimer(window)
	defer timer.Stop()

	var out bytes.Buffer
	var cursor int64
	for {
		changed := buf.Changed()
		// Observing the close before reading guarantees the read sees
		// every byte appended ahead of it; checking afterwards could miss
		// a tail appended between the read and the check.
		closed := buf.Closed()
		data, next := buf.ReadFrom(cursor)
		out.Write(data)
		cursor = next
		if closed {
			return out.String()
		}
		select {
		case <-changed:
		case <-timer.C:
			return out.String()
		case <-ctx.Done():
			return out.String()
		}
	}
}
