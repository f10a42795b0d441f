package engine

import (
	"context"
	"fmt"

	"github.com/example/deskd/internal/api"
	"github.com/example/deskd/internal/metrics"
	"github.com/example/deskd/internal/session"
)

// terminatedExitCode marks sessions that were stopped by force rather than
// exiting on their own.
const terminatedExitCode = -1

// Terminate forcefully stops a session's process and, where the platform
// permits, its descendants. It is idempotent: terminating an already
// terminal session reports success without side effects.
func (e *Engine) Terminate(ctx context.Context, sessionID int64) (*api.TerminateResult, error) {
	sess, ok := e.sessions.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: session %d", api.ErrSessionNotFound, sessionID)
	}
	if status := sess.Status(); status.Terminal() {
		return &api.TerminateResult{SessionID: sessionID, Terminated: true, Status: status}, nil
	}

	handle := sess.Handle()
	if handle != nil {
		if err := handle.Terminate(ctx); err != nil {
			return nil, fmt.Errorf("%w: session %d: %v", api.ErrTerminationFailed, sessionID, err)
		}
	}

	code := terminatedExitCode
	if sess.Finalize(session.StatusTerminated, &code) {
		metrics.AddRunningSessions(-1)
		metrics.IncSessionsFinished(string(session.StatusTerminated))
		metrics.IncTerminations()
		e.emit(Event{
			SessionID: sess.ID,
			Type:      EventTypeTerminated,
			Status:    session.StatusTerminated,
			Message:   "force terminated",
			Level:     "warn",
		})
		e.sessions.Prune()
		// A spawn in flight may have attached its handle between the
		// lookup above and the finalize. The executor signals handles it
		// attaches to an already-terminal session, and we signal handles
		// attached before the finalize landed; between the two, the
		// process is stopped in every interleaving.
		if handle == nil {
			if late := sess.Handle(); late != nil {
				_ = late.Terminate(ctx)
			}
		}
	}
	// The collector may have finalized a natural exit first; report the
	// state the session actually landed in.
	return &api.TerminateResult{SessionID: sessionID, Terminated: true, Status: sess.Status()}, nil
}

// ListSessions is a read-only projection over the registry used for operator
// visibility.
func (e *Engine) ListSessions(ctx context.Context) (*api.SessionListResult, error) {
	sessions := e.sessions.List()
	infos := make([]session.Info, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, sess.Snapshot())
	}
	return &api.SessionListResult{Sessions: infos}, nil
}
