package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/example/deskd/internal/api"
	"github.com/example/deskd/internal/metrics"
	"github.com/example/deskd/internal/session"
)

// ReadOutput returns the bytes appended to a session's buffer since the
// caller's cursor. Cursors are caller-held, so independent pollers each see
// the complete stream exactly once from their own perspective. Timing out is
// a normal outcome; the only errors are an unknown session id or a negative
// cursor.
func (e *Engine) ReadOutput(ctx context.Context, req api.ReadRequest) (*api.ReadResult, error) {
	sess, ok := e.sessions.Get(req.SessionID)
	if !ok {
		return nil, fmt.Errorf("%w: session %d", api.ErrSessionNotFound, req.SessionID)
	}
	var cursor int64
	if req.Cursor != nil {
		if *req.Cursor < 0 {
			return nil, fmt.Errorf("%w: cursor must be non-negative", api.ErrInvalidArgument)
		}
		cursor = *req.Cursor
	}
	metrics.IncReads()

	buf := sess.Buffer()
	if req.Timeout <= 0 {
		data, next := buf.ReadFrom(cursor)
		return readResult(sess, data, next, false), nil
	}

	timer := time.NewTimer(req.Timeout)
	defer timer.Stop()
	for {
		changed := buf.Changed()
		data, next := buf.ReadFrom(cursor)
		if len(data) > 0 || buf.Closed() {
			return readResult(sess, data, next, false), nil
		}
		select {
		case <-changed:
		case <-timer.C:
			return readResult(sess, nil, cursor, true), nil
		case <-ctx.Done():
			return readResult(sess, nil, cursor, true), nil
		}
	}
}

func readResult(sess *session.Session, data []byte, cursor int64, timedOut bool) *api.ReadResult {
	status := sess.Status()
	res := &api.ReadResult{
		SessionID:      sess.ID,
		NewOutput:      string(data),
		Cursor:         cursor,
		Completed:      status.Terminal(),
		Status:         status,
		ExitCode:       sess.ExitCode(),
		RuntimeSeconds: sess.Runtime().Seconds(),
		TimedOut:       timedOut,
	}
	if res.Completed {
		res.FullOutput = string(sess.Buffer().Snapshot())
	}
	return res
}
