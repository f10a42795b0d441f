package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/example/deskd/internal/metrics"
	"github.com/example/deskd/internal/runtime"
	"github.com/example/deskd/internal/session"
)

// collect is the session's output collector: the sole writer to its buffer.
// It drains the handle's merged stream until end-of-stream, reaps the exit
// code and finalizes the session. When the terminator finalized first the
// Finalize call is a no-op and the collector simply exits after reaping.
func (e *Engine) collect(sess *session.Session, handle runtime.Handle) {
	buf := sess.Buffer()
	reader := handle.Output()
	chunk := make([]byte, 32*1024)

	var streamErr error
	for {
		n, err := reader.Read(chunk)
		if n > 0 {
			buf.Append(chunk[:n])
			metrics.AddOutputBytes(n)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				streamErr = err
			}
			break
		}
	}

	code, waitErr := handle.Wait(context.Background())

	status := session.StatusCompleted
	level := "info"
	message := fmt.Sprintf("exit_code=%d", code)
	switch {
	case streamErr != nil:
		status = session.StatusFailed
		level = "error"
		message = fmt.Sprintf("output stream error: %v", streamErr)
		buf.Append([]byte("\n" + message + "\n"))
	case waitErr != nil:
		status = session.StatusFailed
		level = "error"
		message = fmt.Sprintf("wait: %v", waitErr)
		buf.Append([]byte("\n" + message + "\n"))
	}

	if sess.Finalize(status, &code) {
		metrics.AddRunningSessions(-1)
		metrics.IncSessionsFinished(string(status))
		e.emit(Event{
			SessionID: sess.ID,
			Type:      EventTypeExit,
			Status:    status,
			Message:   message,
			Level:     level,
		})
		e.sessions.Prune()
	}
}
