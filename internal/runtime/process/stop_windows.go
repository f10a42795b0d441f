//go:build windows

package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

const termGrace = 2 * time.Second

// Terminate stops the process: an interrupt first, then a hard kill once the
// grace window lapses. Calling it on an already-exited process is a no-op.
func (h *handle) Terminate(ctx context.Context) error {
	if h.cmd.Process == nil {
		return nil
	}
	select {
	case <-h.waitDone:
		return nil
	default:
	}

	_ = h.cmd.Process.Signal(os.Interrupt)

	select {
	case <-h.waitDone:
		return nil
	case <-time.After(termGrace):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill process %d: %w", h.cmd.Process.Pid, err)
	}
	select {
	case <-h.waitDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
