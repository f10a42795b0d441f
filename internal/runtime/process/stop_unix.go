//go:build !windows

package process

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"
)

const termGrace = 2 * time.Second

// Terminate stops the whole process group: SIGTERM first, then SIGKILL once
// the grace window lapses. Calling it on an already-exited process is a
// no-op.
func (h *handle) Terminate(ctx context.Context) error {
	if h.cmd.Process == nil {
		return nil
	}
	select {
	case <-h.waitDone:
		return nil
	default:
	}

	if err := syscall.Kill(-h.cmd.Process.Pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("signal process group %d: %w", h.cmd.Process.Pid, err)
	}

	select {
	case <-h.waitDone:
		return nil
	case <-time.After(termGrace):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := syscall.Kill(-h.cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill process group %d: %w", h.cmd.Process.Pid, err)
	}
	select {
	case <-h.waitDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
