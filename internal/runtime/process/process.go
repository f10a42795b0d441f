// Package process executes session commands as local OS processes. Stdout
// and stderr share a single pipe so the captured stream preserves the
// interleaving the process produced.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/example/deskd/internal/runtime"
)

type spawner struct{}

// New constructs a spawner that launches commands as local processes.
func New() runtime.Spawner {
	return &spawner{}
}

func init() {
	runtime.Register("process", New)
}

func (s *spawner) Start(ctx context.Context, spec runtime.Spec) (runtime.Handle, error) {
	if len(spec.Argv) == 0 {
		return nil, errors.New("process spawner requires a non-empty argv")
	}

	// The command deliberately does not inherit ctx: a session outlives the
	// execute call that created it.
	cmd := exec.Command(spec.Argv[0], spec.Argv[1:]...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	env := os.Environ()
	if len(spec.Env) > 0 {
		env = append(env, spec.Env...)
	}
	cmd.Env = env

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("output pipe: %w", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	configureCmdSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("start %q: %w", spec.Argv[0], err)
	}
	// The child owns its copy of the write end; drop ours so the read end
	// sees EOF once the process tree lets go of it.
	pw.Close()

	h := &handle{
		cmd:      cmd,
		out:      pr,
		waitDone: make(chan struct{}),
	}
	go func() {
		err := cmd.Wait()
		h.exitCode = cmd.ProcessState.ExitCode()
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			h.waitErr = err
		}
		close(h.waitDone)
	}()
	return h, nil
}

type handle struct {
	cmd *exec.Cmd
	out *os.File

	waitDone chan struct{}
	exitCode int
	waitErr  error
}

func (h *handle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func (h *handle) Output() io.Reader {
	return h.out
}

func (h *handle) Wait(ctx context.Context) (int, error) {
	select {
	case <-h.waitDone:
		return h.exitCode, h.waitErr
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
