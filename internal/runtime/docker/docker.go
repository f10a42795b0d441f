// Package docker executes session commands inside disposable containers,
// isolating untrusted commands from the host. The command line is handed to
// the container's /bin/sh, so shell selection does not apply to this runner.
package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/strslice"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/example/deskd/internal/runtime"
)

// Options configures the container runner.
type Options struct {
	// Image is the container image commands run in.
	Image string
	// Workdir overrides the image's working directory when set.
	Workdir string
	// Ports publishes container ports to the host, in the usual
	// "[host:]container[/proto]" syntax. Useful for background sessions
	// that start servers inside the container.
	Ports []string
}

type spawner struct {
	opts       Options
	client     *client.Client
	clientOnce sync.Once
	clientErr  error
}

// New returns a Docker backed spawner.
func New(opts Options) runtime.Spawner {
	return &spawner{opts: opts}
}

func (s *spawner) getClient() (*client.Client, error) {
	s.clientOnce.Do(func() {
		cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			s.clientErr = err
			return
		}
		s.client = cli
	})
	return s.client, s.clientErr
}

func (s *spawner) Start(ctx context.Context, spec runtime.Spec) (runtime.Handle, error) {
	if spec.Command == "" {
		return nil, errors.New("docker spawner requires a command")
	}
	if s.opts.Image == "" {
		return nil, errors.New("docker spawner requires an image")
	}

	cli, err := s.getClient()
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	if err := ensureImage(ctx, cli, s.opts.Image); err != nil {
		return nil, err
	}

	cfg := &container.Config{
		Image: s.opts.Image,
		Cmd:   strslice.StrSlice{"/bin/sh", "-c", spec.Command},
		Env:   append([]string(nil), spec.Env...),
	}
	if s.opts.Workdir != "" {
		cfg.WorkingDir = s.opts.Workdir
	}

	host := &container.HostConfig{}
	if len(s.opts.Ports) > 0 {
		exposed, bindings, err := parsePorts(s.opts.Ports)
		if err != nil {
			return nil, err
		}
		cfg.ExposedPorts = exposed
		host.PortBindings = bindings
	}

	createResp, err := cli.ContainerCreate(ctx, cfg, host, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("container create: %w", err)
	}
	containerID := createResp.ID

	if err := cli.ContainerStart(ctx, containerID, types.ContainerStartOptions{}); err != nil {
		_ = cli.ContainerRemove(context.Background(), containerID, types.ContainerRemoveOptions{Force: true})
		return nil, fmt.Errorf("container start: %w", err)
	}

	h := newHandle(cli, containerID)
	if inspect, err := cli.ContainerInspect(ctx, containerID); err == nil && inspect.State != nil {
		h.pid = inspect.State.Pid
	}
	h.startLogStreamer()
	h.startWaiter()
	return h, nil
}

type handle struct {
	cli         *client.Client
	containerID string
	pid         int

	outR *io.PipeReader
	outW *io.PipeWriter

	logCtx  context.Context
	logStop context.CancelFunc

	waitDone chan struct{}
	exitCode int
	waitErr  error

	killOnce sync.Once
	killErr  error
}

func newHandle(cli *client.Client, id string) *handle {
	logCtx, logStop := context.WithCancel(context.Background())
	pr, pw := io.Pipe()
	return &handle{
		cli:         cli,
		containerID: id,
		outR:        pr,
		outW:        pw,
		logCtx:      logCtx,
		logStop:     logStop,
		waitDone:    make(chan struct{}),
	}
}

func (h *handle) startLogStreamer() {
	go func() {
		reader, err := h.cli.ContainerLogs(h.logCtx, h.containerID, types.ContainerLogsOptions{
			ShowStdout: true,
			ShowStderr: true,
			Follow:     true,
			Tail:       "all",
		})
		if err != nil {
			h.outW.CloseWithError(fmt.Errorf("container logs: %w", err))
			return
		}
		defer reader.Close()

		// Both demuxed streams feed the same pipe, preserving arrival order.
		_, err = stdcopy.StdCopy(h.outW, h.outW, reader)
		h.outW.CloseWithError(err)
	}()
}

func (h *handle) startWaiter() {
	go func() {
		statusCh, errCh := h.cli.ContainerWait(context.Background(), h.containerID, container.WaitConditionNextExit)
		select {
		case err := <-errCh:
			if err != nil {
				h.waitErr = err
			}
		case resp := <-statusCh:
			h.exitCode = int(resp.StatusCode)
			if resp.Error != nil {
				h.waitErr = errors.New(resp.Error.Message)
			}
		}
		h.logStop()
		_ = h.cli.ContainerRemove(context.Background(), h.containerID, types.ContainerRemoveOptions{Force: true})
		close(h.waitDone)
	}()
}

func (h *handle) PID() int {
	return h.pid
}

func (h *handle) Output() io.Reader {
	return h.outR
}

func (h *handle) Wait(ctx context.Context) (int, error) {
	select {
	case <-h.waitDone:
		return h.exitCode, h.waitErr
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (h *handle) Terminate(ctx context.Context) error {
	select {
	case <-h.waitDone:
		return nil
	default:
	}
	h.killOnce.Do(func() {
		err := h.cli.ContainerKill(ctx, h.containerID, "SIGKILL")
		if err != nil && !client.IsErrNotFound(err) {
			h.killErr = fmt.Errorf("container kill: %w", err)
		}
	})
	return h.killErr
}

func parsePorts(specs []string) (nat.PortSet, nat.PortMap, error) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, spec := range specs {
		mappings, err := nat.ParsePortSpec(spec)
		if err != nil {
			return nil, nil, fmt.Errorf("parse port %q: %w", spec, err)
		}
		for _, mapping := range mappings {
			exposed[mapping.Port] = struct{}{}
			bindings[mapping.Port] = append(bindings[mapping.Port], mapping.Binding)
		}
	}
	return exposed, bindings, nil
}

func ensureImage(ctx context.Context, cli *client.Client, imageName string) error {
	_, _, err := cli.ImageInspectWithRaw(ctx, imageName)
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return fmt.Errorf("inspect image: %w", err)
	}
	reader, err := cli.ImagePull(ctx, imageName, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("pull image: %w", err)
	}
	defer reader.Close()
	_, _ = io.Copy(io.Discard, reader)
	return nil
}
