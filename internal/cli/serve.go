package cli

import (
	stdcontext "context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/example/deskd/internal/api/http"
	"github.com/example/deskd/internal/cliutil"
	"github.com/example/deskd/internal/config"
	"github.com/example/deskd/internal/engine"
	"github.com/example/deskd/internal/eventmux"
	"github.com/example/deskd/internal/metrics"
	"github.com/example/deskd/internal/ops"
	"github.com/example/deskd/internal/runtime"
	"github.com/example/deskd/internal/runtime/docker"
	_ "github.com/example/deskd/internal/runtime/process" // registers the process runner
	"github.com/example/deskd/internal/session"
)

var newAPIServer = httpapi.NewServer

func newServeCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the automation daemon with the dispatch API enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			events := make(chan engine.Event, cfg.Log.Buffer)
			eng := newEngine(cfg, events)
			ctrl := &controller{
				Engine:  eng,
				Files:   ops.NewFiles(cfg.Files.MaxReadSize),
				SysInfo: ops.NewSysInfo(Version, eng),
			}

			server, err := newAPIServer(httpapi.Config{
				Addr:           cfg.Listen,
				Controller:     ctrl,
				Token:          cfg.Token,
				Metrics:        metrics.Registry(),
				ExecuteTimeout: cfg.Defaults.ExecuteTimeout.Duration,
				ReadTimeout:    cfg.Defaults.ReadTimeout.Duration,
			})
			if err != nil {
				return err
			}

			mux := eventmux.New(cfg.Log.Buffer)
			mux.Add(events)
			logDone := make(chan struct{})
			go func() {
				defer close(logDone)
				enc := json.NewEncoder(cmd.OutOrStdout())
				for evt := range mux.Output() {
					cliutil.EncodeLogEvent(enc, cmd.ErrOrStderr(), evt)
				}
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "deskd %s listening on %s\n", Version, server.Addr())
			runErr := server.Run(cmd.Context())

			drainSessions(eng)
			close(events)
			mux.Close()
			<-logDone
			return runErr
		},
	}
	return cmd
}

// controller assembles the dispatchable operations behind one api.Controller.
type controller struct {
	*engine.Engine
	*ops.Files
	*ops.SysInfo
}

func (c *context) loadConfig() (*config.Config, error) {
	if *c.configFile == "" {
		return config.Default(), nil
	}
	return config.Load(*c.configFile)
}

func newEngine(cfg *config.Config, events chan<- engine.Event) *engine.Engine {
	spawners := runtime.NewRegistry()
	if cfg.Docker != nil && cfg.Docker.Enabled {
		spawners["docker"] = docker.New(docker.Options{
			Image:   cfg.Docker.Image,
			Workdir: cfg.Docker.Workdir,
			Ports:   cfg.Docker.Ports,
		})
	}
	return engine.New(engine.Options{
		Sessions:      session.NewRegistry(cfg.Sessions.Retain),
		Spawners:      spawners,
		DefaultRunner: cfg.Defaults.Runner,
		DefaultShell:  cfg.Defaults.Shell,
		BufferSize:    cfg.Sessions.BufferSize,
		Events:        events,
	})
}

// drainSessions force-terminates whatever is still running so the process
// can exit without leaving orphans. Sessions are in-memory only; nothing
// survives a restart.
func drainSessions(eng *engine.Engine) {
	shutdownCtx, cancel := stdcontext.WithTimeout(stdcontext.Background(), 10*time.Second)
	defer cancel()
	for _, sess := range eng.Sessions().List() {
		if sess.Status().Terminal() {
			continue
		}
		_, _ = eng.Terminate(shutdownCtx, sess.ID)
	}
}
