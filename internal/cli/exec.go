package cli

import (
	stdcontext "context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/deskd/internal/api"
	"github.com/example/deskd/internal/engine"
	"github.com/example/deskd/internal/session"
)

// execPollInterval bounds each read wait so interrupts are handled promptly.
const execPollInterval = time.Second

func newExecCmd(ctx *context) *cobra.Command {
	var shellName string
	var runner string
	cmd := &cobra.Command{
		Use:   "exec <command>",
		Short: "Run a command locally through the session engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			eng := newEngine(cfg, nil)

			res, err := eng.Execute(cmd.Context(), api.ExecuteRequest{
				Command: args[0],
				Shell:   shellName,
				Runner:  runner,
			})
			if err != nil {
				return err
			}
			if res.Status == session.StatusFailed {
				return fmt.Errorf("spawn failed: %s", res.Error)
			}

			exitCode, err := streamUntilDone(cmd, eng, res.SessionID)
			if err != nil {
				return err
			}
			if exitCode != 0 {
				os.Exit(exitCode)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&shellName, "shell", "", "Shell to interpret the command (default, bash, zsh, cmd, powershell, pwsh, wsl)")
	cmd.Flags().StringVar(&runner, "runner", "", "Execution backend (process, docker)")
	return cmd
}

// streamUntilDone polls the session and relays its output until it reaches a
// terminal state. An interrupt terminates the session before returning.
func streamUntilDone(cmd *cobra.Command, eng *engine.Engine, sessionID int64) (int, error) {
	cursor := int64(0)
	for {
		res, err := eng.ReadOutput(cmd.Context(), api.ReadRequest{
			SessionID: sessionID,
			Cursor:    &cursor,
			Timeout:   execPollInterval,
		})
		if err != nil {
			return 0, err
		}
		if res.NewOutput != "" {
			fmt.Fprint(cmd.OutOrStdout(), res.NewOutput)
		}
		cursor = res.Cursor
		if res.Completed {
			if res.ExitCode != nil {
				return *res.ExitCode, nil
			}
			return 0, nil
		}
		if cmd.Context().Err() != nil {
			killCtx, cancel := stdcontext.WithTimeout(stdcontext.Background(), 10*time.Second)
			_, terr := eng.Terminate(killCtx, sessionID)
			cancel()
			if terr != nil {
				return 0, terr
			}
			return 130, nil
		}
	}
}
