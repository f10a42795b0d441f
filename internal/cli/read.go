package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newReadCmd(ctx *context) *cobra.Command {
	var cursor int64
	var wait time.Duration
	var follow bool
	cmd := &cobra.Command{
		Use:   "read <session-id>",
		Short: "Read output from a session on a running daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			client := ctx.client()
			for {
				res, err := client.ReadOutput(cmd.Context(), id, &cursor, wait)
				if err != nil {
					return err
				}
				if res.NewOutput != "" {
					fmt.Fprint(cmd.OutOrStdout(), res.NewOutput)
				}
				cursor = res.Cursor
				if res.Completed {
					fmt.Fprintf(cmd.ErrOrStderr(), "session %d %s", id, res.Status)
					if res.ExitCode != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), " (exit %d)", *res.ExitCode)
					}
					fmt.Fprintln(cmd.ErrOrStderr())
					return nil
				}
				if !follow {
					return nil
				}
			}
		},
	}
	cmd.Flags().Int64Var(&cursor, "cursor", 0, "Byte offset to read from")
	cmd.Flags().DurationVar(&wait, "wait", 5*time.Second, "How long each read blocks for new output")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep reading until the session ends")
	return cmd
}

func parseSessionID(arg string) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(arg, "%d", &id); err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid session id %q", arg)
	}
	return id, nil
}
