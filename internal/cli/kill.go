package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newKillCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kill <session-id>",
		Short: "Force-terminate a session on a running daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			res, err := ctx.client().Terminate(cmd.Context(), id)
			if err != nil {
				return err
			}
			if res.Terminated {
				fmt.Fprintf(cmd.OutOrStdout(), "session %d terminated\n", id)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "session %d already %s\n", id, res.Status)
			}
			return nil
		},
	}
	return cmd
}
