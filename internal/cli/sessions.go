package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSessionsCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List command sessions on a running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := ctx.client().ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			if len(result.Sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tPID\tRUNTIME\tOUTPUT\tCOMMAND")
			for _, info := range result.Sessions {
				exit := ""
				if info.ExitCode != nil {
					exit = fmt.Sprintf(" (exit %d)", *info.ExitCode)
				}
				fmt.Fprintf(tw, "%d\t%s%s\t%d\t%.1fs\t%dB\t%s\n",
					info.ID, info.Status, exit, info.PID,
					info.RuntimeSeconds, info.OutputBytes, truncate(info.Command, 60))
			}
			return tw.Flush()
		},
	}
	return cmd
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
