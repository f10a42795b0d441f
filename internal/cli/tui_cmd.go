package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/example/deskd/internal/tui"
)

func newTuiCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch the interactive session monitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !supportsInteractiveOutput(cmd) {
				return fmt.Errorf("tui requires an interactive terminal")
			}
			ui := tui.New(ctx.client())
			return ui.Run(cmd.Context())
		},
	}
	return cmd
}

// supportsInteractiveOutput reports whether stdout is a real terminal. Tests
// swap the command's output stream, which never is.
func supportsInteractiveOutput(cmd *cobra.Command) bool {
	if cmd.OutOrStdout() != os.Stdout {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
