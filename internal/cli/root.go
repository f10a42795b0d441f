package cli

import (
	stdcontext "context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version identifies the deskd build for system_info responses.
const Version = "0.3.0"

func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	var configFile string
	var addr string
	var token string

	root := &cobra.Command{
		Use:   "deskd",
		Short: "Desktop automation agent with background command sessions",
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to deskd configuration file")
	root.PersistentFlags().StringVar(&addr, "addr", envOr("DESKD_ADDR", "127.0.0.1:7677"), "Address of a running deskd daemon (client commands)")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("DESKD_TOKEN"), "Auth token for the daemon API (client commands)")

	ctx := &context{configFile: &configFile, addr: &addr, token: &token}
	root.AddCommand(newServeCmd(ctx))
	root.AddCommand(newExecCmd(ctx))
	root.AddCommand(newSessionsCmd(ctx))
	root.AddCommand(newReadCmd(ctx))
	root.AddCommand(newKillCmd(ctx))
	root.AddCommand(newTuiCmd(ctx))
	root.AddCommand(newConfigCmd(ctx))

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

// Execute runs the CLI entrypoint.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetContext(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type context struct {
	configFile *string
	addr       *string
	token      *string
}

func (c *context) client() *apiClient {
	return newAPIClient(*c.addr, *c.token)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
