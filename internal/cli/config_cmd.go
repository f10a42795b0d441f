package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/deskd/internal/config"
)

func newConfigCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with daemon configuration files",
	}
	cmd.AddCommand(newConfigLintCmd(ctx))
	cmd.AddCommand(newConfigShowCmd(ctx))
	return cmd
}

func newConfigLintCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Validate a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if *ctx.configFile == "" {
				return fmt.Errorf("no configuration file given (use --config)")
			}
			if _, err := config.Load(*ctx.configFile); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", *ctx.configFile)
			return nil
		},
	}
	return cmd
}

// newConfigShowCmd prints the effective configuration after defaults and env
// overrides are applied.
func newConfigShowCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
	return cmd
}
