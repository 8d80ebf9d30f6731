package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Addr   string
	Caller string
}

// NewRootCommand creates the root command for the maestroctl CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "maestroctl",
		Short: "Control plane client for a running maestro node",
		Long: `maestroctl talks to the HTTP API of a running maestro node.

It applies authorization-set manifests, sends message batches, cranks
the processor and inspects executions and routes.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", "http://localhost:8080", "base URL of the maestro API")
	cmd.PersistentFlags().StringVar(&opts.Caller, "caller", "", "caller address sent with each request")

	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewSendCommand(opts))
	cmd.AddCommand(NewTickCommand(opts))
	cmd.AddCommand(NewConfirmCommand(opts))
	cmd.AddCommand(NewRoutesCommand(opts))
	cmd.AddCommand(NewExecutionsCommand(opts))

	return cmd
}
