package cli

import (
	"github.com/spf13/cobra"
)

// NewTickCommand creates the tick command.
func NewTickCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Advance the main processor by one tick",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := postJSON(rootOpts, "/api/processor/v1/tick", nil, nil); err != nil {
				return err
			}
			cmd.Println("tick completed")
			return nil
		},
	}
}

// NewConfirmCommand creates the confirm command.
func NewConfirmCommand(rootOpts *RootOptions) *cobra.Command {
	var executionID uint64

	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm the function a queued batch is waiting on",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"execution_id": executionID}
			if err := postJSON(rootOpts, "/api/processor/v1/confirmations", body, nil); err != nil {
				return err
			}
			cmd.Printf("execution %d confirmed\n", executionID)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&executionID, "execution", 0, "execution id awaiting confirmation (required)")
	_ = cmd.MarkFlagRequired("execution")

	return cmd
}
