package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewRoutesCommand creates the routes command.
func NewRoutesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the router's registered external domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(rootOpts, cmd, "/api/routing/v1/routes")
		},
	}
}

// NewExecutionsCommand creates the executions command.
func NewExecutionsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		id     uint64
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "executions",
		Short: "Inspect registry executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id != 0 {
				return printJSON(rootOpts, cmd, fmt.Sprintf("/api/registry/v1/executions/%d", id))
			}
			path := fmt.Sprintf("/api/registry/v1/executions?limit=%d&offset=%d", limit, offset)
			return printJSON(rootOpts, cmd, path)
		},
	}

	cmd.Flags().Uint64Var(&id, "id", 0, "fetch a single execution by id")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size when listing")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset when listing")

	return cmd
}

func printJSON(opts *RootOptions, cmd *cobra.Command, path string) error {
	var payload json.RawMessage
	if err := getJSON(opts, path, &payload); err != nil {
		return err
	}
	var pretty map[string]any
	if err := json.Unmarshal(payload, &pretty); err != nil {
		cmd.Println(string(payload))
		return nil
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}
