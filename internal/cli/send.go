package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewSendCommand creates the send command.
func NewSendCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		label string
		file  string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message batch under an authorization",
		Long: `Send submits the messages in a YAML file under the named
authorization label and prints the execution id the registry assigned.

Example:
  maestroctl send --label token-transfer -f messages.yaml --caller alice`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(rootOpts, label, file, cmd)
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "authorization label (required)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the messages file (required)")
	_ = cmd.MarkFlagRequired("label")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSend(opts *RootOptions, label string, file string, cmd *cobra.Command) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	var body struct {
		Messages []map[string]any `yaml:"messages"`
	}
	if err := yaml.Unmarshal(data, &body); err != nil {
		return fmt.Errorf("parse messages: %w", err)
	}
	if len(body.Messages) == 0 {
		return fmt.Errorf("no messages in %s", file)
	}

	var resp struct {
		Data struct {
			ExecutionID uint64 `json:"execution_id"`
		} `json:"data"`
	}
	path := "/api/registry/v1/authorizations/" + label + "/send"
	if err := postJSON(opts, path, map[string]any{"messages": body.Messages}, &resp); err != nil {
		return err
	}
	cmd.Printf("execution %d accepted\n", resp.Data.ExecutionID)
	return nil
}
