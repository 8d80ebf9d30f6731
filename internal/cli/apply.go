package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// manifest is an authorization-set file: the external domains and
// authorization templates one deployment declares. Entries keep the
// same shape as the HTTP API request bodies.
type manifest struct {
	Domains        []map[string]any `yaml:"domains"`
	Authorizations []map[string]any `yaml:"authorizations"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply an authorization-set manifest",
		Long: `Apply registers the external domains and authorization templates
declared in a YAML manifest, in that order, against a running node.

Example:
  maestroctl apply -f deploy/authorization-set.yaml --caller owner`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(rootOpts, file, cmd)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the manifest (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runApply(opts *RootOptions, file string, cmd *cobra.Command) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	if len(m.Domains) > 0 {
		if err := postJSON(opts, "/api/registry/v1/domains", map[string]any{"domains": m.Domains}, nil); err != nil {
			return fmt.Errorf("register domains: %w", err)
		}
		cmd.Printf("registered %d domain(s)\n", len(m.Domains))
	}
	if len(m.Authorizations) > 0 {
		if err := postJSON(opts, "/api/registry/v1/authorizations", map[string]any{"authorizations": m.Authorizations}, nil); err != nil {
			return fmt.Errorf("create authorizations: %w", err)
		}
		cmd.Printf("created %d authorization(s)\n", len(m.Authorizations))
	}
	return nil
}
