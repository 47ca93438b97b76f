package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/immutag/internal/project"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	Version string
	Force   bool
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{}

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create the project registry",
		Long: `Create the registry directory and its document in the project.

The document starts with an about table holding the registry version.
An existing registry is left alone unless --force is given.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := ""
			if len(args) == 1 {
				abs, err := filepath.Abs(args[0])
				if err != nil {
					return prepareError(cmd, ErrCodeGeneric, fmt.Errorf("resolving project path: %w", err))
				}
				root = abs
			}
			return rootOpts.withProject(cmd, root, func(f *OutputFormatter, p *project.Project) error {
				version := opts.Version
				if version == "" {
					version = rootOpts.Config.DefaultVersion
				}
				change, err := p.Init(cmd.Context(), version, opts.Force)
				if err != nil {
					return err
				}
				return reportChange(f, change, fmt.Sprintf("✓ Initialized registry at %s", change.Path))
			})
		},
	}

	cmd.Flags().StringVar(&opts.Version, "version", "", "registry version (default from config)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "replace an existing registry document")

	return cmd
}
