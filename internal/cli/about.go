package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/immutag/internal/project"
)

// NewAboutCommand creates the about command group.
func NewAboutCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "about",
		Short: "Edit the about table of a document",
	}
	cmd.AddCommand(newAboutSetCommand(rootOpts))
	return cmd
}

func newAboutSetCommand(rootOpts *RootOptions) *cobra.Command {
	var identity string
	var add bool

	cmd := &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Set an about field",
		Long: `Set a field of the about table. Without --identity the project registry
is edited, otherwise the identity's metadata document.

The field must already exist unless --add is given, in which case it
must not.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withProject(cmd, "", func(f *OutputFormatter, p *project.Project) error {
				change, err := p.SetAbout(cmd.Context(), identity, args[0], args[1], add)
				if err != nil {
					return err
				}
				return reportChange(f, change, fmt.Sprintf("✓ Set about.%s", args[0]))
			})
		},
	}

	cmd.Flags().StringVar(&identity, "identity", "", "edit this identity's metadata instead of the registry")
	cmd.Flags().BoolVar(&add, "add", false, "create a new field")

	return cmd
}
