package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/immutag/internal/project"
	"github.com/roach88/immutag/internal/registry"
)

// NewFileCommand creates the file command group, which manages the
// annotations in an identity's metadata document.
func NewFileCommand(rootOpts *RootOptions) *cobra.Command {
	var identity string

	cmd := &cobra.Command{
		Use:   "file",
		Short: "Annotate files in an identity's metadata",
	}
	cmd.PersistentFlags().StringVar(&identity, "identity", "", "identity whose metadata to edit (required)")
	_ = cmd.MarkPersistentFlagRequired("identity")

	cmd.AddCommand(newFileInitCommand(rootOpts, &identity))
	cmd.AddCommand(newFileAddCommand(rootOpts, &identity))
	cmd.AddCommand(newFileUpdateCommand(rootOpts, &identity))
	cmd.AddCommand(newFileSetCommand(rootOpts, &identity))
	cmd.AddCommand(newFileRemoveCommand(rootOpts, &identity))
	cmd.AddCommand(newFileShowCommand(rootOpts, &identity))
	cmd.AddCommand(newFileListCommand(rootOpts, &identity))

	return cmd
}

func newFileInitCommand(rootOpts *RootOptions, identity *string) *cobra.Command {
	var version, name, author string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the about table of an identity's metadata",
		Long: `Write the about table of a provisioned identity's metadata document.

version, name and author are required. The version and author default
to the configured default_version and author.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withProject(cmd, "", func(f *OutputFormatter, p *project.Project) error {
				about := project.AnnotationsAbout{Version: version, Name: name, Author: author}
				if about.Version == "" {
					about.Version = rootOpts.Config.DefaultVersion
				}
				if about.Author == "" {
					about.Author = rootOpts.Config.Author
				}
				change, err := p.InitAnnotations(cmd.Context(), *identity, about, force)
				if err != nil {
					return err
				}
				return reportChange(f, change, fmt.Sprintf("✓ Initialized metadata for %s", *identity))
			})
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "metadata version (default from config)")
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&author, "author", "", "author (default from config)")
	cmd.Flags().BoolVar(&force, "force", false, "replace existing metadata")

	return cmd
}

func newFileAddCommand(rootOpts *RootOptions, identity *string) *cobra.Command {
	return &cobra.Command{
		Use:           "add <target> <tag>",
		Short:         "Annotate a new file",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withProject(cmd, "", func(f *OutputFormatter, p *project.Project) error {
				change, err := p.Annotate(cmd.Context(), *identity, args[0], args[1])
				if err != nil {
					return err
				}
				return reportChange(f, change, fmt.Sprintf("✓ Added %s", args[0]))
			})
		},
	}
}

func newFileUpdateCommand(rootOpts *RootOptions, identity *string) *cobra.Command {
	return &cobra.Command{
		Use:           "update <target> <tag>",
		Short:         "Replace the tag of an annotated file",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withProject(cmd, "", func(f *OutputFormatter, p *project.Project) error {
				change, err := p.Retag(cmd.Context(), *identity, args[0], args[1])
				if err != nil {
					return err
				}
				return reportChange(f, change, fmt.Sprintf("✓ Updated %s", args[0]))
			})
		},
	}
}

func newFileSetCommand(rootOpts *RootOptions, identity *string) *cobra.Command {
	return &cobra.Command{
		Use:           "set <target> <field> <value>",
		Short:         "Set a field of an annotated file",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withProject(cmd, "", func(f *OutputFormatter, p *project.Project) error {
				change, err := p.SetAnnotationField(cmd.Context(), *identity, args[0], args[1], args[2])
				if err != nil {
					return err
				}
				return reportChange(f, change, fmt.Sprintf("✓ Set %s.%s", args[0], args[1]))
			})
		},
	}
}

func newFileRemoveCommand(rootOpts *RootOptions, identity *string) *cobra.Command {
	return &cobra.Command{
		Use:           "rm <target>",
		Short:         "Remove a file's annotation",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withProject(cmd, "", func(f *OutputFormatter, p *project.Project) error {
				change, err := p.RemoveAnnotation(cmd.Context(), *identity, args[0])
				if err != nil {
					return err
				}
				return reportChange(f, change, fmt.Sprintf("✓ Removed %s", args[0]))
			})
		},
	}
}

// AnnotationResult is the JSON payload of file show.
type AnnotationResult struct {
	Target string           `json:"target"`
	Fields []registry.Field `json:"fields"`
}

func newFileShowCommand(rootOpts *RootOptions, identity *string) *cobra.Command {
	var field string

	cmd := &cobra.Command{
		Use:           "show <target>",
		Short:         "Print the annotation of a file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withProject(cmd, "", func(f *OutputFormatter, p *project.Project) error {
				fields, err := p.Annotation(*identity, args[0])
				if err != nil {
					return err
				}

				if field != "" {
					for _, fl := range fields {
						if fl.Name != field {
							continue
						}
						if f.Format == "json" {
							return f.Success(FieldResult{Entry: args[0], Field: field, Value: fl.Value})
						}
						fmt.Fprintln(f.Writer, fl.Value)
						return nil
					}
					return registry.NewInvalidKeyError(args[0], "no field %q in entry %q", field, args[0])
				}

				if f.Format == "json" {
					return f.Success(AnnotationResult{Target: args[0], Fields: fields})
				}
				for _, fl := range fields {
					fmt.Fprintf(f.Writer, "%s = %s\n", fl.Name, fl.Value)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&field, "field", "", "print only this field")

	return cmd
}

func newFileListCommand(rootOpts *RootOptions, identity *string) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List annotated files",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withProject(cmd, "", func(f *OutputFormatter, p *project.Project) error {
				keys, err := p.Annotations(*identity)
				if err != nil {
					return err
				}
				if f.Format == "json" {
					return f.Success(keys)
				}
				for _, k := range keys {
					fmt.Fprintln(f.Writer, k)
				}
				return nil
			})
		},
	}
}
