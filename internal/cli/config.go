package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/immutag/internal/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration",
	}
	cmd.AddCommand(newConfigInitCommand(rootOpts))
	cmd.AddCommand(newConfigShowCommand(rootOpts))
	return cmd
}

func newConfigInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file into the project",
		Long: `Write the default settings to <project>/.immutag/config.yaml, or to the
path given with --config. An existing file is never overwritten.`,
		Annotations:   map[string]string{annotationConfigOptional: "true"},
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.prepare(cmd); err != nil {
				return err
			}
			f := rootOpts.formatter(cmd)

			path := rootOpts.ConfigFile
			if path == "" {
				path = config.ProjectConfigPath(rootOpts.ProjectDir)
			}
			if err := config.WriteDefaultConfig(path); err != nil {
				return failCode(f, ErrCodeConfig, err.Error())
			}

			if f.Format == "json" {
				return f.Success(map[string]string{"path": path})
			}
			fmt.Fprintf(f.Writer, "✓ Wrote %s\n", path)
			return nil
		},
	}
}

// ConfigResult is the JSON payload of config show.
type ConfigResult struct {
	File   string        `json:"file,omitempty"`
	Config config.Config `json:"config"`
}

func newConfigShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Print the effective configuration",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.prepare(cmd); err != nil {
				return err
			}
			f := rootOpts.formatter(cmd)
			if f.Format == "json" {
				return f.Success(ConfigResult{File: rootOpts.ConfigUsed, Config: rootOpts.Config})
			}

			cfg := rootOpts.Config
			source := rootOpts.ConfigUsed
			if source == "" {
				source = "(defaults)"
			}
			fmt.Fprintf(f.Writer, "config file:     %s\n", source)
			fmt.Fprintf(f.Writer, "registry_dir:    %s\n", cfg.RegistryDir)
			fmt.Fprintf(f.Writer, "document_name:   %s\n", cfg.DocumentName)
			fmt.Fprintf(f.Writer, "default_version: %s\n", cfg.DefaultVersion)
			fmt.Fprintf(f.Writer, "author:          %s\n", cfg.Author)
			fmt.Fprintf(f.Writer, "journal:         enabled=%t file=%s\n", cfg.Journal.Enabled, cfg.Journal.File)
			fmt.Fprintf(f.Writer, "git.binary:      %s\n", cfg.Git.Binary)
			fmt.Fprintf(f.Writer, "log.level:       %s\n", cfg.Log.Level)
			fmt.Fprintf(f.Writer, "wallet.language: %s\n", cfg.Wallet.Language)
			return nil
		},
	}
}
