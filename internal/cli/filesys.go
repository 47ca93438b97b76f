package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/immutag/internal/paths"
	"github.com/roach88/immutag/internal/project"
	"github.com/roach88/immutag/internal/wallet"
)

// NewFilesysCommand creates the filesys command group, which manages
// identities in the project registry.
func NewFilesysCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filesys",
		Short: "Manage identities and their storage",
	}

	cmd.AddCommand(newFilesysImportCommand(rootOpts))
	cmd.AddCommand(newFilesysProvisionCommand(rootOpts))
	cmd.AddCommand(newFilesysShowCommand(rootOpts))
	cmd.AddCommand(newFilesysSetCommand(rootOpts))
	cmd.AddCommand(newFilesysRemoveCommand(rootOpts))
	cmd.AddCommand(newFilesysListCommand(rootOpts))

	return cmd
}

// ImportResult is the JSON payload of filesys import.
type ImportResult struct {
	ChangeResult
	Identity paths.IdentityPaths `json:"storage"`
}

func newFilesysImportCommand(rootOpts *RootOptions) *cobra.Command {
	var xpriv, mnemonic, language string

	cmd := &cobra.Command{
		Use:   "import <identity>",
		Short: "Add an identity and provision its storage",
		Long: `Add an identity to the registry with its extended private key, then
create its storage area: a version-store directory, an empty metadata
document and a git repository.

The key is given with --xpriv or derived from a BIP-39 mnemonic given
with --mnemonic. If provisioning fails part way, run
"immutag filesys provision <identity>" to finish it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity := args[0]
			return rootOpts.withProject(cmd, "", func(f *OutputFormatter, p *project.Project) error {
				key, err := resolveXpriv(f, rootOpts, xpriv, mnemonic, language)
				if err != nil {
					return err
				}
				change, ip, err := p.ImportIdentity(cmd.Context(), identity, key)
				if err != nil {
					return err
				}

				if f.Format == "json" {
					result := ImportResult{
						ChangeResult: ChangeResult{Path: change.Path, DryRun: change.DryRun, Changed: change.Changed()},
						Identity:     ip,
					}
					if change.DryRun {
						result.Diff = lineDiff(change.Path, change.Before, change.After)
					}
					return f.Success(result)
				}
				return reportChange(f, change, fmt.Sprintf("✓ Imported %s (storage at %s)", identity, ip.Base))
			})
		},
	}

	cmd.Flags().StringVar(&xpriv, "xpriv", "", "extended private key")
	cmd.Flags().StringVar(&mnemonic, "mnemonic", "", "BIP-39 mnemonic to derive the key from")
	cmd.Flags().StringVar(&language, "language", "", languageUsage())

	return cmd
}

// resolveXpriv returns the key given directly or derived from a mnemonic.
func resolveXpriv(f *OutputFormatter, rootOpts *RootOptions, xpriv, mnemonic, language string) (string, error) {
	switch {
	case xpriv != "" && mnemonic != "":
		return "", failCode(f, ErrCodeUsage, "--xpriv and --mnemonic cannot be combined")
	case xpriv != "":
		return xpriv, nil
	case mnemonic == "":
		return "", failCode(f, ErrCodeUsage, "one of --xpriv or --mnemonic is required")
	}

	lang, err := mnemonicLanguage(rootOpts, language)
	if err != nil {
		return "", failCode(f, ErrCodeUsage, err.Error())
	}
	key, err := wallet.MnemonicToXpriv(strings.Fields(mnemonic), lang)
	if err != nil {
		return "", err
	}
	rootOpts.Logger.Debug("derived key from mnemonic",
		zap.Int("words", len(strings.Fields(mnemonic))),
		zap.Stringer("language", lang))
	return key.String(), nil
}

// languageUsage is the help text of the --language flag.
func languageUsage() string {
	names := make([]string, 0, len(wallet.Languages()))
	for _, l := range wallet.Languages() {
		names = append(names, l.String())
	}
	return "mnemonic language: " + strings.Join(names, ", ") + " (default from config)"
}

func mnemonicLanguage(rootOpts *RootOptions, flag string) (wallet.Language, error) {
	if flag != "" {
		return wallet.ParseLanguage(flag)
	}
	return rootOpts.Config.Language()
}

func newFilesysProvisionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "provision <identity>",
		Short:         "Create or complete the storage of a registered identity",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withProject(cmd, "", func(f *OutputFormatter, p *project.Project) error {
				ip, err := p.Provision(args[0])
				if err != nil {
					return err
				}
				if f.Format == "json" {
					return f.Success(ip)
				}
				fmt.Fprintf(f.Writer, "✓ Storage ready at %s\n", ip.Base)
				return nil
			})
		},
	}
}

// FieldResult is the JSON payload of commands that read one field.
type FieldResult struct {
	Entry string `json:"entry"`
	Field string `json:"field"`
	Value string `json:"value"`
}

func newFilesysShowCommand(rootOpts *RootOptions) *cobra.Command {
	var field string

	cmd := &cobra.Command{
		Use:           "show <identity>",
		Short:         "Print a field of an identity",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withProject(cmd, "", func(f *OutputFormatter, p *project.Project) error {
				value, err := p.IdentityField(args[0], field)
				if err != nil {
					return err
				}
				if f.Format == "json" {
					return f.Success(FieldResult{Entry: args[0], Field: field, Value: value})
				}
				fmt.Fprintln(f.Writer, value)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&field, "field", project.XprivField, "field to print")

	return cmd
}

func newFilesysSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "set <identity> <field> <value>",
		Short:         "Set a field of an identity",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withProject(cmd, "", func(f *OutputFormatter, p *project.Project) error {
				change, err := p.SetIdentityField(cmd.Context(), args[0], args[1], args[2])
				if err != nil {
					return err
				}
				return reportChange(f, change, fmt.Sprintf("✓ Set %s.%s", args[0], args[1]))
			})
		},
	}
}

func newFilesysRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <identity>",
		Short: "Remove an identity from the registry",
		Long: `Remove an identity from the registry. Its storage directory is kept on
disk.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withProject(cmd, "", func(f *OutputFormatter, p *project.Project) error {
				change, err := p.RemoveIdentity(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return reportChange(f, change, fmt.Sprintf("✓ Removed %s", args[0]))
			})
		},
	}
}

func newFilesysListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List identities in the registry",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withProject(cmd, "", func(f *OutputFormatter, p *project.Project) error {
				ids, err := p.Identities()
				if err != nil {
					return err
				}
				if f.Format == "json" {
					return f.Success(ids)
				}
				if len(ids) == 0 {
					fmt.Fprintln(f.Writer, "No identities")
					return nil
				}
				for _, id := range ids {
					mark := "✓"
					if !id.Provisioned {
						mark = "✗"
					}
					fmt.Fprintf(f.Writer, "%s %s\n", mark, id.Key)
				}
				return nil
			})
		},
	}
}
