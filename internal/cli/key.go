package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/immutag/internal/wallet"
)

// NewKeyCommand creates the key command group.
func NewKeyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Derive identity keys",
	}
	cmd.AddCommand(newKeyDeriveCommand(rootOpts))
	return cmd
}

// KeyResult is the JSON payload of key derive.
type KeyResult struct {
	Language string `json:"language"`
	Kind     string `json:"kind"`
	Key      string `json:"key"`
}

func newKeyDeriveCommand(rootOpts *RootOptions) *cobra.Command {
	var language string
	var public bool

	cmd := &cobra.Command{
		Use:   "derive <word>...",
		Short: "Derive the master extended key of a mnemonic",
		Long: `Derive the master extended private key (or, with --public, the public
key) of a BIP-39 mnemonic. Words may be given as separate arguments or as
one quoted argument.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.prepare(cmd); err != nil {
				return err
			}
			f := rootOpts.formatter(cmd)

			lang, err := mnemonicLanguage(rootOpts, language)
			if err != nil {
				return failCode(f, ErrCodeUsage, err.Error())
			}
			words := splitWords(args)

			result := KeyResult{Language: lang.String(), Kind: "xprv"}
			if public {
				result.Kind = "xpub"
				key, err := wallet.MnemonicToXpub(words, lang)
				if err != nil {
					return fail(f, err)
				}
				result.Key = key.String()
			} else {
				key, err := wallet.MnemonicToXpriv(words, lang)
				if err != nil {
					return fail(f, err)
				}
				result.Key = key.String()
			}

			if f.Format == "json" {
				return f.Success(result)
			}
			fmt.Fprintln(f.Writer, result.Key)
			return nil
		},
	}

	cmd.Flags().StringVar(&language, "language", "", languageUsage())
	cmd.Flags().BoolVar(&public, "public", false, "print the extended public key")

	return cmd
}

// splitWords flattens arguments that each hold one or more words.
func splitWords(args []string) []string {
	var words []string
	for _, a := range args {
		words = append(words, strings.Fields(a)...)
	}
	return words
}
