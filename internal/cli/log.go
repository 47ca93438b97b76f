package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/immutag/internal/project"
)

// NewLogCommand creates the log command, which prints the mutation
// journal.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recorded document changes",
		Long: `Show the mutations recorded in the project journal, oldest first.

Each line carries the operation, the affected entry and a hash of the
document after the change. Values are never recorded.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.prepare(cmd); err != nil {
				return err
			}
			if !rootOpts.Config.Journal.Enabled {
				return failCode(rootOpts.formatter(cmd), ErrCodeConfig, "the journal is disabled (journal.enabled: false)")
			}
			return rootOpts.withProject(cmd, "", func(f *OutputFormatter, p *project.Project) error {
				entries, err := p.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if f.Format == "json" {
					return f.Success(entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(f.Writer, "No recorded changes")
					return nil
				}
				for _, e := range entries {
					target := e.EntryKey
					if e.Field != "" {
						target += "." + e.Field
					}
					fmt.Fprintf(f.Writer, "%4d  %s  %-12s %s  %s  %s\n",
						e.Seq,
						e.RecordedAt.Format(time.RFC3339),
						e.Op,
						e.Document,
						target,
						shortHash(e.DocHash))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the most recent N changes")

	return cmd
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
