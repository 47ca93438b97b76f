package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/immutag/internal/project"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                     `json:"valid"`
	Documents []project.DocumentStatus `json:"documents"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the registry and every identity's metadata",
		Long: `Check that the project registry and the metadata document of every
registered identity parse, carry their required about fields and that
each identity's storage is fully provisioned.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withProject(cmd, "", func(f *OutputFormatter, p *project.Project) error {
				return runValidate(f, p, rootOpts.Logger)
			})
		},
	}

	return cmd
}

func runValidate(formatter *OutputFormatter, p *project.Project, log *zap.Logger) error {
	statuses, err := p.Status()
	if err != nil {
		return err
	}

	var problems []project.DocumentStatus
	for _, st := range statuses {
		log.Debug("document checked",
			zap.String("path", st.Path),
			zap.String("state", st.State),
			zap.Int("entries", st.Entries))
		if !st.Healthy() || !st.Provisioned {
			problems = append(problems, st)
		}
	}

	if len(problems) > 0 {
		return outputValidationErrors(formatter, statuses, problems)
	}
	return outputValidateSuccess(formatter, statuses)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, statuses []project.DocumentStatus) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Documents: statuses})
	}

	fmt.Fprintf(formatter.Writer, "✓ All documents valid (%d checked)\n", len(statuses))
	return nil
}

// outputValidationErrors outputs every unhealthy document.
func outputValidationErrors(formatter *OutputFormatter, statuses, problems []project.DocumentStatus) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Documents: statuses},
			Error: &CLIError{
				Code:    ErrCodeInvalidFile,
				Message: describeProblem(problems[0]),
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(problems)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, st := range problems {
		label := "registry"
		if st.Identity != "" {
			label = "identity " + st.Identity
		}
		fmt.Fprintf(formatter.Writer, "%s\n", label)
		if st.Path != "" {
			fmt.Fprintf(formatter.Writer, "  path: %s\n", st.Path)
		}
		fmt.Fprintf(formatter.Writer, "  %s\n\n", describeProblem(st))
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(problems)))
}

func describeProblem(st project.DocumentStatus) string {
	switch {
	case st.Error != "":
		return st.Error
	case !st.Provisioned:
		return "storage is not provisioned"
	default:
		return fmt.Sprintf("document is %s", st.State)
	}
}
