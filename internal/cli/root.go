package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roach88/immutag/internal/config"
	"github.com/roach88/immutag/internal/git"
	"github.com/roach88/immutag/internal/project"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Project    string
	ConfigFile string
	DryRun     bool

	// Resolved by prepare.
	ProjectDir string
	Config     config.Config
	ConfigUsed string
	Logger     *zap.Logger

	repos    git.Repository
	prepared bool
}

// annotationConfigOptional marks commands that run even when --config
// names a file that does not exist yet.
const annotationConfigOptional = "immutag/config-optional"

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the immutag CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "immutag",
		Short: "immutag - annotate files in a per-identity registry",
		Long: `Manage an immutag project: a registry of identities, each with its own
storage area and metadata document of annotated files.

Documents are TOML files edited in place. Comments, ordering and
formatting of untouched lines are preserved.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Logger != nil {
				_ = opts.Logger.Sync()
			}
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Project, "project", "", "project directory (default: current directory)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default: <project>/.immutag/config.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.DryRun, "dry-run", false, "show document changes without writing them")

	// Add subcommands
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewFilesysCommand(opts))
	cmd.AddCommand(NewFileCommand(opts))
	cmd.AddCommand(NewAboutCommand(opts))
	cmd.AddCommand(NewKeyCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// prepare resolves the project directory, loads configuration and builds
// the logger. It runs once; subcommands executed on their own call it
// from RunE.
func (o *RootOptions) prepare(cmd *cobra.Command) error {
	if o.prepared {
		return nil
	}
	if o.Format == "" {
		o.Format = "text"
	}
	if !isValidFormat(o.Format) {
		return prepareError(cmd, ErrCodeUsage, fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	dir := o.Project
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return prepareError(cmd, ErrCodeGeneric, fmt.Errorf("resolving working directory: %w", err))
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return prepareError(cmd, ErrCodeGeneric, fmt.Errorf("resolving project directory: %w", err))
	}
	o.ProjectDir = abs

	explicit := o.ConfigFile
	if cmd.Annotations[annotationConfigOptional] == "true" {
		if _, err := os.Stat(explicit); err != nil {
			explicit = ""
		}
	}
	cfg, used, err := config.Load(viper.New(), explicit, o.ProjectDir)
	if err != nil {
		return prepareError(cmd, ErrCodeConfig, err)
	}
	o.Config = cfg
	o.ConfigUsed = used

	level, _ := cfg.LogLevel()
	if o.Verbose {
		level = zapcore.DebugLevel
	}
	o.Logger = newLogger(cmd.ErrOrStderr(), level)
	o.prepared = true

	o.Logger.Debug("configuration loaded",
		zap.String("project", o.ProjectDir),
		zap.String("config", used))
	return nil
}

// prepareError reports a failure that happens before a formatter exists.
// It always goes to stderr as text.
func prepareError(cmd *cobra.Command, code string, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error [%s]: %v\n", code, err)
	return WrapExitError(ExitCommandError, code, err)
}

// newLogger writes console-encoded logs to w.
func newLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core)
}

// formatter builds the OutputFormatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:  o.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: o.Verbose,
	}
}

// openProject opens the project rooted at root, or at the resolved
// project directory when root is empty.
func (o *RootOptions) openProject(root string) (*project.Project, error) {
	if root == "" {
		root = o.ProjectDir
	}
	layout := o.Config.Layout()

	journalPath := ""
	if o.Config.Journal.Enabled {
		registryRoot, err := layout.RegistryRoot(root)
		if err != nil {
			return nil, err
		}
		journalPath = o.Config.JournalPath(registryRoot)
	}

	repos := o.repos
	if repos == nil {
		repos = git.NewExecutor(o.Config.Git.Binary)
	}

	return project.Open(project.Options{
		Root:        root,
		Layout:      layout,
		Repos:       repos,
		JournalPath: journalPath,
		Logger:      o.Logger,
		DryRun:      o.DryRun,
	})
}

// withProject prepares options, opens the project and runs fn with it.
// Errors returned by fn are reported through the formatter.
func (o *RootOptions) withProject(cmd *cobra.Command, root string, fn func(*OutputFormatter, *project.Project) error) error {
	if err := o.prepare(cmd); err != nil {
		return err
	}
	f := o.formatter(cmd)

	p, err := o.openProject(root)
	if err != nil {
		return fail(f, err)
	}
	defer p.Close()

	if err := fn(f, p); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		return fail(f, err)
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
