// Package config loads immutag settings with viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/roach88/immutag/internal/paths"
	"github.com/roach88/immutag/internal/wallet"
)

// FileName is the name of the configuration file.
const FileName = paths.ConfigFileName

// EnvPrefix prefixes environment overrides, e.g. IMMUTAG_LOG_LEVEL.
const EnvPrefix = "IMMUTAG"

// Config holds all immutag settings.
type Config struct {
	RegistryDir    string        `mapstructure:"registry_dir" yaml:"registry_dir" json:"registry_dir"`
	DocumentName   string        `mapstructure:"document_name" yaml:"document_name" json:"document_name"`
	DefaultVersion string        `mapstructure:"default_version" yaml:"default_version" json:"default_version"`
	Author         string        `mapstructure:"author" yaml:"author" json:"author"`
	Journal        JournalConfig `mapstructure:"journal" yaml:"journal" json:"journal"`
	Git            GitConfig     `mapstructure:"git" yaml:"git" json:"git"`
	Log            LogConfig     `mapstructure:"log" yaml:"log" json:"log"`
	Wallet         WalletConfig  `mapstructure:"wallet" yaml:"wallet" json:"wallet"`
}

// JournalConfig controls the mutation journal.
type JournalConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// File is relative to the registry directory unless absolute.
	File string `mapstructure:"file" yaml:"file" json:"file"`
}

// GitConfig selects the git binary.
type GitConfig struct {
	Binary string `mapstructure:"binary" yaml:"binary" json:"binary"`
}

// LogConfig sets the log level used without --verbose.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" json:"level"`
}

// WalletConfig sets the default mnemonic language.
type WalletConfig struct {
	Language string `mapstructure:"language" yaml:"language" json:"language"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		RegistryDir:    paths.DefaultRegistryDir,
		DocumentName:   paths.DefaultDocumentName,
		DefaultVersion: "0.1.0",
		Journal: JournalConfig{
			Enabled: true,
			File:    paths.DefaultJournalName,
		},
		Git:    GitConfig{Binary: "git"},
		Log:    LogConfig{Level: "warn"},
		Wallet: WalletConfig{Language: wallet.English.String()},
	}
}

// Layout returns the path layout described by the configuration.
func (c Config) Layout() paths.Layout {
	l := paths.DefaultLayout()
	l.RegistryDir = c.RegistryDir
	l.DocumentName = c.DocumentName
	l.JournalName = ""
	if c.Journal.Enabled && !filepath.IsAbs(c.Journal.File) {
		l.JournalName = strings.Split(filepath.ToSlash(filepath.Clean(c.Journal.File)), "/")[0]
	}
	return l
}

// JournalPath resolves the journal file against registryRoot.
func (c Config) JournalPath(registryRoot string) string {
	return paths.Absolute(registryRoot, c.Journal.File)
}

// Language parses the configured mnemonic language.
func (c Config) Language() (wallet.Language, error) {
	return wallet.ParseLanguage(c.Wallet.Language)
}

// LogLevel parses the configured log level.
func (c Config) LogLevel() (zapcore.Level, error) {
	return zapcore.ParseLevel(c.Log.Level)
}

// Validate checks every field.
func (c Config) Validate() error {
	var errs []error
	if err := validateName("registry_dir", c.RegistryDir); err != nil {
		errs = append(errs, err)
	}
	if err := validateName("document_name", c.DocumentName); err != nil {
		errs = append(errs, err)
	}
	if c.Journal.Enabled && c.Journal.File == "" {
		errs = append(errs, errors.New("journal.file must be set when the journal is enabled"))
	}
	if c.Git.Binary == "" {
		errs = append(errs, errors.New("git.binary must not be empty"))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if _, err := c.Language(); err != nil {
		errs = append(errs, fmt.Errorf("wallet.language: %w", err))
	}
	return errors.Join(errs...)
}

func validateName(field, value string) error {
	if value == "" || value == "." || value == ".." || strings.ContainsAny(value, `/\`) {
		return fmt.Errorf("%s must be a single path element, got %q", field, value)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("registry_dir", d.RegistryDir)
	v.SetDefault("document_name", d.DocumentName)
	v.SetDefault("default_version", d.DefaultVersion)
	v.SetDefault("author", d.Author)
	v.SetDefault("journal.enabled", d.Journal.Enabled)
	v.SetDefault("journal.file", d.Journal.File)
	v.SetDefault("git.binary", d.Git.Binary)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("wallet.language", d.Wallet.Language)
}

// Load reads configuration into v and returns the decoded result along
// with the file that was used ("" when running on defaults).
//
// Config lookup order:
//  1. explicitPath, which must exist
//  2. <projectPath>/.immutag/config.yaml
//  3. ~/.config/immutag/config.yaml
//
// Environment variables (IMMUTAG_LOG_LEVEL, IMMUTAG_JOURNAL_ENABLED, ...)
// override file values.
func Load(v *viper.Viper, explicitPath, projectPath string) (Config, string, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case explicitPath != "":
		v.SetConfigFile(explicitPath)
	case fileExists(ProjectConfigPath(projectPath)):
		v.SetConfigFile(ProjectConfigPath(projectPath))
	default:
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "immutag"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitPath != "" || !errors.As(err, &notFound) {
			return Config{}, "", fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, v.ConfigFileUsed(), nil
}

// ProjectConfigPath returns <projectPath>/.immutag/config.yaml.
func ProjectConfigPath(projectPath string) string {
	return filepath.Join(projectPath, paths.DefaultRegistryDir, FileName)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

const header = `# immutag configuration
#
# Every key can be overridden with an IMMUTAG_ environment variable,
# e.g. IMMUTAG_LOG_LEVEL=debug or IMMUTAG_JOURNAL_ENABLED=false.

`

// WriteDefaultConfig creates a config file at configPath holding the
// default settings. It refuses to overwrite an existing file.
func WriteDefaultConfig(configPath string) error {
	if fileExists(configPath) {
		return fmt.Errorf("config file already exists: %s", configPath)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	body, err := yaml.Marshal(Defaults())
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.WriteFile(configPath, append([]byte(header), body...), 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
