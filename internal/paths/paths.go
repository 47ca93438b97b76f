// Package paths composes the on-disk layout of an immutag project.
//
// Everything here is pure: no function touches the filesystem or reads
// the process working directory. Relative paths are rejected, so callers
// decide explicitly what a path is relative to.
package paths

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Default names of the layout entries.
const (
	DefaultRegistryDir      = ".immutag"
	DefaultDocumentName     = "Immutag"
	DefaultVersionStoreName = "version-store"
	DefaultMetadataName     = "metadata"
	DefaultJournalName      = "journal.db"

	// ConfigFileName is the project configuration file inside the
	// registry directory.
	ConfigFileName = "config.yaml"
)

var (
	// ErrRelativePath indicates a project path that is not absolute.
	ErrRelativePath = errors.New("project path must be absolute")

	// ErrInvalidIdentity indicates an identity that cannot name a directory.
	ErrInvalidIdentity = errors.New("invalid identity")
)

// Layout names the directories and files of a project registry.
type Layout struct {
	RegistryDir      string
	DocumentName     string
	VersionStoreName string
	MetadataName     string

	// JournalName is the journal entry in the registry directory, if the
	// journal lives there.
	JournalName string
}

// DefaultLayout returns the standard immutag layout.
func DefaultLayout() Layout {
	return Layout{
		RegistryDir:      DefaultRegistryDir,
		DocumentName:     DefaultDocumentName,
		VersionStoreName: DefaultVersionStoreName,
		MetadataName:     DefaultMetadataName,
		JournalName:      DefaultJournalName,
	}
}

// IdentityPaths is the storage area of one identity.
type IdentityPaths struct {
	Identity     string `json:"identity"`
	Base         string `json:"base"`
	VersionStore string `json:"version_store"`
	Metadata     string `json:"metadata"`
}

// RegistryRoot returns <projectPath>/<RegistryDir>.
func (l Layout) RegistryRoot(projectPath string) (string, error) {
	if projectPath == "" {
		return "", fmt.Errorf("%w: empty path", ErrRelativePath)
	}
	p := filepath.Clean(filepath.FromSlash(projectPath))
	if !filepath.IsAbs(p) {
		return "", fmt.Errorf("%w: %s", ErrRelativePath, projectPath)
	}
	return filepath.Join(p, l.RegistryDir), nil
}

// RegistryDocument returns the path of the project registry document.
func (l Layout) RegistryDocument(registryRoot string) string {
	return filepath.Join(registryRoot, l.DocumentName)
}

// Identity returns the storage area of identity under registryRoot.
func (l Layout) Identity(registryRoot, identity string) (IdentityPaths, error) {
	if err := ValidateIdentity(identity); err != nil {
		return IdentityPaths{}, err
	}
	if l.Reserved(identity) {
		return IdentityPaths{}, fmt.Errorf("%w: %q is used by the registry", ErrInvalidIdentity, identity)
	}
	base := filepath.Join(registryRoot, identity)
	return IdentityPaths{
		Identity:     identity,
		Base:         base,
		VersionStore: filepath.Join(base, l.VersionStoreName),
		Metadata:     filepath.Join(base, l.MetadataName),
	}, nil
}

// Reserved reports whether name collides with a file the registry keeps
// next to the identity directories. Names are compared case-insensitively
// so the check holds on case-insensitive filesystems.
func (l Layout) Reserved(name string) bool {
	for _, r := range []string{l.DocumentName, ConfigFileName, l.JournalName} {
		if r != "" && strings.EqualFold(name, r) {
			return true
		}
	}
	return false
}

// ValidateIdentity checks that identity names exactly one directory.
func ValidateIdentity(identity string) error {
	switch {
	case identity == "":
		return fmt.Errorf("%w: empty", ErrInvalidIdentity)
	case identity == "." || identity == "..":
		return fmt.Errorf("%w: %q", ErrInvalidIdentity, identity)
	case strings.ContainsAny(identity, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidIdentity, identity)
	}
	return nil
}

// ResolveRegistryRoot is DefaultLayout().RegistryRoot.
func ResolveRegistryRoot(projectPath string) (string, error) {
	return DefaultLayout().RegistryRoot(projectPath)
}

// ResolveIdentityPaths is DefaultLayout().Identity.
func ResolveIdentityPaths(registryRoot, identity string) (IdentityPaths, error) {
	return DefaultLayout().Identity(registryRoot, identity)
}

// Absolute resolves path against base unless it is already absolute.
func Absolute(base, path string) string {
	path = filepath.FromSlash(path)
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}
