// Package provision creates the filesystem side of a project: the
// registry directory with its document, and the storage area of each
// identity.
//
// Provisioning never rolls back. A failed step leaves the directories
// created so far in place, and running the same call again resumes:
// existing directories are kept, an existing metadata file is never
// truncated, and git init is skipped when the identity directory is
// already a repository root.
package provision

import (
	"errors"
	"os"

	"go.uber.org/zap"

	"github.com/roach88/immutag/internal/git"
	"github.com/roach88/immutag/internal/paths"
	"github.com/roach88/immutag/internal/registry"
)

// Provisioner creates registry and identity storage on disk.
type Provisioner struct {
	layout paths.Layout
	repos  git.Repository
	logger *zap.Logger
}

// New creates a Provisioner. A nil logger discards output.
func New(layout paths.Layout, repos git.Repository, logger *zap.Logger) *Provisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{layout: layout, repos: repos, logger: logger}
}

// Layout returns the layout the provisioner writes.
func (p *Provisioner) Layout() paths.Layout {
	return p.layout
}

// InitRegistry creates the registry directory under projectPath and
// writes a new registry document there. It returns the document path.
func (p *Provisioner) InitRegistry(projectPath string, schema registry.Schema, about ...registry.Field) (string, error) {
	root, err := p.layout.RegistryRoot(projectPath)
	if err != nil {
		return "", registry.NewIOError(projectPath, "resolve registry root", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", registry.NewIOError(root, "create registry directory", err)
	}

	docPath := p.layout.RegistryDocument(root)
	if _, err := registry.Init(docPath, schema, about...); err != nil {
		return "", err
	}
	p.logger.Info("registry initialized", zap.String("path", docPath), zap.String("schema", schema.Name))
	return docPath, nil
}

// ProvisionIdentity creates, in order, the identity directory, its
// version-store directory, an empty metadata file and a git repository
// rooted at the identity directory.
func (p *Provisioner) ProvisionIdentity(projectPath, identity string) (paths.IdentityPaths, error) {
	root, err := p.layout.RegistryRoot(projectPath)
	if err != nil {
		return paths.IdentityPaths{}, registry.NewIOError(projectPath, "resolve registry root", err)
	}
	ip, err := p.layout.Identity(root, identity)
	if err != nil {
		return paths.IdentityPaths{}, &registry.Error{
			Kind:    registry.KindInvalidKey,
			Key:     identity,
			Message: "identity cannot name a storage directory",
			Err:     err,
		}
	}

	log := p.logger.With(zap.String("identity", identity))

	if err := os.MkdirAll(ip.Base, 0o755); err != nil {
		return ip, registry.NewIOError(ip.Base, "create identity directory", err)
	}
	if err := os.MkdirAll(ip.VersionStore, 0o755); err != nil {
		return ip, registry.NewIOError(ip.VersionStore, "create version store", err)
	}
	if err := touch(ip.Metadata); err != nil {
		return ip, registry.NewIOError(ip.Metadata, "create metadata file", err)
	}

	if p.repos.IsRepository(ip.Base) {
		log.Debug("repository already present", zap.String("path", ip.Base))
	} else if err := p.repos.InitRepository(ip.Base); err != nil {
		return ip, registry.NewIOError(ip.Base, "initialize repository", err)
	}

	log.Info("identity provisioned", zap.String("path", ip.Base))
	return ip, nil
}

// Provisioned reports whether the storage area of identity is complete.
func (p *Provisioner) Provisioned(ip paths.IdentityPaths) bool {
	if info, err := os.Stat(ip.VersionStore); err != nil || !info.IsDir() {
		return false
	}
	if info, err := os.Stat(ip.Metadata); err != nil || info.IsDir() {
		return false
	}
	return p.repos.IsRepository(ip.Base)
}

// touch creates path if it does not exist, without truncating it.
func touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// IsInvalidIdentity reports whether err came from an identity that cannot
// name a directory.
func IsInvalidIdentity(err error) bool {
	return errors.Is(err, paths.ErrInvalidIdentity)
}
