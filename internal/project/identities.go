package project

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"

	"github.com/roach88/immutag/internal/journal"
	"github.com/roach88/immutag/internal/paths"
	"github.com/roach88/immutag/internal/registry"
)

// Init creates the project registry document with the given version. An
// existing document is only replaced when force is set.
func (p *Project) Init(ctx context.Context, version string, force bool) (Change, error) {
	docPath := p.DocumentPath()

	before := ""
	if data, err := os.ReadFile(docPath); err == nil {
		before = string(data)
		existing, perr := registry.Parse(data, registry.Identities)
		if !force && (perr != nil || existing.State() != registry.NonExistent) {
			return Change{}, &registry.Error{
				Kind:    registry.KindDuplicateKey,
				Key:     registry.AboutKey,
				Path:    docPath,
				Message: "registry already initialized (use --force to replace it)",
			}
		}
	}

	about := []registry.Field{{Name: "version", Value: version}}
	doc, err := registry.New(registry.Identities, about...)
	if err != nil {
		return Change{}, err
	}

	change := Change{Path: docPath, Before: before, After: doc.String(), DryRun: p.dryRun}
	if p.dryRun {
		return change, nil
	}
	if _, err := p.prov.InitRegistry(p.root, registry.Identities, about...); err != nil {
		return Change{}, err
	}
	p.record(ctx, journal.OpInit, docPath, "", "", doc.Bytes())
	return change, nil
}

// ImportIdentity adds identity with its extended private key to the
// registry, then provisions its storage area. When provisioning fails the
// registry entry stays; Provision resumes it.
func (p *Project) ImportIdentity(ctx context.Context, identity, xpriv string) (Change, paths.IdentityPaths, error) {
	ip, err := p.IdentityPaths(identity)
	if err != nil {
		return Change{}, paths.IdentityPaths{}, err
	}

	change, err := p.mutate(ctx, mutation{
		op:     journal.OpAdd,
		path:   p.DocumentPath(),
		schema: registry.Identities,
		entry:  identity,
		field:  XprivField,
		apply: func(doc *registry.Document) (*registry.Document, error) {
			return doc.AddEntry(identity, XprivField, xpriv)
		},
	})
	if err != nil {
		return Change{}, ip, err
	}
	if p.dryRun {
		return change, ip, nil
	}

	ip, err = p.prov.ProvisionIdentity(p.root, identity)
	if err != nil {
		return change, ip, err
	}
	return change, ip, nil
}

// Provision creates or completes the storage area of an identity that is
// already in the registry.
func (p *Project) Provision(identity string) (paths.IdentityPaths, error) {
	doc, err := p.openRegistry()
	if err != nil {
		return paths.IdentityPaths{}, err
	}
	if !doc.EntryExists(identity) {
		return paths.IdentityPaths{}, registry.NewInvalidKeyError(identity, "identity %q is not in the registry", identity)
	}
	if p.dryRun {
		return p.IdentityPaths(identity)
	}
	return p.prov.ProvisionIdentity(p.root, identity)
}

// IdentityField returns one field of an identity entry.
func (p *Project) IdentityField(identity, field string) (string, error) {
	doc, err := p.openRegistry()
	if err != nil {
		return "", err
	}
	return doc.Lookup(identity, field)
}

// SetIdentityField sets a field on an existing identity entry.
func (p *Project) SetIdentityField(ctx context.Context, identity, field, value string) (Change, error) {
	return p.mutate(ctx, mutation{
		op:     journal.OpUpdate,
		path:   p.DocumentPath(),
		schema: registry.Identities,
		entry:  identity,
		field:  field,
		apply: func(doc *registry.Document) (*registry.Document, error) {
			return doc.UpdateEntry(identity, field, value)
		},
	})
}

// RemoveIdentity deletes an identity from the registry. Its storage area
// is left on disk.
func (p *Project) RemoveIdentity(ctx context.Context, identity string) (Change, error) {
	change, err := p.mutate(ctx, mutation{
		op:     journal.OpDelete,
		path:   p.DocumentPath(),
		schema: registry.Identities,
		entry:  identity,
		apply: func(doc *registry.Document) (*registry.Document, error) {
			return doc.DeleteEntry(identity)
		},
	})
	if err == nil && !p.dryRun {
		p.logger.Info("identity removed from registry; storage kept", zap.String("identity", identity))
	}
	return change, err
}

// Identity is an identity listed in the registry.
type Identity struct {
	Key         string              `json:"identity"`
	Paths       paths.IdentityPaths `json:"paths"`
	Provisioned bool                `json:"provisioned"`
}

// Identities lists the registry's identities in document order.
func (p *Project) Identities() ([]Identity, error) {
	doc, err := p.openRegistry()
	if err != nil {
		return nil, err
	}
	out := []Identity{}
	for _, key := range doc.Entries() {
		id := Identity{Key: key}
		if ip, err := p.IdentityPaths(key); err == nil {
			id.Paths = ip
			id.Provisioned = p.prov.Provisioned(ip)
		}
		out = append(out, id)
	}
	return out, nil
}

// SetAbout adds or updates an about field. An empty identity targets the
// project registry, otherwise the identity's metadata document.
func (p *Project) SetAbout(ctx context.Context, identity, field, value string, add bool) (Change, error) {
	path, schema := p.DocumentPath(), registry.Identities
	if identity != "" {
		ip, err := p.IdentityPaths(identity)
		if err != nil {
			return Change{}, err
		}
		path, schema = ip.Metadata, registry.Annotations
	}

	op := journal.OpUpdateAbout
	if add {
		op = journal.OpAddAbout
	}
	return p.mutate(ctx, mutation{
		op:     op,
		path:   path,
		schema: schema,
		entry:  registry.AboutKey,
		field:  field,
		apply: func(doc *registry.Document) (*registry.Document, error) {
			if add {
				return doc.AddAboutField(field, value)
			}
			return doc.UpdateAboutField(field, value)
		},
	})
}

func (p *Project) openRegistry() (*registry.Document, error) {
	return openDocument(p.DocumentPath(), registry.Identities)
}

func openDocument(path string, schema registry.Schema) (*registry.Document, error) {
	doc, err := registry.Open(path, schema)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &registry.Error{Kind: registry.KindNoFile, Path: path, Message: "document has not been initialized", Err: err}
		}
		return nil, err
	}
	return doc, nil
}
