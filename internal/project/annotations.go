package project

import (
	"context"
	"errors"
	"os"

	"github.com/roach88/immutag/internal/journal"
	"github.com/roach88/immutag/internal/registry"
)

// AnnotationsAbout holds the required about fields of a metadata
// document.
type AnnotationsAbout struct {
	Version string
	Name    string
	Author  string
}

func (a AnnotationsAbout) fields() []registry.Field {
	return []registry.Field{
		{Name: "version", Value: a.Version},
		{Name: "name", Value: a.Name},
		{Name: "author", Value: a.Author},
	}
}

// metadataPath returns the metadata document of a provisioned identity.
func (p *Project) metadataPath(identity string) (string, error) {
	ip, err := p.IdentityPaths(identity)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(ip.Metadata); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &registry.Error{
				Kind:    registry.KindNoFile,
				Key:     identity,
				Path:    ip.Metadata,
				Message: "identity is not provisioned",
				Err:     err,
			}
		}
		return "", registry.NewIOError(ip.Metadata, "stat metadata", err)
	}
	return ip.Metadata, nil
}

// InitAnnotations writes the about table of an identity's metadata
// document. A document that already has keys is only replaced when force
// is set.
func (p *Project) InitAnnotations(ctx context.Context, identity string, about AnnotationsAbout, force bool) (Change, error) {
	path, err := p.metadataPath(identity)
	if err != nil {
		return Change{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Change{}, registry.NewIOError(path, "read metadata", err)
	}
	existing, perr := registry.Parse(data, registry.Annotations)
	if !force && (perr != nil || existing.State() != registry.NonExistent) {
		return Change{}, &registry.Error{
			Kind:    registry.KindDuplicateKey,
			Key:     registry.AboutKey,
			Path:    path,
			Message: "metadata already initialized (use --force to replace it)",
		}
	}

	doc, err := registry.New(registry.Annotations, about.fields()...)
	if err != nil {
		return Change{}, err
	}
	change := Change{Path: path, Before: string(data), After: doc.String(), DryRun: p.dryRun}
	if p.dryRun {
		return change, nil
	}
	if err := doc.Write(path); err != nil {
		return Change{}, err
	}
	p.record(ctx, journal.OpInit, path, "", "", doc.Bytes())
	return change, nil
}

// Annotate adds a file entry tagged with tag.
func (p *Project) Annotate(ctx context.Context, identity, target, tag string) (Change, error) {
	return p.mutateAnnotations(ctx, identity, journal.OpAdd, target, ImmutagField,
		func(doc *registry.Document) (*registry.Document, error) {
			return doc.AddEntry(target, ImmutagField, tag)
		})
}

// Retag replaces the tag of an existing file entry.
func (p *Project) Retag(ctx context.Context, identity, target, tag string) (Change, error) {
	return p.SetAnnotationField(ctx, identity, target, ImmutagField, tag)
}

// SetAnnotationField sets any field on an existing file entry.
func (p *Project) SetAnnotationField(ctx context.Context, identity, target, field, value string) (Change, error) {
	return p.mutateAnnotations(ctx, identity, journal.OpUpdate, target, field,
		func(doc *registry.Document) (*registry.Document, error) {
			return doc.UpdateEntry(target, field, value)
		})
}

// RemoveAnnotation deletes a file entry.
func (p *Project) RemoveAnnotation(ctx context.Context, identity, target string) (Change, error) {
	return p.mutateAnnotations(ctx, identity, journal.OpDelete, target, "",
		func(doc *registry.Document) (*registry.Document, error) {
			return doc.DeleteEntry(target)
		})
}

// Annotation returns the fields of one file entry.
func (p *Project) Annotation(identity, target string) ([]registry.Field, error) {
	doc, err := p.openAnnotations(identity)
	if err != nil {
		return nil, err
	}
	return doc.Entry(target)
}

// Annotations lists annotated file keys in document order.
func (p *Project) Annotations(identity string) ([]string, error) {
	doc, err := p.openAnnotations(identity)
	if err != nil {
		return nil, err
	}
	return doc.Entries(), nil
}

func (p *Project) openAnnotations(identity string) (*registry.Document, error) {
	path, err := p.metadataPath(identity)
	if err != nil {
		return nil, err
	}
	return openDocument(path, registry.Annotations)
}

func (p *Project) mutateAnnotations(ctx context.Context, identity string, op journal.Op, target, field string, apply func(*registry.Document) (*registry.Document, error)) (Change, error) {
	path, err := p.metadataPath(identity)
	if err != nil {
		return Change{}, err
	}
	return p.mutate(ctx, mutation{
		op:     op,
		path:   path,
		schema: registry.Annotations,
		entry:  target,
		field:  field,
		apply:  apply,
	})
}
