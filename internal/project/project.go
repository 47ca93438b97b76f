// Package project implements immutag's use cases on top of the registry
// engine: initializing a project, importing identities and annotating
// files. Every mutation opens the document, applies one engine
// operation, writes the result atomically and records it in the journal.
package project

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/roach88/immutag/internal/git"
	"github.com/roach88/immutag/internal/journal"
	"github.com/roach88/immutag/internal/paths"
	"github.com/roach88/immutag/internal/provision"
	"github.com/roach88/immutag/internal/registry"
)

// ContentField of each schema, for callers that build entries.
const (
	XprivField   = "xpriv"
	ImmutagField = "immutag"
)

// Options configures a Project.
type Options struct {
	// Root is the absolute project directory.
	Root string

	Layout paths.Layout
	Repos  git.Repository

	// JournalPath enables the journal when non-empty.
	JournalPath    string
	JournalOptions []journal.Option

	Logger *zap.Logger

	// DryRun computes changes without writing anything.
	DryRun bool
}

// Project is one immutag project directory.
type Project struct {
	root         string
	registryRoot string
	layout       paths.Layout
	prov         *provision.Provisioner
	logger       *zap.Logger
	dryRun       bool

	journalPath string
	journalOpts []journal.Option
	journal     *journal.Store
}

// Change describes one document mutation.
type Change struct {
	Path   string `json:"path"`
	Before string `json:"-"`
	After  string `json:"-"`
	DryRun bool   `json:"dry_run"`
}

// Changed reports whether the document text differs.
func (c Change) Changed() bool {
	return c.Before != c.After
}

// Open creates a Project. Nothing is read from disk until an operation
// runs.
func Open(opts Options) (*Project, error) {
	if opts.Layout == (paths.Layout{}) {
		opts.Layout = paths.DefaultLayout()
	}
	if opts.Repos == nil {
		opts.Repos = git.NewExecutor("")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	registryRoot, err := opts.Layout.RegistryRoot(opts.Root)
	if err != nil {
		return nil, registry.NewIOError(opts.Root, "resolve registry root", err)
	}

	return &Project{
		root:         opts.Root,
		registryRoot: registryRoot,
		layout:       opts.Layout,
		prov:         provision.New(opts.Layout, opts.Repos, opts.Logger),
		logger:       opts.Logger,
		dryRun:       opts.DryRun,
		journalPath:  opts.JournalPath,
		journalOpts:  opts.JournalOptions,
	}, nil
}

// Close releases the journal, if it was opened.
func (p *Project) Close() error {
	if p.journal == nil {
		return nil
	}
	err := p.journal.Close()
	p.journal = nil
	return err
}

// Root returns the project directory.
func (p *Project) Root() string { return p.root }

// RegistryRoot returns the registry directory.
func (p *Project) RegistryRoot() string { return p.registryRoot }

// DocumentPath returns the path of the project registry document.
func (p *Project) DocumentPath() string {
	return p.layout.RegistryDocument(p.registryRoot)
}

// IdentityPaths returns the storage area of identity.
func (p *Project) IdentityPaths(identity string) (paths.IdentityPaths, error) {
	ip, err := p.layout.Identity(p.registryRoot, identity)
	if err != nil {
		return paths.IdentityPaths{}, &registry.Error{
			Kind:    registry.KindInvalidKey,
			Key:     identity,
			Message: "identity cannot name a storage directory",
			Err:     err,
		}
	}
	return ip, nil
}

// mutation is one engine operation against one document.
type mutation struct {
	op     journal.Op
	path   string
	schema registry.Schema
	entry  string
	field  string
	apply  func(*registry.Document) (*registry.Document, error)
}

func (p *Project) mutate(ctx context.Context, m mutation) (Change, error) {
	doc, err := openDocument(m.path, m.schema)
	if err != nil {
		return Change{}, err
	}
	next, err := m.apply(doc)
	if err != nil {
		return Change{}, err
	}

	change := Change{Path: m.path, Before: doc.String(), After: next.String(), DryRun: p.dryRun}
	if p.dryRun {
		return change, nil
	}
	if err := next.Write(m.path); err != nil {
		return Change{}, err
	}
	p.record(ctx, m.op, m.path, m.entry, m.field, next.Bytes())
	return change, nil
}

// record appends a journal entry. The document is already written, so a
// journal failure is logged rather than returned.
func (p *Project) record(ctx context.Context, op journal.Op, path, entry, field string, content []byte) {
	log := p.logger.With(zap.String("op", string(op)), zap.String("document", path))
	if entry != "" {
		log = log.With(zap.String("entry", entry))
	}
	log.Debug("document written")

	if p.journalPath == "" {
		return
	}
	if p.journal == nil {
		s, err := journal.Open(p.journalPath, p.journalOpts...)
		if err != nil {
			log.Warn("journal unavailable", zap.Error(err))
			return
		}
		p.journal = s
	}
	_, err := p.journal.Record(ctx, journal.Entry{
		Op:       op,
		Document: path,
		EntryKey: entry,
		Field:    field,
		DocHash:  journal.DocumentHash(content),
	})
	if err != nil {
		log.Warn("journal record failed", zap.Error(err))
	}
}

// History returns journaled mutations, oldest first. limit keeps only the
// most recent entries when positive.
func (p *Project) History(ctx context.Context, limit int) ([]journal.Entry, error) {
	if p.journalPath == "" {
		return nil, fmt.Errorf("journal is disabled")
	}
	if p.journal == nil {
		if _, err := os.Stat(p.journalPath); errors.Is(err, os.ErrNotExist) {
			return []journal.Entry{}, nil
		}
		s, err := journal.Open(p.journalPath, p.journalOpts...)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		p.journal = s
	}
	return p.journal.List(ctx, journal.Filter{Limit: limit})
}
