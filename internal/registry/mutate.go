package registry

import (
	"errors"

	"github.com/roach88/immutag/internal/tomldoc"
)

func (d *Document) clone() *Document {
	return &Document{schema: d.schema, tree: d.tree.Clone()}
}

// AddEntry creates a new entry. The first field of a new entry must be
// the schema's content field.
func (d *Document) AddEntry(entry, field, value string) (*Document, error) {
	if d.State() != Valid {
		return nil, newNoFileError("cannot add entry %q to a %s document", entry, d.State())
	}
	if entry == "" {
		return nil, NewInvalidKeyError(entry, "entry key must not be empty")
	}
	if d.EntryExists(entry) {
		return nil, NewDuplicateKeyError(entry, "entry %q already exists", entry)
	}
	if field != d.schema.ContentField {
		return nil, NewInvalidKeyError(entry, "new entry must start with %q, got %q", d.schema.ContentField, field)
	}

	next := d.clone()
	if err := next.tree.AddTable(entry); err != nil {
		return nil, treeError(entry, err)
	}
	if err := next.tree.Set(entry, field, value); err != nil {
		return nil, treeError(entry, err)
	}
	return next, nil
}

// AddAboutField creates a new field in the about table.
func (d *Document) AddAboutField(field, value string) (*Document, error) {
	if d.State() != Valid {
		return nil, newNoFileError("cannot add about field %q to a %s document", field, d.State())
	}
	if d.FieldExists(AboutKey, field) {
		return nil, NewDuplicateKeyError(AboutKey, "about field %q already exists", field)
	}
	return d.set(AboutKey, field, value)
}

// UpdateEntry sets field on an existing entry. Once an entry exists any
// field may be set, new or not.
func (d *Document) UpdateEntry(entry, field, value string) (*Document, error) {
	if d.State() != Valid {
		return nil, newInvalidFileError("cannot update entry %q in a %s document", entry, d.State())
	}
	if entry == AboutKey {
		return d.UpdateAboutField(field, value)
	}
	if !d.EntryExists(entry) {
		return nil, NewInvalidKeyError(entry, "entry %q does not exist", entry)
	}
	return d.set(entry, field, value)
}

// UpdateAboutField replaces the value of an existing about field.
func (d *Document) UpdateAboutField(field, value string) (*Document, error) {
	if d.State() != Valid {
		return nil, newInvalidFileError("cannot update about field %q in a %s document", field, d.State())
	}
	if !d.FieldExists(AboutKey, field) {
		return nil, NewInvalidKeyError(AboutKey, "about field %q does not exist", field)
	}
	return d.set(AboutKey, field, value)
}

// DeleteEntry removes the entry with exactly the given key. The about
// table cannot be deleted.
func (d *Document) DeleteEntry(entry string) (*Document, error) {
	if entry == AboutKey {
		return nil, NewInvalidKeyError(entry, "the about table cannot be deleted")
	}
	next := d.clone()
	if !next.tree.RemoveTable(entry) {
		return nil, NewInvalidKeyError(entry, "entry %q does not exist", entry)
	}
	return next, nil
}

func (d *Document) set(entry, field, value string) (*Document, error) {
	next := d.clone()
	if err := next.tree.Set(entry, field, value); err != nil {
		return nil, treeError(entry, err)
	}
	return next, nil
}

func treeError(entry string, err error) error {
	switch {
	case errors.Is(err, tomldoc.ErrDuplicateKey):
		return &Error{Kind: KindDuplicateKey, Key: entry, Message: "key already defined", Err: err}
	case errors.Is(err, tomldoc.ErrTableNotFound):
		return &Error{Kind: KindInvalidKey, Key: entry, Message: "entry is not a table", Err: err}
	case errors.Is(err, tomldoc.ErrUnsupported):
		return &Error{Kind: KindInvalidKey, Key: entry, Message: "key or value cannot be written", Err: err}
	default:
		return &Error{Kind: KindInvalidKey, Key: entry, Message: "cannot set field", Err: err}
	}
}
