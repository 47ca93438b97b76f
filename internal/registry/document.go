package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/immutag/internal/tomldoc"
)

// Document is a registry document bound to a schema.
type Document struct {
	schema Schema
	tree   *tomldoc.Document
}

// New builds a document holding only an about table populated with the
// given fields, in order. It fails with INVALID_FILE if a required field
// is missing or empty.
func New(schema Schema, about ...Field) (*Document, error) {
	tree := tomldoc.New()
	if err := tree.AddTable(AboutKey); err != nil {
		return nil, fmt.Errorf("create about table: %w", err)
	}

	seen := make(map[string]bool, len(about))
	for _, f := range about {
		if f.Name == "" {
			return nil, NewInvalidKeyError(AboutKey, "about field name must not be empty")
		}
		if seen[f.Name] {
			return nil, NewDuplicateKeyError(AboutKey, "about field %q given twice", f.Name)
		}
		seen[f.Name] = true
		if err := tree.Set(AboutKey, f.Name, f.Value); err != nil {
			return nil, NewInvalidKeyError(AboutKey, "set about.%s: %v", f.Name, err)
		}
	}

	doc := &Document{schema: schema, tree: tree}
	var missing []string
	for _, name := range schema.Required {
		if v, err := doc.Lookup(AboutKey, name); err != nil || v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, newInvalidFileError("%s document requires about fields: %s", schema.Name, strings.Join(missing, ", "))
	}
	return doc, nil
}

// Init builds a new document with New and writes it to path.
func Init(path string, schema Schema, about ...Field) (*Document, error) {
	doc, err := New(schema, about...)
	if err != nil {
		return nil, err
	}
	if err := doc.Write(path); err != nil {
		return nil, err
	}
	return doc, nil
}

// Open reads and parses the document at path. A missing file is an
// IO_ERROR wrapping os.ErrNotExist; malformed content is a PARSE_ERROR.
func Open(path string, schema Schema) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewIOError(path, "read document", err)
	}
	doc, err := Parse(data, schema)
	if err != nil {
		var re *Error
		if errors.As(err, &re) {
			re.Path = path
		}
		return nil, err
	}
	return doc, nil
}

// Parse parses document text.
func Parse(data []byte, schema Schema) (*Document, error) {
	tree, err := tomldoc.Parse(data)
	if err != nil {
		return nil, &Error{Kind: KindParse, Message: "malformed document", Err: err}
	}
	return &Document{schema: schema, tree: tree}, nil
}

// Exists reports whether the document at path defines key. Unreadable or
// malformed documents define nothing.
func Exists(path string, schema Schema, key string) bool {
	doc, err := Open(path, schema)
	if err != nil {
		return false
	}
	return doc.EntryExists(key)
}

// Schema returns the schema the document was opened with.
func (d *Document) Schema() Schema {
	return d.schema
}

// String renders the document.
func (d *Document) String() string {
	return d.tree.String()
}

// Bytes renders the document.
func (d *Document) Bytes() []byte {
	return d.tree.Bytes()
}

// State reports NonExistent for a document without any keys, otherwise
// the result of IsValid.
func (d *Document) State() State {
	if d.tree.Empty() {
		return NonExistent
	}
	return d.IsValid()
}

// IsValid reports Valid when every required about field is present.
func (d *Document) IsValid() State {
	for _, name := range d.schema.Required {
		if !d.tree.HasField(AboutKey, name) {
			return Invalid
		}
	}
	return Valid
}

// EntryExists reports whether key is defined at the top level. Matching
// is exact: "src/" and "src" are different keys.
func (d *Document) EntryExists(key string) bool {
	return d.tree.HasKey(key)
}

// FieldExists reports whether field is defined under the entry key.
func (d *Document) FieldExists(key, field string) bool {
	return d.tree.HasField(key, field)
}

// Lookup returns the string value of entry.field. An empty entry
// addresses the root of the document.
func (d *Document) Lookup(entry, field string) (string, error) {
	v, ok, err := d.tree.Value(entry, field)
	if err != nil {
		return "", &Error{Kind: KindInvalidKey, Key: entry, Message: fmt.Sprintf("field %q is unreadable", field), Err: err}
	}
	if !ok {
		if entry == "" {
			return "", NewInvalidKeyError(field, "no root field %q", field)
		}
		return "", NewInvalidKeyError(entry, "no field %q in entry %q", field, entry)
	}
	s, isString := v.(string)
	if !isString {
		return "", NewInvalidKeyError(entry, "field %q is a %T, not a string", field, v)
	}
	return s, nil
}

// LookupRoot returns the string value of a key/value defined before the
// first table header.
func (d *Document) LookupRoot(field string) (string, error) {
	return d.Lookup("", field)
}

// Entries lists entry keys in document order, excluding the about table.
func (d *Document) Entries() []string {
	keys := []string{}
	for _, k := range d.tree.TableKeys() {
		if k != AboutKey {
			keys = append(keys, k)
		}
	}
	return keys
}

// Entry returns the string fields of one entry in document order.
func (d *Document) Entry(key string) ([]Field, error) {
	if !d.tree.HasKey(key) {
		return nil, NewInvalidKeyError(key, "no entry %q", key)
	}
	fields := []Field{}
	for _, name := range d.tree.Fields(key) {
		v, ok, err := d.tree.Value(key, name)
		if err != nil || !ok {
			continue
		}
		if s, isString := v.(string); isString {
			fields = append(fields, Field{Name: name, Value: s})
		}
	}
	return fields, nil
}

// Write atomically replaces the file at path with the document. The file
// keeps its previous permission bits; new files get 0644.
func (d *Document) Write(path string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return NewIOError(path, "create temporary file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(d.Bytes()); err != nil {
		tmp.Close()
		return NewIOError(path, "write temporary file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return NewIOError(path, "sync temporary file", err)
	}
	if err := tmp.Close(); err != nil {
		return NewIOError(path, "close temporary file", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return NewIOError(path, "set file mode", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return NewIOError(path, "replace document", err)
	}
	return nil
}
