package tomldoc

import (
	"fmt"
	"strings"
)

// Document is an ordered, format-preserving TOML document.
type Document struct {
	root    *Table
	tables  []*Table
	trailer string
}

// Table is a header line and the key/value lines that follow it. The root
// table has no header.
type Table struct {
	prefix string // blank lines and comments before the header
	header string
	path   []string
	array  bool
	items  []*item
}

type item struct {
	trivia string
	kv     *keyValue
}

type keyValue struct {
	indent   string
	rawKey   string
	path     []string
	sep      string
	rawValue string
	suffix   string
}

// New returns an empty document.
func New() *Document {
	return &Document{root: &Table{}}
}

// String renders the document.
func (d *Document) String() string {
	var b strings.Builder
	d.root.writeTo(&b)
	for _, t := range d.tables {
		t.writeTo(&b)
	}
	b.WriteString(d.trailer)
	return b.String()
}

// Bytes renders the document.
func (d *Document) Bytes() []byte {
	return []byte(d.String())
}

func (t *Table) writeTo(b *strings.Builder) {
	b.WriteString(t.prefix)
	b.WriteString(t.header)
	for _, it := range t.items {
		if it.kv == nil {
			b.WriteString(it.trivia)
			continue
		}
		kv := it.kv
		b.WriteString(kv.indent)
		b.WriteString(kv.rawKey)
		b.WriteString(kv.sep)
		b.WriteString(kv.rawValue)
		b.WriteString(kv.suffix)
	}
}

func (t *Table) clone() *Table {
	c := &Table{
		prefix: t.prefix,
		header: t.header,
		path:   append([]string(nil), t.path...),
		array:  t.array,
		items:  make([]*item, len(t.items)),
	}
	for i, it := range t.items {
		ci := &item{trivia: it.trivia}
		if it.kv != nil {
			kv := *it.kv
			kv.path = append([]string(nil), it.kv.path...)
			ci.kv = &kv
		}
		c.items[i] = ci
	}
	return c
}

func (t *Table) keyValues() []*keyValue {
	var kvs []*keyValue
	for _, it := range t.items {
		if it.kv != nil {
			kvs = append(kvs, it.kv)
		}
	}
	return kvs
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := &Document{root: d.root.clone(), trailer: d.trailer}
	c.tables = make([]*Table, len(d.tables))
	for i, t := range d.tables {
		c.tables[i] = t.clone()
	}
	return c
}

// Empty reports whether the document defines no keys at all.
func (d *Document) Empty() bool {
	return len(d.tables) == 0 && len(d.root.keyValues()) == 0
}

// table finds the standard table whose header is exactly [key].
func (d *Document) table(key string) *Table {
	if key == "" {
		return d.root
	}
	for _, t := range d.tables {
		if !t.array && len(t.path) == 1 && t.path[0] == key {
			return t
		}
	}
	return nil
}

// HasKey reports whether key is defined at the top level, either as a
// table or as a root key/value.
func (d *Document) HasKey(key string) bool {
	for _, kv := range d.root.keyValues() {
		if kv.path[0] == key {
			return true
		}
	}
	for _, t := range d.tables {
		if t.path[0] == key {
			return true
		}
	}
	return false
}

// HasField reports whether field is defined directly under table.
func (d *Document) HasField(table, field string) bool {
	if table == "" {
		return d.HasKey(field)
	}
	if t := d.table(table); t != nil {
		for _, kv := range t.keyValues() {
			if kv.path[0] == field {
				return true
			}
		}
	}
	for _, t := range d.tables {
		if len(t.path) >= 2 && t.path[0] == table && t.path[1] == field {
			return true
		}
	}
	for _, kv := range d.root.keyValues() {
		if len(kv.path) >= 2 && kv.path[0] == table && kv.path[1] == field {
			return true
		}
	}
	return false
}

// Value decodes the value stored at table.field. The boolean is false when
// the table or field does not exist as a plain key/value line.
func (d *Document) Value(table, field string) (any, bool, error) {
	t := d.table(table)
	if t == nil {
		return nil, false, nil
	}
	for _, kv := range t.keyValues() {
		if len(kv.path) == 1 && kv.path[0] == field {
			v, err := decodeValue(kv.rawValue)
			if err != nil {
				return nil, true, fmt.Errorf("decode %s.%s: %w", table, field, err)
			}
			return v, true, nil
		}
	}
	return nil, false, nil
}

// TableKeys lists the distinct top-level keys that have a header, in
// document order.
func (d *Document) TableKeys() []string {
	keys := []string{}
	seen := make(map[string]bool)
	for _, t := range d.tables {
		if !seen[t.path[0]] {
			seen[t.path[0]] = true
			keys = append(keys, t.path[0])
		}
	}
	return keys
}

// Fields lists the keys set directly in the [table] section in document
// order. Dotted keys are joined with '.'.
func (d *Document) Fields(table string) []string {
	fields := []string{}
	t := d.table(table)
	if t == nil {
		return fields
	}
	for _, kv := range t.keyValues() {
		fields = append(fields, strings.Join(kv.path, "."))
	}
	return fields
}

// Set assigns value to table.field, rewriting the existing value in place
// or appending a new line after the last key/value of the table.
func (d *Document) Set(table, field string, value any) error {
	if field == "" {
		return ErrEmptyKey
	}
	t := d.table(table)
	if t == nil {
		return fmt.Errorf("%w: %q", ErrTableNotFound, table)
	}
	raw, err := encodeValue(value)
	if err != nil {
		return err
	}
	rawKey, err := fieldKey(field)
	if err != nil {
		return err
	}

	for _, kv := range t.keyValues() {
		if kv.path[0] != field {
			continue
		}
		if len(kv.path) > 1 {
			return fmt.Errorf("%w: %q", ErrKeyConflict, field)
		}
		kv.rawValue = raw
		return nil
	}
	for _, other := range d.tables {
		if table == "" && other.path[0] == field {
			return fmt.Errorf("%w: %q", ErrKeyConflict, field)
		}
		if table != "" && len(other.path) >= 2 && other.path[0] == table && other.path[1] == field {
			return fmt.Errorf("%w: %q", ErrKeyConflict, field)
		}
	}

	d.appendKeyValue(t, &keyValue{
		rawKey:   rawKey,
		path:     []string{field},
		sep:      " = ",
		rawValue: raw,
		suffix:   "\n",
	})
	return nil
}

func (d *Document) appendKeyValue(t *Table, kv *keyValue) {
	last := -1
	for i, it := range t.items {
		if it.kv != nil {
			last = i
		}
	}
	switch {
	case last >= 0:
		prev := t.items[last].kv
		if !strings.HasSuffix(prev.suffix, "\n") {
			prev.suffix += "\n"
		}
	case t.header != "" && !strings.HasSuffix(t.header, "\n"):
		t.header += "\n"
	}

	t.items = append(t.items, nil)
	copy(t.items[last+2:], t.items[last+1:])
	t.items[last+1] = &item{kv: kv}
}

// AddTable appends a new [key] section at the end of the document,
// separated from existing content by one blank line.
func (d *Document) AddTable(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if d.HasKey(key) {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	header, err := quoteKey(key)
	if err != nil {
		return err
	}

	text := d.String()
	sep := ""
	if text != "" {
		if !strings.HasSuffix(text, "\n") {
			sep = "\n"
		}
		if !strings.HasSuffix(text+sep, "\n\n") {
			sep += "\n"
		}
	}

	// The trailer stays with the section it follows.
	if d.trailer != "" {
		last := d.root
		if len(d.tables) > 0 {
			last = d.tables[len(d.tables)-1]
		}
		last.items = append(last.items, &item{trivia: d.trailer})
		d.trailer = ""
	}

	d.tables = append(d.tables, &Table{
		prefix: sep,
		header: "[" + header + "]\n",
		path:   []string{key},
	})
	return nil
}

// RemoveTable deletes every table and root key/value whose first key
// segment is key, along with the comment block directly above each
// removed header. It reports whether anything was removed.
func (d *Document) RemoveTable(key string) bool {
	removed := false

	kept := make([]*Table, 0, len(d.tables))
	for _, t := range d.tables {
		if t.path[0] == key {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	d.tables = kept

	items := make([]*item, 0, len(d.root.items))
	for _, it := range d.root.items {
		if it.kv != nil && it.kv.path[0] == key {
			removed = true
			continue
		}
		items = append(items, it)
	}
	d.root.items = items

	return removed
}
