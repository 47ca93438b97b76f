package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Op names a registry mutation.
type Op string

const (
	OpInit        Op = "init"
	OpAdd         Op = "add"
	OpUpdate      Op = "update"
	OpDelete      Op = "delete"
	OpAddAbout    Op = "add-about"
	OpUpdateAbout Op = "update-about"
)

// Entry is one journal row.
type Entry struct {
	ID         string    `json:"id"`
	Seq        int64     `json:"seq"`
	Op         Op        `json:"op"`
	Document   string    `json:"document"`
	EntryKey   string    `json:"entry_key,omitempty"`
	Field      string    `json:"field,omitempty"`
	DocHash    string    `json:"doc_hash"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Document string
	EntryKey string

	// Limit keeps only the most recent rows when positive.
	Limit int
}

// Record appends e, assigning its ID, Seq and RecordedAt inside one
// transaction, and returns the stored entry.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.Op == "" || e.Document == "" {
		return Entry{}, fmt.Errorf("record mutation: op and document are required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("record mutation: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM mutations`).Scan(&e.Seq); err != nil {
		return Entry{}, fmt.Errorf("record mutation: next seq: %w", err)
	}
	e.ID = s.ids.Generate()
	e.RecordedAt = s.clock.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO mutations
		(id, seq, op, document, entry_key, field, doc_hash, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Seq,
		string(e.Op),
		e.Document,
		e.EntryKey,
		e.Field,
		e.DocHash,
		e.RecordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("record mutation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("record mutation: commit: %w", err)
	}
	return e, nil
}

// List returns matching entries in seq order. Returns an empty slice,
// not nil, when nothing matches.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Document != "" {
		where = append(where, "document = ?")
		args = append(args, f.Document)
	}
	if f.EntryKey != "" {
		where = append(where, "entry_key = ?")
		args = append(args, f.EntryKey)
	}

	query := `SELECT id, seq, op, document, entry_key, field, doc_hash, recorded_at FROM mutations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Limit > 0 {
		// Newest rows first to apply the limit, then back to ascending order.
		query = `SELECT * FROM (` + query + ` ORDER BY seq DESC, id COLLATE BINARY DESC LIMIT ?)`
		args = append(args, f.Limit)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list mutations: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list mutations: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list mutations: %w", err)
	}
	return entries, nil
}

// Latest returns the most recent entry for document.
func (s *Store) Latest(ctx context.Context, document string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, op, document, entry_key, field, doc_hash, recorded_at
		FROM mutations
		WHERE document = ?
		ORDER BY seq DESC, id COLLATE BINARY DESC
		LIMIT 1
	`, document)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("latest mutation: %w", err)
	}
	return e, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e          Entry
		op         string
		recordedAt string
	)
	if err := row.Scan(&e.ID, &e.Seq, &op, &e.Document, &e.EntryKey, &e.Field, &e.DocHash, &recordedAt); err != nil {
		return Entry{}, err
	}
	e.Op = Op(op)
	t, err := time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parse recorded_at %q: %w", recordedAt, err)
	}
	e.RecordedAt = t
	return e, nil
}
