package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("document not found")

// Document is a contact as the store keeps it. DateAdded and LastActivity
// carry whatever the driver stores natively; common.ParseTimestamp
// normalizes them.
type Document struct {
	ID           string
	Name         string
	Phone        string
	Email        string
	Address      string
	DateAdded    any
	LastActivity any
}

// Store is the authoritative contact store the index mirrors.
type Store interface {
	// Create persists doc under a fresh ID and returns that ID.
	Create(ctx context.Context, doc Document) (string, error)
	Get(ctx context.Context, id string) (Document, error)
	// Update overwrites the document with doc.ID. DateAdded is left alone
	// when doc.DateAdded is nil.
	Update(ctx context.Context, doc Document) error
	Delete(ctx context.Context, id string) error
	LoadAll(ctx context.Context) ([]Document, error)
	Truncate(ctx context.Context) error
	Close() error
}

// Open returns the Store for driver rooted at dir.
func Open(driver, dir string) (Store, error) {
	switch driver {
	case "", "sqlite":
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		return NewSQLiteStore(filepath.Join(dir, "contacts.db"))
	case "badger":
		return NewBadgerStore(filepath.Join(dir, "badger"))
	case "journal":
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		return OpenJournalStore(filepath.Join(dir, "contacts.wal"))
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	query := `
	CREATE TABLE IF NOT EXISTS contacts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		date_added INTEGER,
		last_activity INTEGER
	);`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init table: %w", err)
	}

	_, err = db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA busy_timeout = 5000;
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// unixMilli converts a document timestamp to the column value. Anything
// that is not a time becomes NULL.
func unixMilli(v any) any {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return t.UnixMilli()
	case *time.Time:
		if t == nil || t.IsZero() {
			return nil
		}
		return t.UnixMilli()
	default:
		return nil
	}
}

func nullableMilli(n sql.NullInt64) any {
	if !n.Valid {
		return nil
	}
	return n.Int64
}

func (s *SQLiteStore) Create(ctx context.Context, doc Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (id, name, phone, email, address, date_added, last_activity)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, doc.Name, doc.Phone, doc.Email, doc.Address,
		unixMilli(doc.DateAdded), unixMilli(doc.LastActivity))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Document, error) {
	var doc Document
	var added, activity sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, address, date_added, last_activity
		FROM contacts WHERE id = ?`, id).
		Scan(&doc.ID, &doc.Name, &doc.Phone, &doc.Email, &doc.Address, &added, &activity)
	if err == sql.ErrNoRows {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	doc.DateAdded = nullableMilli(added)
	doc.LastActivity = nullableMilli(activity)
	return doc, nil
}

func (s *SQLiteStore) Update(ctx context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE contacts
		SET name = ?, phone = ?, email = ?, address = ?,
			date_added = COALESCE(?, date_added), last_activity = ?
		WHERE id = ?`,
		doc.Name, doc.Phone, doc.Email, doc.Address,
		unixMilli(doc.DateAdded), unixMilli(doc.LastActivity), doc.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM contacts WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) LoadAll(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, email, address, date_added, last_activity
		FROM contacts ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var added, activity sql.NullInt64
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.Phone, &doc.Email, &doc.Address, &added, &activity); err != nil {
			return nil, err
		}
		doc.DateAdded = nullableMilli(added)
		doc.LastActivity = nullableMilli(activity)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) Truncate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, "DELETE FROM contacts")
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
