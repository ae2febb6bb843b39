package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

var contactPrefix = []byte("contact/")

// jsonDoc is the JSON shape of Badger values and journal entries.
// Timestamps are RFC 3339 strings and come back to callers as such.
type jsonDoc struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Address      string `json:"address"`
	DateAdded    string `json:"dateAdded,omitempty"`
	LastActivity string `json:"lastActivity,omitempty"`
}

func rfc3339(v any) string {
	switch t := v.(type) {
	case time.Time:
		if !t.IsZero() {
			return t.UTC().Format(time.RFC3339Nano)
		}
	case *time.Time:
		if t != nil && !t.IsZero() {
			return t.UTC().Format(time.RFC3339Nano)
		}
	case string:
		return t
	}
	return ""
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (d jsonDoc) document() Document {
	return Document{
		ID:           d.ID,
		Name:         d.Name,
		Phone:        d.Phone,
		Email:        d.Email,
		Address:      d.Address,
		DateAdded:    optional(d.DateAdded),
		LastActivity: optional(d.LastActivity),
	}
}

func toJSONDoc(doc Document) jsonDoc {
	return jsonDoc{
		ID:           doc.ID,
		Name:         doc.Name,
		Phone:        doc.Phone,
		Email:        doc.Email,
		Address:      doc.Address,
		DateAdded:    rfc3339(doc.DateAdded),
		LastActivity: rfc3339(doc.LastActivity),
	}
}

func contactKey(id string) []byte {
	return append(append([]byte{}, contactPrefix...), id...)
}

// BadgerStore keeps one JSON value per contact under "contact/<id>".
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens a store at dir; an empty dir runs Badger in memory.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) put(txn *badger.Txn, d jsonDoc) error {
	val, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return txn.Set(contactKey(d.ID), val)
}

func (b *BadgerStore) get(txn *badger.Txn, id string) (jsonDoc, error) {
	item, err := txn.Get(contactKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return jsonDoc{}, ErrNotFound
	}
	if err != nil {
		return jsonDoc{}, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return jsonDoc{}, err
	}
	var d jsonDoc
	if err := json.Unmarshal(val, &d); err != nil {
		return jsonDoc{}, fmt.Errorf("corrupt contact %s: %w", id, err)
	}
	return d, nil
}

func (b *BadgerStore) Create(_ context.Context, doc Document) (string, error) {
	doc.ID = uuid.NewString()
	err := b.db.Update(func(txn *badger.Txn) error {
		return b.put(txn, toJSONDoc(doc))
	})
	if err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (b *BadgerStore) Get(_ context.Context, id string) (Document, error) {
	var d jsonDoc
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		d, err = b.get(txn, id)
		return err
	})
	if err != nil {
		return Document{}, err
	}
	return d.document(), nil
}

func (b *BadgerStore) Update(_ context.Context, doc Document) error {
	return b.db.Update(func(txn *badger.Txn) error {
		old, err := b.get(txn, doc.ID)
		if err != nil {
			return err
		}
		next := toJSONDoc(doc)
		if doc.DateAdded == nil {
			next.DateAdded = old.DateAdded
		}
		return b.put(txn, next)
	})
}

func (b *BadgerStore) Delete(_ context.Context, id string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := b.get(txn, id); err != nil {
			return err
		}
		return txn.Delete(contactKey(id))
	})
}

func (b *BadgerStore) LoadAll(ctx context.Context) ([]Document, error) {
	var docs []Document
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = contactPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var d jsonDoc
			if err := json.Unmarshal(val, &d); err != nil {
				return fmt.Errorf("corrupt contact %s: %w", it.Item().Key(), err)
			}
			docs = append(docs, d.document())
		}
		return nil
	})
	return docs, err
}

func (b *BadgerStore) Truncate(_ context.Context) error {
	return b.db.DropPrefix(contactPrefix)
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
