package storage

import (
	"context"
	"sync"

	"github.com/google/btree"
	"github.com/google/uuid"
)

type docItem struct {
	doc Document
}

func (i docItem) Less(than btree.Item) bool {
	return i.doc.ID < than.(docItem).doc.ID
}

// MemoryStore keeps documents in a B-tree ordered by ID. Nothing survives
// the process; it backs tests and throwaway servers.
type MemoryStore struct {
	tree *btree.BTree
	lock sync.RWMutex
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tree: btree.New(32),
	}
}

func (ms *MemoryStore) Create(_ context.Context, doc Document) (string, error) {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	doc.ID = uuid.NewString()
	ms.tree.ReplaceOrInsert(docItem{doc: doc})
	return doc.ID, nil
}

// Put stores doc under its own ID, replacing any previous version. It lets
// callers seed documents with arbitrary IDs and timestamp representations.
func (ms *MemoryStore) Put(doc Document) {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	ms.tree.ReplaceOrInsert(docItem{doc: doc})
}

func (ms *MemoryStore) Get(_ context.Context, id string) (Document, error) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	res := ms.tree.Get(docItem{doc: Document{ID: id}})
	if res == nil {
		return Document{}, ErrNotFound
	}
	return res.(docItem).doc, nil
}

func (ms *MemoryStore) Update(_ context.Context, doc Document) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	res := ms.tree.Get(docItem{doc: Document{ID: doc.ID}})
	if res == nil {
		return ErrNotFound
	}
	if doc.DateAdded == nil {
		doc.DateAdded = res.(docItem).doc.DateAdded
	}
	ms.tree.ReplaceOrInsert(docItem{doc: doc})
	return nil
}

func (ms *MemoryStore) Delete(_ context.Context, id string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	if ms.tree.Delete(docItem{doc: Document{ID: id}}) == nil {
		return ErrNotFound
	}
	return nil
}

func (ms *MemoryStore) LoadAll(_ context.Context) ([]Document, error) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	docs := make([]Document, 0, ms.tree.Len())
	ms.tree.Ascend(func(i btree.Item) bool {
		docs = append(docs, i.(docItem).doc)
		return true
	})
	return docs, nil
}

func (ms *MemoryStore) Count() int {
	ms.lock.RLock()
	defer ms.lock.RUnlock()
	return ms.tree.Len()
}

func (ms *MemoryStore) Truncate(_ context.Context) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	ms.tree.Clear(false)
	return nil
}

func (ms *MemoryStore) Close() error {
	return nil
}
