package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"contactdb/pkg/storage/sstable"
)

// compactAfter is the replayed log length that triggers a compaction on open.
const compactAfter = 1024

// JournalStore is a MemoryStore made durable by a write-ahead log. Every
// mutation is appended before it is applied. Compact folds the log into a
// snapshot table; opening the store loads the snapshot, then replays the
// log. A torn or corrupt tail ends the replay.
type JournalStore struct {
	mem      *MemoryStore
	wal      *WAL
	snapPath string
	mu       sync.Mutex

	snapshotted int
	replayed    int
	torn        bool
}

var _ Store = (*JournalStore)(nil)

func OpenJournalStore(path string) (*JournalStore, error) {
	wal, err := OpenWAL(path)
	if err != nil {
		return nil, err
	}
	js := &JournalStore{mem: NewMemoryStore(), wal: wal, snapPath: path + ".snap"}
	if err := js.loadSnapshot(); err != nil {
		wal.Close()
		return nil, err
	}
	if err := js.replay(); err != nil {
		wal.Close()
		return nil, err
	}
	// Appends after a torn tail would be unreachable on the next replay.
	if js.torn || js.replayed >= compactAfter {
		if err := js.Compact(); err != nil {
			wal.Close()
			return nil, err
		}
	}
	return js, nil
}

func (js *JournalStore) loadSnapshot() error {
	table, err := sstable.Open(js.snapPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer table.Close()

	var decodeErr error
	err = table.Scan(func(id string, val []byte) bool {
		var d jsonDoc
		if decodeErr = json.Unmarshal(val, &d); decodeErr != nil {
			decodeErr = fmt.Errorf("corrupt snapshot record %s: %w", id, decodeErr)
			return false
		}
		js.mem.Put(d.document())
		js.snapshotted++
		return true
	})
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	return decodeErr
}

// Compact writes every document to a fresh snapshot, swaps it in and
// truncates the log.
func (js *JournalStore) Compact() error {
	js.mu.Lock()
	defer js.mu.Unlock()

	docs, err := js.mem.LoadAll(context.Background())
	if err != nil {
		return err
	}

	tmp := js.snapPath + ".tmp"
	b, err := sstable.NewBuilder(tmp)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	for _, doc := range docs {
		val, err := json.Marshal(toJSONDoc(doc))
		if err != nil {
			b.Abort()
			return err
		}
		if err := b.Add(doc.ID, val); err != nil {
			b.Abort()
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
	}
	if err := b.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, js.snapPath); err != nil {
		return fmt.Errorf("failed to install snapshot: %w", err)
	}
	return js.wal.Truncate()
}

// Snapshotted is the number of documents loaded from the snapshot on open.
func (js *JournalStore) Snapshotted() int {
	return js.snapshotted
}

func (js *JournalStore) replay() error {
	it, err := js.wal.NewIterator()
	if err != nil {
		return err
	}
	defer it.Close()

	for {
		entry, err := it.Next()
		if err != nil {
			js.torn = !errors.Is(err, io.EOF)
			return nil
		}
		switch entry.Op {
		case OpPut:
			var d jsonDoc
			if err := json.Unmarshal(entry.Value, &d); err != nil {
				js.torn = true
				return nil
			}
			js.mem.Put(d.document())
		case OpDelete:
			js.mem.Delete(context.Background(), entry.Key)
		}
		js.replayed++
	}
}

// Replayed is the number of log entries applied when the store was opened.
func (js *JournalStore) Replayed() int {
	return js.replayed
}

func (js *JournalStore) logPut(doc Document) error {
	val, err := json.Marshal(toJSONDoc(doc))
	if err != nil {
		return err
	}
	return js.wal.Append(OpPut, doc.ID, val)
}

func (js *JournalStore) Create(ctx context.Context, doc Document) (string, error) {
	js.mu.Lock()
	defer js.mu.Unlock()

	id, err := js.mem.Create(ctx, doc)
	if err != nil {
		return "", err
	}
	doc.ID = id
	if err := js.logPut(doc); err != nil {
		js.mem.Delete(ctx, id)
		return "", err
	}
	return id, nil
}

func (js *JournalStore) Get(ctx context.Context, id string) (Document, error) {
	return js.mem.Get(ctx, id)
}

func (js *JournalStore) Update(ctx context.Context, doc Document) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	old, err := js.mem.Get(ctx, doc.ID)
	if err != nil {
		return err
	}
	if doc.DateAdded == nil {
		doc.DateAdded = old.DateAdded
	}
	if err := js.logPut(doc); err != nil {
		return err
	}
	return js.mem.Update(ctx, doc)
}

func (js *JournalStore) Delete(ctx context.Context, id string) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	if _, err := js.mem.Get(ctx, id); err != nil {
		return err
	}
	if err := js.wal.Append(OpDelete, id, nil); err != nil {
		return err
	}
	return js.mem.Delete(ctx, id)
}

func (js *JournalStore) LoadAll(ctx context.Context) ([]Document, error) {
	return js.mem.LoadAll(ctx)
}

func (js *JournalStore) Truncate(ctx context.Context) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	if err := js.wal.Truncate(); err != nil {
		return err
	}
	if err := os.Remove(js.snapPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return js.mem.Truncate(ctx)
}

func (js *JournalStore) Close() error {
	if err := js.wal.Sync(); err != nil {
		js.wal.Close()
		return err
	}
	return js.wal.Close()
}
