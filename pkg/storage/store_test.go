package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"contactdb/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDrivers(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	sqlite, err := NewSQLiteStore(filepath.Join(dir, "contacts.db"))
	require.NoError(t, err)
	badger, err := NewBadgerStore("")
	require.NoError(t, err)
	journal, err := OpenJournalStore(filepath.Join(dir, "contacts.wal"))
	require.NoError(t, err)

	stores := map[string]Store{
		"sqlite":  sqlite,
		"badger":  badger,
		"journal": journal,
		"memory":  NewMemoryStore(),
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	added := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range openDrivers(t) {
		t.Run(name, func(t *testing.T) {
			id, err := store.Create(ctx, Document{
				Name:         "Alice",
				Phone:        "555-0100",
				Email:        "alice@example.com",
				Address:      "1 Main St",
				DateAdded:    added,
				LastActivity: added,
			})
			require.NoError(t, err)
			require.NotEmpty(t, id)

			doc, err := store.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, id, doc.ID)
			assert.Equal(t, "Alice", doc.Name)
			assert.Equal(t, "alice@example.com", doc.Email)
			ts, ok := common.ParseTimestamp(doc.DateAdded)
			require.True(t, ok, "stored date added %#v", doc.DateAdded)
			assert.True(t, added.Equal(ts))

			later := added.Add(time.Hour)
			err = store.Update(ctx, Document{
				ID:           id,
				Name:         "Alice",
				Phone:        "555-0199",
				Email:        "alice@example.org",
				LastActivity: later,
			})
			require.NoError(t, err)

			doc, err = store.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "555-0199", doc.Phone)
			assert.Equal(t, "", doc.Address)
			ts, ok = common.ParseTimestamp(doc.DateAdded)
			require.True(t, ok)
			assert.True(t, added.Equal(ts), "update without DateAdded keeps it")
			ts, ok = common.ParseTimestamp(doc.LastActivity)
			require.True(t, ok)
			assert.True(t, later.Equal(ts))

			_, err = store.Create(ctx, Document{Name: "Bob"})
			require.NoError(t, err)
			docs, err := store.LoadAll(ctx)
			require.NoError(t, err)
			assert.Len(t, docs, 2)

			require.NoError(t, store.Delete(ctx, id))
			_, err = store.Get(ctx, id)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, store.Delete(ctx, id), ErrNotFound)
			assert.ErrorIs(t, store.Update(ctx, Document{ID: id, Name: "Alice"}), ErrNotFound)

			require.NoError(t, store.Truncate(ctx))
			docs, err = store.LoadAll(ctx)
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}
}

func TestSQLiteMissingTimestampsAreNil(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "contacts.db"))
	require.NoError(t, err)
	defer store.Close()

	id, err := store.Create(ctx, Document{Name: "NoDates"})
	require.NoError(t, err)
	doc, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, doc.DateAdded)
	assert.Nil(t, doc.LastActivity)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "contacts.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	_, err = store.Create(ctx, Document{Name: "Persisted"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()
	docs, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Persisted", docs[0].Name)
}

func TestJournalReplay(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "contacts.wal")
	added := time.Date(2023, 7, 4, 9, 30, 0, 0, time.UTC)

	js, err := OpenJournalStore(path)
	require.NoError(t, err)
	keep, err := js.Create(ctx, Document{Name: "Keep", DateAdded: added})
	require.NoError(t, err)
	gone, err := js.Create(ctx, Document{Name: "Gone"})
	require.NoError(t, err)
	require.NoError(t, js.Update(ctx, Document{ID: keep, Name: "Keep", Phone: "1"}))
	require.NoError(t, js.Delete(ctx, gone))
	require.NoError(t, js.Close())

	js, err = OpenJournalStore(path)
	require.NoError(t, err)
	defer js.Close()

	assert.Equal(t, 4, js.Replayed())
	docs, err := js.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Keep", docs[0].Name)
	assert.Equal(t, "1", docs[0].Phone)
	ts, ok := common.ParseTimestamp(docs[0].DateAdded)
	require.True(t, ok)
	assert.True(t, added.Equal(ts))
}

func TestOpenDrivers(t *testing.T) {
	dir := t.TempDir()
	for _, driver := range []string{"sqlite", "badger", "journal", "memory"} {
		s, err := Open(driver, filepath.Join(dir, driver))
		require.NoError(t, err, driver)
		require.NoError(t, s.Close())
	}
	_, err := Open("postgres", dir)
	assert.Error(t, err)
}

func TestJournalCompaction(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "contacts.wal")

	js, err := OpenJournalStore(path)
	require.NoError(t, err)
	var ids []string
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		id, err := js.Create(ctx, Document{Name: name, DateAdded: time.Now()})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, js.Delete(ctx, ids[1]))
	require.NoError(t, js.Compact())

	size, err := js.wal.Size()
	require.NoError(t, err)
	assert.Zero(t, size, "compaction truncates the log")

	require.NoError(t, js.Update(ctx, Document{ID: ids[0], Name: "Alice", Phone: "after"}))
	require.NoError(t, js.Close())

	js, err = OpenJournalStore(path)
	require.NoError(t, err)
	defer js.Close()

	assert.Equal(t, 2, js.Snapshotted())
	assert.Equal(t, 1, js.Replayed())
	doc, err := js.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "after", doc.Phone)
	_, err = js.Get(ctx, ids[1])
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, js.Truncate(ctx))
	assert.NoFileExists(t, path+".snap")
}

func TestJournalTornTailCompacts(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "contacts.wal")

	js, err := OpenJournalStore(path)
	require.NoError(t, err)
	_, err = js.Create(ctx, Document{Name: "Alice"})
	require.NoError(t, err)
	require.NoError(t, js.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.Write([]byte{0xde, 0xad, 0xbe})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	js, err = OpenJournalStore(path)
	require.NoError(t, err)
	assert.Equal(t, 1, js.Replayed())
	size, err := js.wal.Size()
	require.NoError(t, err)
	assert.Zero(t, size, "torn log is folded into the snapshot")

	_, err = js.Create(ctx, Document{Name: "Bob"})
	require.NoError(t, err)
	require.NoError(t, js.Close())

	js, err = OpenJournalStore(path)
	require.NoError(t, err)
	defer js.Close()
	docs, err := js.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}
