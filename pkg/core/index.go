package core

import (
	"slices"
	"strings"
	"sync"
	"time"

	"contactdb/pkg/common"
	"contactdb/pkg/core/structure"

	"golang.org/x/text/cases"
)

// SortOrder selects one of the ordered views of the index.
type SortOrder string

const (
	SortNameAsc          SortOrder = "name_asc"
	SortNameDesc         SortOrder = "name_desc"
	SortDateAddedDesc    SortOrder = "dateAdded_desc"
	SortLastActivityDesc SortOrder = "lastActivity_desc"
)

// ParseSortOrder maps a client value to a SortOrder. Unknown and empty
// values fall back to name_asc.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(s) {
	case SortNameDesc, SortDateAddedDesc, SortLastActivityDesc:
		return SortOrder(s)
	default:
		return SortNameAsc
	}
}

// ContactIndex is the in-memory name-ordered view of all contacts.
// Every method is safe for concurrent use; reads return copies.
type ContactIndex struct {
	mu   sync.RWMutex
	tree *structure.AVLTree[common.Contact]
}

func NewContactIndex() *ContactIndex {
	return &ContactIndex{tree: newContactTree()}
}

func newContactTree() *structure.AVLTree[common.Contact] {
	return structure.NewAVLTree(common.ContactKey)
}

// Insert reports false when the name is empty or already indexed.
func (ci *ContactIndex) Insert(c common.Contact) bool {
	if c.Name == "" {
		return false
	}
	ci.mu.Lock()
	defer ci.mu.Unlock()
	return ci.tree.Insert(c)
}

func (ci *ContactIndex) Delete(name string) (common.Contact, bool) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	return ci.tree.Delete(name)
}

func (ci *ContactIndex) Search(name string) (common.Contact, bool) {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	return ci.tree.Search(name)
}

// UpdateFields is the only in-place mutation of an indexed contact: it
// rewrites the non-key fields and bumps LastActivity to at.
func (ci *ContactIndex) UpdateFields(name string, f common.ContactFields, at time.Time) (common.Contact, bool) {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	var updated common.Contact
	ok := ci.tree.Update(name, func(c *common.Contact) {
		c.Phone = f.Phone
		c.Email = f.Email
		c.Address = f.Address
		c.LastActivity = at
		updated = *c
	})
	return updated, ok
}

// List returns every contact in the requested order.
func (ci *ContactIndex) List(order SortOrder) []common.Contact {
	ci.mu.RLock()
	var out []common.Contact
	if order == SortNameDesc {
		out = make([]common.Contact, 0, ci.tree.Len())
		ci.tree.Descend(func(c common.Contact) bool {
			out = append(out, c)
			return true
		})
	} else {
		out = ci.tree.Items()
	}
	ci.mu.RUnlock()

	switch order {
	case SortDateAddedDesc:
		slices.SortStableFunc(out, func(a, b common.Contact) int {
			return b.DateAdded.Compare(a.DateAdded)
		})
	case SortLastActivityDesc:
		slices.SortStableFunc(out, func(a, b common.Contact) int {
			return b.LastActivity.Compare(a.LastActivity)
		})
	}
	return out
}

// Query is List followed by Filter.
func (ci *ContactIndex) Query(order SortOrder, term string) []common.Contact {
	return Filter(ci.List(order), term)
}

func (ci *ContactIndex) Len() int {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	return ci.tree.Len()
}

func (ci *ContactIndex) Height() int {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	return ci.tree.Height()
}

func (ci *ContactIndex) Rotations() uint64 {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	return ci.tree.Rotations()
}

// Verify runs the tree's structural checks under the read lock.
func (ci *ContactIndex) Verify() error {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	return ci.tree.Verify()
}

// swap replaces the whole tree, used after a bootstrap built a fresh one.
func (ci *ContactIndex) swap(tree *structure.AVLTree[common.Contact]) {
	ci.mu.Lock()
	ci.tree = tree
	ci.mu.Unlock()
}

// Filter keeps contacts whose name, email or phone contains term, ignoring
// case. An empty term keeps everything. Order is preserved.
func Filter(contacts []common.Contact, term string) []common.Contact {
	term = strings.TrimSpace(term)
	if term == "" {
		return contacts
	}
	fold := cases.Fold()
	needle := fold.String(term)

	out := contacts[:0:0]
	for _, c := range contacts {
		if strings.Contains(fold.String(c.Name), needle) ||
			strings.Contains(fold.String(c.Email), needle) ||
			strings.Contains(fold.String(c.Phone), needle) {
			out = append(out, c)
		}
	}
	return out
}
