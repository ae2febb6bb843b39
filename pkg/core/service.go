package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"contactdb/pkg/common"
	"contactdb/pkg/monitor"
	"contactdb/pkg/storage"
)

// ErrNotFound matches storage.ErrNotFound under errors.Is.
var ErrNotFound = fmt.Errorf("contact %w", storage.ErrNotFound)

// ContactService keeps the index a mirror of the store. Writes go to the
// store first; the index follows. When the two disagree the store wins and
// the divergence is logged and counted.
type ContactService struct {
	store  storage.Store
	index  *ContactIndex
	stats  *monitor.WorkloadStats
	logger *slog.Logger
	now    func() time.Time

	// writeMu orders store writes with their index mirror and with rebuilds.
	writeMu sync.Mutex
}

type Option func(*ContactService)

func WithLogger(l *slog.Logger) Option {
	return func(s *ContactService) { s.logger = l }
}

func WithStats(ws *monitor.WorkloadStats) Option {
	return func(s *ContactService) { s.stats = ws }
}

// WithClock replaces time.Now for stamping DateAdded and LastActivity.
func WithClock(now func() time.Time) Option {
	return func(s *ContactService) { s.now = now }
}

// NewContactService wires an empty index to store. Call Bootstrap to load it.
// The stats registry gets the index gauges, so it must not be shared with
// another service.
func NewContactService(store storage.Store, opts ...Option) *ContactService {
	s := &ContactService{
		store: store,
		index: NewContactIndex(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stats == nil {
		s.stats = monitor.NewWorkloadStats()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s.logger = s.logger.With("component", "contact-service")
	s.stats.RegisterIndexGauges(s.index)
	return s
}

func (s *ContactService) Index() *ContactIndex {
	return s.index
}

func (s *ContactService) WorkloadStats() *monitor.WorkloadStats {
	return s.stats
}

// toContact normalizes a stored document. Absent timestamps become fallback.
func toContact(doc storage.Document, fallback time.Time) common.Contact {
	return common.Contact{
		ID:           doc.ID,
		Name:         doc.Name,
		Phone:        doc.Phone,
		Email:        doc.Email,
		Address:      doc.Address,
		DateAdded:    common.TimestampOr(doc.DateAdded, fallback),
		LastActivity: common.TimestampOr(doc.LastActivity, fallback),
	}
}

func (s *ContactService) diverged(msg string, c common.Contact) {
	s.stats.RecordDivergence()
	s.logger.Warn(msg, "id", c.ID, "name", c.Name)
}

// Bootstrap loads every stored contact into a fresh index and swaps it in.
// Contacts are inserted oldest DateAdded first, ties by ID, so of several
// sharing a name the earliest is indexed. Documents without a name, and
// names already loaded, are skipped.
func (s *ContactService) Bootstrap(ctx context.Context) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	docs, err := s.store.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load contacts: %w", err)
	}

	now := s.now()
	contacts := make([]common.Contact, len(docs))
	for i, doc := range docs {
		contacts[i] = toContact(doc, now)
	}
	// Oldest first, so a shared name stays with the contact Create indexed.
	slices.SortFunc(contacts, func(a, b common.Contact) int {
		if c := a.DateAdded.Compare(b.DateAdded); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	tree := newContactTree()
	skipped := 0
	for _, c := range contacts {
		if c.Name == "" {
			skipped++
			s.logger.Warn("skipping stored contact without a name", "id", c.ID)
			continue
		}
		if !tree.Insert(c) {
			skipped++
			s.logger.Debug("skipping duplicate name", "id", c.ID, "name", c.Name)
		}
	}
	s.index.swap(tree)

	s.logger.Info("index loaded", "records", tree.Len(), "skipped", skipped, "height", tree.Height())
	return tree.Len(), nil
}

// Rebuild discards the index and reloads it from the store.
func (s *ContactService) Rebuild(ctx context.Context) (int, error) {
	return s.Bootstrap(ctx)
}

func (s *ContactService) Create(ctx context.Context, in common.ContactInput) (common.Contact, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return common.Contact{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := s.now()
	c := common.Contact{
		Name:         in.Name,
		Phone:        in.Phone,
		Email:        in.Email,
		Address:      in.Address,
		DateAdded:    now,
		LastActivity: now,
	}
	id, err := s.store.Create(ctx, storage.Document{
		Name:         c.Name,
		Phone:        c.Phone,
		Email:        c.Email,
		Address:      c.Address,
		DateAdded:    now,
		LastActivity: now,
	})
	if err != nil {
		return common.Contact{}, fmt.Errorf("failed to create contact: %w", err)
	}
	c.ID = id
	s.stats.RecordWrite()

	if !s.index.Insert(c) {
		s.diverged("created contact shares a name already in the index", c)
	}
	return c, nil
}

// Get reads one contact from the store.
func (s *ContactService) Get(ctx context.Context, id string) (common.Contact, error) {
	s.stats.RecordRead()
	doc, err := s.load(ctx, id)
	if err != nil {
		return common.Contact{}, err
	}
	return toContact(doc, time.Time{}), nil
}

func (s *ContactService) load(ctx context.Context, id string) (storage.Document, error) {
	doc, err := s.store.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return storage.Document{}, fmt.Errorf("failed to read contact %s: %w", id, err)
	}
	return doc, nil
}

// indexedAs reports whether the index entry under name is the contact id.
func (s *ContactService) indexedAs(name, id string) bool {
	c, ok := s.index.Search(name)
	return ok && c.ID == id
}

// Update rewrites the contact and bumps LastActivity. A changed name moves
// the index entry to the new key, keeping ID and DateAdded.
func (s *ContactService) Update(ctx context.Context, id string, in common.ContactInput) (common.Contact, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return common.Contact{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	old, err := s.load(ctx, id)
	if err != nil {
		return common.Contact{}, err
	}

	now := s.now()
	err = s.store.Update(ctx, storage.Document{
		ID:           id,
		Name:         in.Name,
		Phone:        in.Phone,
		Email:        in.Email,
		Address:      in.Address,
		LastActivity: now,
	})
	if errors.Is(err, storage.ErrNotFound) {
		return common.Contact{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return common.Contact{}, fmt.Errorf("failed to update contact %s: %w", id, err)
	}
	s.stats.RecordWrite()

	doc, err := s.load(ctx, id)
	if err != nil {
		return common.Contact{}, err
	}
	c := toContact(doc, now)

	if old.Name == c.Name {
		if !s.indexedAs(c.Name, id) {
			s.diverged("updated contact is missing from the index", c)
			return c, nil
		}
		s.index.UpdateFields(c.Name, in.Fields(), c.LastActivity)
		return c, nil
	}

	if s.indexedAs(old.Name, id) {
		s.index.Delete(old.Name)
	} else {
		s.diverged("renamed contact was not indexed under its old name", c)
	}
	if !s.index.Insert(c) {
		s.diverged("renamed contact collides with a name already in the index", c)
	}
	return c, nil
}

// Delete removes the contact from the store and then from the index.
func (s *ContactService) Delete(ctx context.Context, id string) (common.Contact, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	doc, err := s.load(ctx, id)
	if err != nil {
		return common.Contact{}, err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return common.Contact{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return common.Contact{}, fmt.Errorf("failed to delete contact %s: %w", id, err)
	}
	s.stats.RecordWrite()

	c := toContact(doc, time.Time{})
	if s.indexedAs(c.Name, id) {
		s.index.Delete(c.Name)
	} else {
		s.diverged("deleted contact was not in the index", c)
	}
	return c, nil
}

// List returns the indexed contacts in order, filtered by term.
func (s *ContactService) List(order SortOrder, term string) []common.Contact {
	s.stats.RecordRead()
	return s.index.Query(order, term)
}

func (s *ContactService) SearchByName(name string) (common.Contact, error) {
	s.stats.RecordRead()
	c, ok := s.index.Search(name)
	if !ok {
		return common.Contact{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	s.stats.RecordHit()
	return c, nil
}

// Stats is a point-in-time view of the index shape and the counters.
type Stats struct {
	Records        int     `json:"records"`
	Height         int     `json:"height"`
	Rotations      uint64  `json:"rotations"`
	Reads          uint64  `json:"reads"`
	Writes         uint64  `json:"writes"`
	Hits           uint64  `json:"hits"`
	Divergence     uint64  `json:"divergence"`
	ReadWriteRatio float64 `json:"readWriteRatio"`
}

func (s *ContactService) Stats() Stats {
	snap := s.stats.Snapshot()
	return Stats{
		Records:        s.index.Len(),
		Height:         s.index.Height(),
		Rotations:      s.index.Rotations(),
		Reads:          snap.Reads,
		Writes:         snap.Writes,
		Hits:           snap.Hits,
		Divergence:     snap.Divergence,
		ReadWriteRatio: s.stats.GetReadWriteRatio(),
	}
}
