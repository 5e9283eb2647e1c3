// Package history holds the ordered, deduplicated, capacity-bounded clipboard
// history and keeps it written through to a storage.Storage.
package history

import (
	"bytes"
	"clipboard-history/internal/codec"
	"clipboard-history/internal/storage"
	"clipboard-history/pkg/types"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sink writes content back to the system clipboard.
type Sink interface {
	SetContent(p types.Payload) error
}

// Options configures a Store. Zero values select defaults.
type Options struct {
	MaxItems int
	Clock    func() time.Time
	NewID    func() string
}

// Store is the in-memory history, most recent first. All mutations are
// serialized; reads return copies of the ordering.
type Store struct {
	mu       sync.RWMutex
	entries  []types.Entry
	lastTime time.Time

	storage  storage.Storage
	codec    *codec.Codec
	sink     Sink
	maxItems int
	now      func() time.Time
	newID    func() string

	handlersMu sync.RWMutex
	handlers   []ChangeHandler
}

// New creates an empty store. Call Load to populate it from storage.
// sink may be nil, in which case Copy only moves the entry to the front.
func New(st storage.Storage, c *codec.Codec, sink Sink, opts Options) *Store {
	s := &Store{
		storage:  st,
		codec:    c,
		sink:     sink,
		maxItems: opts.MaxItems,
		now:      opts.Clock,
		newID:    opts.NewID,
	}
	if s.maxItems <= 0 {
		s.maxItems = storage.DefaultMaxItems
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.Must(uuid.NewV7()).String() }
	}
	if s.codec == nil {
		s.codec = codec.New(codec.DefaultConfig())
	}
	return s
}

// MaxItems returns the retention cap.
func (s *Store) MaxItems() int { return s.maxItems }

// RegisterHandler adds a handler notified after every mutation.
func (s *Store) RegisterHandler(h ChangeHandler) {
	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()
	s.handlers = append(s.handlers, h)
}

// Ingest normalizes new clipboard content and puts it at the front of the
// history. Content equal to an existing entry touches that entry instead of
// adding a second one. Content the codec rejects is skipped and leaves the
// history unchanged.
func (s *Store) Ingest(ctx context.Context, kind types.Kind, data []byte) (types.Entry, error) {
	s.mu.Lock()

	res, err := s.codec.Encode(s.newID(), s.stampLocked(), types.Payload{Kind: kind, Data: data})
	if err != nil {
		s.mu.Unlock()
		slog.Warn("clipboard content skipped", "kind", kind, "size_bytes", len(data), "err", err)
		return types.Entry{}, err
	}
	if !res.Reencoded && kind == types.KindImage {
		slog.Debug("image kept unencoded", "size_bytes", len(res.Entry.Image))
	}

	entry := res.Entry
	op := OpIngested
	if i := s.indexOfContentLocked(entry); i >= 0 {
		entry.ID = s.entries[i].ID
		s.removeLocked(i)
		op = OpTouched
	}
	s.pushFrontLocked(entry)
	evicted := s.evictLocked()

	err = s.persistLocked(ctx, entry, evicted)
	s.mu.Unlock()

	slog.Debug("history updated", "op", op, "id", entry.ID, "kind", entry.Kind, "evicted", len(evicted))
	s.notify(Change{Op: op, ID: entry.ID, Evicted: evicted})
	return entry, err
}

// Copy writes the entry back to the clipboard and moves it to the front. The
// entry keeps its ID; its CreatedAt is refreshed.
func (s *Store) Copy(ctx context.Context, id string) (types.Entry, error) {
	s.mu.Lock()

	i := s.indexOfIDLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return types.Entry{}, fmt.Errorf("copy %s: %w", id, ErrNotFound)
	}
	entry := s.entries[i]

	if s.sink != nil {
		if err := s.sink.SetContent(entry.Payload()); err != nil {
			s.mu.Unlock()
			return types.Entry{}, fmt.Errorf("copy %s: %w", id, err)
		}
	}

	entry.CreatedAt = s.stampLocked()
	s.removeLocked(i)
	s.pushFrontLocked(entry)

	err := s.persistLocked(ctx, entry, nil)
	s.mu.Unlock()

	s.notify(Change{Op: OpCopied, ID: id})
	return entry, err
}

// Delete removes an entry by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()

	i := s.indexOfIDLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	s.removeLocked(i)

	err := s.storage.Delete(ctx, id)
	s.mu.Unlock()

	s.notify(Change{Op: OpDeleted, ID: id})
	return err
}

// Clear empties the history and the backing store.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.entries = nil
	err := s.storage.Clear(ctx)
	s.mu.Unlock()

	s.notify(Change{Op: OpCleared})
	return err
}

// Load replaces the in-memory history with the most recent entries in
// storage. On error the current history is left untouched.
func (s *Store) Load(ctx context.Context) ([]types.Entry, error) {
	s.mu.Lock()

	entries, err := s.storage.QueryRecent(ctx, s.maxItems)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.entries = dedupe(entries)
	if len(s.entries) > 0 && s.entries[0].CreatedAt.After(s.lastTime) {
		s.lastTime = s.entries[0].CreatedAt
	}
	out := s.snapshotLocked()
	s.mu.Unlock()

	slog.Debug("history loaded", "entries", len(out))
	s.notify(Change{Op: OpLoaded})
	return out, nil
}

// Snapshot returns the current history, most recent first. The returned
// entries must not be modified.
func (s *Store) Snapshot() []types.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Get looks up an entry by ID without touching it.
func (s *Store) Get(id string) (types.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOfIDLocked(id); i >= 0 {
		return s.entries[i], true
	}
	return types.Entry{}, false
}

// Len returns the number of entries in memory.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats combines the backing store's stats with in-memory totals.
type Stats struct {
	storage.Stats
	Entries int     `json:"entries"`
	TotalKB float64 `json:"total_kb"`
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st, err := s.storage.Stats(ctx)
	snap := s.Snapshot()
	stats := Stats{Stats: st, Entries: len(snap)}
	for _, e := range snap {
		stats.TotalKB += e.SizeInKB()
	}
	return stats, err
}

// stampLocked returns a capture time strictly after every time handed out
// before, so storage order by created_at matches list order.
func (s *Store) stampLocked() time.Time {
	t := s.now().Round(0)
	if !t.After(s.lastTime) {
		t = s.lastTime.Add(time.Microsecond)
	}
	s.lastTime = t
	return t
}

func (s *Store) persistLocked(ctx context.Context, entry types.Entry, evicted []string) error {
	var errs []error
	if err := s.storage.Upsert(ctx, entry); err != nil {
		errs = append(errs, err)
	}
	if len(evicted) > 0 {
		if err := s.storage.Delete(ctx, evicted...); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		slog.Error("history write failed; memory leads storage", "id", entry.ID, "err", err)
		return err
	}
	return nil
}

func (s *Store) evictLocked() []string {
	if len(s.entries) <= s.maxItems {
		return nil
	}
	var ids []string
	for _, e := range s.entries[s.maxItems:] {
		ids = append(ids, e.ID)
	}
	clear(s.entries[s.maxItems:])
	s.entries = s.entries[:s.maxItems]
	return ids
}

func (s *Store) pushFrontLocked(e types.Entry) {
	s.entries = append(s.entries, types.Entry{})
	copy(s.entries[1:], s.entries)
	s.entries[0] = e
}

func (s *Store) removeLocked(i int) {
	copy(s.entries[i:], s.entries[i+1:])
	s.entries[len(s.entries)-1] = types.Entry{}
	s.entries = s.entries[:len(s.entries)-1]
}

func (s *Store) indexOfIDLocked(id string) int {
	for i := range s.entries {
		if s.entries[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) indexOfContentLocked(e types.Entry) int {
	for i := range s.entries {
		if sameContent(s.entries[i], e) {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() []types.Entry {
	out := make([]types.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) notify(c Change) {
	s.handlersMu.RLock()
	handlers := s.handlers
	s.handlersMu.RUnlock()

	for _, h := range handlers {
		h.HandleHistoryChange(c)
	}
}

func sameContent(a, b types.Entry) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == types.KindText {
		return a.Text == b.Text
	}
	return bytes.Equal(a.Image, b.Image)
}

// dedupe keeps the first occurrence of each content value. Storage written
// by this package never holds duplicates; rows from older or foreign writers might.
func dedupe(entries []types.Entry) []types.Entry {
	out := entries[:0]
	for _, e := range entries {
		dup := false
		for _, kept := range out {
			if sameContent(kept, e) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, e)
		}
	}
	return out
}
