package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	dataFileMode = 0o644
	dataDirMode  = 0o755
)

var ErrDuplicateID = errors.New("duplicate item id")

// PersistenceError reports a failed write of the backing file.
// The mutation that caused it was not applied.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist items to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Snapshot is a consistent view of the collection and its validation tokens.
type Snapshot struct {
	Items        []Item
	Fingerprint  string
	LastModified time.Time
}

type StoreDeps struct {
	Log      *zap.Logger
	Registry *prometheus.Registry
}

// Store owns the item collection and mirrors it to a single JSON file.
// All mutations and reloads are serialized on mu.
type Store struct {
	path    string
	log     *zap.Logger
	metrics *storeMetrics

	mu           sync.RWMutex
	items        []Item
	fingerprint  string
	lastModified time.Time
	fileModTime  time.Time

	now       func() time.Time
	newID     func() string
	writeFile func(path string, data []byte) error

	watchMu   sync.Mutex
	stopWatch context.CancelFunc
	watchDone chan struct{}
}

// OpenStore loads path into a new Store. A missing or unreadable file
// yields an empty collection; the failure is logged, not returned.
func OpenStore(path string, deps StoreDeps) *Store {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	s := &Store{
		path:      filepath.Clean(path),
		log:       log,
		metrics:   newStoreMetrics(deps.Registry),
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		newID:     uuid.NewString,
		writeFile: writeFileAtomic,
	}

	s.mu.Lock()
	s.load()
	s.mu.Unlock()

	return s
}

func (s *Store) Path() string { return s.path }

// Ping checks that the directory holding the backing file is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fi, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", filepath.Dir(s.path))
	}
	return nil
}

func (s *Store) GetAll() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Items:        cloneItems(s.items),
		Fingerprint:  s.fingerprint,
		LastModified: s.lastModified,
	}
}

func (s *Store) GetByID(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.items[i].clone(), true
	}
	return Item{}, false
}

// GetByIDs returns the items whose id is in ids, in collection order.
// Repeated ids match once.
func (s *Store) GetByIDs(ids []string) []Item {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, 0, len(want))
	for _, it := range s.items {
		if _, ok := want[it.ID]; ok {
			out = append(out, it.clone())
		}
	}
	return out
}

func (s *Store) Fingerprint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fingerprint
}

func (s *Store) LastModified() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastModified
}

func (s *Store) Create(in CreateItem) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := newItem(s.newID(), in, s.now())

	next := make([]Item, len(s.items), len(s.items)+1)
	copy(next, s.items)
	next = append(next, it)

	if err := s.commit(next); err != nil {
		return Item{}, err
	}

	s.log.Info("item created", zap.String("id", it.ID))
	return it.clone(), nil
}

// Update merges the set fields of in into the item with the given id.
// ok is false when no such item exists.
func (s *Store) Update(id string, in UpdateItem) (Item, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		s.log.Debug("item not found for update", zap.String("id", id))
		return Item{}, false, nil
	}

	current := s.items[i]
	updated := in.apply(current)
	updated.ID = current.ID
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = s.touch(current.UpdatedAt)

	next := slices.Clone(s.items)
	next[i] = updated

	if err := s.commit(next); err != nil {
		return Item{}, false, err
	}

	s.log.Info("item updated", zap.String("id", id))
	return updated.clone(), true, nil
}

func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		s.log.Debug("item not found for deletion", zap.String("id", id))
		return false, nil
	}

	next := slices.Delete(slices.Clone(s.items), i, i+1)
	if err := s.commit(next); err != nil {
		return false, err
	}

	s.log.Info("item deleted", zap.String("id", id))
	return true, nil
}

// touch returns the timestamp for a mutation. It is always strictly after prev.
func (s *Store) touch(prev time.Time) time.Time {
	now := s.now()
	if !now.After(prev) {
		now = prev.Add(time.Millisecond)
	}
	return now
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.items, func(it Item) bool { return it.ID == id })
}

// commit writes next to disk and, only on success, installs it as the
// collection with fresh validation tokens. Caller holds mu.
func (s *Store) commit(next []Item) error {
	data, err := encodeItems(next)
	if err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}

	if err := s.writeFile(s.path, data); err != nil {
		s.metrics.persistFailed()
		s.log.Error("failed to save items", zap.String("path", s.path), zap.Error(err))
		return &PersistenceError{Path: s.path, Err: err}
	}

	s.items = next
	s.fingerprint = fingerprintOf(data)
	s.lastModified = s.now()
	if fi, err := os.Stat(s.path); err == nil {
		s.fileModTime = fi.ModTime()
	}
	s.metrics.setItems(len(next))

	s.log.Debug("items saved", zap.String("path", s.path), zap.Int("count", len(next)))
	return nil
}

// load replaces the collection with the file contents. Caller holds mu.
func (s *Store) load() {
	items, modTime, err := readItems(s.path)
	if err != nil {
		s.metrics.loadFailed()
		s.log.Error("failed to load items", zap.String("path", s.path), zap.Error(err))
		items = []Item{}
	}

	data, encErr := encodeItems(items)
	if encErr != nil {
		s.log.Error("failed to encode items", zap.Error(encErr))
		items, data = []Item{}, []byte("[]")
	}

	s.items = items
	s.fingerprint = fingerprintOf(data)
	s.fileModTime = modTime
	s.lastModified = modTime
	if modTime.IsZero() {
		s.lastModified = s.now()
	}
	s.metrics.setItems(len(items))

	if err == nil {
		s.log.Info("items loaded", zap.String("path", s.path), zap.Int("count", len(items)))
	}
}

// reloadIfChanged reloads the file when its modification time differs
// from the last one observed by load or commit.
func (s *Store) reloadIfChanged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var modTime time.Time
	if fi, err := os.Stat(s.path); err == nil {
		modTime = fi.ModTime()
	}
	if modTime.Equal(s.fileModTime) {
		return false
	}

	s.log.Info("items file changed, reloading", zap.String("path", s.path))
	s.metrics.reloaded()
	s.load()
	return true
}

// readItems returns the parsed file and its modification time. The
// modification time is reported even when parsing fails.
func readItems(path string) ([]Item, time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	modTime := fi.ModTime()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, modTime, err
	}

	var stored []storedItem
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, modTime, fmt.Errorf("decode %s: %w", path, err)
	}

	items := make([]Item, 0, len(stored))
	seen := make(map[string]struct{}, len(stored))
	for _, rec := range stored {
		if _, dup := seen[rec.ID]; dup {
			return nil, modTime, fmt.Errorf("%w: %q", ErrDuplicateID, rec.ID)
		}
		seen[rec.ID] = struct{}{}
		items = append(items, rec.item())
	}
	return items, modTime, nil
}

// storedItem is an Item as read from the backing file, where members the
// model defaults may be absent. Other fields are taken as written.
type storedItem struct {
	Item
	Availability *bool `json:"availability"`
}

func (rec storedItem) item() Item {
	it := rec.Item
	it.Availability = rec.Availability == nil || *rec.Availability
	if it.Features == nil {
		it.Features = []string{}
	}
	return it
}

func encodeItems(items []Item) ([]byte, error) {
	return json.MarshalIndent(items, "", "  ")
}

// fingerprintOf is a content hash: equal bytes give equal fingerprints
// across processes.
func fingerprintOf(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dataDirMode); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), dataFileMode); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

