// Package store owns the in-memory schedule collection and its
// persisted XML file. One coarse mutex covers every read, write and
// the file I/O itself, so a save always sees a consistent snapshot and
// the scheduler's fire+advance pass is atomic to API readers.
package store

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"memo-bell/internal/model"
)

// ErrValidation marks a create payload missing title/date/time.
var ErrValidation = errors.New("title/date/time must not be blank")

type Store struct {
	mu      sync.Mutex
	path    string
	entries []model.ScheduleEntry
}

func New(path string) *Store {
	return &Store{path: path}
}

// List returns copies of all entries sorted ascending by occurrence.
func (s *Store) List() []model.ScheduleEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.ScheduleEntry, len(s.entries))
	copy(out, s.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Occurrence().Before(out[j].Occurrence())
	})
	return out
}

// Add validates and inserts a new entry, filling a missing id.
func (s *Store) Add(entry model.ScheduleEntry) (model.ScheduleEntry, error) {
	if !entry.Valid() {
		return model.ScheduleEntry{}, ErrValidation
	}
	entry.EnsureID()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return entry, nil
}

// Remove deletes by id. Returns false (and mutates nothing) when the
// id is unknown.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Mutate applies fn to the entry with the given id, atomically with
// respect to every other store operation.
func (s *Store) Mutate(id string, fn func(*model.ScheduleEntry)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID == id {
			fn(&s.entries[i])
			return true
		}
	}
	return false
}

// Each runs fn over every entry while holding the lock for the whole
// pass. The scheduler's scan primitive: marking an entry notified and
// advancing it happen inside one critical section, so no reader ever
// observes a fired-but-unadvanced repeating entry.
func (s *Store) Each(fn func(*model.ScheduleEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		fn(&s.entries[i])
	}
}

// Count returns the number of entries.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type scheduleFile struct {
	XMLName xml.Name              `xml:"schedules"`
	Entries []model.ScheduleEntry `xml:"entry"`
}

// Load replaces the collection with the persisted file's content and
// aligns every loaded entry to the future. A missing file is not an
// error; a read or parse failure leaves the current state untouched.
func (s *Store) Load() error {
	return s.loadAt(time.Now())
}

func (s *Store) loadAt(now time.Time) error {
	// The lock spans the read and parse, not just the swap, so a
	// writer can never interleave between reading the file and
	// replacing the collection.
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	var file scheduleFile
	if err := xml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}

	for i := range file.Entries {
		file.Entries[i].EnsureID()
		file.Entries[i].Notified = false
		// Same fast-forward rule as the tick loop, so an entry loaded
		// one second before it is due behaves like one ticked then.
		file.Entries[i].AlignToFuture(now)
	}

	s.entries = file.Entries
	return nil
}

// Save serializes the full collection to the persisted file. The
// write goes to a temp file first and lands via rename, so a crash
// mid-write leaves the previous content readable.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file := scheduleFile{Entries: s.entries}
	data, err := xml.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize schedules: %w", err)
	}
	data = append([]byte(xml.Header), data...)

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, s.path)
}
