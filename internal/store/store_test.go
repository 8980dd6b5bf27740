package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"memo-bell/internal/model"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "schedule.xml"))
}

func TestAddValidation(t *testing.T) {
	s := tempStore(t)

	tests := []struct {
		name  string
		entry model.ScheduleEntry
	}{
		{"blank title", model.NewEntry("", "2030-01-06", "09:00", model.RepeatNone)},
		{"blank date", model.NewEntry("A", "", "09:00", model.RepeatNone)},
		{"blank time", model.NewEntry("A", "2030-01-06", "", model.RepeatNone)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Add(tt.entry); !errors.Is(err, ErrValidation) {
				t.Errorf("want ErrValidation, got %v", err)
			}
		})
	}

	if s.Count() != 0 {
		t.Errorf("invalid adds mutated the store: %d entries", s.Count())
	}
}

func TestListSortedByOccurrence(t *testing.T) {
	s := tempStore(t)
	for _, tc := range []struct{ title, date, tm string }{
		{"late", "2030-03-01", "10:00"},
		{"early", "2030-01-01", "08:00"},
		{"mid", "2030-02-01", "09:00"},
	} {
		if _, err := s.Add(model.NewEntry(tc.title, tc.date, tc.tm, model.RepeatNone)); err != nil {
			t.Fatalf("add %s: %v", tc.title, err)
		}
	}

	got := s.List()
	want := []string{"early", "mid", "late"}
	for i, title := range want {
		if got[i].Title != title {
			t.Errorf("position %d: got %s, want %s", i, got[i].Title, title)
		}
	}
}

func TestRemoveIdempotent(t *testing.T) {
	s := tempStore(t)
	created, err := s.Add(model.NewEntry("A", "2030-01-06", "09:00", model.RepeatNone))
	if err != nil {
		t.Fatal(err)
	}

	if !s.Remove(created.ID) {
		t.Error("first remove should succeed")
	}
	if s.Remove(created.ID) {
		t.Error("second remove should report not found")
	}
	if s.Remove("no-such-id") {
		t.Error("unknown id should report not found")
	}
	if s.Count() != 0 {
		t.Errorf("count = %d, want 0", s.Count())
	}
}

func TestMutate(t *testing.T) {
	s := tempStore(t)
	created, _ := s.Add(model.NewEntry("A", "2030-01-06", "09:00", model.RepeatNone))

	ok := s.Mutate(created.ID, func(e *model.ScheduleEntry) {
		e.MusicFile = "/tmp/a.mp3"
	})
	if !ok {
		t.Fatal("mutate reported miss for existing id")
	}
	if got := s.List()[0].MusicFile; got != "/tmp/a.mp3" {
		t.Errorf("musicFile = %q", got)
	}

	if s.Mutate("missing", func(e *model.ScheduleEntry) {}) {
		t.Error("mutate of unknown id should return false")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.xml")
	s := New(path)

	original := model.NewEntry("Concert \"live\"", "2030-05-01", "19:30", model.RepeatWeekly)
	original.MusicTitle = "Song & Title"
	original.MusicURL = "https://example.com/a.mp3?x=1"
	original.MusicFile = "/cache/a.mp3"
	if _, err := s.Add(original); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := New(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	got := reloaded.List()
	if len(got) != 1 {
		t.Fatalf("got %d entries", len(got))
	}
	e := got[0]
	if e.ID != original.ID || e.Title != original.Title ||
		e.Date != original.Date || e.Time != original.Time ||
		e.Repeat != original.Repeat || e.MusicTitle != original.MusicTitle ||
		e.MusicURL != original.MusicURL || e.MusicFile != original.MusicFile {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", e, original)
	}
	if e.Notified {
		t.Error("Notified must reset on load")
	}
}

func TestLoadAlignsRepeatingEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.xml")
	s := New(path)
	if _, err := s.Add(model.NewEntry("Standup", "2030-01-06", "09:00", model.RepeatDaily)); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	reloaded := New(path)
	now, _ := time.ParseInLocation("2006-01-02 15:04", "2030-01-08 12:00", time.Local)
	if err := reloaded.loadAt(now); err != nil {
		t.Fatal(err)
	}

	if got := reloaded.List()[0].Date; got != "2030-01-09" {
		t.Errorf("loaded entry at %s, want fast-forward to 2030-01-09", got)
	}
}

func TestLoadCorruptFileKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.xml")
	s := New(path)
	if _, err := s.Add(model.NewEntry("Keep", "2030-01-06", "09:00", model.RepeatNone)); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("<schedules><entry><id>"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := s.Load(); err == nil {
		t.Fatal("expected parse error")
	}

	if s.Count() != 1 || s.List()[0].Title != "Keep" {
		t.Error("failed load must leave prior state untouched")
	}
}

func TestLoadReadsFileUnderLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.xml")

	stale := New(path)
	if _, err := stale.Add(model.NewEntry("stale", "2030-01-06", "09:00", model.RepeatNone)); err != nil {
		t.Fatal(err)
	}
	if err := stale.Save(); err != nil {
		t.Fatal(err)
	}

	s := New(path)
	s.mu.Lock()

	done := make(chan error, 1)
	go func() { done <- s.Load() }()

	// The loader must be parked on the lock before touching the file,
	// so the rewrite below is what it ends up reading.
	time.Sleep(50 * time.Millisecond)
	fresh := New(path)
	if _, err := fresh.Add(model.NewEntry("fresh", "2030-01-06", "09:00", model.RepeatNone)); err != nil {
		t.Fatal(err)
	}
	if err := fresh.Save(); err != nil {
		t.Fatal(err)
	}
	s.mu.Unlock()

	if err := <-done; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := s.List()[0].Title; got != "fresh" {
		t.Errorf("loaded %q: the file was read before the lock was held", got)
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "absent.xml"))
	if err := s.Load(); err != nil {
		t.Errorf("missing file should load empty, got %v", err)
	}
	if s.Count() != 0 {
		t.Errorf("count = %d", s.Count())
	}
}
