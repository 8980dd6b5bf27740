package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"memo-bell/internal/config"
	"memo-bell/internal/model"
	"memo-bell/internal/music"
	"memo-bell/internal/scheduler"
	"memo-bell/internal/store"
)

func testServer(t *testing.T) (*Server, *store.Store, string) {
	t.Helper()
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "schedule.xml")

	cfg := &config.Config{}
	cfg.Server.LogLevel = "error"
	cfg.Server.DataFile = dataFile
	cfg.Server.DashboardFile = filepath.Join(dir, "dashboard.html")
	cfg.Music.SearchLimit = 5

	st := store.New(dataFile)
	// Dead upstream addresses: lookup routes answer with empty
	// results, downloads fail harmlessly.
	mus := music.New("http://127.0.0.1:1", "http://127.0.0.1:1", filepath.Join(dir, "music"))

	return New(cfg, st, mus), st, dataFile
}

func doRequest(s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestCreateAndList(t *testing.T) {
	s, _, dataFile := testServer(t)

	w := doRequest(s, "POST", "/api/schedules",
		`{"title":"Standup","date":"2030-01-07","time":"09:00","repeat":"Daily"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}

	var created model.ScheduleEntry
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("bad create body: %v", err)
	}
	if created.ID == "" || created.Title != "Standup" || created.Repeat != model.RepeatDaily {
		t.Errorf("created = %+v", created)
	}

	// Mutation persisted before responding.
	if _, err := os.Stat(dataFile); err != nil {
		t.Errorf("create did not save: %v", err)
	}

	w = doRequest(s, "GET", "/api/schedules", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var listed []model.ScheduleEntry
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("bad list body: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Errorf("listed = %+v", listed)
	}
}

func TestCreateAlignsPastRepeatingEntry(t *testing.T) {
	s, _, _ := testServer(t)
	now, _ := time.ParseInLocation("2006-01-02 15:04", "2025-01-06 09:01", time.Local)
	s.Clock = scheduler.MockClock{MockTime: now}

	w := doRequest(s, "POST", "/api/schedules",
		`{"title":"Standup","date":"2025-01-06","time":"09:00","repeat":"Daily"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}

	var created model.ScheduleEntry
	json.Unmarshal(w.Body.Bytes(), &created)
	if created.Date != "2025-01-07" || created.Time != "09:00" {
		t.Errorf("created at %s %s, want 2025-01-07 09:00", created.Date, created.Time)
	}
}

func TestCreateValidation(t *testing.T) {
	s, st, _ := testServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"blank title", `{"title":"","date":"2030-01-07","time":"09:00"}`},
		{"missing date", `{"title":"A","time":"09:00"}`},
		{"garbage date", `{"title":"A","date":"tomorrow","time":"09:00"}`},
		{"malformed body", `{"title": WHAT`},
		{"empty body", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(s, "POST", "/api/schedules", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
	if st.Count() != 0 {
		t.Errorf("rejected creates mutated the store: %d", st.Count())
	}
}

func TestCreateUnknownRepeatFallsBackToNone(t *testing.T) {
	s, _, _ := testServer(t)
	w := doRequest(s, "POST", "/api/schedules",
		`{"title":"A","date":"2030-01-07","time":"09:00","repeat":"Hourly"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	var created model.ScheduleEntry
	json.Unmarshal(w.Body.Bytes(), &created)
	if created.Repeat != model.RepeatNone {
		t.Errorf("repeat = %v, want None", created.Repeat)
	}
}

func TestDelete(t *testing.T) {
	s, st, _ := testServer(t)
	created, err := st.Add(model.NewEntry("A", "2030-01-07", "09:00", model.RepeatNone))
	if err != nil {
		t.Fatal(err)
	}

	if w := doRequest(s, "DELETE", "/api/schedules", ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing id status = %d, want 400", w.Code)
	}
	if w := doRequest(s, "DELETE", "/api/schedules?id=nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", w.Code)
	}
	if w := doRequest(s, "DELETE", "/api/schedules?id="+created.ID, ""); w.Code != http.StatusOK {
		t.Errorf("delete status = %d, want 200", w.Code)
	}
	if st.Count() != 0 {
		t.Errorf("entry not removed")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _, _ := testServer(t)
	if w := doRequest(s, "PUT", "/api/schedules", "{}"); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestMusicRoutesRequireParams(t *testing.T) {
	s, _, _ := testServer(t)

	tests := []struct {
		target string
	}{
		{"/api/music/search"},
		{"/api/music/comments"},
		{"/api/music/lyric"},
	}
	for _, tt := range tests {
		if w := doRequest(s, "GET", tt.target, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", tt.target, w.Code)
		}
	}
}

func TestMusicRoutesEmptyUpstreamIsStill200(t *testing.T) {
	s, _, _ := testServer(t)

	w := doRequest(s, "GET", "/api/music/search?q=test", "")
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	var matches []music.Match
	if err := json.Unmarshal(w.Body.Bytes(), &matches); err != nil {
		t.Fatalf("search body: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("matches = %v", matches)
	}

	w = doRequest(s, "GET", "/api/music/lyric?id=42", "")
	if w.Code != http.StatusOK {
		t.Fatalf("lyric status = %d", w.Code)
	}
	var lyric map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &lyric); err != nil {
		t.Fatalf("lyric body: %v", err)
	}
	if _, present := lyric["lyric"]; !present {
		t.Error("lyric key missing")
	}
}

func TestHealth(t *testing.T) {
	s, _, _ := testServer(t)
	w := doRequest(s, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}
}

func TestDashboardMissingFile(t *testing.T) {
	s, _, _ := testServer(t)
	if w := doRequest(s, "GET", "/", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
