package api

import (
	"io"
	"log"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"memo-bell/internal/laxjson"
	"memo-bell/internal/model"
	"memo-bell/internal/music"
	"memo-bell/internal/scheduler"
)

// ListSchedules returns every entry, sorted by occurrence.
func (s *Server) ListSchedules(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.List())
}

// CreateSchedule adds an entry from a JSON body. The body is decoded
// with the tolerant parser, so a malformed payload degrades to blank
// fields and fails validation instead of erroring out of the decoder.
func (s *Server) CreateSchedule(c *gin.Context) {
	// 1. Decode body
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	payload := laxjson.AsMap(laxjson.Parse(string(raw)))

	entry := model.NewEntry(
		laxjson.AsString(payload["title"]),
		laxjson.AsString(payload["date"]),
		laxjson.AsString(payload["time"]),
		model.ParseRepeatRule(laxjson.AsString(payload["repeat"])),
	)
	entry.MusicTitle = laxjson.AsString(payload["musicTitle"])
	entry.MusicURL = laxjson.AsString(payload["musicUrl"])

	if !entry.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title/date/time must not be blank"})
		return
	}

	// 2. A repeating entry whose instant already passed starts at its
	// next occurrence.
	entry.AlignToFuture(s.clock().Now())

	// 3. Download the audio before touching the store; network I/O
	// never runs under the store lock. Failure is not fatal — the
	// entry is created with an empty musicFile and retried later.
	if entry.MusicURL != "" && music.CachedFile(entry.MusicFile) == "" {
		if saved := s.music.Download(entry.MusicURL, entry.ID); saved != "" {
			entry.MusicFile = saved
			if entry.MusicTitle == "" {
				entry.MusicTitle = music.ProbeTitle(saved)
			}
		}
	}

	// 4. Insert and persist
	created, err := s.store.Add(entry)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.Save(); err != nil {
		slog.Error("save after create failed", "error", err)
	}
	s.stateChanged()

	log.Printf("➕ Added schedule: %s (%s %s)", created.Title, created.Date, created.Time)
	c.JSON(http.StatusCreated, created)
}

// DeleteSchedule removes an entry by the id query param.
func (s *Server) DeleteSchedule(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing id"})
		return
	}

	// A miss is a no-op: nothing mutated, nothing saved.
	if !s.store.Remove(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if err := s.store.Save(); err != nil {
		slog.Error("save after delete failed", "error", err)
	}
	s.stateChanged()

	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": id})
}

// clock gives handlers the same time source as the rest of the app.
func (s *Server) clock() scheduler.Clock {
	if s.Clock != nil {
		return s.Clock
	}
	return scheduler.RealClock{}
}
