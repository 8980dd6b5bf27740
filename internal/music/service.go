// Package music resolves search keywords and track ids against a
// primary remote music API, falling back to a secondary API with a
// different response shape, and caches downloaded audio on disk keyed
// by schedule entry id. Upstream failure is never an error to the
// caller: every lookup returns an empty result instead.
package music

import (
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/prometheus/client_golang/prometheus"
)

// InstrumentalLyric is returned when upstream flags a track as pure
// instrumental instead of sending lyric text.
const InstrumentalLyric = "Pure music, enjoy."

var fallbackHits = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "memobell_music_fallback_total", Help: "Lookups served by a non-primary tier"},
	[]string{"kind"},
)

func RegisterMetrics() {
	prometheus.MustRegister(fallbackHits)
}

// Match is one search result.
type Match struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	URL    string `json:"url"`
	Cover  string `json:"cover"`
}

// Comment is one hot comment, ranked as returned by upstream.
type Comment struct {
	Nick    string `json:"nick"`
	Time    string `json:"time"`
	Liked   string `json:"liked"`
	Content string `json:"content"`
}

// tier is one upstream endpoint in the fallback chain. Each lookup
// returns its zero value ("no result") on any transport or parse
// failure.
type tier interface {
	Search(keyword string, limit int) []Match
	HotComments(id string, limit int) []Comment
	Lyric(id string) string
}

type Service struct {
	tiers []tier
	dir   string
	dl    *http.Client // downloads get a longer deadline than lookups
}

// New builds a service with the primary JSON API first and the
// form-POST API second. musicDir is created eagerly; a failure there
// only disables downloads, not lookups.
func New(primaryBase, fallbackBase, musicDir string) *Service {
	client := &http.Client{Timeout: 10 * time.Second}
	primary := &primaryTier{base: strings.TrimRight(primaryBase, "/"), client: client}
	fallback := &fallbackTier{
		base:       strings.TrimRight(fallbackBase, "/"),
		client:     client,
		resolveURL: primary.songURL,
	}

	if err := os.MkdirAll(musicDir, 0755); err != nil {
		log.Printf("⚠️ Failed to create music dir: %v", err)
	}

	return &Service{
		tiers: []tier{primary, fallback},
		dir:   musicDir,
		dl:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Search tries each tier in order and returns the first non-empty
// match list, at most limit long. Empty when every tier fails.
func (s *Service) Search(keyword string, limit int) []Match {
	for i, t := range s.tiers {
		if matches := t.Search(keyword, limit); len(matches) > 0 {
			if i > 0 {
				fallbackHits.WithLabelValues("search").Inc()
			}
			return matches
		}
	}
	return []Match{}
}

// HotComments tries each tier in order, upstream ranking preserved.
func (s *Service) HotComments(id string, limit int) []Comment {
	for i, t := range s.tiers {
		if comments := t.HotComments(id, limit); len(comments) > 0 {
			if i > 0 {
				fallbackHits.WithLabelValues("comments").Inc()
			}
			return comments
		}
	}
	return []Comment{}
}

// Lyric returns plain lyric text, possibly empty, or the instrumental
// sentinel.
func (s *Service) Lyric(id string) string {
	for i, t := range s.tiers {
		if lrc := t.Lyric(id); lrc != "" {
			if i > 0 {
				fallbackHits.WithLabelValues("lyric").Inc()
			}
			return lrc
		}
	}
	return ""
}

// CachedFile returns the path recorded for an entry if the file still
// exists on disk, otherwise "". Callers use this before Download.
func CachedFile(path string) string {
	if path == "" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return ""
	}
	return path
}

// Download fetches url into the cache dir as entryID + extension and
// returns the local path, or "" on any failure. The write lands via
// rename so a partial download never becomes the cached file.
func (s *Service) Download(url, entryID string) string {
	resp, err := s.dl.Get(url)
	if err != nil {
		log.Printf("⚠️ Music download failed: %v", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("⚠️ Music download status %d for %s", resp.StatusCode, url)
		return ""
	}

	dest := filepath.Join(s.dir, entryID+guessExtension(url))
	tmp := dest + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return ""
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return ""
	}
	out.Close()
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return ""
	}

	log.Printf("📥 Cached audio for %s: %s", entryID, dest)
	return dest
}

// ProbeTitle reads the downloaded file's tags and returns its title,
// "" when tags are unreadable. Best effort only.
func ProbeTitle(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(meta.Title())
}

// guessExtension infers a file extension from the URL path, defaulting
// to .mp3 when the path carries none.
func guessExtension(url string) string {
	if q := strings.IndexByte(url, '?'); q > 0 {
		url = url[:q]
	}
	dot := strings.LastIndexByte(url, '.')
	if dot > 0 && dot < len(url)-1 && dot > strings.LastIndexByte(url, '/') {
		return url[dot:]
	}
	return ".mp3"
}
