package api

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
)

// Music lookup pass-throughs. Upstream trouble is never a failure
// here: both tiers coming up empty still answers 200 with an empty
// result, and callers treat "empty" as a normal outcome.

// SearchMusic finds tracks matching the q query param.
func (s *Server) SearchMusic(c *gin.Context) {
	keyword := c.Query("q")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing q"})
		return
	}
	if decoded, err := url.QueryUnescape(keyword); err == nil {
		keyword = decoded
	}

	c.JSON(http.StatusOK, s.music.Search(keyword, s.cfg.Music.SearchLimit))
}

// MusicComments returns a track's hot comments, upstream order.
func (s *Server) MusicComments(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing id"})
		return
	}

	c.JSON(http.StatusOK, s.music.HotComments(id, s.cfg.Music.SearchLimit))
}

// MusicLyric returns a track's lyric text, possibly empty.
func (s *Server) MusicLyric(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing id"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"lyric": s.music.Lyric(id)})
}
