package music

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"memo-bell/internal/laxjson"
)

// primaryTier talks to the netease-style JSON API.
type primaryTier struct {
	base   string
	client *http.Client
}

func (t *primaryTier) Search(keyword string, limit int) []Match {
	body, ok := t.get(t.base + "/search?keywords=" + url.QueryEscape(keyword) +
		"&limit=" + strconv.Itoa(limit) + "&type=1")
	if !ok {
		return nil
	}

	root := laxjson.AsMap(laxjson.Parse(body))
	songs := laxjson.AsList(laxjson.AsMap(root["result"])["songs"])

	var matches []Match
	for _, o := range songs {
		song := laxjson.AsMap(o)
		id := laxjson.AsString(song["id"])
		matches = append(matches, Match{
			ID:     id,
			Title:  laxjson.AsString(song["name"]),
			Artist: joinArtists(song["artists"]),
			URL:    t.songURL(id),
			Cover:  laxjson.AsString(laxjson.AsMap(song["album"])["picUrl"]),
		})
		if len(matches) >= limit {
			break
		}
	}
	return matches
}

func (t *primaryTier) HotComments(id string, limit int) []Comment {
	body, ok := t.get(t.base + "/comment/hot?id=" + url.QueryEscape(id) + "&type=0")
	if !ok {
		return nil
	}
	comments := parseComments(body, limit)
	if len(comments) == 0 {
		comments = parseCommentsRegex(body, limit)
	}
	return comments
}

func (t *primaryTier) Lyric(id string) string {
	body, ok := t.get(t.base + "/lyric?id=" + url.QueryEscape(id))
	if !ok {
		return ""
	}
	return parseLyric(body)
}

// songURL resolves a track id to a playable audio URL. Also used by
// the fallback tier when its results carry no URL.
func (t *primaryTier) songURL(id string) string {
	body, ok := t.get(t.base + "/song/url?id=" + url.QueryEscape(id))
	if !ok {
		return ""
	}
	root := laxjson.AsMap(laxjson.Parse(body))
	data := laxjson.AsList(root["data"])
	if len(data) == 0 {
		return ""
	}
	return laxjson.AsString(laxjson.AsMap(data[0])["url"])
}

// get returns the response body for a 2xx GET, "" and false otherwise.
func (t *primaryTier) get(rawURL string) (string, bool) {
	resp, err := t.client.Get(rawURL)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func joinArtists(v any) string {
	var names []string
	for _, o := range laxjson.AsList(v) {
		if name := laxjson.AsString(laxjson.AsMap(o)["name"]); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}
