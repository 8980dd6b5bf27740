package music

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"memo-bell/internal/laxjson"
)

// fallbackTier talks to the secondary form-POST API. Its search shape
// is flat (songid/title/author/url/pic); results missing an audio URL
// are resolved through the primary song-url endpoint.
type fallbackTier struct {
	base       string
	client     *http.Client
	resolveURL func(id string) string
}

func (t *fallbackTier) Search(keyword string, limit int) []Match {
	form := url.Values{}
	form.Set("input", keyword)
	form.Set("filter", "name")
	form.Set("type", "netease")
	form.Set("page", "1")

	resp, err := t.client.Post(t.base, "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	root := laxjson.AsMap(laxjson.Parse(string(data)))
	songs := laxjson.AsList(root["songs"])

	var matches []Match
	for _, o := range songs {
		song := laxjson.AsMap(o)
		id := laxjson.AsString(song["songid"])
		audio := laxjson.AsString(song["url"])
		if audio == "" && t.resolveURL != nil {
			audio = t.resolveURL(id)
		}
		matches = append(matches, Match{
			ID:     id,
			Title:  laxjson.AsString(song["title"]),
			Artist: laxjson.AsString(song["author"]),
			URL:    audio,
			Cover:  laxjson.AsString(song["pic"]),
		})
		if len(matches) >= limit {
			break
		}
	}
	return matches
}

func (t *fallbackTier) HotComments(id string, limit int) []Comment {
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

func (t *fallbackTier) Lyric(id string) string {
	body, ok := t.get(t.base + "/lyric?id=" + url.QueryEscape(id))
	if !ok {
		return ""
	}
	return parseLyric(body)
}

func (t *fallbackTier) get(rawURL string) (string, bool) {
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
