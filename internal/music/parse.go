package music

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"memo-bell/internal/laxjson"
)

// Response-body extractors shared by both tiers. Each JSON extractor
// has a regex twin used when the body is malformed or truncated enough
// that the parse yields nothing.

var (
	commentPattern = regexp.MustCompile(`(?s)"nickname":"(.*?)".*?"content":"(.*?)".*?"likedCount":(\d+).*?"time":(\d+)`)
	lyricPattern   = regexp.MustCompile(`(?s)"lyric":"(.*?)"`)
)

func parseComments(body string, limit int) []Comment {
	root := laxjson.AsMap(laxjson.Parse(body))
	hot := laxjson.AsList(root["hotComments"])

	var comments []Comment
	for _, o := range hot {
		c := laxjson.AsMap(o)
		label := laxjson.AsString(c["timeStr"])
		if label == "" {
			label = epochDate(laxjson.AsInt64(c["time"]))
		}
		comments = append(comments, Comment{
			Nick:    laxjson.AsString(laxjson.AsMap(c["user"])["nickname"]),
			Time:    label,
			Liked:   strconv.FormatInt(laxjson.AsInt64(c["likedCount"]), 10),
			Content: laxjson.AsString(c["content"]),
		})
		if len(comments) >= limit {
			break
		}
	}
	return comments
}

func parseCommentsRegex(body string, limit int) []Comment {
	var comments []Comment
	for _, m := range commentPattern.FindAllStringSubmatch(body, limit) {
		epoch, _ := strconv.ParseInt(m[4], 10, 64)
		comments = append(comments, Comment{
			Nick:    regexUnescape(m[1]),
			Time:    epochDate(epoch),
			Liked:   m[3],
			Content: strings.ReplaceAll(regexUnescape(m[2]), "\\n", "\n"),
		})
	}
	return comments
}

func parseLyric(body string) string {
	root := laxjson.AsMap(laxjson.Parse(body))
	if text := laxjson.AsString(laxjson.AsMap(root["lrc"])["lyric"]); strings.TrimSpace(text) != "" {
		return text
	}
	if laxjson.AsBool(root["pureMusic"]) {
		return InstrumentalLyric
	}
	if m := lyricPattern.FindStringSubmatch(body); m != nil {
		return strings.ReplaceAll(regexUnescape(m[1]), "\\n", "\n")
	}
	return ""
}

func epochDate(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).Format("2006-01-02")
}

// regexUnescape undoes the JSON string escapes still present in text
// captured straight out of a raw body.
func regexUnescape(s string) string {
	s = strings.ReplaceAll(s, `\/`, "/")
	s = strings.ReplaceAll(s, `\\`, `\`)
	return strings.ReplaceAll(s, `\"`, `"`)
}
