// Package laxjson is a forgiving JSON value parser for third-party API
// bodies. Upstream music endpoints occasionally return truncated or
// slightly malformed JSON; the standard decoder rejects those outright,
// so this parser degrades instead: bad booleans become false, bad
// numbers become 0, truncated containers keep whatever was read.
// It is decode-only; responses we produce ourselves go through gin.
package laxjson

import (
	"strconv"
	"strings"
)

type parser struct {
	text string
	pos  int
}

// Parse returns the decoded value: map[string]any, []any, string,
// int64, float64, bool or nil. It never returns an error.
func Parse(text string) any {
	p := &parser{text: text}
	return p.value()
}

func (p *parser) value() any {
	p.skipSpace()
	if p.pos >= len(p.text) {
		return nil
	}
	switch c := p.text[p.pos]; {
	case c == '{':
		return p.object()
	case c == '[':
		return p.array()
	case c == '"':
		return p.str()
	case c == 't' || c == 'f':
		return p.boolean()
	case c == 'n':
		return p.null()
	default:
		return p.number()
	}
}

func (p *parser) object() map[string]any {
	m := map[string]any{}
	p.pos++ // '{'
	if p.peek('}') {
		p.pos++
		return m
	}
	for p.pos < len(p.text) {
		key := p.str()
		p.expect(':')
		m[key] = p.value()
		if p.peek('}') {
			p.pos++
			break
		}
		p.expect(',')
		p.skipSpace()
		if p.pos < len(p.text) && p.text[p.pos] != '"' {
			// Unrecoverable key position; keep what we have.
			break
		}
	}
	return m
}

func (p *parser) array() []any {
	list := []any{}
	p.pos++ // '['
	if p.peek(']') {
		p.pos++
		return list
	}
	for p.pos < len(p.text) {
		list = append(list, p.value())
		if p.peek(']') {
			p.pos++
			break
		}
		p.expect(',')
	}
	return list
}

func (p *parser) str() string {
	p.expect('"')
	var sb strings.Builder
	for p.pos < len(p.text) {
		c := p.text[p.pos]
		p.pos++
		if c == '"' {
			break
		}
		if c == '\\' && p.pos < len(p.text) {
			esc := p.text[p.pos]
			p.pos++
			switch esc {
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			case '/':
				sb.WriteByte('/')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'u':
				if p.pos+4 <= len(p.text) {
					if code, err := strconv.ParseUint(p.text[p.pos:p.pos+4], 16, 32); err == nil {
						sb.WriteRune(rune(code))
					}
					p.pos += 4
				}
			default:
				sb.WriteByte(esc)
			}
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func (p *parser) boolean() bool {
	if strings.HasPrefix(p.text[p.pos:], "true") {
		p.pos += 4
		return true
	}
	if strings.HasPrefix(p.text[p.pos:], "false") {
		p.pos += 5
		return false
	}
	// Unrecognized boolean-looking token.
	p.pos++
	return false
}

func (p *parser) null() any {
	if strings.HasPrefix(p.text[p.pos:], "null") {
		p.pos += 4
	} else {
		p.pos++
	}
	return nil
}

func (p *parser) number() any {
	start := p.pos
	for p.pos < len(p.text) {
		c := p.text[p.pos]
		if (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' {
			p.pos++
		} else {
			break
		}
	}
	raw := p.text[start:p.pos]
	if raw == "" {
		// Not a number at all; consume one byte so callers make progress.
		p.pos++
		return int64(0)
	}
	if strings.ContainsAny(raw, ".eE") {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return int64(0)
		}
		return f
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return int64(0)
	}
	return n
}

func (p *parser) expect(c byte) {
	p.skipSpace()
	if p.pos < len(p.text) && p.text[p.pos] == c {
		p.pos++
	}
}

func (p *parser) peek(c byte) bool {
	p.skipSpace()
	return p.pos < len(p.text) && p.text[p.pos] == c
}

func (p *parser) skipSpace() {
	for p.pos < len(p.text) {
		switch p.text[p.pos] {
		case ' ', '\n', '\r', '\t':
			p.pos++
		default:
			return
		}
	}
}

// ---------------------------------------------------------
// Safe accessors for walking parsed values
// ---------------------------------------------------------

// AsMap returns v as an object, or an empty map for anything else.
func AsMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// AsList returns v as an array, or nil for anything else.
func AsList(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return nil
}

// AsString renders v as a string. Numbers and booleans are formatted,
// nil becomes "".
func AsString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// AsInt64 coerces v to an integer, 0 when it cannot.
func AsInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case float64:
		return int64(t)
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// AsBool returns v as a boolean, false for anything else.
func AsBool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
