package kvstore

import (
	"regexp"
	"strings"
)

const maxStringLen = 1000

var (
	angleBrackets = regexp.MustCompile(`[<>]`)
	jsProtocol    = regexp.MustCompile(`(?i)javascript:`)
	eventHandler  = regexp.MustCompile(`(?i)on\w+=`)
)

// SanitizeString strips markup and script vectors, trims, and caps the
// result at 1000 runes.
func SanitizeString(s string) string {
	s = angleBrackets.ReplaceAllString(s, "")
	s = jsProtocol.ReplaceAllString(s, "")
	s = eventHandler.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxStringLen {
		s = string(r[:maxStringLen])
	}
	return s
}

// Sanitize walks a decoded JSON tree and sanitizes every string, map
// keys included. Other scalars pass through.
func Sanitize(v any) any {
	switch t := v.(type) {
	case string:
		return SanitizeString(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[SanitizeString(k)] = Sanitize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Sanitize(val)
		}
		return out
	default:
		return v
	}
}
