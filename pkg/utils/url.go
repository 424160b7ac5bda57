package utils

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// ResolveHTTP resolves ref against base, drops the fragment and keeps only
// http(s) results. ok is false for mailto:, javascript:, data: and the like.
func ResolveHTTP(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}
	relURL, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(relURL)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	abs.Fragment = ""
	abs.RawFragment = ""
	return abs.String(), true
}

// IsAbsoluteHTTP reports whether raw parses as an absolute http(s) URL.
func IsAbsoluteHTTP(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Excerpt returns at most n runes of s, trimmed, with an ellipsis when cut.
func Excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
