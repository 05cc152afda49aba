package pipeline

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/noeunkim/black-white-siseon/internal/search"
)

// Low-signal domains excluded from news results: encyclopedic wikis, blog
// platforms, code hosts. Video links bypass the list.
var blockedDomains = []string{
	"huggingface.co",
	"github.com",
	"stackoverflow.com",
	"medium.com",
	"brunch.co.kr",
	"namu.wiki",
	"tistory.com",
	"velog.io",
	"notion.so",
	"wikipedia.org",
	"namuwiki.kr",
}

const minResultContentLen = 50

// filterResults deduplicates by canonical URL, drops low-signal and
// non-Korean hits, and truncates to limit, preserving provider rank order.
func filterResults(results []search.Result, limit int) []search.Result {
	seen := make(map[string]bool, len(results))
	filtered := make([]search.Result, 0, limit)

	for _, r := range results {
		key := canonicalURL(r.URL)
		if seen[key] {
			continue
		}
		seen[key] = true

		if !isValidResult(&r) {
			continue
		}

		filtered = append(filtered, r)
		if len(filtered) >= limit {
			break
		}
	}
	return filtered
}

// canonicalURL strips the query string and fragment, so hits differing only
// in tracking parameters collapse to one.
func canonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func isValidResult(r *search.Result) bool {
	if !containsHangul(r.Title) {
		return false
	}

	lower := strings.ToLower(r.URL)

	// Video links are always admissible regardless of the block-list.
	if strings.Contains(lower, "youtube.com") || strings.Contains(lower, "youtu.be") {
		return true
	}

	for _, blocked := range blockedDomains {
		if strings.Contains(lower, blocked) {
			return false
		}
	}

	return len(r.Content) >= minResultContentLen
}

// containsHangul reports whether s has at least one Hangul syllable. Results
// without any are assumed off-target for Korean news coverage.
func containsHangul(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}
