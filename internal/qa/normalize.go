package qa

import (
	"regexp"
	"strings"
)

// \s in Go is ASCII-only; \p{Zs} picks up full-width spaces in Chinese input.
var whitespaceRun = regexp.MustCompile(`[\s\p{Zs}]+`)

// Normalize turns raw user text into the canonical query string: surrounding
// whitespace is trimmed, one trailing question mark (ASCII or full-width) is
// stripped, and internal whitespace runs collapse to a single space.
// Exactly one trailing mark is removed, so stacked marks ("really??") keep
// the rest and repeated normalization keeps peeling them; aside from that,
// re-normalizing an already normalized query is a no-op. An input of only
// punctuation normalizes to the empty string and is passed through to lookup
// unchanged.
func Normalize(raw string) string {
	q := strings.TrimSpace(raw)
	if strings.HasSuffix(q, "?") {
		q = strings.TrimSuffix(q, "?")
	} else if strings.HasSuffix(q, "？") {
		q = strings.TrimSuffix(q, "？")
	}
	q = whitespaceRun.ReplaceAllString(q, " ")
	return strings.TrimSpace(q)
}
