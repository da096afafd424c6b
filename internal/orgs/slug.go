package orgs

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeSlug lowercases the input, strips diacritics and collapses
// every run outside [a-z0-9] into a single hyphen.
func NormalizeSlug(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	folded, _, err := transform.String(slugFold, lowered)
	if err != nil {
		folded = lowered
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range folded {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingHyphen = b.Len() > 0
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
