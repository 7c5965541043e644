package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CleanText lower-cases, accent-folds and whitespace-collapses a value.
// Empty or blank input returns "".
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if folded, _, err := transform.String(accentFolder, s); err == nil {
		s = folded
	}
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// DigitsSuffix reduces a phone value to its last ten digits. Values with
// fewer than ten digits are rejected as unusable.
func DigitsSuffix(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 10 {
		return ""
	}
	return digits[len(digits)-10:]
}

// Domain extracts the bare host from a website value: scheme and www prefix
// stripped, path cut at the first slash.
func Domain(url string) string {
	u := strings.ToLower(strings.TrimSpace(url))
	for _, prefix := range []string{"https://", "http://", "www."} {
		u = strings.TrimPrefix(u, prefix)
	}
	if i := strings.IndexByte(u, '/'); i >= 0 {
		u = u[:i]
	}
	return strings.TrimSpace(u)
}

// SplitCategories splits a comma-separated category value into a cleaned,
// deduplicated list, preserving first-seen order.
func SplitCategories(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(s, ",") {
		c := CleanText(part)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// TokenCount counts whitespace-separated tokens; the inference-time richness
// proxy for attribute values.
func TokenCount(s string) int {
	return len(strings.Fields(s))
}

// AlnumCollapse keeps letters, digits and spaces, collapsing runs of
// everything else to single spaces. Used by the evaluator's text comparison.
func AlnumCollapse(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
