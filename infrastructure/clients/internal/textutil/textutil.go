package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// RuneLen counts characters the way platforms meter content limits
// (runes, not bytes).
func RuneLen(s string) int { return utf8.RuneCountInString(s) }

// Truncate shortens content to at most limit runes, preferring to break on
// whitespace so words stay intact, and appends an ellipsis when something
// was cut. It never splits a rune and never exceeds limit.
func Truncate(content string, limit int) string {
	if limit <= 0 || RuneLen(content) <= limit {
		return content
	}
	const ellipsis = "…"
	runes := []rune(content)
	cut := limit - 1 // reserve one rune for the ellipsis
	if cut <= 0 {
		return string(runes[:limit])
	}
	// Walk back to the last whitespace so we do not cut mid-word. Give up
	// past half the budget; a hard cut beats returning almost nothing.
	breakAt := cut
	for i := cut; i > cut/2; i-- {
		if unicode.IsSpace(runes[i-1]) {
			breakAt = i - 1
			break
		}
	}
	return strings.TrimRight(string(runes[:breakAt]), " \t\n") + ellipsis
}

// ExtractHashtags returns lowercased #tags found in text, in first-seen
// order, without duplicates.
func ExtractHashtags(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '#' {
			continue
		}
		j := i + 1
		for j < len(runes) && isTagRune(runes[j]) {
			j++
		}
		if j > i+1 {
			tag := strings.ToLower(string(runes[i:j]))
			if _, ok := seen[tag]; !ok {
				seen[tag] = struct{}{}
				out = append(out, tag)
			}
		}
		i = j - 1
	}
	return out
}

// ExtractMentions returns @handles found in text, in first-seen order.
func ExtractMentions(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '@' {
			continue
		}
		j := i + 1
		for j < len(runes) && isTagRune(runes[j]) {
			j++
		}
		if j > i+1 {
			m := string(runes[i:j])
			if _, ok := seen[m]; !ok {
				seen[m] = struct{}{}
				out = append(out, m)
			}
		}
		i = j - 1
	}
	return out
}

// ExtractLinks returns http(s) URLs found in text, in order.
func ExtractLinks(text string) []string {
	var out []string
	for _, field := range strings.Fields(text) {
		trimmed := strings.TrimRight(field, ".,;:!?)")
		if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
			out = append(out, trimmed)
		}
	}
	return out
}

func isTagRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
