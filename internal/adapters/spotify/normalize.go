package spotify

import (
	"strings"
	"unicode"
)

var noiseTokens = map[string]struct{}{
	"clean":      {},
	"deluxe":     {},
	"edition":    {},
	"edit":       {},
	"explicit":   {},
	"feat":       {},
	"featuring":  {},
	"ft":         {},
	"remaster":   {},
	"remastered": {},
	"version":    {},
}

// normalizeSearchTerm lowercases the term, strips bracketed segments and
// punctuation, and drops release-noise tokens that hurt search relevance.
func normalizeSearchTerm(term string) string {
	if term == "" {
		return ""
	}

	var stripped strings.Builder
	depth := 0
	for _, r := range strings.ToLower(term) {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		default:
			if depth > 0 {
				continue
			}
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				stripped.WriteRune(r)
			} else {
				stripped.WriteRune(' ')
			}
		}
	}

	tokens := strings.Fields(stripped.String())
	cleaned := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, drop := noiseTokens[token]; drop {
			continue
		}
		cleaned = append(cleaned, token)
	}
	return strings.Join(cleaned, " ")
}

func fallbackIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
