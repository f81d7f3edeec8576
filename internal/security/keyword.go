package security

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxKeywordLength bounds a single keyword token before it is ever handed
// to a pattern matcher, the ReDoS guard required by §6.2: "never
// pattern-compile without a length/complexity limit".
const MaxKeywordLength = 128

// MaxKeywords bounds how many keyword tokens a single search_keywords call
// may carry, independent of per-token length.
const MaxKeywords = 32

var reservedPatternChars = regexp.MustCompile(`[\\.^$*+?()\[\]{}|]`)

// EscapeKeyword renders a user-supplied keyword safe for use inside a
// LIKE/FTS pattern: it rejects empty keywords, keywords longer than
// MaxKeywordLength and control characters, and escapes characters with
// significance to the underlying matcher instead of interpolating them raw.
func EscapeKeyword(kw string) (string, error) {
	if kw == "" {
		return "", fmt.Errorf("%w: empty keyword", ErrInvalidPath)
	}
	if len(kw) > MaxKeywordLength {
		return "", fmt.Errorf("%w: keyword exceeds %d characters", ErrInvalidPath, MaxKeywordLength)
	}
	for _, r := range kw {
		if r < 0x20 && r != '\t' {
			return "", fmt.Errorf("%w: keyword contains control character", ErrInvalidPath)
		}
	}
	escaped := reservedPatternChars.ReplaceAllStringFunc(kw, func(s string) string {
		return "\\" + s
	})
	return escaped, nil
}

// ValidateKeywords applies EscapeKeyword to every element and enforces
// MaxKeywords, returning the escaped set in the same order.
func ValidateKeywords(keywords []string) ([]string, error) {
	if len(keywords) > MaxKeywords {
		return nil, fmt.Errorf("%w: more than %d keywords", ErrInvalidPath, MaxKeywords)
	}
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		trimmed := strings.TrimSpace(kw)
		escaped, err := EscapeKeyword(trimmed)
		if err != nil {
			return nil, err
		}
		out = append(out, escaped)
	}
	return out, nil
}
