// Package normalizers provides string normalization for name and date
// comparison against knowledge-base entities.
package normalizers

import (
	"strings"
)

// Name normalizes a person's name for matching: trimmed and lowercased,
// nothing more. Punctuation, suffixes and diacritics are kept so the fuzzy
// strategies see the real distance between differently written names.
func Name(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
