package util

import "strings"

// ContainsEither reports whether either string contains the other, ignoring
// case. Empty strings never match.
func ContainsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	a, b = strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(a, b) || strings.Contains(b, a)
}
