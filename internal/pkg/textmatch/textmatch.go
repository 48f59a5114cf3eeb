// Package textmatch provides the loose name matching used to correlate
// incident service names with catalog tags.
package textmatch

import "strings"

// ContainsEither reports whether a contains b or b contains a, ignoring case.
// An empty string is contained in everything.
func ContainsEither(a, b string) bool {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	return strings.Contains(b, a) || strings.Contains(a, b)
}

// EqualFold reports whether a and b are equal ignoring case.
func EqualFold(a, b string) bool {
	return strings.ToLower(a) == strings.ToLower(b)
}
