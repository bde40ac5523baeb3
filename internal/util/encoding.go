package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns the NFKD form of s. Usernames typed on different
// keyboards must encode to the same credential.
func Normalize(s string) string {
	return norm.NFKD.String(s)
}

// NormalizeUsername trims surrounding whitespace and normalizes the result.
func NormalizeUsername(s string) string {
	return Normalize(strings.TrimSpace(s))
}
