// ABOUTME: Pluggable text predicates used by the moderation policies
// ABOUTME: Link detection by pattern and spam detection by rune length

package moderation

import (
	"regexp"
	"unicode/utf8"
)

// Predicate reports whether text triggers a policy.
type Predicate func(text string) bool

// DefaultSpamThreshold is the rune count above which a message counts as spam.
const DefaultSpamThreshold = 1000

// linkPattern matches hierarchical URLs (http://, ftp://), the common URIs
// written without // (matrix:, mailto:, magnet:...) and bare www. hosts.
var linkPattern = regexp.MustCompile(`(?i)(?:\b[a-z][a-z0-9+.\-]{2,8}://[^\s]+|\b(?:matrix|mailto|magnet|xmpp|tel|sms):[^\s]+|\bwww\.[a-z0-9\-]+\.[^\s]+)`)

// ContainsLink is the default link predicate.
func ContainsLink(text string) bool {
	return linkPattern.MatchString(text)
}

// LongerThan returns a predicate matching text with more than n runes.
func LongerThan(n int) Predicate {
	if n <= 0 {
		n = DefaultSpamThreshold
	}
	return func(text string) bool {
		return utf8.RuneCountInString(text) > n
	}
}
