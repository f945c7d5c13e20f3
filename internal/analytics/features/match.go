package features

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Matcher decides whether two normalized descriptions refer to the same thing.
type Matcher interface {
	Match(a, b string) bool
}

// SubstringMatcher matches when either description contains the other.
// Empty descriptions never match.
type SubstringMatcher struct{}

// Match implements Matcher.
func (SubstringMatcher) Match(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// LevenshteinMatcher extends substring matching with an edit-distance bound.
type LevenshteinMatcher struct {
	MaxDistance int
}

// Match implements Matcher.
func (m LevenshteinMatcher) Match(a, b string) bool {
	if (SubstringMatcher{}).Match(a, b) {
		return true
	}
	if a == "" || b == "" {
		return false
	}
	return levenshtein.ComputeDistance(a, b) <= m.MaxDistance
}

// Matcher kinds accepted by NewMatcher.
const (
	MatchSubstring   = "substring"
	MatchLevenshtein = "levenshtein"
)

// NewMatcher returns the matcher named by kind. An empty kind selects substring.
func NewMatcher(kind string, maxDistance int) (Matcher, error) {
	switch kind {
	case "", MatchSubstring:
		return SubstringMatcher{}, nil
	case MatchLevenshtein:
		return LevenshteinMatcher{MaxDistance: maxDistance}, nil
	}
	return nil, fmt.Errorf("unknown similarity matcher %q", kind)
}
