package suite

import (
	"strings"

	"github.com/roach88/conform/internal/expect"
	"github.com/roach88/conform/internal/gate"
)

// TestCase is one declared invocation of the subject and its expectations.
type TestCase struct {
	// Index is the 1-based position in the suite.
	Index int

	// Arguments are passed verbatim to the subject.
	Arguments []string

	// Expected holds the per-field expectations.
	Expected expect.Set

	// Requirements gate whether the case runs.
	Requirements gate.Requirements
}

// MatchesKeyword reports whether any argument contains keyword.
// The empty keyword matches every case.
func (tc TestCase) MatchesKeyword(keyword string) bool {
	if keyword == "" {
		return true
	}
	for _, arg := range tc.Arguments {
		if strings.Contains(arg, keyword) {
			return true
		}
	}
	return false
}

// Args returns a copy of the argument vector.
func (tc TestCase) Args() []string {
	out := make([]string, len(tc.Arguments))
	copy(out, tc.Arguments)
	return out
}
