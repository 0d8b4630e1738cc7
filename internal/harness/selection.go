package harness

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/conform/internal/suite"
)

// ErrSelection reports an invalid index selection.
var ErrSelection = errors.New("invalid selection")

// Selection chooses which cases of a suite run. Indices, when present, win
// over Keyword.
type Selection struct {
	// Indices are 1-based case indices in first-occurrence order.
	Indices []int

	// Keyword keeps only cases with an argument containing it.
	Keyword string
}

// ParseSelection interprets positional arguments. An argument starting with a
// digit is a comma-separated index list; the first other argument is the
// keyword.
func ParseSelection(args []string) (Selection, error) {
	var sel Selection
	seen := make(map[int]bool)
	for _, arg := range args {
		if arg == "" {
			continue
		}
		if arg[0] < '0' || arg[0] > '9' {
			if sel.Keyword == "" {
				sel.Keyword = arg
			}
			continue
		}
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return Selection{}, fmt.Errorf("%w: %q is not a test number", ErrSelection, part)
			}
			if n < 1 {
				return Selection{}, fmt.Errorf("%w: test numbers start at 1, got %d", ErrSelection, n)
			}
			if !seen[n] {
				seen[n] = true
				sel.Indices = append(sel.Indices, n)
			}
		}
	}
	return sel, nil
}

// ByIndex reports whether the selection is an explicit index list.
func (s Selection) ByIndex() bool {
	return len(s.Indices) > 0
}

// Apply returns the selected cases. Index selections keep their requested
// order; keyword selections keep suite order.
func (s Selection) Apply(cases []suite.TestCase) ([]suite.TestCase, error) {
	if s.ByIndex() {
		out := make([]suite.TestCase, 0, len(s.Indices))
		for _, idx := range s.Indices {
			if idx < 1 || idx > len(cases) {
				return nil, fmt.Errorf("%w: test %d does not exist (suite has %d tests)", ErrSelection, idx, len(cases))
			}
			out = append(out, cases[idx-1])
		}
		return out, nil
	}

	out := make([]suite.TestCase, 0, len(cases))
	for _, tc := range cases {
		if tc.MatchesKeyword(s.Keyword) {
			out = append(out, tc)
		}
	}
	return out, nil
}

func (s Selection) String() string {
	switch {
	case s.ByIndex():
		parts := make([]string, len(s.Indices))
		for i, n := range s.Indices {
			parts[i] = strconv.Itoa(n)
		}
		return "tests " + strings.Join(parts, ",")
	case s.Keyword != "":
		return fmt.Sprintf("keyword %q", s.Keyword)
	default:
		return "all tests"
	}
}
