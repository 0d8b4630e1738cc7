package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/conform/internal/suite"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Selection
	}{
		{name: "empty", args: nil, want: Selection{}},
		{name: "single index", args: []string{"3"}, want: Selection{Indices: []int{3}}},
		{name: "index list", args: []string{"3,1,2"}, want: Selection{Indices: []int{3, 1, 2}}},
		{name: "duplicates removed", args: []string{"2,2,1", "2"}, want: Selection{Indices: []int{2, 1}}},
		{name: "keyword", args: []string{"redirect"}, want: Selection{Keyword: "redirect"}},
		{name: "first keyword wins", args: []string{"json", "redirect"}, want: Selection{Keyword: "json"}},
		{name: "indices and keyword", args: []string{"json", "4"}, want: Selection{Indices: []int{4}, Keyword: "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelection(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSelection_Invalid(t *testing.T) {
	for _, arg := range []string{"0", "1,0", "1,x", "2-4"} {
		_, err := ParseSelection([]string{arg})
		assert.ErrorIs(t, err, ErrSelection, arg)
	}
}

func testCases(args ...[]string) []suite.TestCase {
	cases := make([]suite.TestCase, len(args))
	for i, a := range args {
		cases[i] = suite.TestCase{Index: i + 1, Arguments: a}
	}
	return cases
}

func TestSelection_Apply(t *testing.T) {
	cases := testCases(
		[]string{"example.com"},
		[]string{"--url", "https://curl.se/we/are.html", "--redirect", "here.html"},
		[]string{"--json", "example.com"},
	)

	t.Run("all", func(t *testing.T) {
		got, err := Selection{}.Apply(cases)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("keyword", func(t *testing.T) {
		got, err := Selection{Keyword: "example"}.Apply(cases)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 1, got[0].Index)
		assert.Equal(t, 3, got[1].Index)
	})

	t.Run("keyword matches nothing", func(t *testing.T) {
		got, err := Selection{Keyword: "nope"}.Apply(cases)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("indices win over keyword", func(t *testing.T) {
		got, err := Selection{Indices: []int{3, 2}, Keyword: "nope"}.Apply(cases)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 3, got[0].Index)
		assert.Equal(t, 2, got[1].Index)
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := Selection{Indices: []int{4}}.Apply(cases)
		assert.ErrorIs(t, err, ErrSelection)
		assert.Contains(t, err.Error(), "test 4 does not exist")
	})
}

func TestSelection_String(t *testing.T) {
	assert.Equal(t, "all tests", Selection{}.String())
	assert.Equal(t, `keyword "json"`, Selection{Keyword: "json"}.String())
	assert.Equal(t, "tests 2,5", Selection{Indices: []int{2, 5}, Keyword: "json"}.String())
}
