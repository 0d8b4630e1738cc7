package expect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromValue(t *testing.T) {
	assert.Equal(t, Presence, FromValue(true).Kind())
	assert.True(t, FromValue(true).Truthy())
	assert.Equal(t, Presence, FromValue(false).Kind())
	assert.False(t, FromValue(false).Truthy())

	lit := FromValue("http://example.com/\n")
	assert.Equal(t, Literal, lit.Kind())
	assert.Equal(t, "http://example.com/\n", lit.Value())
	assert.False(t, lit.IsStructured())

	assert.True(t, FromValue([]any{"a"}).IsStructured())
	assert.True(t, FromValue(map[string]any{"a": "b"}).IsStructured())
	assert.True(t, FromValue(nil).IsStructured())
	assert.False(t, PresenceOf(true).IsStructured())
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"zero return code", 0, true},
		{"nonzero return code", 1, false},
		{"negative return code", -1, false},
		{"zero int64", int64(0), true},
		{"empty string", "", false},
		{"non-empty string", "x", true},
		{"empty list", []any{}, false},
		{"list", []any{"x"}, true},
		{"empty map", map[string]any{}, false},
		{"map", map[string]any{"k": "v"}, true},
		{"null", nil, false},
		{"bool false", false, false},
		{"bool true", true, true},
		{"float", 1.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truthy(tt.value))
		})
	}
}

func TestPresenceOnReturnCode(t *testing.T) {
	present := PresenceOf(true)
	absent := PresenceOf(false)

	assert.True(t, present.Matches(0))
	assert.False(t, present.Matches(1))
	assert.False(t, present.Matches(7))

	for _, code := range []int{0, 1, 7, -9} {
		assert.Equal(t, !present.Matches(code), absent.Matches(code), "code %d", code)
	}
}

func TestPresenceOnText(t *testing.T) {
	present := PresenceOf(true)
	absent := PresenceOf(false)

	assert.True(t, present.Matches("error\n"))
	assert.False(t, present.Matches(""))
	assert.True(t, absent.Matches(""))
	assert.False(t, absent.Matches("error\n"))
}

func TestLiteralMatches(t *testing.T) {
	assert.True(t, LiteralOf("http://example.com/\n").Matches("http://example.com/\n"))
	assert.False(t, LiteralOf("http://example.com/\n").Matches("http://example.com/"))
	assert.True(t, LiteralOf(int64(0)).Matches(0))
	assert.False(t, LiteralOf(int64(0)).Matches(1))
	assert.False(t, LiteralOf("0").Matches(0))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "something", PresenceOf(true).Describe())
	assert.Equal(t, "nothing", PresenceOf(false).Describe())
	assert.Equal(t, `"a\n"`, LiteralOf("a\n").Describe())
	assert.Equal(t, `[{"a":1,"b":"c"}]`, LiteralOf([]any{map[string]any{"b": "c", "a": int64(1)}}).Describe())
	assert.Equal(t, "null", LiteralOf(nil).Describe())
}
