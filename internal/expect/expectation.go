package expect

import (
	"fmt"
	"strconv"
)

// Kind discriminates the Expectation variants.
type Kind int

const (
	// Literal requires deep equality with the declared value.
	Literal Kind = iota
	// Presence requires the captured value to be truthy (or not).
	Presence
)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Presence:
		return "presence"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Expectation is a single declared expectation for one output field.
// The zero value is a Literal expectation of null.
type Expectation struct {
	kind   Kind
	value  any
	truthy bool
}

// LiteralOf returns an expectation that the captured value equals v.
func LiteralOf(v any) Expectation {
	return Expectation{kind: Literal, value: v}
}

// PresenceOf returns a truthiness expectation.
func PresenceOf(truthy bool) Expectation {
	return Expectation{kind: Presence, truthy: truthy}
}

// FromValue builds an expectation from a decoded suite value.
// Booleans become presence checks; everything else is a literal.
func FromValue(v any) Expectation {
	if b, ok := v.(bool); ok {
		return PresenceOf(b)
	}
	return LiteralOf(v)
}

// Kind returns the expectation variant.
func (e Expectation) Kind() Kind { return e.kind }

// Value returns the literal value. It is nil for presence expectations.
func (e Expectation) Value() any { return e.value }

// Truthy reports the asserted truthiness of a presence expectation.
func (e Expectation) Truthy() bool { return e.truthy }

// IsStructured reports whether this is a literal of a non-string value,
// which makes the stdout field decode as structured data.
func (e Expectation) IsStructured() bool {
	if e.kind != Literal {
		return false
	}
	_, isString := e.value.(string)
	return !isString
}

// Matches reports whether captured satisfies the expectation.
func (e Expectation) Matches(captured any) bool {
	if e.kind == Presence {
		return Truthy(captured) == e.truthy
	}
	return Equal(captured, e.value)
}

// Describe renders the expected side for diagnostics: "something" or
// "nothing" for presence checks, otherwise the literal's representation.
func (e Expectation) Describe() string {
	if e.kind == Presence {
		if e.truthy {
			return "something"
		}
		return "nothing"
	}
	return Repr(e.value)
}

// Truthy reports whether a captured value counts as present.
//
// Integers are truthy iff zero (a zero exit status means success is present).
// Strings, sequences and mappings are truthy iff non-empty. Booleans are
// themselves, null is false, and any other scalar is true.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case int:
		return val == 0
	case int64:
		return val == 0
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	case bool:
		return val
	default:
		return true
	}
}

// Repr renders a value for diagnostics. Strings are quoted with Go escapes so
// trailing newlines and control characters stay visible; other values are
// rendered as canonical JSON.
func Repr(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	b, err := Canonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
