package expect

import "fmt"

// Field names one captured output stream.
type Field string

// Output fields a case may declare expectations for.
const (
	Stdout     Field = "stdout"
	Stderr     Field = "stderr"
	ReturnCode Field = "returncode"
)

// Fields lists every field in evaluation and rendering order.
var Fields = []Field{Stdout, Stderr, ReturnCode}

// ParseField validates a field name from a suite file.
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output field %q (want one of stdout, stderr, returncode)", name)
}

// StdoutKind selects how captured stdout is decoded.
type StdoutKind int

const (
	// RawText keeps stdout as the exact text the subject wrote.
	RawText StdoutKind = iota
	// Structured parses stdout as JSON before comparison.
	Structured
)

func (k StdoutKind) String() string {
	if k == Structured {
		return "structured"
	}
	return "raw"
}

// Output is the normalized result of one subject invocation.
// It is never mutated after capture.
type Output struct {
	// Stdout is a string for RawText cases. For Structured cases it is the
	// decoded JSON tree, or nil when the text did not parse.
	Stdout any `json:"stdout"`

	// ReturnCode is the process exit status.
	ReturnCode int `json:"returncode"`

	// Stderr is the raw error stream text.
	Stderr string `json:"stderr"`

	// StderrMasked is set when the invocation went through a runner whose own
	// diagnostics make stderr unobservable. The declared stderr expectation
	// then stands in for the captured value.
	StderrMasked bool `json:"stderr_masked,omitempty"`
}

// Value returns the captured value of a field as matched by expectations.
func (o Output) Value(f Field) any {
	switch f {
	case Stdout:
		return o.Stdout
	case Stderr:
		return o.Stderr
	case ReturnCode:
		return o.ReturnCode
	default:
		return nil
	}
}

// Set is the ordered collection of a case's declared expectations.
type Set struct {
	entries map[Field]Expectation
}

// NewSet builds a Set from per-field expectations.
func NewSet(entries map[Field]Expectation) Set {
	copied := make(map[Field]Expectation, len(entries))
	for f, e := range entries {
		copied[f] = e
	}
	return Set{entries: copied}
}

// Get returns the expectation declared for f.
func (s Set) Get(f Field) (Expectation, bool) {
	e, ok := s.entries[f]
	return e, ok
}

// Has reports whether an expectation is declared for f.
func (s Set) Has(f Field) bool {
	_, ok := s.entries[f]
	return ok
}

// Len returns the number of declared fields.
func (s Set) Len() int { return len(s.entries) }

// Declared returns the declared fields in evaluation order.
func (s Set) Declared() []Field {
	out := make([]Field, 0, len(s.entries))
	for _, f := range Fields {
		if _, ok := s.entries[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// StdoutKind reports how stdout must be decoded for this set.
func (s Set) StdoutKind() StdoutKind {
	if e, ok := s.entries[Stdout]; ok && e.IsStructured() {
		return Structured
	}
	return RawText
}

// FieldResult is the outcome of matching one declared field.
type FieldResult struct {
	Field    Field
	Expected Expectation
	Actual   any
	Pass     bool
}

// Evaluate matches every declared field against out. The case passes iff
// every FieldResult passes.
func (s Set) Evaluate(out Output) []FieldResult {
	results := make([]FieldResult, 0, len(s.entries))
	for _, f := range s.Declared() {
		exp := s.entries[f]
		actual := out.Value(f)
		pass := exp.Matches(actual)
		if f == Stderr && out.StderrMasked {
			if exp.Kind() == Literal {
				actual = exp.Value()
			}
			pass = true
		}
		results = append(results, FieldResult{
			Field:    f,
			Expected: exp,
			Actual:   actual,
			Pass:     pass,
		})
	}
	return results
}

// AllPass reports whether every result passed.
func AllPass(results []FieldResult) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}
