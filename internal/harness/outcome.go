package harness

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/conform/internal/expect"
	"github.com/roach88/conform/internal/gate"
	"github.com/roach88/conform/internal/invoke"
	"github.com/roach88/conform/internal/store"
	"github.com/roach88/conform/internal/suite"
)

// Status is the classification of one processed case.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Outcome is the result of processing one selected case.
type Outcome struct {
	Case   suite.TestCase
	Status Status

	// Skip is set for gate-skipped cases; the subject never ran.
	Skip *gate.Skip

	// Output is the captured output, nil if the subject did not complete.
	Output *expect.Output

	// Fields holds one result per declared expectation.
	Fields []expect.FieldResult

	// Err is a failure to run the subject, such as a timeout.
	Err error

	Duration time.Duration
}

// Passed reports whether the case passed.
func (o Outcome) Passed() bool { return o.Status == StatusPassed }

// ErrorText renders Err for diagnostics.
func (o Outcome) ErrorText(timeout time.Duration) string {
	if o.Err == nil {
		return ""
	}
	if errors.Is(o.Err, invoke.ErrTimeout) && timeout > 0 {
		return fmt.Sprintf("timed out after %s", timeout)
	}
	return o.Err.Error()
}

// Tally counts processed cases. Cases removed by selection are not counted.
type Tally struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// Add counts one outcome.
func (t *Tally) Add(s Status) {
	switch s {
	case StatusPassed:
		t.Passed++
	case StatusFailed:
		t.Failed++
	case StatusSkipped:
		t.Skipped++
	}
	t.Total++
}

// ExitCode is 1 when any case failed and 0 otherwise.
func (t Tally) ExitCode() int {
	if t.Failed > 0 {
		return 1
	}
	return 0
}

func (t Tally) totals() store.Totals {
	return store.Totals{Passed: t.Passed, Failed: t.Failed, Skipped: t.Skipped, Total: t.Total}
}

// FieldReport is the rendered comparison of one field.
type FieldReport struct {
	Field    expect.Field `json:"field"`
	Expected string       `json:"expected"`
	Actual   string       `json:"actual"`
	Pass     bool         `json:"pass"`
}

// CaseReport is the serializable form of an Outcome.
type CaseReport struct {
	Index      int           `json:"index"`
	Arguments  []string      `json:"arguments"`
	Status     Status        `json:"status"`
	Skip       *gate.Skip    `json:"skip,omitempty"`
	Fields     []FieldReport `json:"fields,omitempty"`
	Error      string        `json:"error,omitempty"`
	DurationMS int64         `json:"duration_ms"`
}

// Report is the result of a whole run.
type Report struct {
	RunID       string           `json:"run_id,omitempty"`
	Environment gate.Environment `json:"environment"`
	Cases       []CaseReport     `json:"cases"`
	Tally
}

// ExitCode is the process exit status for the run.
func (r *Report) ExitCode() int { return r.Tally.ExitCode() }

func fieldReports(results []expect.FieldResult) []FieldReport {
	if len(results) == 0 {
		return nil
	}
	out := make([]FieldReport, len(results))
	for i, fr := range results {
		out[i] = FieldReport{
			Field:    fr.Field,
			Expected: fr.Expected.Describe(),
			Actual:   expect.Repr(fr.Actual),
			Pass:     fr.Pass,
		}
	}
	return out
}

func caseReport(o Outcome, timeout time.Duration) CaseReport {
	return CaseReport{
		Index:      o.Case.Index,
		Arguments:  o.Case.Args(),
		Status:     o.Status,
		Skip:       o.Skip,
		Fields:     fieldReports(o.Fields),
		Error:      o.ErrorText(timeout),
		DurationMS: o.Duration.Milliseconds(),
	}
}

// caseRecord converts an outcome for the run history.
func caseRecord(o Outcome, timeout time.Duration) store.CaseResult {
	rec := store.CaseResult{
		Index:     o.Case.Index,
		Arguments: o.Case.Args(),
		Status:    string(o.Status),
		Error:     o.ErrorText(timeout),
		Duration:  o.Duration,
	}
	if o.Skip != nil {
		rec.SkipReason = o.Skip.String()
	}
	for _, fr := range fieldReports(o.Fields) {
		rec.Fields = append(rec.Fields, store.FieldRecord{
			Field:    string(fr.Field),
			Expected: fr.Expected,
			Actual:   fr.Actual,
			Pass:     fr.Pass,
		})
	}
	if o.Output != nil {
		rec.Stdout = stdoutText(o.Output.Stdout)
		rec.Stderr = o.Output.Stderr
		rc := o.Output.ReturnCode
		rec.ReturnCode = &rc
	}
	return rec
}

// stdoutText is raw text as captured, or canonical JSON for decoded output.
func stdoutText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := expect.Canonical(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
