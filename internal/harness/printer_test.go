package harness

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/conform/internal/expect"
	"github.com/roach88/conform/internal/gate"
	"github.com/roach88/conform/internal/invoke"
	"github.com/roach88/conform/internal/suite"
)

func TestQuoteArgs(t *testing.T) {
	assert.Equal(t, "example.com", QuoteArgs([]string{"example.com"}))
	assert.Equal(t, "--url 'a b' ''", QuoteArgs([]string{"--url", "a b", ""}))
	assert.Equal(t, "", QuoteArgs(nil))
}

func TestPrinter_SkipLines(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut, false)

	p.Skip(1, &gate.Skip{Reason: gate.MissingFeature, Need: "IPv6"})
	p.Skip(2, &gate.Skip{Reason: gate.RuntimeTooLow, Need: "8.0.0", Have: "7.9.9"})
	p.Skip(3, &gate.Skip{Reason: gate.BuildTooLow, Need: "8.0.0", Have: "unknown"})
	p.Skip(4, &gate.Skip{Reason: gate.InvalidLocale, Need: "UTF-8", Have: "US-ASCII"})

	assert.Equal(t, "Missing feature, skipping test 1.\n"+
		"Runtime too low, skipping test 2 (need 8.0.0, have 7.9.9).\n"+
		"Build-time too low, skipping test 3 (need 8.0.0, have unknown).\n"+
		"Invalid locale, skipping test 4 (need UTF-8, have US-ASCII).\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestPrinter_Summary(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut, false)

	p.Summary(Tally{Passed: 2, Skipped: 1, Total: 3})
	assert.Equal(t, "Finished:\nPassed! - Failed: 0, Passed: 2, Skipped: 1, Total: 3\n", out.String())
	assert.Empty(t, errOut.String())

	out.Reset()
	p.Summary(Tally{Passed: 2, Failed: 1, Total: 3})
	assert.Equal(t, "Finished:\n", out.String())
	assert.Equal(t, "Failed! - Failed: 1, Passed: 2, Skipped: 0, Total: 3\n", errOut.String())
}

func TestPrinter_ConcisePass(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut, false)

	o := Outcome{
		Case:   suite.TestCase{Index: 12, Arguments: []string{"example.com"}},
		Status: StatusPassed,
		Fields: []expect.FieldResult{{Field: expect.ReturnCode, Expected: expect.PresenceOf(true), Actual: 0, Pass: true}},
	}
	p.Case(o, 0)
	assert.Equal(t, "12: passed\texample.com\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestPrinter_StartFailure(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPrinter(&out, &errOut, false)

	o := Outcome{
		Case:   suite.TestCase{Index: 3, Arguments: []string{"--sleep"}},
		Status: StatusFailed,
		Err:    errors.Join(errors.New("run trurl"), invoke.ErrTimeout),
	}
	p.Case(o, 0)
	assert.Equal(t, "3: failed\t--sleep\nerror: run trurl\ntimed out\n\n", errOut.String())

	errOut.Reset()
	p.Case(o, 1500*time.Millisecond)
	assert.Equal(t, "3: failed\t--sleep\nerror: timed out after 1.5s\n\n", errOut.String())
}
