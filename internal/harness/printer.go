package harness

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"mvdan.cc/sh/v3/syntax"

	"github.com/roach88/conform/internal/expect"
	"github.com/roach88/conform/internal/gate"
)

// Printer renders per-case lines, skip notices and the final summary.
//
// Passed cases go to Out, one concise line each, plus field blocks when
// Verbose is set. Failed cases always get field blocks and go to Err.
type Printer struct {
	out     io.Writer
	err     io.Writer
	verbose bool

	// checker names the memory checker when the run is memory-checked.
	checker string

	mismatch lipgloss.Style
	header   lipgloss.Style
}

// NewPrinter creates a Printer. Colors are used only when the error writer is
// a terminal that supports them.
func NewPrinter(out, errOut io.Writer, verbose bool) *Printer {
	r := lipgloss.NewRenderer(errOut)
	return &Printer{
		out:      out,
		err:      errOut,
		verbose:  verbose,
		mismatch: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		header:   r.NewStyle().Faint(true),
	}
}

// WithChecker enables the memory-checker note on exit code 1.
func (p *Printer) WithChecker(name string) *Printer {
	p.checker = name
	return p
}

// Case renders one executed case.
func (p *Printer) Case(o Outcome, timeout time.Duration) {
	w := p.out
	if !o.Passed() {
		w = p.err
	}
	fmt.Fprintf(w, "%d: %s\t%s\n", o.Case.Index, o.Status, QuoteArgs(o.Case.Arguments))
	if o.Passed() && !p.verbose {
		return
	}

	for _, fr := range o.Fields {
		p.field(w, fr)
	}
	if msg := o.ErrorText(timeout); msg != "" {
		fmt.Fprintf(w, "error: %s\n", msg)
	}
	fmt.Fprintln(w)
}

func (p *Printer) field(w io.Writer, fr expect.FieldResult) {
	fmt.Fprintln(w, p.header.Render(fmt.Sprintf("--- %s ---", fr.Field)))
	fmt.Fprintln(w, "expected:")
	fmt.Fprintln(w, fr.Expected.Describe())
	fmt.Fprintln(w, "got:")
	actual := expect.Repr(fr.Actual)
	if !fr.Pass {
		actual = p.mismatch.Render(actual)
	}
	fmt.Fprintln(w, actual)
	if !fr.Pass && fr.Field == expect.ReturnCode && p.checker != "" && fr.Actual == 1 {
		fmt.Fprintf(w, "note: exit code 1 may be a memory error reported by %s\n", p.checker)
	}
}

// Skip renders one gate-skipped case.
func (p *Printer) Skip(index int, s *gate.Skip) {
	switch s.Reason {
	case gate.MissingFeature:
		fmt.Fprintf(p.out, "Missing feature, skipping test %d.\n", index)
	case gate.RuntimeTooLow:
		fmt.Fprintf(p.out, "Runtime too low, skipping test %d (need %s, have %s).\n", index, s.Need, s.Have)
	case gate.BuildTooLow:
		fmt.Fprintf(p.out, "Build-time too low, skipping test %d (need %s, have %s).\n", index, s.Need, s.Have)
	case gate.InvalidLocale:
		fmt.Fprintf(p.out, "Invalid locale, skipping test %d (need %s, have %s).\n", index, s.Need, s.Have)
	default:
		fmt.Fprintf(p.out, "Skipping test %d: %s.\n", index, s)
	}
}

// Summary renders the final tally.
func (p *Printer) Summary(t Tally) {
	fmt.Fprintln(p.out, "Finished:")
	counts := fmt.Sprintf("Failed: %d, Passed: %d, Skipped: %d, Total: %d", t.Failed, t.Passed, t.Skipped, t.Total)
	if t.Failed > 0 {
		fmt.Fprintf(p.err, "Failed! - %s\n", counts)
		return
	}
	fmt.Fprintf(p.out, "Passed! - %s\n", counts)
}

// QuoteArgs renders an argument vector as a bash-quoted command string.
func QuoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		q, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			q = strconv.Quote(arg)
		}
		quoted[i] = q
	}
	return strings.Join(quoted, " ")
}
