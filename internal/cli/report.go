package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/roach88/conform/internal/config"
	"github.com/roach88/conform/internal/harness"
	"github.com/roach88/conform/internal/store"
)

// RunReport is a stored run with its case outcomes.
type RunReport struct {
	Run   store.Run          `json:"run"`
	Cases []store.CaseResult `json:"cases"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Show a recorded run",
		Long: `Show one run from the history database as a Markdown report.
Without a run ID the latest run is shown.

Examples:
  conform report --db history.db
  conform report 0192f1c4-8d2e-7c4a-9b1e-2f6d3a8c5e71 --db history.db --raw`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, rootOpts, args, raw)
		},
	}

	cmd.Flags().String(config.KeyDB, "", "path to the SQLite history database (required)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the Markdown source instead of rendering it")

	return cmd
}

func runReport(cmd *cobra.Command, rootOpts *RootOptions, args []string, raw bool) error {
	st, out, err := openHistory(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	var run store.Run
	if len(args) == 1 {
		run, err = st.GetRun(ctx, args[0])
	} else {
		run, err = st.LatestRun(ctx)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		what := "no runs recorded"
		if len(args) == 1 {
			what = fmt.Sprintf("run %s not found", args[0])
		}
		return historyError(out, what, err)
	}
	if err != nil {
		return historyError(out, "failed to read run", err)
	}

	cases, err := st.CaseResults(ctx, run.ID)
	if err != nil {
		return historyError(out, "failed to read case results", err)
	}

	if out.Format == "json" {
		return out.Success(RunReport{Run: run, Cases: cases})
	}

	md := reportMarkdown(run, cases)
	if raw {
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	rendered, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}

// reportMarkdown renders a run as a Markdown document.
func reportMarkdown(run store.Run, cases []store.CaseResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Run %d\n\n", run.Seq)

	b.WriteString("| | |\n|---|---|\n")
	row(&b, "ID", "`"+run.ID+"`")
	row(&b, "Started", run.StartedAt.UTC().Format(time.RFC3339))
	if run.FinishedAt != nil {
		row(&b, "Finished", run.FinishedAt.UTC().Format(time.RFC3339))
	}
	row(&b, "Suite", run.Suite)
	row(&b, "Subject", run.Subject)
	row(&b, "Mode", run.Mode)
	if run.Runtime != "" {
		row(&b, "Runtime", run.Runtime)
	}
	if run.Build != "" {
		row(&b, "Build", run.Build)
	}
	if run.Encoding != "" {
		row(&b, "Encoding", run.Encoding)
	}
	row(&b, "Status", run.Status)
	b.WriteString("\n")

	t := run.Totals
	fmt.Fprintf(&b, "**Passed:** %d, **Failed:** %d, **Skipped:** %d, **Total:** %d\n\n",
		t.Passed, t.Failed, t.Skipped, t.Total)

	if len(cases) == 0 {
		b.WriteString("No test results recorded.\n")
		return b.String()
	}

	b.WriteString("## Tests\n\n")
	b.WriteString("| # | Arguments | Status | Duration |\n|---:|---|---|---:|\n")
	for _, c := range cases {
		status := c.Status
		if c.SkipReason != "" {
			status += " (" + c.SkipReason + ")"
		}
		fmt.Fprintf(&b, "| %d | `%s` | %s | %s |\n",
			c.Index,
			escapeCell(harness.QuoteArgs(c.Arguments)),
			escapeCell(status),
			c.Duration.Round(time.Millisecond))
	}

	var failed []store.CaseResult
	for _, c := range cases {
		if c.Status == store.CaseFailed {
			failed = append(failed, c)
		}
	}
	if len(failed) == 0 {
		return b.String()
	}

	b.WriteString("\n## Failures\n")
	for _, c := range failed {
		fmt.Fprintf(&b, "\n### Test %d\n\n", c.Index)
		fmt.Fprintf(&b, "`%s`\n\n", escapeCell(harness.QuoteArgs(c.Arguments)))
		if c.Error != "" {
			fmt.Fprintf(&b, "Error: %s\n\n", c.Error)
		}
		if c.ReturnCode != nil {
			fmt.Fprintf(&b, "Exit status: %s\n\n", strconv.Itoa(*c.ReturnCode))
		}
		if len(c.Fields) == 0 {
			continue
		}
		b.WriteString("| Field | Expected | Got | |\n|---|---|---|---|\n")
		for _, f := range c.Fields {
			mark := "ok"
			if !f.Pass {
				mark = "**mismatch**"
			}
			fmt.Fprintf(&b, "| %s | `%s` | `%s` | %s |\n",
				f.Field, escapeCell(f.Expected), escapeCell(f.Actual), mark)
		}
	}
	return b.String()
}

func row(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", key, escapeCell(value))
}

// escapeCell makes s safe inside a Markdown table cell.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", `\n`)
}
