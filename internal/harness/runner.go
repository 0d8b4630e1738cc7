package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/roach88/conform/internal/expect"
	"github.com/roach88/conform/internal/gate"
	"github.com/roach88/conform/internal/invoke"
	"github.com/roach88/conform/internal/logging"
	"github.com/roach88/conform/internal/store"
	"github.com/roach88/conform/internal/suite"
)

// Config is the run configuration. It is built once and never modified.
type Config struct {
	// Suite names the suite file for history records.
	Suite string

	// Strategy invokes the subject.
	Strategy invoke.Strategy

	// Selection picks the cases to process.
	Selection Selection

	// Timeout bounds each case; zero means no limit.
	Timeout time.Duration

	// Encoding overrides the locale encoding when non-empty.
	Encoding string

	// Getenv reads the locale environment; defaults to os.Getenv.
	Getenv func(string) string
}

// Recorder persists run history. *store.Store implements it.
type Recorder interface {
	BeginRun(ctx context.Context, info store.RunInfo) (string, error)
	RecordCase(ctx context.Context, runID string, res store.CaseResult) error
	FinishRun(ctx context.Context, runID string, totals store.Totals, exitCode int) error
}

// Runner drives a suite through discovery, selection, execution and
// reporting.
type Runner struct {
	cfg      Config
	printer  *Printer
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithPrinter enables text output.
func WithPrinter(p *Printer) Option {
	return func(r *Runner) { r.printer = p }
}

// WithRecorder enables run history.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithClock replaces time.Now for case durations.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner for cfg.
func NewRunner(cfg Config, opts ...Option) *Runner {
	if cfg.Getenv == nil {
		cfg.Getenv = os.Getenv
	}
	r := &Runner{
		cfg:    cfg,
		logger: logging.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes cases and returns the report. Errors are configuration
// errors that stop the run before any case executes; case failures are
// reported in the Report.
func (r *Runner) Run(ctx context.Context, cases []suite.TestCase) (*Report, error) {
	env, err := gate.Discover(ctx, r.cfg.Strategy, r.cfg.Encoding, r.cfg.Getenv)
	if err != nil {
		return nil, fmt.Errorf("discover subject environment: %w", err)
	}
	r.logger.Debug("discovered environment",
		"features", env.Features,
		"runtime", env.Runtime,
		"build", env.Build,
		"encoding", env.Encoding)

	selected, err := r.cfg.Selection.Apply(cases)
	if err != nil {
		return nil, err
	}
	r.logger.Info("starting run",
		"mode", r.cfg.Strategy.Mode(),
		"subject", r.cfg.Strategy.Subject(),
		"selection", r.cfg.Selection.String(),
		"selected", len(selected),
		"suite", len(cases))

	report := &Report{Environment: env, Cases: make([]CaseReport, 0, len(selected))}
	report.RunID = r.beginRecord(ctx, env)

	for _, tc := range selected {
		var o Outcome
		if skip := gate.ShouldSkip(tc.Requirements, env); skip != nil {
			o = Outcome{Case: tc, Status: StatusSkipped, Skip: skip}
			r.logger.Debug("skipping case", "index", tc.Index, "reason", skip.String())
			if r.printer != nil {
				r.printer.Skip(tc.Index, skip)
			}
		} else {
			o = r.Execute(ctx, tc)
			if r.printer != nil {
				r.printer.Case(o, r.cfg.Timeout)
			}
		}

		report.Tally.Add(o.Status)
		report.Cases = append(report.Cases, caseReport(o, r.cfg.Timeout))
		r.recordCase(ctx, report.RunID, o)
	}

	if r.printer != nil {
		r.printer.Summary(report.Tally)
	}
	r.finishRecord(ctx, report)
	r.logger.Info("finished run",
		"passed", report.Passed,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"total", report.Total)
	return report, nil
}

// Execute runs one case through the strategy and evaluates its expectations.
// A subject that cannot run or exceeds the timeout fails the case.
func (r *Runner) Execute(ctx context.Context, tc suite.TestCase) Outcome {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	req := invoke.Request{
		Args:          tc.Args(),
		Stdout:        tc.Expected.StdoutKind(),
		ExpectsStderr: tc.Expected.Has(expect.Stderr),
	}
	r.logger.Debug("invoking subject", "index", tc.Index, "argv", r.cfg.Strategy.Command(req.Args))

	start := r.now()
	out, err := r.cfg.Strategy.Invoke(ctx, req)
	o := Outcome{Case: tc, Duration: r.now().Sub(start)}
	r.logger.Debug("case finished", "index", tc.Index, "duration", o.Duration)

	if err != nil {
		o.Status = StatusFailed
		o.Err = err
		return o
	}

	o.Output = &out
	o.Fields = tc.Expected.Evaluate(out)
	if expect.AllPass(o.Fields) {
		o.Status = StatusPassed
	} else {
		o.Status = StatusFailed
	}
	return o
}

func (r *Runner) beginRecord(ctx context.Context, env gate.Environment) string {
	if r.recorder == nil {
		return ""
	}
	id, err := r.recorder.BeginRun(ctx, store.RunInfo{
		Suite:    r.cfg.Suite,
		Subject:  r.cfg.Strategy.Subject(),
		Mode:     string(r.cfg.Strategy.Mode()),
		Runtime:  env.Runtime,
		Build:    env.Build,
		Encoding: env.Encoding,
	})
	if err != nil {
		r.logger.Warn("failed to record run", "error", err)
		return ""
	}
	return id
}

func (r *Runner) recordCase(ctx context.Context, runID string, o Outcome) {
	if r.recorder == nil || runID == "" {
		return
	}
	if err := r.recorder.RecordCase(ctx, runID, caseRecord(o, r.cfg.Timeout)); err != nil {
		r.logger.Warn("failed to record case", "run", runID, "index", o.Case.Index, "error", err)
	}
}

func (r *Runner) finishRecord(ctx context.Context, report *Report) {
	if r.recorder == nil || report.RunID == "" {
		return
	}
	if err := r.recorder.FinishRun(ctx, report.RunID, report.Tally.totals(), report.ExitCode()); err != nil {
		r.logger.Warn("failed to finish run record", "run", report.RunID, "error", err)
	}
}
