package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/conform/internal/config"
	"github.com/roach88/conform/internal/harness"
	"github.com/roach88/conform/internal/invoke"
	"github.com/roach88/conform/internal/logging"
	"github.com/roach88/conform/internal/store"
	"github.com/roach88/conform/internal/suite"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [indices|keyword]",
		Short: "Run the conformance suite",
		Long: `Run the conformance suite against trurl.

An argument starting with a digit selects tests by 1-based number
(comma-separated); any other argument runs only the tests with an argument
containing it. A number list wins over a keyword.

Exit codes:
  0 - All selected tests passed or were skipped
  1 - One or more tests failed
  2 - Configuration error (trurl or the memory checker missing, bad suite, etc.)

Examples:
  conform run
  conform run 1,4,7
  conform run redirect --verbose
  conform run --with-valgrind
  conform run --runner "qemu-aarch64 -L /usr/aarch64-linux-gnu" --trurl ./trurl
  conform run --db history.db --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(cmd, rootOpts, args)
		},
	}

	addSubjectFlags(cmd)
	cmd.Flags().Duration(config.KeyTimeout, 0, "per-test timeout (0 disables)")
	cmd.Flags().String(config.KeyDB, "", "record the run in this SQLite history database")

	return cmd
}

// addSubjectFlags declares the flags that choose and wrap the subject.
func addSubjectFlags(cmd *cobra.Command) {
	cmd.Flags().String(config.KeySuite, config.DefaultSuite, "suite file (.json, .yaml, .toml or .cue)")
	cmd.Flags().String(config.KeySubject, "", "path to the trurl binary (default: next to the suite)")
	cmd.Flags().String(config.KeyRunner, "", "command that runs trurl, such as an emulator")
	cmd.Flags().Bool(config.KeyMemCheck, false, "run trurl under a memory checker")
	cmd.Flags().String(config.KeyChecker, invoke.DefaultChecker, "memory checker command")
	cmd.Flags().String(config.KeyEncoding, "", "locale encoding to assume instead of detecting it")
}

// setup resolves configuration, the logger and the invocation strategy.
func setup(cmd *cobra.Command, rootOpts *RootOptions) (config.Options, *OutputFormatter, *slog.Logger, invoke.Strategy, error) {
	opts, err := loadOptions(cmd, rootOpts)
	if err != nil {
		out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
		return opts, out, nil, nil, out.Fail("invalid configuration", err)
	}
	out := formatter(cmd, opts)

	logger, err := logging.New(cmd.ErrOrStderr(), opts.LogLevel)
	if err != nil {
		return opts, out, nil, nil, out.Fail("invalid configuration", err)
	}

	subject, err := invoke.LocateSubject(opts.Subject)
	if err != nil {
		return opts, out, logger, nil, out.Fail("cannot locate trurl", err)
	}
	invokeOpts := opts.InvokeOptions()
	invokeOpts.Subject = subject
	strategy, err := invoke.Select(invokeOpts)
	if err != nil {
		return opts, out, logger, nil, out.Fail("cannot prepare invocation", err)
	}
	logger.Debug("selected strategy", "mode", strategy.Mode(), "command", strategy.Command(nil))
	return opts, out, logger, strategy, nil
}

func runSuite(cmd *cobra.Command, rootOpts *RootOptions, args []string) error {
	opts, out, logger, strategy, err := setup(cmd, rootOpts)
	if err != nil {
		return err
	}

	selection, err := harness.ParseSelection(args)
	if err != nil {
		return out.Fail("invalid test selection", err)
	}

	cases, err := suite.Load(opts.Suite)
	if err != nil {
		return out.Fail("failed to load suite", err)
	}
	logger.Debug("loaded suite", "path", opts.Suite, "tests", len(cases))

	runnerOpts := []harness.Option{harness.WithLogger(logger)}
	if opts.Format == "text" {
		printer := harness.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts.Verbose)
		if m, ok := strategy.(*invoke.MemCheck); ok {
			printer.WithChecker(m.Checker())
		}
		runnerOpts = append(runnerOpts, harness.WithPrinter(printer))
	}
	if opts.DB != "" {
		st, err := store.Open(opts.DB)
		if err != nil {
			logger.Warn("run history disabled", "db", opts.DB, "error", err)
		} else {
			defer st.Close()
			runnerOpts = append(runnerOpts, harness.WithRecorder(st))
		}
	}

	runner := harness.NewRunner(harness.Config{
		Suite:     opts.Suite,
		Strategy:  strategy,
		Selection: selection,
		Timeout:   opts.Timeout,
		Encoding:  opts.Encoding,
	}, runnerOpts...)

	report, err := runner.Run(cmd.Context(), cases)
	if err != nil {
		return out.Fail("run aborted", err)
	}
	if err := out.Report(report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if report.ExitCode() != ExitSuccess {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d tests failed", report.Failed, report.Total))
	}
	return nil
}
