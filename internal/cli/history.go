package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/roach88/conform/internal/config"
	"github.com/roach88/conform/internal/store"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List runs recorded with run --db, newest first.

Examples:
  conform history --db history.db
  conform history --db history.db --limit 5 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, rootOpts, limit)
		},
	}

	cmd.Flags().String(config.KeyDB, "", "path to the SQLite history database (required)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list (0 for all)")

	return cmd
}

// openHistory opens an existing history database.
func openHistory(cmd *cobra.Command, rootOpts *RootOptions) (*store.Store, *OutputFormatter, error) {
	opts, err := loadOptions(cmd, rootOpts)
	if err != nil {
		out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
		return nil, out, out.Fail("invalid configuration", err)
	}
	out := formatter(cmd, opts)

	if opts.DB == "" {
		return nil, out, historyError(out, "no history database", errors.New("--db is required"))
	}
	if _, err := os.Stat(opts.DB); err != nil {
		return nil, out, historyError(out, "database not found", fmt.Errorf("%s: %w", opts.DB, err))
	}
	st, err := store.Open(opts.DB)
	if err != nil {
		return nil, out, historyError(out, "failed to open database", err)
	}
	return st, out, nil
}

func historyError(out *OutputFormatter, message string, err error) error {
	if out.Format == "json" {
		_ = out.Error(CodeHistory, message, err.Error())
	}
	return WrapExitError(ExitCommandError, message, err)
}

func runHistory(cmd *cobra.Command, rootOpts *RootOptions, limit int) error {
	st, out, err := openHistory(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context(), limit)
	if err != nil {
		return historyError(out, "failed to list runs", err)
	}

	if out.Format == "json" {
		return out.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), historyTable(runs))
	return nil
}

// historyTable renders runs as a bordered table.
func historyTable(runs []store.Run) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN", "STARTED", "MODE", "STATUS", "PASSED", "FAILED", "SKIPPED", "TOTAL")
	for _, r := range runs {
		t.Row(
			r.ID,
			r.StartedAt.UTC().Format(time.DateTime),
			r.Mode,
			r.Status,
			strconv.Itoa(r.Totals.Passed),
			strconv.Itoa(r.Totals.Failed),
			strconv.Itoa(r.Totals.Skipped),
			strconv.Itoa(r.Totals.Total),
		)
	}
	return t.Render()
}
