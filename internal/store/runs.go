package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned when a run ID or the latest run does not exist.
var ErrRunNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusRunning = "running"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
)

// Case statuses.
const (
	CasePassed  = "passed"
	CaseFailed  = "failed"
	CaseSkipped = "skipped"
)

// RunInfo describes a run when it starts.
type RunInfo struct {
	Suite    string
	Subject  string
	Mode     string
	Runtime  string
	Build    string
	Encoding string
}

// Totals is the final tally of a run.
type Totals struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// Run is a stored run.
type Run struct {
	ID         string     `json:"id"`
	Seq        int64      `json:"seq"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Suite      string     `json:"suite"`
	Subject    string     `json:"subject"`
	Mode       string     `json:"mode"`
	Runtime    string     `json:"runtime,omitempty"`
	Build      string     `json:"build,omitempty"`
	Encoding   string     `json:"encoding,omitempty"`
	Status     string     `json:"status"`
	Totals     Totals     `json:"totals"`
	ExitCode   *int       `json:"exit_code,omitempty"`
}

// FieldRecord is one rendered field comparison.
type FieldRecord struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Pass     bool   `json:"pass"`
}

// CaseResult is the stored outcome of one case.
type CaseResult struct {
	Index      int           `json:"index"`
	Arguments  []string      `json:"arguments"`
	Status     string        `json:"status"`
	SkipReason string        `json:"skip_reason,omitempty"`
	Fields     []FieldRecord `json:"fields,omitempty"`

	// Stdout is raw text, or canonical JSON for structured cases.
	Stdout     string        `json:"stdout,omitempty"`
	Stderr     string        `json:"stderr,omitempty"`
	ReturnCode *int          `json:"returncode,omitempty"` // nil when the subject never ran
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
}

// BeginRun inserts a new running run and returns its ID.
func (s *Store) BeginRun(ctx context.Context, info RunInfo) (string, error) {
	id := s.ids.Generate()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, started_at, suite, subject, mode, runtime, build, encoding, status)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		formatTime(s.now()),
		info.Suite,
		info.Subject,
		info.Mode,
		info.Runtime,
		info.Build,
		info.Encoding,
		StatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// RecordCase stores one case outcome. Recording the same case twice is a
// no-op.
func (s *Store) RecordCase(ctx context.Context, runID string, res CaseResult) error {
	args, err := json.Marshal(res.Arguments)
	if err != nil {
		return fmt.Errorf("record case: marshal arguments: %w", err)
	}
	fields := res.Fields
	if fields == nil {
		fields = []FieldRecord{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("record case: marshal fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO case_results
		(run_id, case_index, arguments, status, skip_reason, fields, stdout, stderr, returncode, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID,
		res.Index,
		string(args),
		res.Status,
		res.SkipReason,
		string(fieldsJSON),
		res.Stdout,
		res.Stderr,
		nullInt(res.ReturnCode),
		res.Error,
		res.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record case: %w", err)
	}
	return nil
}

// FinishRun stores the tally and process exit code and marks the run passed
// or failed.
func (s *Store) FinishRun(ctx context.Context, runID string, totals Totals, exitCode int) error {
	status := StatusPassed
	if totals.Failed > 0 {
		status = StatusFailed
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, status = ?, passed = ?, failed = ?, skipped = ?, total = ?, exit_code = ?
		WHERE id = ?
	`,
		formatTime(s.now()),
		status,
		totals.Passed,
		totals.Failed,
		totals.Skipped,
		totals.Total,
		exitCode,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

const runColumns = `id, seq, started_at, finished_at, suite, subject, mode,
	runtime, build, encoding, status, passed, failed, skipped, total, exit_code`

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run with the given ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return run, err
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return run, err
}

// CaseResults returns a run's case outcomes in suite order.
func (s *Store) CaseResults(ctx context.Context, runID string) ([]CaseResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT case_index, arguments, status, skip_reason, fields, stdout, stderr, returncode, error, duration_ms
		FROM case_results
		WHERE run_id = ?
		ORDER BY case_index ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query case results: %w", err)
	}
	defer rows.Close()

	results := []CaseResult{}
	for rows.Next() {
		var (
			res        CaseResult
			argsJSON   string
			fieldsJSON string
			returnCode sql.NullInt64
			durationMS int64
		)
		err := rows.Scan(
			&res.Index, &argsJSON, &res.Status, &res.SkipReason, &fieldsJSON,
			&res.Stdout, &res.Stderr, &returnCode, &res.Error, &durationMS,
		)
		if err != nil {
			return nil, fmt.Errorf("scan case result: %w", err)
		}
		if err := json.Unmarshal([]byte(argsJSON), &res.Arguments); err != nil {
			return nil, fmt.Errorf("case %d: unmarshal arguments: %w", res.Index, err)
		}
		if err := json.Unmarshal([]byte(fieldsJSON), &res.Fields); err != nil {
			return nil, fmt.Errorf("case %d: unmarshal fields: %w", res.Index, err)
		}
		if returnCode.Valid {
			rc := int(returnCode.Int64)
			res.ReturnCode = &rc
		}
		res.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case results: %w", err)
	}
	return results, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run      Run
		started  string
		finished sql.NullString
		exitCode sql.NullInt64
	)
	err := row.Scan(
		&run.ID, &run.Seq, &started, &finished, &run.Suite, &run.Subject, &run.Mode,
		&run.Runtime, &run.Build, &run.Encoding, &run.Status,
		&run.Totals.Passed, &run.Totals.Failed, &run.Totals.Skipped, &run.Totals.Total,
		&exitCode,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.StartedAt, err = parseTime(started)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if finished.Valid {
		t, err := parseTime(finished.String)
		if err != nil {
			return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
		}
		run.FinishedAt = &t
	}
	if exitCode.Valid {
		code := int(exitCode.Int64)
		run.ExitCode = &code
	}
	return run, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
