package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/conform/internal/store"
	"github.com/roach88/conform/internal/testutil"
)

func TestHistory_RecordedRuns(t *testing.T) {
	fx := testutil.NewFixtures(t)
	suitePath := writeSuite(t, fx, failingSuite)
	db := filepath.Join(fx.Dir, "history.db")

	_, _, err := execute(t, "run", "--suite", suitePath, "--encoding", "UTF-8", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, _, err = execute(t, "run", "1", "--suite", suitePath, "--encoding", "UTF-8", "--db", db)
	require.NoError(t, err)

	stdout, _, err := execute(t, "history", "--db", db, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   []store.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)

	latest, first := resp.Data[0], resp.Data[1]
	assert.Equal(t, int64(2), latest.Seq)
	assert.Equal(t, store.StatusPassed, latest.Status)
	assert.Equal(t, store.Totals{Passed: 1, Total: 1}, latest.Totals)
	assert.Equal(t, store.StatusFailed, first.Status)
	assert.Equal(t, store.Totals{Passed: 1, Failed: 1, Skipped: 1, Total: 3}, first.Totals)
	assert.Equal(t, "8.5.0", first.Runtime)
	assert.Equal(t, "direct", first.Mode)
	require.NotNil(t, first.ExitCode)
	assert.Equal(t, 1, *first.ExitCode)

	text, _, err := execute(t, "history", "--db", db, "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, text, "STATUS")
	assert.Contains(t, text, latest.ID)
	assert.NotContains(t, text, first.ID)

	report, _, err := execute(t, "report", first.ID, "--db", db, "--raw")
	require.NoError(t, err)
	assert.Contains(t, report, "# Run 1\n")
	assert.Contains(t, report, "| 3 | `example.com` | skipped (missing feature: IPv6) |")
	assert.Contains(t, report, "### Test 2\n")
	assert.Contains(t, report, "| returncode | `0` | `7` | **mismatch** |")

	latestReport, _, err := execute(t, "report", "--db", db, "--raw")
	require.NoError(t, err)
	assert.Contains(t, latestReport, "# Run 2\n")
	assert.NotContains(t, latestReport, "## Failures")

	rendered, _, err := execute(t, "report", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, rendered, "Run 2")
}

func TestHistory_Empty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	stdout, _, err := execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", stdout)

	_, _, err = execute(t, "report", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestHistory_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"history without db", []string{"history"}},
		{"history missing db", []string{"history", "--db", filepath.Join(dir, "missing.db")}},
		{"report missing db", []string{"report", "--db", filepath.Join(dir, "missing.db")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestHistory_JSONError(t *testing.T) {
	stdout, _, err := execute(t, "history", "--format", "json")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeHistory, resp.Error.Code)
}

func TestReport_UnknownRun(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, _, err = execute(t, "report", "no-such-run", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run no-such-run not found")
}

func TestReportMarkdown(t *testing.T) {
	started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	finished := started.Add(3 * time.Second)
	zero, seven := 0, 7

	run := store.Run{
		ID:         "run-1",
		Seq:        1,
		StartedAt:  started,
		FinishedAt: &finished,
		Suite:      "tests.json",
		Subject:    "/opt/trurl",
		Mode:       "direct",
		Runtime:    "8.5.0",
		Build:      "8.4.0",
		Encoding:   "UTF-8",
		Status:     store.StatusFailed,
		Totals:     store.Totals{Passed: 1, Failed: 1, Skipped: 1, Total: 3},
	}
	cases := []store.CaseResult{
		{
			Index:      1,
			Arguments:  []string{"example.com"},
			Status:     store.CasePassed,
			Fields:     []store.FieldRecord{{Field: "stdout", Expected: `"http://example.com/\n"`, Actual: `"http://example.com/\n"`, Pass: true}},
			ReturnCode: &zero,
			Duration:   12 * time.Millisecond,
		},
		{
			Index:      2,
			Arguments:  []string{"--get", "a|b"},
			Status:     store.CaseFailed,
			Fields:     []store.FieldRecord{{Field: "returncode", Expected: "0", Actual: "7"}},
			ReturnCode: &seven,
			Duration:   3 * time.Millisecond,
		},
		{
			Index:      3,
			Arguments:  []string{"example.com"},
			Status:     store.CaseSkipped,
			SkipReason: "missing feature: IPv6",
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "report", []byte(reportMarkdown(run, cases)))
}

func TestEscapeCell(t *testing.T) {
	assert.Equal(t, `a\|b`, escapeCell("a|b"))
	assert.Equal(t, `one\ntwo`, escapeCell("one\r\ntwo"))
}
