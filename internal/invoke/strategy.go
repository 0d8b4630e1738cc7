package invoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"mvdan.cc/sh/v3/shell"

	"github.com/roach88/conform/internal/expect"
)

// Mode names an invocation strategy.
type Mode string

const (
	ModeDirect   Mode = "direct"
	ModeMemCheck Mode = "memcheck"
	ModeRunner   Mode = "runner"
)

const waitDelay = 500 * time.Millisecond

// DefaultChecker is the memory checker looked up when none is configured.
const DefaultChecker = "valgrind"

// CheckerArgs are passed to the memory checker before the subject path.
var CheckerArgs = []string{"--error-exitcode=1", "--leak-check=full", "-q"}

// Request describes one invocation.
type Request struct {
	// Args is the argument vector passed verbatim to the subject.
	Args []string

	// Stdout selects how captured stdout is decoded.
	Stdout expect.StdoutKind

	// ExpectsStderr is set when the case declares a stderr expectation.
	ExpectsStderr bool
}

// Strategy builds the concrete command line for a mode and captures output.
type Strategy interface {
	// Mode identifies the strategy.
	Mode() Mode

	// Subject returns the subject path.
	Subject() string

	// Command returns the full argv for invoking the subject with args.
	Command(args []string) []string

	// Invoke runs the subject and returns its normalized output.
	Invoke(ctx context.Context, req Request) (expect.Output, error)
}

// Direct executes the subject as-is.
type Direct struct {
	subject string
}

// NewDirect returns a direct strategy for subject.
func NewDirect(subject string) *Direct {
	return &Direct{subject: subject}
}

func (d *Direct) Mode() Mode { return ModeDirect }
func (d *Direct) Subject() string { return d.subject }

func (d *Direct) Command(args []string) []string {
	return append([]string{d.subject}, args...)
}

func (d *Direct) Invoke(ctx context.Context, req Request) (expect.Output, error) {
	raw, err := execute(ctx, d.Command(req.Args))
	if err != nil {
		return expect.Output{}, err
	}
	return raw.output(req.Stdout), nil
}

// MemCheck wraps the subject in a memory checker.
type MemCheck struct {
	checker string
	subject string
}

// NewMemCheck resolves checker on PATH and returns a memory-checked strategy.
// A missing checker returns ErrCheckerNotFound.
func NewMemCheck(checker, subject string) (*MemCheck, error) {
	if checker == "" {
		checker = DefaultChecker
	}
	resolved, err := exec.LookPath(checker)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCheckerNotFound, checker)
	}
	return &MemCheck{checker: resolved, subject: subject}, nil
}

func (m *MemCheck) Mode() Mode { return ModeMemCheck }
func (m *MemCheck) Subject() string { return m.subject }

// Checker returns the resolved checker path.
func (m *MemCheck) Checker() string { return m.checker }

func (m *MemCheck) Command(args []string) []string {
	argv := make([]string, 0, len(CheckerArgs)+len(args)+2)
	argv = append(argv, m.checker)
	argv = append(argv, CheckerArgs...)
	argv = append(argv, m.subject)
	return append(argv, args...)
}

func (m *MemCheck) Invoke(ctx context.Context, req Request) (expect.Output, error) {
	raw, err := execute(ctx, m.Command(req.Args))
	if err != nil {
		return expect.Output{}, err
	}
	return raw.output(req.Stdout), nil
}

// Runner executes the subject through a cross-environment shim.
type Runner struct {
	words   []string
	subject string
}

// NewRunner splits command with shell word rules (environment variables are
// expanded) and resolves its first word.
func NewRunner(command, subject string) (*Runner, error) {
	words, err := shell.Fields(command, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("parse runner %q: %w", command, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: empty runner command", ErrRunnerNotFound)
	}
	resolved, err := exec.LookPath(words[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRunnerNotFound, words[0])
	}
	words[0] = resolved
	return &Runner{words: words, subject: subject}, nil
}

func (r *Runner) Mode() Mode { return ModeRunner }
func (r *Runner) Subject() string { return r.subject }

func (r *Runner) Command(args []string) []string {
	argv := make([]string, 0, len(r.words)+len(args)+1)
	argv = append(argv, r.words...)
	argv = append(argv, r.subject)
	return append(argv, args...)
}

func (r *Runner) Invoke(ctx context.Context, req Request) (expect.Output, error) {
	raw, err := execute(ctx, r.Command(req.Args))
	if err != nil {
		return expect.Output{}, err
	}
	out := raw.output(req.Stdout)
	out.StderrMasked = req.ExpectsStderr
	return out, nil
}

// Options selects and configures a strategy.
type Options struct {
	Subject  string
	Runner   string
	MemCheck bool
	Checker  string
}

// Select returns the strategy for opts: runner wins over memory checking,
// which wins over direct invocation.
func Select(opts Options) (Strategy, error) {
	switch {
	case strings.TrimSpace(opts.Runner) != "":
		return NewRunner(opts.Runner, opts.Subject)
	case opts.MemCheck:
		return NewMemCheck(opts.Checker, opts.Subject)
	default:
		return NewDirect(opts.Subject), nil
	}
}

// LocateSubject verifies that path names an existing regular file. A bare
// name without a path separator is also looked up on PATH. The returned path
// is absolute when it could be made so.
func LocateSubject(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrSubjectNotFound)
	}
	info, err := os.Stat(path)
	if err == nil && info.Mode().IsRegular() {
		if abs, absErr := filepath.Abs(path); absErr == nil {
			return abs, nil
		}
		return path, nil
	}
	if !strings.ContainsRune(path, filepath.Separator) && !strings.ContainsRune(path, '/') {
		if resolved, lookErr := exec.LookPath(path); lookErr == nil {
			return resolved, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrSubjectNotFound, path)
}

// rawOutput is what the process wrote before decoding.
type rawOutput struct {
	stdout   []byte
	stderr   []byte
	exitCode int
}

func (r rawOutput) output(kind expect.StdoutKind) expect.Output {
	out := expect.Output{
		ReturnCode: r.exitCode,
		Stderr:     string(r.stderr),
	}
	if kind == expect.Structured {
		out.Stdout = expect.DecodeStructured(r.stdout)
	} else {
		out.Stdout = string(r.stdout)
	}
	return out
}

// execute runs argv to completion. A non-zero exit is a normal result; only
// failures to start or a context deadline are errors.
func execute(ctx context.Context, argv []string) (rawOutput, error) {
	if len(argv) == 0 {
		return rawOutput{}, fmt.Errorf("empty argv")
	}
	// #nosec G204 -- argv comes from the suite and the run configuration.
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Bound the wait for pipes held open by grandchildren after a kill.
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return rawOutput{}, fmt.Errorf("run %s: %w", argv[0], ErrTimeout)
		}
		return rawOutput{}, fmt.Errorf("run %s: %w", argv[0], ctxErr)
	}

	raw := rawOutput{stdout: stdout.Bytes(), stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return rawOutput{}, fmt.Errorf("run %s: %w", argv[0], err)
		}
		raw.exitCode = exitErr.ExitCode()
	}
	return raw, nil
}
