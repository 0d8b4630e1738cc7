package testutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// FakeTrurl is a POSIX shell stand-in for the subject. It reports a version
// with libcurl/8.5.0 [built-with 8.4.0] and the features punycode,
// white-space and zone-id, and understands a handful of argument vectors:
//
//	example.com                 prints http://example.com/
//	--url U --redirect here.html prints https://curl.se/we/here.html
//	--json example.com          prints a JSON array describing the URL
//	--badjson                   prints truncated JSON
//	--fail                      writes to stderr and exits 7
//	--sleep                     sleeps for 5 seconds
//
// Anything else writes "unknown" to stderr and exits 1. When FAKE_TRURL_LOG
// names a file, every invocation first appends its arguments to it as one
// line.
const FakeTrurl = `#!/bin/sh
if [ -n "$FAKE_TRURL_LOG" ]; then
	echo "$*" >> "$FAKE_TRURL_LOG"
fi
case "$1" in
--version)
	echo "trurl version 0.16 libcurl/8.5.0 [built-with 8.4.0]"
	echo "features: punycode white-space zone-id"
	exit 0
	;;
example.com)
	echo "http://example.com/"
	exit 0
	;;
--url)
	if [ "$2" = "https://curl.se/we/are.html" ] && [ "$3" = "--redirect" ]; then
		echo "https://curl.se/we/$4"
		exit 0
	fi
	;;
--json)
	echo '[{"url":"http://example.com/","parts":{"scheme":"http","host":"example.com","path":"/"}}]'
	exit 0
	;;
--badjson)
	echo '[{"url":'
	exit 0
	;;
--fail)
	echo "trurl error: bad" >&2
	exit 7
	;;
--sleep)
	sleep 5
	exit 0
	;;
esac
echo "unknown $*" >&2
exit 1
`

// FakeRunner forwards to its arguments after writing shim chatter to stderr.
const FakeRunner = `#!/bin/sh
echo "runner: emulating $1" >&2
exec "$@"
`

// FakeChecker mimics a memory checker: it drops leading options and runs the
// remaining command. FAKE_CHECKER_ERROR=1 makes it report a memory error by
// exiting 1 after the subject finishes successfully.
const FakeChecker = `#!/bin/sh
while [ $# -gt 0 ]; do
	case "$1" in
	-*) shift ;;
	*) break ;;
	esac
done
"$@"
status=$?
if [ "$FAKE_CHECKER_ERROR" = "1" ]; then
	echo "==1== Invalid read of size 1" >&2
	exit 1
fi
exit $status
`

// RequirePOSIX skips the test on platforms without /bin/sh scripts.
func RequirePOSIX(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures require a POSIX shell")
	}
}

// WriteScript writes an executable script named name into dir and returns
// its path.
func WriteScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	RequirePOSIX(t)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
	return path
}

// InvocationLog makes the fake trurl record its invocations in a fresh file
// and returns a function reading them back, one argument line per call.
func InvocationLog(t *testing.T) func() []string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invocations.log")
	t.Setenv("FAKE_TRURL_LOG", path)
	return func() []string {
		t.Helper()
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			t.Fatalf("read invocation log: %v", err)
		}
		return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	}
}

// Fixtures holds paths to the fake subject, runner and checker.
type Fixtures struct {
	Dir     string
	Subject string
	Runner  string
	Checker string
}

// NewFixtures writes all fake executables into a fresh temp directory.
func NewFixtures(t *testing.T) Fixtures {
	t.Helper()
	dir := t.TempDir()
	return Fixtures{
		Dir:     dir,
		Subject: WriteScript(t, dir, "trurl", FakeTrurl),
		Runner:  WriteScript(t, dir, "fake-runner", FakeRunner),
		Checker: WriteScript(t, dir, "fake-checker", FakeChecker),
	}
}
