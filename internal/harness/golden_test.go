package harness

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Transcript is what a run wrote to its two output streams.
type Transcript struct {
	Stdout bytes.Buffer
	Stderr bytes.Buffer
}

// Bytes joins both streams under headers for golden comparison.
func (tr *Transcript) Bytes() []byte {
	var b bytes.Buffer
	b.WriteString("== stdout ==\n")
	b.Write(tr.Stdout.Bytes())
	b.WriteString("== stderr ==\n")
	b.Write(tr.Stderr.Bytes())
	return b.Bytes()
}

// AssertGolden compares a transcript with testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, tr *Transcript) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, tr.Bytes())
}
