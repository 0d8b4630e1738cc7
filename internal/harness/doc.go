// Package harness runs a conformance suite against the subject.
//
// A run moves through four phases:
//
//  1. Discover: probe the subject once with --version and record its
//     capability set, library versions and the locale encoding.
//  2. Select: keep the cases named by an index list, or those whose
//     arguments contain the keyword.
//  3. Execute: for each selected case, either skip it through the
//     environment gate or invoke the subject and evaluate every declared
//     expectation.
//  4. Report: print per-case lines and the final tally, record history,
//     and derive the exit status.
//
// Cases run strictly one at a time. Cases removed by selection never execute
// and are absent from every count; gate-skipped cases count as skipped.
//
// # Output
//
// Passed cases print one line to the standard stream:
//
//	1: passed	example.com
//
// Failed cases go to the error stream with a block per declared field:
//
//	4: failed	--fail
//	--- returncode ---
//	expected:
//	0
//	got:
//	7
//
// Golden transcripts live in testdata/golden; regenerate them with
//
//	go test ./internal/harness -update
package harness
