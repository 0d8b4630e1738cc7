// Package gate decides whether a test case runs in the discovered
// environment.
//
// The environment is discovered once per run, before any case executes, by
// invoking the subject with --version. The second line of that output lists
// capability tokens after a leading label, and a substring of the form
//
//	libcurl/<runtime> [built-with <buildtime>]
//
// gives the runtime and build-time library versions. The active locale's
// character encoding comes from LC_ALL, LC_CTYPE or LANG.
//
// ShouldSkip checks, in order: required features, minimum runtime version,
// minimum build-time version, then required encoding. The first failing
// check decides the skip reason.
package gate
