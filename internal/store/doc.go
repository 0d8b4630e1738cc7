// Package store provides SQLite-backed run history for conform.
//
// Each run records the suite, subject, invocation mode and the discovered
// subject environment, followed by one row per executed or skipped case and
// the final tally. Runs are ordered by a monotonically increasing seq column
// rather than wall-clock time so listings are stable even when clocks jump.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
