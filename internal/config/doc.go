// Package config resolves conform's run configuration.
//
// Values come from, in decreasing precedence: command-line flags,
// CONFORM_* environment variables (dashes become underscores, so
// CONFORM_WITH_VALGRIND=1), an optional config file, and defaults.
//
// Config files may be YAML, TOML or JSON, read by viper, or CUE, which is
// validated against an embedded schema before being merged.
package config
