package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/conform/internal/config"
	"github.com/roach88/conform/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	LogLevel   string
}

// NewRootCommand creates the root command for the conform CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "conform",
		Short: "Conformance test runner for trurl",
		Long: `conform runs a declarative suite of test cases against the trurl binary.

Each case passes an argument vector to trurl and compares its stdout, stderr
and exit status against the declared expectations. Cases can be gated on
trurl's advertised features, its libcurl versions and the locale encoding.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, config.ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, config.KeyVerbose, "v", false, "show field details for passing tests too")
	cmd.PersistentFlags().StringVar(&opts.Format, config.KeyFormat, "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, config.KeyConfig, "", "config file (.yaml, .toml, .json or .cue)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, config.KeyLogLevel, logging.DefaultLevel,
		"log level ("+strings.Join(logging.Levels, "|")+")")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewProbeCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range config.ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadOptions resolves the configuration for cmd. Flags declared on cmd and
// its parents are bound by name.
func loadOptions(cmd *cobra.Command, root *RootOptions) (config.Options, error) {
	return config.Load(cmd.Flags(), root.ConfigFile)
}

// formatter builds the output formatter for resolved options.
func formatter(cmd *cobra.Command, opts config.Options) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
