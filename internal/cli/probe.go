package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/conform/internal/config"
	"github.com/roach88/conform/internal/gate"
)

// ProbeResult is the discovered subject environment.
type ProbeResult struct {
	Subject string `json:"subject"`
	Mode    string `json:"mode"`
	gate.Environment
}

func (p ProbeResult) String() string {
	features := strings.Join(p.Features, " ")
	if features == "" {
		features = "(none)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "subject:  %s\n", p.Subject)
	fmt.Fprintf(&b, "mode:     %s\n", p.Mode)
	fmt.Fprintf(&b, "runtime:  %s\n", orUnknown(p.Runtime))
	fmt.Fprintf(&b, "build:    %s\n", orUnknown(p.Build))
	fmt.Fprintf(&b, "encoding: %s\n", orUnknown(p.Encoding))
	fmt.Fprintf(&b, "features: %s", features)
	return b.String()
}

// NewProbeCommand creates the probe command.
func NewProbeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Show what trurl reports about itself",
		Long: `Run trurl --version once, the same way a test run would, and show the
discovered features, libcurl versions and locale encoding that gate tests.

Examples:
  conform probe
  conform probe --trurl /usr/local/bin/trurl --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, rootOpts)
		},
	}

	addSubjectFlags(cmd)
	cmd.Flags().Duration(config.KeyTimeout, 0, "probe timeout (0 disables)")

	return cmd
}

func runProbe(cmd *cobra.Command, rootOpts *RootOptions) error {
	opts, out, _, strategy, err := setup(cmd, rootOpts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	env, err := gate.Discover(ctx, strategy, opts.Encoding, os.Getenv)
	if err != nil {
		return out.Fail("probe failed", err)
	}

	return out.Success(ProbeResult{
		Subject:     strategy.Subject(),
		Mode:        string(strategy.Mode()),
		Environment: env,
	})
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
