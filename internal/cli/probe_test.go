package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/conform/internal/gate"
	"github.com/roach88/conform/internal/testutil"
)

func TestProbe_JSON(t *testing.T) {
	fx := testutil.NewFixtures(t)

	stdout, _, err := execute(t, "probe", "--trurl", fx.Subject, "--encoding", "UTF-8", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   ProbeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, fx.Subject, resp.Data.Subject)
	assert.Equal(t, "direct", resp.Data.Mode)
	assert.Equal(t, []string{"punycode", "white-space", "zone-id"}, resp.Data.Features)
	assert.Equal(t, "8.5.0", resp.Data.Runtime)
	assert.Equal(t, "8.4.0", resp.Data.Build)
	assert.Equal(t, "UTF-8", resp.Data.Encoding)
}

func TestProbe_Text(t *testing.T) {
	fx := testutil.NewFixtures(t)

	stdout, _, err := execute(t, "probe", "--trurl", fx.Subject, "--encoding", "UTF-8")
	require.NoError(t, err)
	assert.Contains(t, stdout, "mode:     direct\n")
	assert.Contains(t, stdout, "runtime:  8.5.0\n")
	assert.Contains(t, stdout, "features: punycode white-space zone-id\n")
}

func TestProbe_MissingSubject(t *testing.T) {
	_, _, err := execute(t, "probe", "--trurl", filepath.Join(t.TempDir(), "trurl"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestProbeResult_String(t *testing.T) {
	p := ProbeResult{Subject: "/bin/trurl", Mode: "direct", Environment: gate.Environment{}}
	assert.Equal(t,
		"subject:  /bin/trurl\nmode:     direct\nruntime:  unknown\nbuild:    unknown\nencoding: unknown\nfeatures: (none)",
		p.String())
}
