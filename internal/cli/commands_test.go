package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/soyeahso/caselink/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command against an isolated home directory.
func runCLI(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CASELINK_HOME", home)
	for _, k := range []string{"DATABRICKS_HOST", "DATABRICKS_TOKEN", "DATABRICKS_CLIENT_ID", "DATABRICKS_CLIENT_SECRET", "UI_AGENT_MAX_ACTIONS", "CASELINK_GATEWAY_TOKEN", "CASELINK_GATEWAY_PASSWORD", "CASELINK_GATEWAY_PORT", "CASELINK_LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(home, "config.yaml"), "--log-level", "silent"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionJSON(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "version", "--json")
	require.NoError(t, err)

	var b version.Build
	require.NoError(t, json.Unmarshal([]byte(out), &b))
	assert.Equal(t, version.Version, b.Version)
	assert.NotEmpty(t, b.Go)
}

func TestPromptCommand(t *testing.T) {
	home := t.TempDir()

	out, err := runCLI(t, home, "prompt")
	require.NoError(t, err)
	assert.Contains(t, out, "Return at most 5 actions.")

	out, err = runCLI(t, home, "prompt", "--max-actions", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Return at most 3 actions.")
}

func TestConfigSetGetUnset(t *testing.T) {
	home := t.TempDir()

	out, err := runCLI(t, home, "config", "set", "agent.maxActions", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Set agent.maxActions = 3")

	out, err = runCLI(t, home, "config", "get", "agent.maxActions")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = runCLI(t, home, "prompt")
	require.NoError(t, err)
	assert.Contains(t, out, "Return at most 3 actions.")

	_, err = runCLI(t, home, "config", "unset", "agent.maxActions")
	require.NoError(t, err)

	_, err = runCLI(t, home, "config", "get", "agent.maxActions")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	home := t.TempDir()

	out, err := runCLI(t, home, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Config OK")

	_, err = runCLI(t, home, "config", "set", "gateway.bind", "tailnet")
	require.NoError(t, err)

	out, err = runCLI(t, home, "config", "validate")
	require.Error(t, err)
	assert.Contains(t, out, "gateway.bind")
}

func TestSeedAndStatus(t *testing.T) {
	home := t.TempDir()

	out, err := runCLI(t, home, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "(not seeded)")
	assert.Contains(t, out, "auth=none")

	out, err = runCLI(t, home, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded")
	assert.FileExists(t, filepath.Join(home, "data", "caselink.db"))

	out, err = runCLI(t, home, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "suspects=")
	assert.NotContains(t, out, "suspects=0 ")
}

func TestSessionCommands(t *testing.T) {
	home := t.TempDir()

	first, err := runCLI(t, home, "session", "new")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	out, err := runCLI(t, home, "session", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "New session started.")

	out, err = runCLI(t, home, "session", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Session reset")

	out, err = runCLI(t, home, "session", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "(0 messages)")
}

func TestUnknownLogLevel(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "--log-level", "loud", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown log level "loud"`)
}
