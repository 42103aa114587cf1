package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtpanel/internal/panel"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	scriptBinary, scriptOutput, scriptFile = false, "", ""
	cycleCount, cycleHold = 1, 0
	logLevel = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVariantsCommand(t *testing.T) {
	out, err := execute(t, "variants")
	require.NoError(t, err)
	assert.Contains(t, out, "mt1280800a")
	assert.Contains(t, out, "motivo,mt1280800b")
	assert.Contains(t, out, "107x172mm")
	assert.Contains(t, out, "video|burst|sync-pulse|lpm")
}

func TestScriptCommandListing(t *testing.T) {
	out, err := execute(t, "script", "mt1280800a")
	require.NoError(t, err)

	d, _ := panel.Lookup("mt1280800a")
	assert.Equal(t, d.Script.String(), out)
}

func TestScriptCommandBinaryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mt1280800b.bin")

	out, err := execute(t, "script", "mt1280800b", "--output", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	d, _ := panel.Lookup("mt1280800b")
	want, _ := d.Script.MarshalBinary()
	assert.Equal(t, want, raw)

	out, err = execute(t, "script", "--file", path)
	require.NoError(t, err)
	assert.Equal(t, d.Script.String(), out)
}

func TestScriptCommandArgs(t *testing.T) {
	_, err := execute(t, "script")
	assert.Error(t, err)

	_, err = execute(t, "script", "mt0")
	assert.ErrorIs(t, err, panel.ErrUnknownVariant)
}

func TestCycleCommandAgainstSimulatedBoard(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	out, err := execute(t, "cycle", "--config", cfgPath, "--log-level", "error", "--count", "2", "--hold", "0s")
	require.NoError(t, err)
	assert.Contains(t, out, "#1 ok")
	assert.Contains(t, out, "#2 ok")
	assert.Contains(t, out, "2/2 cycles ok")
	assert.FileExists(t, cfgPath, "first run writes the default config")
}

func TestCycleCommandRejectsZeroCount(t *testing.T) {
	_, err := execute(t, "cycle", "--config", filepath.Join(t.TempDir(), "c.yaml"), "--count", "0")
	assert.Error(t, err)
}
