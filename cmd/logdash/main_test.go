package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs a fresh command tree and returns its output.
func executeCommand(args ...string) (string, error) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeLogDir(t *testing.T) (dir, configPath string) {
	t.Helper()
	dir = t.TempDir()
	lines := "2024-01-01 10:00:00 - worker1 - INFO - started job [metadata:{\"job_id\":42}]\n" +
		"2024-01-01 11:00:00 - api - ERROR - request failed\n" +
		"not a log line\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.log"), []byte(lines), 0644))

	configPath = filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("[logging]\nlevel = \"error\"\n"), 0644))
	return dir, configPath
}

func TestRootCommandHelp(t *testing.T) {
	output, err := executeCommand("--help")
	assert.NoError(t, err)
	assert.Contains(t, output, "Usage:")
	for _, sub := range []string{"serve", "query", "stats", "version"} {
		assert.Contains(t, output, sub)
	}
}

func TestVersionCommand(t *testing.T) {
	output, err := executeCommand("version", "--config", filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.Contains(t, output, "logdash dev")
}

func TestQueryCommand(t *testing.T) {
	dir, cfg := writeLogDir(t)

	output, err := executeCommand("query", "--config", cfg, "--log-dir", dir, "--level", "ERROR", "--compact")
	require.NoError(t, err)

	var res struct {
		Logs []struct {
			Message string `json:"message"`
		} `json:"logs"`
		Statistics map[string]map[string]int `json:"statistics"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &res))
	require.Len(t, res.Logs, 1)
	assert.Equal(t, "request failed", res.Logs[0].Message)
	assert.Equal(t, map[string]int{"ERROR": 1}, res.Statistics["by_level"])
}

func TestQueryCommand_Metadata(t *testing.T) {
	dir, cfg := writeLogDir(t)

	output, err := executeCommand("query", "-c", cfg, "--log-dir", dir,
		"--metadata-key", "job_id", "--metadata-value", "42", "--start", "2024-01-01")
	require.NoError(t, err)
	assert.Contains(t, output, `"started job"`)
	assert.NotContains(t, output, "request failed")
}

func TestQueryCommand_InvalidDate(t *testing.T) {
	dir, cfg := writeLogDir(t)

	_, err := executeCommand("query", "-c", cfg, "--log-dir", dir, "--start", "last tuesday")
	assert.Error(t, err)
}

func TestQueryCommand_MissingDirectory(t *testing.T) {
	_, cfg := writeLogDir(t)

	_, err := executeCommand("query", "-c", cfg, "--log-dir", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestStatsCommand(t *testing.T) {
	dir, cfg := writeLogDir(t)

	output, err := executeCommand("stats", "-c", cfg, "--log-dir", dir)
	require.NoError(t, err)
	for _, want := range []string{"2 records", "By level", "By hour", "By file", "By name", "a.log", "worker1", "2024-01-01 10:00"} {
		assert.Contains(t, output, want)
	}
}

func TestStatsCommand_Empty(t *testing.T) {
	_, cfg := writeLogDir(t)

	output, err := executeCommand("stats", "-c", cfg, "--log-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, output, "0 records")
	assert.Contains(t, output, "(none)")
}

func TestServeCommand_InvalidConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("[server]\nport = 70000\n"), 0644))

	_, err := executeCommand("serve", "-c", cfg, "--no-browser")
	assert.Error(t, err)
}

func TestInvalidCommand(t *testing.T) {
	_, err := executeCommand("invalid-command")
	assert.Error(t, err)
}
