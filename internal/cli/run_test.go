package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunScenarioText(t *testing.T) {
	dir := t.TempDir()
	scenario := writeFile(t, dir, "normal.yaml", passingScenario)
	db := filepath.Join(dir, "log.db")

	out, err := execute(NewRunCommand(&RootOptions{Format: "text"}), scenario, "--db", db)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Scenario: cli_normal")
	assert.Contains(t, out, "Instance: test-instance-default")
	assert.Contains(t, out, "Dispatches: 1")
	assert.Contains(t, out, `[1] normal event="1001"`)
	assert.Contains(t, out, "✓ Scenario passed")
}

func TestRunScenarioAppendsAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	scenario := writeFile(t, dir, "normal.yaml", passingScenario)
	db := filepath.Join(dir, "log.db")

	_, err := execute(NewRunCommand(&RootOptions{Format: "text"}), scenario, "--db", db)
	require.NoError(t, err)

	out, err := execute(NewRunCommand(&RootOptions{Format: "json"}), scenario, "--db", db)
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Pass  bool `json:"pass"`
			Trace []struct {
				Seq  int64  `json:"seq"`
				Mode string `json:"mode"`
			} `json:"trace"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.Pass)
	require.Len(t, resp.Data.Trace, 1)
	assert.Equal(t, int64(2), resp.Data.Trace[0].Seq)
}

func TestRunScenarioFailure(t *testing.T) {
	dir := t.TempDir()
	scenario := writeFile(t, dir, "bad.yaml", failingScenario)

	out, err := execute(NewRunCommand(&RootOptions{Format: "text"}), scenario, "--db", filepath.Join(dir, "log.db"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Scenario failed")
}

func TestRunScenarioErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(NewRunCommand(&RootOptions{Format: "text"}), filepath.Join(dir, "missing.yaml"), "--db", filepath.Join(dir, "log.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	scenario := writeFile(t, dir, "normal.yaml", passingScenario)
	_, err = execute(NewRunCommand(&RootOptions{Format: "text"}), scenario)
	require.Error(t, err, "--db is required")
}
