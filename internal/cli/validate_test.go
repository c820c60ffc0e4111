package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidConfigs(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})

	out, err := execute(cmd, elementsDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All elements valid (3 element(s) in 2 file(s))")
}

func TestValidateValidConfigsJSON(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "json"})

	out, err := execute(cmd, elementsDir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"banner", "feed_card", "footer"}, resp.Data.Elements)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})

	out, err := execute(cmd, "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E005")
	assert.Contains(t, out, "not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateEmptyDirectory(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})

	_, err := execute(cmd, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E003")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateUnknownMode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.cue", `package elements

element: promo: {
	modes: ["view", "flash"]
}
`)

	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	out, err := execute(cmd, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "E101")
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "promo.modes")
	assert.Contains(t, out, "1 validation error(s)")
}

func TestValidateFloatParamJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.cue", `package elements

element: promo: {
	payload: action_params: ratio: 0.5
}
`)

	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	out, err := execute(cmd, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E102", resp.Error.Code)
}

func TestValidateSyntaxError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.cue", "package elements\n\nelement: {\n")

	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	_, err := execute(cmd, dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateRequiresArgument(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	_, err := execute(cmd)
	assert.Error(t, err)
}

func TestFormatIssue(t *testing.T) {
	assert.Equal(t, "a.cue:3: [E101] promo.modes: unknown mode",
		formatIssue(ValidationIssue{Code: "E101", Element: "promo", Field: "modes", Message: "unknown mode", File: "a.cue", Line: 3}))
	assert.Equal(t, "[E003] no CUE files",
		formatIssue(ValidationIssue{Code: "E003", Message: "no CUE files"}))
}
