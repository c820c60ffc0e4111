package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"validate", "plan", "test", "run", "trace"}, names)
}

func TestRootCommandGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestRootCommandRejectsUnknownFormat(t *testing.T) {
	cmd := NewRootCommand()

	_, err := execute(cmd, "--format", "yaml", "validate", elementsDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootCommandRunsSubcommand(t *testing.T) {
	cmd := NewRootCommand()

	out, err := execute(cmd, "validate", elementsDir)
	require.NoError(t, err)
	assert.Contains(t, out, "All elements valid")
}
