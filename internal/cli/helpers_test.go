package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var (
	elementsDir  = filepath.Join("..", "..", "testdata", "elements")
	scenariosDir = filepath.Join("..", "..", "testdata", "scenarios")
)

// execute runs cmd with args and returns stdout and the command error.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const passingScenario = `name: cli_normal
description: "normal dispatches once"
target: banner
modes: [normal]
payload:
  evt: "1001"
steps:
  - { at_ms: 0, action: activate }
  - { at_ms: 10, action: deactivate }
assertions:
  - type: dispatch_count
    count: 1
`

const failingScenario = `name: cli_wrong
description: "expects a dispatch that never happens"
target: banner
modes: [normal]
steps:
  - { at_ms: 0, action: activate }
assertions:
  - type: dispatch_count
    count: 3
`
