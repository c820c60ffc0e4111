package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/exposure/internal/ir"
)

// createTestStore opens a fresh file-backed log in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDispatch(instanceID, mode string) ir.Dispatch {
	return ir.Dispatch{
		InstanceID:   instanceID,
		Target:       "banner",
		Mode:         mode,
		Event:        ir.IRString("1001"),
		EventParams:  ir.IRObject{"uicode": ir.IRString("banner")},
		ActionParams: ir.IRObject{"slot": ir.IRInt(2)},
	}
}
