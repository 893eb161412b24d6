package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/josephlewis42/pipegate/core/stagexec"
	"github.com/stretchr/testify/require"
)

// TestMain lets the test binary act as the stage trampoline, the same way the
// pipegate binary does through its hidden subcommand.
func TestMain(m *testing.M) {
	if len(os.Args) > 1 && os.Args[1] == stagexec.CommandName {
		stagexec.Main(os.Args[2:], os.Stderr)
	}
	os.Exit(m.Run())
}

func testTrampoline(t *testing.T) []string {
	t.Helper()

	self, err := os.Executable()
	require.NoError(t, err)
	return []string{self, stagexec.CommandName}
}

func newTestLauncher(t *testing.T) *Launcher {
	t.Helper()

	launcher, err := NewLauncher(testTrampoline(t), nil, nil)
	require.NoError(t, err)
	return launcher
}

// writeScript creates an executable shell script and returns its path, which
// can be used as a stage name since it contains a slash.
func writeScript(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}
