package steps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeTestFile writes content to a file in dir, creating parent directories.
func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// readTestFile returns the content of a file in dir.
func readTestFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

// workspaceWith returns a created workspace containing files.
func workspaceWith(t *testing.T, files map[string]string) *Workspace {
	t.Helper()
	ws := NewWorkspace("test")
	dir, err := ws.Dir()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Cleanup() })
	for name, content := range files {
		writeTestFile(t, dir, name, content)
	}
	return ws
}

// buildContext is the template data of a StandaloneLinux64 build.
func buildContext(path string) map[string]any {
	return map[string]any{
		"target":          "StandaloneLinux64",
		"executable_name": "game",
		"build_number":    "17",
		"path":            path,
	}
}
