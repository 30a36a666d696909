package steps

import (
	"archive/tar"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systemstart/torii/pkg/api"
)

func runCompress(t *testing.T, cfg *api.CompressConfig, files map[string]string) string {
	t.Helper()
	prev := workspaceWith(t, files)

	s, err := NewStep(api.StepConfig{Kind: api.StepCompress, Compress: cfg}, buildContext("/unused"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Cleanup() })

	require.NoError(t, s.UseWorkspace(prev))
	require.NoError(t, s.Perform(context.Background()))

	dir, err := s.Workspace().Dir()
	require.NoError(t, err)
	return dir
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	files, err := matchFiles(os.DirFS(dir), "**")
	require.NoError(t, err)
	return files
}

func TestCompressStep_Zip(t *testing.T) {
	dir := runCompress(t, &api.CompressConfig{ArchiveName: "{{ .executable_name }}-{{ .build_number }}.zip"}, map[string]string{
		"game":           "bin",
		"data/level.pak": "lvl",
	})

	assert.Equal(t, []string{"game-17.zip"}, listDir(t, dir), "only the archive remains in the workspace")

	zr, err := zip.OpenReader(filepath.Join(dir, "game-17.zip"))
	require.NoError(t, err)
	defer zr.Close()

	contents := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		contents[f.Name] = string(data)
	}
	assert.Equal(t, map[string]string{"game": "bin", "data/level.pak": "lvl"}, contents)
}

func TestCompressStep_TarGzKeepExisting(t *testing.T) {
	dir := runCompress(t, &api.CompressConfig{ArchiveName: "dist/game.tgz", KeepExisting: true, Keep: "*.txt"}, map[string]string{
		"a.txt": "A",
		"b.txt": "B",
		"c.bin": "C",
	})

	assert.Equal(t, []string{"a.txt", "b.txt", "dist/game.tgz"}, listDir(t, dir), "inputs are kept next to the archive")

	f, err := os.Open(filepath.Join(dir, "dist", "game.tgz"))
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	var names []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		name    string
		want    ArchiveFormat
		wantErr bool
	}{
		{"game.zip", FormatZip, false},
		{"GAME.ZIP", FormatZip, false},
		{"game.tar.gz", FormatTarGz, false},
		{"game.tgz", FormatTarGz, false},
		{"game.7z", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatFor(tt.name)
			if tt.wantErr {
				assert.ErrorContains(t, err, "unsupported archive extension")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
