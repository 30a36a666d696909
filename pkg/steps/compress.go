package steps

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/systemstart/torii/pkg/api"
)

// ArchiveFormat is the container format written by the compress step.
type ArchiveFormat string

const (
	FormatZip   ArchiveFormat = "zip"
	FormatTarGz ArchiveFormat = "tar.gz"
)

// FormatFor derives the archive format from an archive file name.
func FormatFor(archiveName string) (ArchiveFormat, error) {
	lower := strings.ToLower(archiveName)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip, nil
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz, nil
	}
	return "", fmt.Errorf("unsupported archive extension in %q (use .zip, .tar.gz or .tgz)", archiveName)
}

type compressAction struct {
	archiveName  string
	format       ArchiveFormat
	keepExisting bool
}

func (a *compressAction) perform(_ context.Context, workDir string) error {
	files, err := matchFiles(os.DirFS(workDir), api.DefaultKeep)
	if err != nil {
		return fmt.Errorf("walking workspace: %w", err)
	}

	slog.Info("running compress", "archive", a.archiveName, "format", a.format, "files", len(files))

	tmp, err := os.CreateTemp(workDir, ".torii-archive-*")
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	tmpName := tmp.Name()

	writeErr := a.write(tmp, workDir, files)
	if closeErr := tmp.Close(); closeErr != nil && writeErr == nil {
		writeErr = fmt.Errorf("closing archive: %w", closeErr)
	}
	if writeErr != nil {
		_ = os.Remove(tmpName)
		return writeErr
	}

	if !a.keepExisting {
		if err := removeAllExcept(workDir, filepath.Base(tmpName)); err != nil {
			return err
		}
	}

	target := filepath.Join(workDir, filepath.FromSlash(a.archiveName))
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("creating directory for archive: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("moving archive into place: %w", err)
	}
	return nil
}

func (a *compressAction) write(w io.Writer, workDir string, files []string) error {
	switch a.format {
	case FormatZip:
		return writeZip(w, workDir, files)
	case FormatTarGz:
		return writeTarGz(w, workDir, files)
	}
	return fmt.Errorf("unsupported archive format %q", a.format)
}

func writeZip(w io.Writer, workDir string, files []string) error {
	zw := zip.NewWriter(w)
	for _, name := range files {
		if err := addToZip(zw, workDir, name); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing zip: %w", err)
	}
	return nil
}

func addToZip(zw *zip.Writer, workDir, name string) error {
	f, err := os.Open(filepath.Join(workDir, filepath.FromSlash(name)))
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip header for %s: %w", name, err)
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	entry, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	if _, err := io.Copy(entry, f); err != nil {
		return fmt.Errorf("compressing %s: %w", name, err)
	}
	return nil
}

func writeTarGz(w io.Writer, workDir string, files []string) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)
	for _, name := range files {
		if err := addToTar(tw, workDir, name); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("finishing tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("finishing gzip: %w", err)
	}
	return nil
}

func addToTar(tw *tar.Writer, workDir, name string) error {
	f, err := os.Open(filepath.Join(workDir, filepath.FromSlash(name)))
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("tar header for %s: %w", name, err)
	}
	hdr.Name = name

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("compressing %s: %w", name, err)
	}
	return nil
}

func removeAllExcept(dir, keep string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading workspace: %w", err)
	}
	for _, e := range entries {
		if e.Name() == keep {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", e.Name(), err)
		}
	}
	return nil
}
