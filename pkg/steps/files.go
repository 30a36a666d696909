package steps

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/systemstart/torii/pkg/api"
)

// matchFiles returns the slash-separated paths of regular files in fsys that
// match keep, sorted.
func matchFiles(fsys fs.FS, keep string) ([]string, error) {
	if keep == "" {
		keep = api.DefaultKeep
	}
	matches, err := doublestar.Glob(fsys, keep, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", keep, err)
	}

	var result []string
	for _, f := range matches {
		info, err := fs.Stat(fsys, f)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", f, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		result = append(result, f)
	}
	slices.Sort(result)
	return result, nil
}

// CopyMatching copies the files below src that match keep into dst,
// keeping their relative layout and permissions.
func CopyMatching(src, dst, keep string) (int, error) {
	files, err := matchFiles(os.DirFS(src), keep)
	if err != nil {
		return 0, fmt.Errorf("filtering files: %w", err)
	}
	for _, rel := range files {
		if err := copyFile(filepath.Join(src, filepath.FromSlash(rel)), filepath.Join(dst, filepath.FromSlash(rel))); err != nil {
			return 0, err
		}
	}
	return len(files), nil
}

func copyFile(srcPath, target string) (err error) {
	in, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", srcPath, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", srcPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("creating directory for %s: %w", target, err)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", target, cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s: %w", srcPath, err)
	}
	return nil
}
