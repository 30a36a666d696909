package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
)

// LocalConfig holds the constructor parameters of the local backend.
type LocalConfig struct {
	Container string `mapstructure:"container"`
}

// Local stores objects as files below a container directory.
type Local struct {
	root string
}

var _ Provider = (*Local)(nil)

// NewLocal creates a local provider rooted at cfg.Container. The directory
// is created on first store.
func NewLocal(cfg LocalConfig) (*Local, error) {
	if cfg.Container == "" {
		return nil, fmt.Errorf("container is required")
	}
	root, err := filepath.Abs(cfg.Container)
	if err != nil {
		return nil, fmt.Errorf("resolving container: %w", err)
	}
	return &Local{root: root}, nil
}

// Root returns the absolute container directory.
func (l *Local) Root() string { return l.root }

func (l *Local) path(key string) (string, error) {
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("key %q escapes container", key)
	}
	return filepath.Join(l.root, rel), nil
}

func (l *Local) Store(ctx context.Context, r io.Reader, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := l.path(key)
	if err != nil {
		return err
	}
	if err := writeFile(target, r); err != nil {
		return fmt.Errorf("storing %s: %w", key, err)
	}
	return nil
}

func (l *Local) Retrieve(ctx context.Context, key, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := l.path(key)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("opening %s: %w", key, err)
	}
	defer in.Close()

	if err := writeFile(dest, in); err != nil {
		return fmt.Errorf("retrieving %s: %w", key, err)
	}
	return nil
}

func (l *Local) List(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("walk error at %s: %w", path, err)
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(l.root, path)
			if err != nil {
				return fmt.Errorf("computing relative path for %s: %w", path, err)
			}
			if !yield(filepath.ToSlash(rel), nil) {
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil {
			yield("", fmt.Errorf("listing %s: %w", l.root, err))
		}
	}
}
