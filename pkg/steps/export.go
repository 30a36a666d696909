package steps

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/systemstart/torii/pkg/api"
	"github.com/systemstart/torii/pkg/storage"
)

type exportAction struct {
	provider storage.Provider
}

func (a *exportAction) perform(ctx context.Context, workDir string) error {
	files, err := matchFiles(os.DirFS(workDir), api.DefaultKeep)
	if err != nil {
		return fmt.Errorf("walking workspace: %w", err)
	}

	slog.Info("running export", "files", len(files))

	for _, key := range files {
		if err := a.store(ctx, workDir, key); err != nil {
			return err
		}
	}
	return nil
}

func (a *exportAction) store(ctx context.Context, workDir, key string) error {
	f, err := os.Open(filepath.Join(workDir, filepath.FromSlash(key)))
	if err != nil {
		return fmt.Errorf("opening %s: %w", key, err)
	}
	defer f.Close()

	if err := a.provider.Store(ctx, f, key); err != nil {
		return fmt.Errorf("exporting %s: %w", key, err)
	}
	slog.Debug("exported file", "key", key)
	return nil
}
