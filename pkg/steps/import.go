package steps

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/systemstart/torii/pkg/storage"
)

type importAction struct {
	provider storage.Provider
	keep     string
}

func (a *importAction) perform(ctx context.Context, workDir string) error {
	slog.Info("running import", "keep", a.keep)

	var count int
	for key, err := range a.provider.List(ctx) {
		if err != nil {
			return fmt.Errorf("listing objects: %w", err)
		}
		if !doublestar.MatchUnvalidated(a.keep, key) {
			continue
		}
		dest := filepath.Join(workDir, filepath.FromSlash(key))
		if err := a.provider.Retrieve(ctx, key, dest); err != nil {
			return fmt.Errorf("importing %s: %w", key, err)
		}
		count++
	}

	slog.Info("import finished", "files", count)
	return nil
}
