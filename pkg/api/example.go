package api

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed example_config.yml
var exampleConfig []byte

// ErrConfigExists is returned by CreateConfig when a config is already present.
var ErrConfigExists = errors.New("config already exists")

// CreateConfig writes the example configuration into projectDir and returns
// its path. An existing file is only replaced when force is set.
func CreateConfig(projectDir string, force bool) (string, error) {
	target := filepath.Join(projectDir, ConfigFilename)

	if _, err := os.Stat(target); err == nil && !force {
		return "", fmt.Errorf("%s: %w", target, ErrConfigExists)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("checking %s: %w", target, err)
	}

	if err := os.MkdirAll(projectDir, 0o750); err != nil {
		return "", fmt.Errorf("creating project directory: %w", err)
	}
	if err := os.WriteFile(target, exampleConfig, 0o600); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	return target, nil
}
