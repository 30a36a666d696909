// Package build locates finished builds on disk.
package build

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/systemstart/torii/pkg/api"
)

// BuildNumberFilename is written by the build into each target's output folder.
const BuildNumberFilename = "buildnumber.txt"

// Context keys exposed to step templates.
const (
	KeyTarget         = "target"
	KeyExecutableName = "executable_name"
	KeyBuildNumber    = "build_number"
	KeyPath           = "path"
)

var (
	ErrBuildMissing = errors.New("build folder does not exist")
	ErrBuildEmpty   = errors.New("build folder is empty")
)

// Data describes a completed build of one target.
type Data struct {
	Def         api.BuildDef
	BuildNumber string
	Path        string
}

// Collect finds the build for def under outputFolder and reads its build
// number.
func Collect(outputFolder string, def api.BuildDef) (*Data, error) {
	buildPath, err := filepath.Abs(filepath.Join(outputFolder, string(def.Target)))
	if err != nil {
		return nil, fmt.Errorf("resolving build path: %w", err)
	}

	entries, err := os.ReadDir(buildPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", buildPath, ErrBuildMissing)
		}
		return nil, fmt.Errorf("reading build folder: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", buildPath, ErrBuildEmpty)
	}

	raw, err := os.ReadFile(filepath.Join(buildPath, BuildNumberFilename))
	if err != nil {
		return nil, fmt.Errorf("reading build number: %w", err)
	}

	return &Data{
		Def:         def,
		BuildNumber: strings.TrimSpace(string(raw)),
		Path:        buildPath,
	}, nil
}

// Context returns the flat mapping used to resolve step templates.
func (d *Data) Context() map[string]any {
	return map[string]any{
		KeyTarget:         string(d.Def.Target),
		KeyExecutableName: d.Def.ExecutableName,
		KeyBuildNumber:    d.BuildNumber,
		KeyPath:           d.Path,
	}
}
