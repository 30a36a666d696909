package steps

import (
	"errors"
	"fmt"
	"os"
)

// ErrWorkspaceRemoved is returned when a cleaned up workspace is used again.
var ErrWorkspaceRemoved = errors.New("workspace already removed")

// Workspace is a step's private temporary directory. It is created on first
// use and removed at most once.
type Workspace struct {
	label   string
	dir     string
	removed bool
}

// NewWorkspace returns a workspace whose directory name starts with label.
func NewWorkspace(label string) *Workspace {
	return &Workspace{label: label}
}

// Dir returns the workspace directory, creating it on first call.
func (w *Workspace) Dir() (string, error) {
	if w.removed {
		return "", ErrWorkspaceRemoved
	}
	if w.dir == "" {
		dir, err := os.MkdirTemp("", "torii-"+w.label+"-")
		if err != nil {
			return "", fmt.Errorf("creating workspace: %w", err)
		}
		w.dir = dir
	}
	return w.dir, nil
}

// Created reports whether the directory exists on disk.
func (w *Workspace) Created() bool {
	return w.dir != "" && !w.removed
}

// Cleanup removes the directory. Calling it again does nothing.
func (w *Workspace) Cleanup() error {
	if w.removed {
		return nil
	}
	w.removed = true
	if w.dir == "" {
		return nil
	}
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("removing workspace %s: %w", w.dir, err)
	}
	return nil
}
