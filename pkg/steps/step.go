package steps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/systemstart/torii/pkg/api"
)

// ErrInvalidState is returned when a step is driven out of lifecycle order.
var ErrInvalidState = errors.New("invalid step state")

// State is the lifecycle position of a step. Steps only move forward.
type State int

const (
	StateConstructed State = iota
	StateWorkspacePrepared
	StatePerformed
	StateCleanedUp
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateWorkspacePrepared:
		return "workspace-prepared"
	case StatePerformed:
		return "performed"
	case StateCleanedUp:
		return "cleaned-up"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Step is a running post-build step.
type Step interface {
	Name() string
	Kind() api.StepKind
	State() State
	// Workspace is the handle the next step reads its input from.
	Workspace() *Workspace
	// UseWorkspace fills this step's workspace with the files of prev that
	// match the step's keep pattern.
	UseWorkspace(prev *Workspace) error
	Perform(ctx context.Context) error
	// Cleanup releases the workspace. It is safe to call in any state and
	// more than once.
	Cleanup() error
}

// action is the kind specific part of a step.
type action interface {
	perform(ctx context.Context, workDir string) error
}

type step struct {
	kind  api.StepKind
	keep  string
	state State
	ws    *Workspace
	act   action
}

func newStep(kind api.StepKind, keep string, act action) *step {
	return &step{
		kind: kind,
		keep: keep,
		ws:   NewWorkspace(string(kind)),
		act:  act,
	}
}

func (s *step) Name() string          { return string(s.kind) }
func (s *step) Kind() api.StepKind    { return s.kind }
func (s *step) State() State          { return s.state }
func (s *step) Workspace() *Workspace { return s.ws }

func (s *step) UseWorkspace(prev *Workspace) error {
	if s.state != StateConstructed {
		return fmt.Errorf("%w: cannot prepare workspace of %s step in state %s", ErrInvalidState, s.kind, s.state)
	}
	if prev == nil {
		return fmt.Errorf("%w: %s step given no previous workspace", ErrInvalidState, s.kind)
	}

	src, err := prev.Dir()
	if err != nil {
		return fmt.Errorf("previous workspace: %w", err)
	}
	dst, err := s.ws.Dir()
	if err != nil {
		return err
	}

	n, err := CopyMatching(src, dst, s.keep)
	if err != nil {
		return fmt.Errorf("preparing workspace: %w", err)
	}
	slog.Debug("workspace prepared", "step", s.kind, "keep", s.keep, "files", n, "dir", dst)

	s.state = StateWorkspacePrepared
	return nil
}

func (s *step) Perform(ctx context.Context) error {
	if s.state != StateConstructed && s.state != StateWorkspacePrepared {
		return fmt.Errorf("%w: cannot perform %s step in state %s", ErrInvalidState, s.kind, s.state)
	}

	dir, err := s.ws.Dir()
	if err != nil {
		return err
	}

	s.state = StatePerformed
	return s.act.perform(ctx, dir)
}

func (s *step) Cleanup() error {
	s.state = StateCleanedUp
	return s.ws.Cleanup()
}
