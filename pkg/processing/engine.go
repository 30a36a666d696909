package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/systemstart/torii/pkg/api"
	"github.com/systemstart/torii/pkg/build"
	"github.com/systemstart/torii/pkg/steps"
	"golang.org/x/sync/errgroup"
)

// RunOptions controls a post-build run.
type RunOptions struct {
	// Options are the invocation options matched against step filters.
	Options []string
	// Context holds extra template variables. Build keys take precedence.
	Context map[string]any
	// Parallel is the number of targets processed at once; values below 2
	// process targets one after another.
	Parallel int
}

// Result describes one pipeline run for one target.
type Result struct {
	RunID    string
	Target   api.Target
	Executed []string
	Failed   string
	Skipped  []string
}

// Select returns the declared steps that apply to def, in declaration order.
func Select(cfgs []api.StepConfig, def api.BuildDef, options []string) []api.StepConfig {
	var selected []api.StepConfig
	for _, cfg := range cfgs {
		if cfg.Filter.Match(def, options) {
			selected = append(selected, cfg)
		}
	}
	return selected
}

// RunPipeline runs the implicit import followed by every selected step for
// one finished build. Cleanup of every constructed step always happens.
func RunPipeline(ctx context.Context, data *build.Data, cfgs []api.StepConfig, opts RunOptions) (*Result, error) {
	result := &Result{RunID: uuid.NewString(), Target: data.Def.Target}
	log := slog.With("run", result.RunID, "target", data.Def.Target)

	selected := Select(cfgs, data.Def, opts.Options)
	log.Info("collected post-steps", "declared", len(cfgs), "selected", len(selected))

	list, err := construct(data, selected, MergeContext(opts.Context, data.Context()))
	if err != nil {
		log.Error("could not configure post-steps", "error", err)
		return result, err
	}

	log.Info("running post-steps", "count", len(list))
	executed, runErr := execute(ctx, log, data.Def.Target, list)
	for i, s := range list {
		switch {
		case i < executed:
			result.Executed = append(result.Executed, s.Name())
		case i == executed:
			result.Failed = s.Name()
		default:
			result.Skipped = append(result.Skipped, s.Name())
		}
	}
	if runErr != nil {
		log.Error("post-steps failed", "error", runErr)
		return result, runErr
	}

	log.Info("finished running post-steps")
	return result, nil
}

// construct builds the implicit import and the selected steps. On error the
// steps built so far are cleaned up and none are returned.
func construct(data *build.Data, selected []api.StepConfig, tmplData map[string]any) ([]steps.Step, error) {
	first, err := steps.NewImplicitImport(data.Path)
	if err != nil {
		return nil, err
	}

	list := []steps.Step{first}
	for i, cfg := range selected {
		s, err := steps.NewStep(cfg, tmplData)
		if err != nil {
			err = fmt.Errorf("target %s: post-step %d: %w", data.Def.Target, i+1, err)
			return nil, errors.Join(err, cleanupAll(data.Def.Target, list))
		}
		list = append(list, s)
	}
	return list, nil
}

// execute performs the steps in order, handing each one the workspace of the
// step before it. It stops at the first failure and then cleans up every
// step. It returns how many steps completed.
func execute(ctx context.Context, log *slog.Logger, target api.Target, list []steps.Step) (int, error) {
	workspaces := make([]*steps.Workspace, 0, len(list))

	var stepErr error
	for i, s := range list {
		log.Info("running step", "step", s.Name(), "index", i)

		if i > 0 {
			if err := s.UseWorkspace(workspaces[i-1]); err != nil {
				stepErr = &StepError{Target: target, Step: s.Name(), Index: i, Err: err}
				break
			}
		}
		if err := s.Perform(ctx); err != nil {
			stepErr = &StepError{Target: target, Step: s.Name(), Index: i, Err: err}
			break
		}
		workspaces = append(workspaces, s.Workspace())
	}

	cleanupErr := cleanupAll(target, list)
	if cleanupErr != nil {
		log.Warn("cleanup incomplete", "error", cleanupErr)
	}

	switch {
	case stepErr != nil && cleanupErr != nil:
		return len(workspaces), errors.Join(stepErr, cleanupErr)
	case stepErr != nil:
		return len(workspaces), stepErr
	case cleanupErr != nil:
		return len(workspaces), cleanupErr
	}
	return len(workspaces), nil
}

func cleanupAll(target api.Target, list []steps.Step) error {
	var errs []error
	for _, s := range list {
		if err := s.Cleanup(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return &CleanupError{Target: target, Errs: errs}
	}
	return nil
}

// RunAll collects the finished build of every build definition and runs its
// pipeline. A failing target does not stop the others; the first failure in
// configuration order is returned.
func RunAll(ctx context.Context, cfg *api.Config, opts RunOptions) error {
	outputDir := outputPath(cfg)
	tmplContext := MergeContext(opts.Context, cfg.Context)

	var g errgroup.Group
	g.SetLimit(max(opts.Parallel, 1))

	errs := make([]error, len(cfg.BuildDefs))
	for i, def := range cfg.BuildDefs {
		g.Go(func() error {
			targetOpts := opts
			targetOpts.Context = tmplContext
			errs[i] = runTarget(ctx, outputDir, def, cfg.PostSteps, targetOpts)
			return nil
		})
	}
	_ = g.Wait()

	var failed []api.Target
	var first error
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed = append(failed, cfg.BuildDefs[i].Target)
		if first == nil {
			first = err
		}
	}

	if first != nil {
		return fmt.Errorf("%d target(s) failed %v: %w", len(failed), failed, first)
	}
	return nil
}

func runTarget(ctx context.Context, outputDir string, def api.BuildDef, cfgs []api.StepConfig, opts RunOptions) error {
	data, err := build.Collect(outputDir, def)
	if err != nil {
		slog.Error("unable to find build", "target", def.Target, "error", err)
		return fmt.Errorf("target %s: %w", def.Target, err)
	}

	slog.Info("found build", "target", def.Target, "buildNumber", data.BuildNumber, "path", data.Path)

	_, err = RunPipeline(ctx, data, cfgs, opts)
	return err
}

// RemoveBuildOutput deletes the build output folder after a run.
func RemoveBuildOutput(cfg *api.Config) error {
	dir := outputPath(cfg)
	slog.Info("cleaning up build output", "path", dir)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing build output %s: %w", dir, err)
	}
	return nil
}

func outputPath(cfg *api.Config) string {
	dir := cfg.OutputFolder()
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(cfg.Dir, dir)
}
