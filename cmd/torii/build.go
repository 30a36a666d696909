package main

import (
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/systemstart/torii/pkg/api"
	"github.com/systemstart/torii/pkg/processing"
)

type buildOptions struct {
	options     []string
	noClean     bool
	parallel    int
	contextFile string
}

func newBuildCmd(root *rootOptions) *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run post-steps for every finished build of the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, root, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.options, "option", "o", nil,
		"run post-steps with this option in their filter (repeatable)")
	cmd.Flags().BoolVar(&opts.noClean, "no-clean", false, "keep the build output folder afterwards")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 1, "number of targets processed at once")
	cmd.Flags().StringVar(&opts.contextFile, "context-file", "", "YAML file of extra template variables")

	return cmd
}

func runBuild(cmd *cobra.Command, root *rootOptions, opts *buildOptions) error {
	if err := includeEnv(root.projectPath); err != nil {
		return err
	}

	cfg, err := api.LoadConfig(filepath.Join(root.projectPath, api.ConfigFilename))
	if err != nil {
		return fail(exitLoadConfigurationFileFailed, "failed to load configuration", err)
	}

	var extra map[string]any
	if opts.contextFile != "" {
		extra, err = processing.LoadContextFile(opts.contextFile)
		if err != nil {
			return fail(exitLoadContextFailed, "failed to load context file", err)
		}
	}

	slog.Info("collecting completed builds", "folder", cfg.OutputFolder(), "options", opts.options)

	err = processing.RunAll(cmd.Context(), cfg, processing.RunOptions{
		Options:  opts.options,
		Context:  extra,
		Parallel: opts.parallel,
	})
	if err != nil {
		return fail(exitCodeFor(err), "post-steps failed", err)
	}

	if !opts.noClean {
		if err := processing.RemoveBuildOutput(cfg); err != nil {
			return fail(exitBuildOutputCleanFailed, "unable to clean up after build", err)
		}
	}

	slog.Info("build complete")
	return nil
}
