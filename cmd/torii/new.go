package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/systemstart/torii/pkg/api"
)

func newNewCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "new [project-path]",
		Short: "Create a torii.yml in a project directory",
		Long: "Create a new torii project in project-path, the current directory when omitted. " +
			"An existing configuration is kept unless --force is given.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			path, err := api.CreateConfig(dir, force)
			if errors.Is(err, api.ErrConfigExists) {
				return fail(exitConfigExists, "could not create project, run again with --force to overwrite", err)
			}
			if err != nil {
				return fail(exitToolErrors, "could not create project", err)
			}

			slog.Info("created new torii project", "path", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "create the project even if one already exists")

	return cmd
}
