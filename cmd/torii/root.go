package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/systemstart/torii/pkg/logging"
)

type rootOptions struct {
	projectPath string
	loggingType string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "torii",
		Short:         "Run post-build steps for finished game builds",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logging.Initialize(cmd.ErrOrStderr(), opts.loggingType, opts.logLevel); err != nil {
				return fail(exitLoggingSetupFailed, "failed to initialize logging", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.projectPath, "project-path", "p", ".", "the project directory")
	cmd.PersistentFlags().StringVar(&opts.loggingType, "logging-type", logging.Tint,
		"logging type: "+strings.Join(logging.Types(), ", "))
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "logging level: debug, info, warn, error")

	cmd.AddCommand(newBuildCmd(opts))
	cmd.AddCommand(newNewCmd())

	return cmd
}

// includeEnv loads provider credentials from the project's .env file.
func includeEnv(projectPath string) error {
	err := godotenv.Load(filepath.Join(projectPath, ".env"))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fail(exitDotenvError, "failed to load .env", err)
		}
		slog.Debug("no .env file found")
		return nil
	}
	slog.Info("using .env file")
	return nil
}
