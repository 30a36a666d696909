package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/lmittmann/tint"
)

const (
	JSON = "json"
	Text = "text"
	Tint = "tint"
)

// Types lists the accepted logging types.
func Types() []string { return []string{JSON, Text, Tint} }

// New builds a logger writing to w in the given format.
func New(w io.Writer, loggingType string, logLevelName string) (*slog.Logger, error) {
	var logLevel slog.Level
	err := logLevel.UnmarshalText([]byte(logLevelName))
	if err != nil {
		return nil, fmt.Errorf("could not parse log level: %w", err)
	}

	logHandlerOptions := slog.HandlerOptions{
		AddSource: logLevel <= slog.LevelDebug,
		Level:     logLevel,
	}

	var logHandler slog.Handler
	switch loggingType {
	case JSON:
		logHandler = slog.NewJSONHandler(w, &logHandlerOptions)
	case Text:
		logHandler = slog.NewTextHandler(w, &logHandlerOptions)
	case Tint:
		logHandler = tint.NewHandler(w, &tint.Options{
			AddSource: logHandlerOptions.AddSource,
			Level:     logHandlerOptions.Level,
		})
	default:
		return nil, fmt.Errorf("unknown logging type: %s", loggingType)
	}

	return slog.New(logHandler), nil
}

// Initialize installs a logger writing to w as the slog default.
func Initialize(w io.Writer, loggingType string, logLevelName string) error {
	logger, err := New(w, loggingType, logLevelName)
	if err != nil {
		return err
	}

	slog.SetDefault(logger)
	slog.Debug("logging initialized", "type", loggingType, "logLevel", logLevelName)
	return nil
}
