package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJSON LogFormat = "json"
)

// Decode implements envconfig.Decoder.
func (f *LogFormat) Decode(value string) error {
	switch LogFormat(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatText:
		*f = FormatText
	case FormatJSON:
		*f = FormatJSON
	default:
		return fmt.Errorf("unknown log format %q (must be 'text' or 'json')", value)
	}
	return nil
}

func NewLogger(format LogFormat) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	switch format {
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// SetLevel parses level and applies it; an empty level keeps info.
func SetLevel(logger *logrus.Logger, level string) error {
	if level == "" {
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}
	logger.SetLevel(lvl)
	return nil
}
