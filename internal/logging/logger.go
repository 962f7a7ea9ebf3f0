// Package logging builds the zap loggers used by the daemon and the CLI.
package logging

import (
	"fmt"

	"github.com/mailsift/mailsift/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger builds the daemon logger from configuration.
func InitLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := build(
		cfg.GetString("logging.format") == "json",
		parseLevel(cfg.GetString("logging.level")))
	if err != nil {
		return nil, err
	}
	return logger.Named("mailsift"), nil
}

// InitConsoleLogger builds a logger for one-shot CLI invocations.
func InitConsoleLogger(verbose bool, jsonFormat bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	return build(jsonFormat, level)
}

func parseLevel(name string) zapcore.Level {
	switch name {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func build(jsonFormat bool, level zapcore.Level) (*zap.Logger, error) {
	var logConfig zap.Config
	if jsonFormat {
		logConfig = zap.NewProductionConfig()
	} else {
		logConfig = zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := logConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
