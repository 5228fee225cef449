// Package logging builds the zap loggers used across factbind.
// Subsystems get named sub-loggers so log lines can be filtered per
// category (engine, builder, mapping, cli).
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a logging subsystem.
type Category string

const (
	CategoryEngine  Category = "engine"
	CategoryBuilder Category = "builder"
	CategoryMapping Category = "mapping"
	CategoryCLI     Category = "cli"
)

// New builds a logger at the given level. With json set, output is
// structured JSON; otherwise it uses the console encoder.
func New(level string, json bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: parse level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if !json {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger, nil
}

// For returns the category-scoped sub-logger.
func For(base *zap.Logger, cat Category) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.Named(string(cat))
}
