// Package logging builds the zap logger shared by the client.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where and how logs are written. An empty Path logs to
// stderr.
type Options struct {
	Level string
	Path  string
	JSON  bool
}

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Build returns a logger for opts without installing it.
func Build(opts Options) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level.SetLevel(parsed)
	}

	config := zap.NewProductionConfig()
	config.Level = level
	config.Sampling = nil
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if !opts.JSON {
		config.Encoding = "console"
	}
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir log dir: %w", err)
		}
		config.OutputPaths = []string{opts.Path}
		config.ErrorOutputPaths = []string{opts.Path}
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// Init builds a logger for opts and installs it as the root logger.
func Init(opts Options) (*zap.Logger, error) {
	logger, err := Build(opts)
	if err != nil {
		return nil, err
	}
	Set(logger)
	return logger, nil
}

// Set installs l as the root logger. Nil restores the no-op logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	root = l
	mu.Unlock()
}

// L returns the root logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Named returns a child of the root logger tagged with component.
func Named(component string) *zap.Logger {
	return L().Named(component).With(zap.String("component", component))
}

// Sync flushes the root logger.
func Sync() {
	_ = L().Sync()
}
