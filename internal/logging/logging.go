/*
Copyright 2025 The rime-sim Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package logging wires zap into the logr.Logger interface used throughout
// the runtime. Components never hold a logger; they draw one from the
// context, so callers decide sinks and verbosity.
package logging

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var defaultLogger = logr.Discard()

// NewLogger builds a production zap logger at the given level ("debug",
// "info", "warn", "error") and returns it as a logr.Logger.
func NewLogger(level string) (logr.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return logr.Logger{}, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	z, err := cfg.Build()
	if err != nil {
		return logr.Logger{}, err
	}
	return zapr.NewLogger(z), nil
}

// NewTestLogger builds a development zap logger and installs it as the
// package default so test output carries all runtime logging.
func NewTestLogger() logr.Logger {
	z, err := zap.NewDevelopment()
	if err != nil {
		return logr.Discard()
	}
	l := zapr.NewLogger(z)
	SetDefault(l)
	return l
}

// SetDefault replaces the logger returned when a context carries none.
func SetDefault(l logr.Logger) {
	defaultLogger = l
}

// IntoContext attaches a logger to the context.
func IntoContext(ctx context.Context, l logr.Logger) context.Context {
	return logr.NewContext(ctx, l)
}

// FromContext returns the logger attached to the context, or the package
// default when none is attached.
func FromContext(ctx context.Context) logr.Logger {
	if l, err := logr.FromContext(ctx); err == nil {
		return l
	}
	return defaultLogger
}
