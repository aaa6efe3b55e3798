// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package logging routes harness logs through loggers attached to a
// context.Context.
package logging

import (
	"sync"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Level indicates a logging level. A larger value means a more important log.
type Level int

const (
	// LevelTrace is the most verbose level, used for raw device output.
	LevelTrace Level = iota
	// LevelDebug represents the DEBUG level.
	LevelDebug
	// LevelInfo represents the INFO level.
	LevelInfo
	// LevelWarning represents the WARNING level.
	LevelWarning
	// LevelError represents the ERROR level.
	LevelError
	// LevelCritical represents the CRITICAL level.
	LevelCritical
	// LevelNone disables a logger when used as its minimum level.
	LevelNone
)

var levelNames = map[string]Level{
	"Trace":       LevelTrace,
	"Debug":       LevelDebug,
	"Information": LevelInfo,
	"Warning":     LevelWarning,
	"Error":       LevelError,
	"Critical":    LevelCritical,
	"None":        LevelNone,
}

// Levels returns the user-facing level names accepted by --verbosity.
func Levels() map[string]Level {
	return maps.Clone(levelNames)
}

func (l Level) String() string {
	names := maps.Keys(levelNames)
	slices.Sort(names)
	for _, n := range names {
		if levelNames[n] == l {
			return n
		}
	}
	return "Unknown"
}

// Logger consumes logs sent via context.Context.
type Logger interface {
	// Log gets called for a log entry.
	Log(level Level, ts time.Time, msg string)
}

// MultiLogger copies logs to multiple underlying loggers.
type MultiLogger struct {
	mu      sync.Mutex
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger with an initial set of loggers.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log copies a log to the current underlying loggers.
func (ml *MultiLogger) Log(level Level, ts time.Time, msg string) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	for _, logger := range ml.loggers {
		logger.Log(level, ts, msg)
	}
}

// AddLogger adds a logger to the set of underlying loggers.
func (ml *MultiLogger) AddLogger(logger Logger) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.loggers = append(ml.loggers, logger)
}

// FuncLogger is a Logger that calls a function. Calls are serialized.
type FuncLogger struct {
	mu sync.Mutex
	f  func(level Level, ts time.Time, msg string)
}

// NewFuncLogger creates a new FuncLogger.
func NewFuncLogger(f func(level Level, ts time.Time, msg string)) *FuncLogger {
	return &FuncLogger{f: f}
}

// Log calls the underlying function.
func (l *FuncLogger) Log(level Level, ts time.Time, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.f(level, ts, msg)
}
