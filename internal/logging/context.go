// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package logging

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// loggerKey is the key type for a Logger attached to a context.Context.
type loggerKey struct{}

// AttachLogger creates a new context with logger attached. Logs emitted via
// the new context are propagated to loggers attached to the parent context.
func AttachLogger(ctx context.Context, logger Logger) context.Context {
	if parent, ok := loggerFromContext(ctx); ok {
		logger = NewMultiLogger(logger, parent)
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// HasLogger reports whether any logger is attached to ctx.
func HasLogger(ctx context.Context) bool {
	_, ok := loggerFromContext(ctx)
	return ok
}

func loggerFromContext(ctx context.Context) (Logger, bool) {
	logger, ok := ctx.Value(loggerKey{}).(Logger)
	return logger, ok
}

// Trace emits a log with trace level.
func Trace(ctx context.Context, args ...interface{}) { log(ctx, LevelTrace, fmt.Sprint(args...)) }

// Debug emits a log with debug level.
func Debug(ctx context.Context, args ...interface{}) { log(ctx, LevelDebug, fmt.Sprint(args...)) }

// Debugf is similar to Debug but formats its arguments using fmt.Sprintf.
func Debugf(ctx context.Context, format string, args ...interface{}) {
	log(ctx, LevelDebug, fmt.Sprintf(format, args...))
}

// Info emits a log with info level.
func Info(ctx context.Context, args ...interface{}) { log(ctx, LevelInfo, fmt.Sprint(args...)) }

// Infof is similar to Info but formats its arguments using fmt.Sprintf.
func Infof(ctx context.Context, format string, args ...interface{}) {
	log(ctx, LevelInfo, fmt.Sprintf(format, args...))
}

// Warningf emits a formatted log with warning level.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	log(ctx, LevelWarning, fmt.Sprintf(format, args...))
}

// Error emits a log with error level.
func Error(ctx context.Context, args ...interface{}) { log(ctx, LevelError, fmt.Sprint(args...)) }

// Errorf is similar to Error but formats its arguments using fmt.Sprintf.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	log(ctx, LevelError, fmt.Sprintf(format, args...))
}

func log(ctx context.Context, level Level, msg string) {
	ts := time.Now()
	logger, ok := loggerFromContext(ctx)
	if !ok {
		return
	}
	logger.Log(level, ts, strings.ToValidUTF8(msg, ""))
}
