// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package logging_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"go.xharness.dev/xharness/internal/logging"
	"go.xharness.dev/xharness/internal/logging/loggingtest"
)

func TestAttachLoggerPropagates(t *testing.T) {
	parent := loggingtest.NewLogger(t, logging.LevelDebug)
	child := loggingtest.NewLogger(t, logging.LevelInfo)

	ctx := logging.AttachLogger(context.Background(), parent)
	logging.Info(ctx, "first")
	ctx = logging.AttachLogger(ctx, child)
	logging.Debug(ctx, "second")
	logging.Errorf(ctx, "third %d", 3)

	if diff := cmp.Diff(parent.Logs(), []string{"first", "second", "third 3"}); diff != "" {
		t.Errorf("Parent logs mismatch (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(child.Logs(), []string{"third 3"}); diff != "" {
		t.Errorf("Child logs mismatch (-got +want):\n%s", diff)
	}
}

func TestNoLogger(t *testing.T) {
	ctx := context.Background()
	if logging.HasLogger(ctx) {
		t.Error("HasLogger = true for a bare context")
	}
	logging.Info(ctx, "dropped")
}

func TestSinkLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSinkLogger(logging.LevelWarning, false, logging.NewWriterSink(&buf))
	logger.Log(logging.LevelInfo, time.Time{}, "info")
	logger.Log(logging.LevelWarning, time.Time{}, "warning")
	logger.Log(logging.LevelCritical, time.Time{}, "critical")

	if got, want := buf.String(), "warning\ncritical\n"; got != want {
		t.Errorf("Output = %q; want %q", got, want)
	}
}

func TestSinkLoggerNone(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSinkLogger(logging.LevelNone, false, logging.NewWriterSink(&buf))
	logger.Log(logging.LevelCritical, time.Time{}, "critical")
	if buf.Len() != 0 {
		t.Errorf("Output = %q; want nothing", buf.String())
	}
}

func TestSinkLoggerTimestamp(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSinkLogger(logging.LevelInfo, true, logging.NewWriterSink(&buf))
	logger.Log(logging.LevelInfo, time.Date(2025, 3, 4, 5, 6, 7, 8000, time.UTC), "msg")
	if got, want := buf.String(), "2025-03-04T05:06:07.000008Z msg\n"; got != want {
		t.Errorf("Output = %q; want %q", got, want)
	}
}

func TestLevelNames(t *testing.T) {
	for name, level := range logging.Levels() {
		if got := level.String(); got != name {
			t.Errorf("Level(%d).String() = %q; want %q", int(level), got, name)
		}
	}
}
