// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package backend

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.xharness.dev/xharness/errors"
	"go.xharness.dev/xharness/internal/arguments"
	"go.xharness.dev/xharness/internal/command"
	"go.xharness.dev/xharness/internal/exitcode"
	"go.xharness.dev/xharness/internal/logging"
	"go.xharness.dev/xharness/internal/reporting"
	"go.xharness.dev/xharness/internal/summary"
	"go.xharness.dev/xharness/internal/timeout"
)

// LogFileName is the name of the full run log in the output directory.
const LogFileName = "xharness.log"

// logFileMegabytes is the size at which the run log is rotated.
const logFileMegabytes = 100

// Options configures the platform-independent part of a run.
type Options struct {
	OutputDir        string
	Timeout          time.Duration
	ExpectedExitCode int
	// Jargons lists the result files written. Nothing is written if it is
	// empty.
	Jargons   []reporting.Jargon
	Reporting reporting.Options
	// Limiter measures Timeout. timeout.Default is used if nil.
	Limiter *timeout.Limiter
}

// Execute runs b with cfg under the limits of opts and returns the exit
// code of the run.
//
// Failures of b are logged before result files are written, and result
// files are written for partial results too.
func Execute[C any](ctx context.Context, b Backend[C], cfg C, opts Options) (exitcode.Code, error) {
	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
			return 0, errors.Wrap(err, "failed to create output directory")
		}
		sink := logging.NewFileSink(filepath.Join(opts.OutputDir, LogFileName), logFileMegabytes)
		defer sink.Close()
		ctx = logging.AttachLogger(ctx, logging.NewSinkLogger(logging.LevelDebug, true, sink))
	}

	lim := opts.Limiter
	if lim == nil {
		lim = timeout.Default
	}
	rctx, cancel := lim.WithTimeout(ctx, opts.Timeout, "test run")
	defer cancel(context.Canceled)

	start := time.Now()
	res, err := b.Run(rctx, cfg)
	logging.Debugf(ctx, "Backend returned after %v", time.Since(start).Round(time.Millisecond))

	var code exitcode.Code
	if err != nil {
		code = command.LogError(ctx, err)
	} else if res == nil {
		return 0, errors.New("backend returned no result")
	} else {
		code = resultCode(ctx, res, opts.ExpectedExitCode)
	}

	if res != nil && res.Summary != nil {
		logSummary(ctx, res.Summary)
		if werr := writeReports(ctx, opts, res.Summary); werr != nil {
			if err == nil {
				return 0, werr
			}
			logging.Errorf(ctx, "Failed to write partial results: %v", werr)
		}
	}
	return code, nil
}

func resultCode(ctx context.Context, res *Result, expected int) exitcode.Code {
	logging.Infof(ctx, "Run %v", res.Outcome)
	code := res.Outcome.ExitCode()
	if res.AppExitCode == nil {
		return code
	}
	got := *res.AppExitCode
	logging.Infof(ctx, "Application exited with %d", got)
	if code == exitcode.Success && got != expected {
		logging.Errorf(ctx, "Application exited with %d but %d was expected", got, expected)
		return exitcode.TestsFailed
	}
	return code
}

func logSummary(ctx context.Context, s *summary.Summary) {
	logging.Infof(ctx, "Tests run: %d, passed: %d, failed: %d, inconclusive: %d, skipped: %d",
		s.Total, s.Passed, s.Failed, s.Inconclusive, s.Skipped)
}

func writeReports(ctx context.Context, opts Options, s *summary.Summary) error {
	if err := s.Validate(); err != nil {
		return errors.Wrap(err, "inconsistent test results")
	}
	for _, j := range opts.Jargons {
		path, err := reporting.WriteFile(opts.OutputDir, j, opts.Reporting, s)
		if err != nil {
			return err
		}
		logging.Infof(ctx, "Results written to %s", path)
	}
	return nil
}

// RunArgs are the arguments every run command accepts.
type RunArgs struct {
	OutputDir        *arguments.Path
	Timeout          *arguments.Duration
	ExpectedExitCode *arguments.Int
}

// NewRunArgs returns RunArgs with def as the default timeout.
func NewRunArgs(def time.Duration) *RunArgs {
	return &RunArgs{
		OutputDir:        arguments.NewPath("output-directory|o", "Directory for result files and logs", "").Required(),
		Timeout:          arguments.NewDuration("timeout", "Time limit of the whole run", def),
		ExpectedExitCode: arguments.NewInt("expected-exit-code", "Exit code the application should return", 0),
	}
}

// Group returns the arguments as a help group.
func (a *RunArgs) Group() arguments.Group {
	return arguments.Group{Title: "Run", Args: []arguments.Argument{a.OutputDir, a.Timeout, a.ExpectedExitCode}}
}

// Options returns Options reflecting the parsed arguments.
func (a *RunArgs) Options(rep reporting.Options, jargons ...reporting.Jargon) Options {
	return Options{
		OutputDir:        a.OutputDir.Value(),
		Timeout:          a.Timeout.Value(),
		ExpectedExitCode: a.ExpectedExitCode.Value(),
		Jargons:          jargons,
		Reporting:        rep,
	}
}
