// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package backend defines the contract between commands and the platform
// backends that deploy and run test applications.
package backend

import (
	"context"
	"fmt"

	"go.xharness.dev/xharness/internal/exitcode"
	"go.xharness.dev/xharness/internal/summary"
)

// Outcome is how a test run ended when the backend itself did not fail.
type Outcome int

const (
	// Succeeded means the application ran and every test passed.
	Succeeded Outcome = iota
	// TestsFailed means the application ran and reported failing tests.
	TestsFailed
	// Crashed means the application terminated abnormally.
	Crashed
	// NoReturnCode means the application finished without reporting an
	// exit code.
	NoReturnCode
	// LaunchFailed means the application could not be started.
	LaunchFailed
	// TimedOut means the run did not finish in time.
	TimedOut
)

var outcomeCodes = map[Outcome]exitcode.Code{
	Succeeded:    exitcode.Success,
	TestsFailed:  exitcode.TestsFailed,
	Crashed:      exitcode.AppCrash,
	NoReturnCode: exitcode.ReturnCodeNotSet,
	LaunchFailed: exitcode.AppLaunchFailure,
	TimedOut:     exitcode.TimedOut,
}

// ExitCode returns the process exit code for o.
func (o Outcome) ExitCode() exitcode.Code {
	if c, ok := outcomeCodes[o]; ok {
		return c
	}
	return exitcode.GeneralFailure
}

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case TestsFailed:
		return "tests failed"
	case Crashed:
		return "crashed"
	case NoReturnCode:
		return "no return code"
	case LaunchFailed:
		return "launch failed"
	case TimedOut:
		return "timed out"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is what a backend reports about a run.
type Result struct {
	Outcome Outcome
	// AppExitCode is the exit code reported by the application, if any.
	AppExitCode *int
	// Summary holds test results collected so far. It may be nil, and it
	// may be partial if the run did not finish.
	Summary *summary.Summary
}

// Backend runs tests on one kind of target. C is the validated
// configuration of a command.
type Backend[C any] interface {
	// Run deploys and runs the application described by cfg. Run returns
	// when ctx is done. It may return a partial Result together with an
	// error.
	Run(ctx context.Context, cfg C) (*Result, error)
}

// Func adapts a function to Backend.
type Func[C any] func(ctx context.Context, cfg C) (*Result, error)

// Run calls f.
func (f Func[C]) Run(ctx context.Context, cfg C) (*Result, error) { return f(ctx, cfg) }

// Failure is an error of a backend with a dedicated exit code, e.g. a
// device that cannot be found.
type Failure struct {
	Code  exitcode.Code
	Msg   string
	cause error
}

// Failf returns a Failure with a formatted message.
func Failf(code exitcode.Code, format string, args ...interface{}) *Failure {
	return &Failure{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// WrapFailure returns a Failure caused by cause.
func WrapFailure(cause error, code exitcode.Code, format string, args ...interface{}) *Failure {
	return &Failure{Code: code, Msg: fmt.Sprintf(format, args...), cause: cause}
}

func (f *Failure) Error() string {
	if f.cause == nil {
		return f.Msg
	}
	return f.Msg + ": " + f.cause.Error()
}

// Unwrap returns the cause of f.
func (f *Failure) Unwrap() error { return f.cause }

// ExitCode returns the exit code dedicated to f.
func (f *Failure) ExitCode() exitcode.Code { return f.Code }
