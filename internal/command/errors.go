// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package command

import (
	"context"
	"fmt"
	"io"

	"go.xharness.dev/xharness/errors"
	"go.xharness.dev/xharness/internal/arguments"
	"go.xharness.dev/xharness/internal/exitcode"
)

// StatusError is an error carrying the exit code it should end the process
// with.
type StatusError struct {
	code exitcode.Code
	msg  string
}

// NewStatusErrorf returns a StatusError with code and a formatted message.
func NewStatusErrorf(code exitcode.Code, format string, args ...interface{}) *StatusError {
	return &StatusError{code: code, msg: fmt.Sprintf(format, args...)}
}

func (e *StatusError) Error() string { return e.msg }

// ExitCode returns the exit code carried by e.
func (e *StatusError) ExitCode() exitcode.Code { return e.code }

// coder is implemented by errors that know their exit code, such as
// *StatusError, *timeout.Error and *backend.Failure.
type coder interface {
	ExitCode() exitcode.Code
}

// errorKinds is consulted in order; the first kind matching an error
// decides its exit code.
var errorKinds = []func(error) (exitcode.Code, bool){
	func(err error) (exitcode.Code, bool) {
		var c coder
		if errors.As(err, &c) {
			return c.ExitCode(), true
		}
		return 0, false
	},
	kind[*arguments.FormatError](exitcode.InvalidArguments),
	kind[*arguments.ValidationError](exitcode.InvalidArguments),
	kind[*arguments.UnknownArgumentError](exitcode.InvalidArguments),
	func(err error) (exitcode.Code, bool) {
		return exitcode.TimedOut, errors.Is(err, context.DeadlineExceeded)
	},
}

// kind matches errors with a T in their chain.
func kind[T error](code exitcode.Code) func(error) (exitcode.Code, bool) {
	return func(err error) (exitcode.Code, bool) {
		var target T
		return code, errors.As(err, &target)
	}
}

// ExitCode returns the exit code for err. expected is false for errors of
// no known kind, which are reported as GENERAL_FAILURE.
func ExitCode(err error) (code exitcode.Code, expected bool) {
	for _, k := range errorKinds {
		if code, ok := k(err); ok {
			return code, true
		}
	}
	return exitcode.GeneralFailure, false
}

// WriteError writes err to w and returns its exit code. Expected errors
// take one line; unexpected ones are written with their full chain and
// stack traces.
func WriteError(w io.Writer, err error) exitcode.Code {
	code, expected := ExitCode(err)
	if expected {
		fmt.Fprintln(w, err)
	} else {
		fmt.Fprintf(w, "%+v\n", err)
	}
	return code
}
