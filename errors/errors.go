// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package errors constructs errors that remember where they were created.
//
// Use this package instead of the standard errors.New and fmt.Errorf so that
// unexpected failures can be reported with a full chain of call sites:
//
//	errors.New("device not found")
//	errors.Errorf("device %q not found", serial)
//	errors.Wrap(err, "failed to install package")
//	errors.Wrapf(err, "failed to pull %s", path)
//
// Formatting an error with "%+v" prints every error in the chain followed by
// the stack trace captured when it was created.
package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"go.xharness.dev/xharness/errors/stack"
)

// E is the error implementation returned by this package.
type E struct {
	msg   string
	stk   stack.Stack
	cause error
}

// Error implements the error interface.
func (e *E) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

// Unwrap returns the wrapped error, if any.
func (e *E) Unwrap() error { return e.cause }

// Format implements fmt.Formatter. "%+v" prints the error chain with stacks.
func (e *E) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		io.WriteString(s, formatChain(e))
		return
	}
	io.WriteString(s, e.Error())
}

func formatChain(err error) string {
	var chain []string
	for err != nil {
		e, ok := err.(*E)
		if !ok {
			chain = append(chain, err.Error()+"\n\tat ???")
			break
		}
		chain = append(chain, e.msg+"\n"+e.stk.String())
		err = e.cause
	}
	return strings.Join(chain, "\n")
}

// New returns an error with msg, recording the caller's location.
func New(msg string) error {
	return &E{msg: msg, stk: stack.New(1)}
}

// Errorf is like New but formats its message with fmt.Sprintf.
func Errorf(format string, args ...interface{}) error {
	return &E{msg: fmt.Sprintf(format, args...), stk: stack.New(1)}
}

// Wrap returns an error with msg that wraps cause. If cause is nil, Wrap is
// the same as New.
func Wrap(cause error, msg string) error {
	return &E{msg: msg, stk: stack.New(1), cause: cause}
}

// Wrapf is like Wrap but formats its message with fmt.Sprintf.
func Wrapf(cause error, format string, args ...interface{}) error {
	return &E{msg: fmt.Sprintf(format, args...), stk: stack.New(1), cause: cause}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return stderrors.As(err, target) }
