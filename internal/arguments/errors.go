// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package arguments

import (
	"fmt"
	"strings"
)

// FormatError is returned when a raw value cannot be converted to the type
// of an argument.
type FormatError struct {
	// Flag is the flag spelling the value was given for, e.g. "--timeout".
	Flag string
	// Value is the raw value.
	Value string
	// Reason describes the expected format.
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %s", e.Value, e.Flag, e.Reason)
}

// ValidationError is returned when a well-formed value is not acceptable,
// e.g. a required argument is missing or two arguments conflict.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// UnknownArgumentError lists tokens that no argument of a Set recognized.
type UnknownArgumentError struct {
	Tokens []string
}

func (e *UnknownArgumentError) Error() string {
	return "unrecognized arguments: " + strings.Join(e.Tokens, " ")
}
