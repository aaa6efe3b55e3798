// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package stack captures and formats call stacks for the errors package.
package stack

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// maxDepth is the maximum number of frames recorded per error.
const maxDepth = 8

// Stack is a snapshot of program counters.
type Stack []uintptr

// New captures the current stack. skip=0 makes the caller of New the
// innermost frame.
func New(skip int) Stack {
	pc := make([]uintptr, maxDepth+1)
	return Stack(pc[:runtime.Callers(skip+2, pc)])
}

// String formats s as one "\tat func (file:line)" line per frame.
func (s Stack) String() string {
	var sb strings.Builder
	frames := runtime.CallersFrames(s)
	for n := 0; ; n++ {
		if n == maxDepth {
			sb.WriteString("\n\t...")
			break
		}
		f, more := frames.Next()
		if n > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "\tat %s (%s:%d)", f.Function, filepath.Base(f.File), f.Line)
		if !more {
			break
		}
	}
	return sb.String()
}
