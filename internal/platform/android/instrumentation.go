// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package android

import (
	"strconv"
	"strings"
)

// Keys of instrumentation results reported by the test runner.
const (
	returnCodeKey  = "return-code"
	resultsPathKey = "test-results-path"
	shortMsgKey    = "shortMsg"
)

// activityResultOK is the INSTRUMENTATION_CODE of a finished instrumentation.
const activityResultOK = -1

// Instrumentation is the parsed output of "am instrument -w".
type Instrumentation struct {
	// Results holds INSTRUMENTATION_RESULT values.
	Results map[string]string
	// Code is the INSTRUMENTATION_CODE value, if one was printed.
	Code *int
	// Failed is set when the instrumentation could not run at all, e.g.
	// because the package or runner is unknown.
	Failed string
}

// ReturnCode returns the exit code reported by the application.
func (in *Instrumentation) ReturnCode() (int, bool) {
	v, ok := in.Results[returnCodeKey]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	return n, err == nil
}

// Crashed reports whether the application process died during the run.
func (in *Instrumentation) Crashed() bool {
	return strings.Contains(strings.ToLower(in.Results[shortMsgKey]), "crash")
}

// ParseInstrumentation parses the output of "am instrument -w". Result
// values may continue on the lines following their key.
func ParseInstrumentation(out string) *Instrumentation {
	in := &Instrumentation{Results: make(map[string]string)}
	lastKey := ""
	for _, line := range strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "INSTRUMENTATION_RESULT: "):
			kv := strings.TrimPrefix(line, "INSTRUMENTATION_RESULT: ")
			k, v, _ := strings.Cut(kv, "=")
			in.Results[k] = v
			lastKey = k
		case strings.HasPrefix(line, "INSTRUMENTATION_CODE: "):
			if n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "INSTRUMENTATION_CODE: "))); err == nil {
				in.Code = &n
			}
			lastKey = ""
		case strings.HasPrefix(line, "INSTRUMENTATION_FAILED: "):
			in.Failed = strings.TrimSpace(strings.TrimPrefix(line, "INSTRUMENTATION_FAILED: "))
			lastKey = ""
		case strings.HasPrefix(line, "INSTRUMENTATION_STATUS"):
			lastKey = ""
		case lastKey != "" && line != "":
			in.Results[lastKey] += "\n" + line
		}
	}
	return in
}
