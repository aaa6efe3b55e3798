// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package config holds process-wide settings read from the environment.
package config

import (
	"os"
	"strings"

	"go.xharness.dev/xharness/internal/exitcode"
)

// Environment variables consulted by Load.
const (
	DisableColorVar   = "XHARNESS_DISABLE_COLORED_OUTPUT"
	LogTimestampsVar  = "XHARNESS_LOG_WITH_TIMESTAMPS"
	LegacyExitCodeVar = "XHARNESS_LEGACY_EXIT_CODES"
)

// Env is the environment-derived configuration of one xharness process.
// It is built once in main and passed down explicitly.
type Env struct {
	// DisableColor turns off ANSI colors in console logs.
	DisableColor bool
	// LogTimestamps prefixes every log line with a UTC timestamp.
	LogTimestamps bool
	// ExitCodes selects how exit codes are numbered on exit.
	ExitCodes exitcode.Scheme
	// Path is the search path used to resolve bare executable names.
	Path string
	// Lang is the process locale as given by LANG, e.g. "en_US.UTF-8".
	Lang string
}

// Load builds an Env using lookup, typically os.LookupEnv.
func Load(lookup func(string) (string, bool)) *Env {
	env := &Env{
		DisableColor:  isSet(lookup, DisableColorVar),
		LogTimestamps: isSet(lookup, LogTimestampsVar),
		ExitCodes:     exitcode.Shared,
	}
	if isSet(lookup, LegacyExitCodeVar) {
		env.ExitCodes = exitcode.Legacy
	}
	env.Path, _ = lookup("PATH")
	env.Lang, _ = lookup("LANG")
	return env
}

// FromOS builds an Env from the process environment.
func FromOS() *Env {
	return Load(os.LookupEnv)
}

// isSet reports whether name is set to a value other than empty, "0" or
// "false".
func isSet(lookup func(string) (string, bool), name string) bool {
	v, ok := lookup(name)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false":
		return false
	}
	return true
}
