// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package procexectest provides a fake procexec.Runner for unit tests.
package procexectest

import (
	"context"
	"path/filepath"
	"sync"

	"go.xharness.dev/xharness/errors"
	"go.xharness.dev/xharness/internal/procexec"
)

// Handler simulates a process. It may call the output functions of c and
// returns the exit code of the process.
type Handler func(ctx context.Context, c *procexec.Cmd) (int, error)

// Runner is a procexec.Runner dispatching commands to handlers.
type Runner struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []*procexec.Cmd
}

var _ procexec.Runner = &Runner{}

// NewRunner returns a Runner that knows no executables.
func NewRunner() *Runner {
	return &Runner{handlers: make(map[string]Handler)}
}

// Handle installs h for the executable at path. Bare names resolve to path
// when their base name matches.
func (r *Runner) Handle(path string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[path] = h
}

// LookPath implements procexec.Runner.
func (r *Runner) LookPath(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookPath(name)
}

func (r *Runner) lookPath(name string) (string, error) {
	if _, ok := r.handlers[name]; ok {
		return name, nil
	}
	if filepath.Base(name) == name {
		for p := range r.handlers {
			if filepath.Base(p) == name {
				return p, nil
			}
		}
	}
	return "", errors.Errorf("%s not found in PATH", name)
}

// Run implements procexec.Runner.
func (r *Runner) Run(ctx context.Context, c *procexec.Cmd) (*procexec.Result, error) {
	r.mu.Lock()
	path, err := r.lookPath(c.Name)
	h := r.handlers[path]
	r.calls = append(r.calls, c)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	code, err := h(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &procexec.Result{ExitCode: code}, nil
}

// Calls returns the commands run so far.
func (r *Runner) Calls() []*procexec.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*procexec.Cmd(nil), r.calls...)
}

// CommandLines returns the command lines run so far.
func (r *Runner) CommandLines() []string {
	var out []string
	for _, c := range r.Calls() {
		out = append(out, procexec.CommandLine(c.Name, c.Args))
	}
	return out
}

// Print sends lines to the standard output of c.
func Print(c *procexec.Cmd, lines ...string) {
	for _, l := range lines {
		if c.Stdout != nil {
			c.Stdout(l)
		}
	}
}

// Exit returns a Handler printing lines and exiting with code.
func Exit(code int, lines ...string) Handler {
	return func(ctx context.Context, c *procexec.Cmd) (int, error) {
		Print(c, lines...)
		return code, nil
	}
}
