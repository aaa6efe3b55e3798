// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package command binds argument sets to actions and routes process
// arguments to them.
package command

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.xharness.dev/xharness/internal/arguments"
	"go.xharness.dev/xharness/internal/config"
	"go.xharness.dev/xharness/internal/exitcode"
	"go.xharness.dev/xharness/internal/logging"
)

// Runtime is what every command runs with. It is created once per process.
type Runtime struct {
	Env     *config.Env
	Stdout  io.Writer
	Stderr  io.Writer
	Console logging.Sink

	// path holds the command names routed so far, program name first.
	path []string
}

func (rt *Runtime) withPath(name string) *Runtime {
	c := *rt
	c.path = append(append([]string(nil), rt.path...), name)
	return &c
}

func (rt *Runtime) usagePath() string {
	return strings.Join(rt.path, " ")
}

// Action runs a command after its arguments validated. An error overrides
// the returned code; see ExitCode for how errors map to exit codes.
type Action func(ctx context.Context) (exitcode.Code, error)

// Command is one leaf command: an argument set bound to an action.
type Command struct {
	name        string
	synopsis    string
	description string
	set         *arguments.Set
	action      Action
}

// New returns a Command. description is printed under the usage line of
// the command's help.
func New(name, synopsis, description string, set *arguments.Set, action Action) *Command {
	return &Command{name: name, synopsis: synopsis, description: description, set: set, action: action}
}

// Name returns the name used to route to the command.
func (c *Command) Name() string { return c.name }

// Synopsis returns a one-line summary of the command.
func (c *Command) Synopsis() string { return c.synopsis }

// Invoke parses and validates args, then runs the action.
func (c *Command) Invoke(ctx context.Context, rt *Runtime, args []string) exitcode.Code {
	if unknown := c.set.Parse(args); len(unknown) > 0 {
		fmt.Fprintln(rt.Stderr, &arguments.UnknownArgumentError{Tokens: unknown})
		c.writeUsage(rt.Stderr, rt)
		return exitcode.InvalidArguments
	}
	if c.set.HelpRequested() {
		c.writeUsage(rt.Stdout, rt)
		fmt.Fprintf(rt.Stdout, "\n%s\n", c.description)
		c.set.WriteHelp(rt.Stdout)
		return exitcode.HelpShown
	}
	if err := c.set.Validate(); err != nil {
		fmt.Fprintln(rt.Stderr, err)
		fmt.Fprintf(rt.Stderr, "Run '%s --help' for usage.\n", rt.usagePath())
		return exitcode.InvalidArguments
	}

	ctx = logging.AttachLogger(ctx, logging.NewSinkLogger(c.set.Verbosity(), rt.Env.LogTimestamps, rt.Console))
	code, err := c.action(ctx)
	if err == nil {
		return code
	}
	return LogError(ctx, err)
}

// LogError logs err and returns its exit code. Expected errors take one
// line; unexpected ones are logged with their full chain.
func LogError(ctx context.Context, err error) exitcode.Code {
	code, expected := ExitCode(err)
	if expected {
		logging.Error(ctx, err)
	} else {
		logging.Errorf(ctx, "Unexpected failure: %+v", err)
	}
	logging.Infof(ctx, "Exiting with %v (%d)", code, int(code))
	return code
}

func (c *Command) writeUsage(w io.Writer, rt *Runtime) {
	fmt.Fprintf(w, "Usage: %s [OPTIONS]\n", rt.usagePath())
}
