// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package command

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/google/subcommands"
	"github.com/jedib0t/go-pretty/v6/table"

	"go.xharness.dev/xharness/internal/exitcode"
)

// doubleDash stands in for a literal "--" while arguments are routed, so
// that neither the router nor the flag package treats it as the end of
// options. Leaf commands see the original token.
const doubleDash = "\x00xharness:--\x00"

// CommandSet is a named group of commands and nested command sets, selected
// by the leading positional tokens of the arguments.
type CommandSet struct {
	name     string
	synopsis string

	top         *flag.FlagSet
	cdr         *subcommands.Commander
	unavailable map[string]string
}

// NewCommandSet returns an empty CommandSet.
func NewCommandSet(name, synopsis string) *CommandSet {
	top := flag.NewFlagSet(name, flag.ContinueOnError)
	top.SetOutput(io.Discard)
	return &CommandSet{
		name:        name,
		synopsis:    synopsis,
		top:         top,
		cdr:         subcommands.NewCommander(top, name),
		unavailable: make(map[string]string),
	}
}

// Add registers a leaf command.
func (s *CommandSet) Add(c *Command) {
	s.cdr.Register(&leaf{c}, "")
}

// AddSet registers a nested command set.
func (s *CommandSet) AddSet(sub *CommandSet) {
	s.cdr.Register(sub, "")
}

// AddUnavailable records a command set that exists but cannot run on this
// host. Routing to it reports reason instead of an unknown command.
func (s *CommandSet) AddUnavailable(name, reason string) {
	s.unavailable[name] = reason
}

func (s *CommandSet) lookup(name string) subcommands.Command {
	var found subcommands.Command
	s.cdr.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		if c.Name() == name {
			found = c
		}
	})
	return found
}

// route selects a command by args[0] and runs it with the remaining args.
func (s *CommandSet) route(ctx context.Context, rt *Runtime, args []string) exitcode.Code {
	if len(args) == 0 {
		fmt.Fprintf(rt.Stderr, "%s: missing command\n", rt.usagePath())
		s.writeUsage(rt.Stderr, rt)
		return exitcode.InvalidArguments
	}

	name := args[0]
	switch name {
	case "help", "-h", "--help", "-?":
		s.writeUsage(rt.Stdout, rt)
		return exitcode.HelpShown
	}
	if reason, ok := s.unavailable[name]; ok {
		fmt.Fprintf(rt.Stderr, "%s %s is not available on this host: %s\n", rt.usagePath(), name, reason)
		return exitcode.InvalidArguments
	}
	if s.lookup(name) == nil {
		fmt.Fprintf(rt.Stderr, "%s: unknown command %q\n", rt.usagePath(), restoreOne(name))
		s.writeUsage(rt.Stderr, rt)
		return exitcode.InvalidArguments
	}

	// The Commander parses the rest with the command's flag set. Leading
	// "--" tokens stop both parses, so the rest reaches the command as
	// positional arguments. top defines no flags and the first token is
	// "--", so Parse cannot fail.
	_ = s.top.Parse(append([]string{"--", name, "--"}, args[1:]...))
	return exitcode.Code(s.cdr.Execute(ctx, rt.withPath(name)))
}

func (s *CommandSet) writeUsage(w io.Writer, rt *Runtime) {
	fmt.Fprintf(w, "Usage: %s <command> [OPTIONS]\n\nCommands:\n", rt.usagePath())
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.Style().Options = table.OptionsNoBordersAndSeparators
	s.cdr.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		tw.AppendRow(table.Row{c.Name(), c.Synopsis()})
	})
	for name, reason := range s.unavailable {
		tw.AppendRow(table.Row{name, "not available on this host: " + reason})
	}
	tw.SortBy([]table.SortBy{{Number: 1, Mode: table.Asc}})
	tw.Render()
	fmt.Fprintf(w, "\nRun '%s <command> --help' for the options of a command.\n", rt.usagePath())
}

// Name implements subcommands.Command.
func (s *CommandSet) Name() string { return s.name }

// Synopsis implements subcommands.Command.
func (s *CommandSet) Synopsis() string { return s.synopsis }

// Usage implements subcommands.Command.
func (s *CommandSet) Usage() string { return s.name + " <command> [OPTIONS]\n" }

// SetFlags implements subcommands.Command. Options are parsed by the leaf
// commands.
func (*CommandSet) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command for nested sets.
func (s *CommandSet) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return subcommands.ExitStatus(s.route(ctx, args[0].(*Runtime), f.Args()))
}

// leaf adapts a Command to subcommands.Command.
type leaf struct {
	cmd *Command
}

var _ = subcommands.Command(&leaf{})

func (l *leaf) Name() string         { return l.cmd.Name() }
func (l *leaf) Synopsis() string     { return l.cmd.Synopsis() }
func (l *leaf) Usage() string        { return l.cmd.Name() + " [OPTIONS]\n" }
func (*leaf) SetFlags(*flag.FlagSet) {}

func (l *leaf) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return subcommands.ExitStatus(l.cmd.Invoke(ctx, args[0].(*Runtime), restore(f.Args())))
}

// Router is the entry point routing process arguments to commands.
type Router struct {
	root *CommandSet
	rt   *Runtime
}

// NewRouter returns a Router for the program called name.
func NewRouter(name string, rt *Runtime) *Router {
	rt = &Runtime{Env: rt.Env, Stdout: rt.Stdout, Stderr: rt.Stderr, Console: rt.Console, path: []string{name}}
	return &Router{root: NewCommandSet(name, ""), rt: rt}
}

// Root returns the top-level command set.
func (r *Router) Root() *CommandSet { return r.root }

// Run routes args, which exclude the program name, and returns the exit
// code of the selected command.
func (r *Router) Run(ctx context.Context, args []string) exitcode.Code {
	return r.root.route(ctx, r.rt, protect(args))
}

func protect(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if a == "--" {
			a = doubleDash
		}
		out[i] = a
	}
	return out
}

func restore(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = restoreOne(a)
	}
	return out
}

func restoreOne(a string) string {
	if a == doubleDash {
		return "--"
	}
	return a
}

// Names returns the names of the commands and sets registered in s.
func (s *CommandSet) Names() []string {
	var names []string
	s.cdr.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		names = append(names, c.Name())
	})
	return names
}
