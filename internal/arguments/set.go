// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package arguments

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"go.xharness.dev/xharness/internal/logging"
)

// Group is a titled list of arguments. Commands share options by including
// the same groups.
type Group struct {
	Title string
	Args  []Argument
}

// Set is the full option surface of one command.
type Set struct {
	groups []Group
	byName map[string]Argument
	rules  []func() error

	allowPassThrough bool
	passThrough      []string
	parseErrs        []error

	verbosity *Enum[logging.Level]
	help      *Switch
}

// NewSet assembles groups into a Set. Options shared by every command come
// first. NewSet panics if two arguments share a name.
func NewSet(groups ...Group) *Set {
	s := &Set{
		byName:    make(map[string]Argument),
		verbosity: NewEnum("verbosity|v", "Log verbosity", logging.Levels(), logging.LevelInfo),
		help:      NewSwitch("help|h|?", "Show this message and exit", false),
	}
	common := Group{Title: "Common", Args: []Argument{s.verbosity, s.help}}
	for _, g := range append([]Group{common}, groups...) {
		for _, a := range g.Args {
			for _, n := range a.Names() {
				if _, ok := s.byName[n]; ok {
					panic(fmt.Sprintf("argument name %q declared twice", n))
				}
				s.byName[n] = a
			}
		}
		s.groups = append(s.groups, g)
	}
	return s
}

// AddRule adds a cross-argument check run by Validate after every argument
// validated on its own.
func (s *Set) AddRule(rule func() error) {
	s.rules = append(s.rules, rule)
}

// AllowPassThrough makes Parse keep tokens after a standalone "--" for the
// application under test instead of rejecting them.
func (s *Set) AllowPassThrough() {
	s.allowPassThrough = true
}

// Parse applies args left to right and returns the tokens no argument
// recognized. Malformed values are reported later by Validate.
func (s *Set) Parse(args []string) (unrecognized []string) {
	for i := 0; i < len(args); i++ {
		tok := args[i]
		if tok == "--" {
			if s.allowPassThrough {
				s.passThrough = append(s.passThrough, args[i+1:]...)
				break
			}
			unrecognized = append(unrecognized, tok)
			continue
		}
		name, ok := trimDashes(tok)
		if !ok {
			unrecognized = append(unrecognized, tok)
			continue
		}
		name, value, hasValue := strings.Cut(name, "=")
		a, ok := s.byName[name]
		if !ok {
			unrecognized = append(unrecognized, tok)
			continue
		}

		var err error
		switch {
		case hasValue:
			err = a.Action(value)
		case a.Mode() == ValueOptional:
			err = a.(bareArgument).Bare()
		case i+1 < len(args) && !s.isFlag(args[i+1]):
			i++
			err = a.Action(args[i])
		default:
			err = validationErrorf("%s requires a value", tok)
		}
		if err != nil {
			s.parseErrs = append(s.parseErrs, err)
		}
	}
	return unrecognized
}

// isFlag reports whether tok spells an argument of s. Other tokens,
// including unknown dashed ones such as engine options, can be values.
func (s *Set) isFlag(tok string) bool {
	name, ok := trimDashes(tok)
	if !ok {
		return false
	}
	name, _, _ = strings.Cut(name, "=")
	_, ok = s.byName[name]
	return ok
}

func trimDashes(tok string) (string, bool) {
	switch {
	case strings.HasPrefix(tok, "--"):
		tok = tok[2:]
	case strings.HasPrefix(tok, "-"):
		tok = tok[1:]
	default:
		return "", false
	}
	return tok, tok != "" && !strings.HasPrefix(tok, "=")
}

// PassThrough returns the tokens that followed a standalone "--".
func (s *Set) PassThrough() []string {
	return append([]string(nil), s.passThrough...)
}

// Validate reports the first problem with the parsed arguments. Format
// errors recorded by Parse come first, then per-argument validation, then
// cross-argument rules.
func (s *Set) Validate() error {
	if len(s.parseErrs) > 0 {
		return s.parseErrs[0]
	}
	for _, g := range s.groups {
		for _, a := range g.Args {
			if err := a.Validate(); err != nil {
				return err
			}
		}
	}
	for _, rule := range s.rules {
		if err := rule(); err != nil {
			return err
		}
	}
	return nil
}

// HelpRequested reports whether --help was given.
func (s *Set) HelpRequested() bool { return s.help.Value() }

// Verbosity returns the requested log level.
func (s *Set) Verbosity() logging.Level { return s.verbosity.Value() }

// WriteHelp writes a table of every argument, group by group.
func (s *Set) WriteHelp(w io.Writer) {
	for _, g := range s.groups {
		if len(g.Args) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s options:\n", g.Title)
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.SetStyle(table.StyleLight)
		tw.Style().Options = table.OptionsNoBordersAndSeparators
		tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 72}})
		for _, a := range g.Args {
			tw.AppendRow(table.Row{spellings(a), helpText(a)})
		}
		tw.Render()
	}
}

func spellings(a Argument) string {
	var fs []string
	for _, n := range a.Names() {
		fs = append(fs, flagName(n))
	}
	s := strings.Join(fs, ", ")
	if a.Mode() == ValueRequired {
		s += "=VALUE"
	}
	return s
}

func helpText(a Argument) string {
	desc := a.Description()
	if d, ok := a.(defaulter); ok {
		if def := d.DefaultString(); def != "" {
			desc += fmt.Sprintf(" (default: %s)", def)
		}
	}
	return desc
}

// MutuallyExclusive returns a rule failing when both a and b were given.
func MutuallyExclusive(a, b Argument) func() error {
	return func() error {
		if a.IsSet() && b.IsSet() {
			return validationErrorf("%s and %s cannot be used together", flagName(a.Names()[0]), flagName(b.Names()[0]))
		}
		return nil
	}
}

// RequiredOneOf returns a rule failing when none of args was given.
func RequiredOneOf(args ...Argument) func() error {
	return func() error {
		var fs []string
		for _, a := range args {
			if a.IsSet() {
				return nil
			}
			fs = append(fs, flagName(a.Names()[0]))
		}
		return validationErrorf("one of %s must be specified", strings.Join(fs, ", "))
	}
}
