// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package arguments implements typed command-line arguments and the sets
// that parse and validate them for one command.
//
// Every argument is declared with its spellings separated by "|"; the first
// spelling is canonical:
//
//	app := arguments.NewRequiredPath("app|a", "Path to the application bundle")
//	set := arguments.NewSet(arguments.Group{Title: "Apple", Args: []arguments.Argument{app}})
//	if unknown := set.Parse(args); len(unknown) > 0 { ... }
//	if err := set.Validate(); err != nil { ... }
package arguments

import (
	"fmt"
	"strings"
)

// ValueMode tells the parser how an argument takes its value.
type ValueMode int

const (
	// ValueRequired arguments take a value either as "--name=value" or as
	// the next token.
	ValueRequired ValueMode = iota
	// ValueOptional arguments may appear bare. Their value, if any, must be
	// attached with "=".
	ValueOptional
)

// Argument is one typed command-line option.
type Argument interface {
	// Names returns the spellings of the argument, canonical first.
	Names() []string
	// Description is the help text of the argument.
	Description() string
	// Mode returns how the argument takes its value.
	Mode() ValueMode
	// Action applies one raw value. It fails with *FormatError.
	Action(raw string) error
	// Validate checks the final value. It fails with *ValidationError.
	Validate() error
	// IsSet reports whether the argument appeared on the command line.
	IsSet() bool
}

// bareArgument is implemented by ValueOptional arguments.
type bareArgument interface {
	Bare() error
}

// defaulter is implemented by arguments showing a default in help output.
type defaulter interface {
	DefaultString() string
}

// info holds what every argument has in common.
type info struct {
	names []string
	desc  string
	set   bool
}

func newInfo(names, desc string) info {
	var ns []string
	for _, n := range strings.Split(names, "|") {
		if n = strings.TrimSpace(n); n != "" {
			ns = append(ns, n)
		}
	}
	if len(ns) == 0 {
		panic(fmt.Sprintf("argument %q has no names", names))
	}
	return info{names: ns, desc: desc}
}

func (i *info) Names() []string     { return append([]string(nil), i.names...) }
func (i *info) Description() string { return i.desc }
func (i *info) IsSet() bool         { return i.set }
func (i *info) Mode() ValueMode     { return ValueRequired }
func (i *info) Validate() error     { return nil }

// flag returns the canonical spelling as typed on the command line.
func (i *info) flag() string { return flagName(i.names[0]) }

func (i *info) formatError(raw, reason string) error {
	return &FormatError{Flag: i.flag(), Value: raw, Reason: reason}
}

// flagName returns how name is spelled on a command line. Short names take a
// single dash.
func flagName(name string) string {
	if len(name) <= 2 {
		return "-" + name
	}
	return "--" + name
}
