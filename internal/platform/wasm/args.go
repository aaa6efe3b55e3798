// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package wasm

import (
	"go.xharness.dev/xharness/internal/arguments"
	"go.xharness.dev/xharness/internal/symbolicate"
)

// SymbolArgs select a symbolicator for application output.
type SymbolArgs struct {
	kind     *arguments.Reference
	mapFile  *arguments.Path
	patterns *arguments.Path

	sym symbolicate.Symbolicator
}

// NewSymbolArgs returns the symbolicator arguments.
func NewSymbolArgs() *SymbolArgs {
	return &SymbolArgs{
		kind: arguments.NewReference("symbolicator",
			"Symbolicator as [path,]name; path is a symbol map used when --symbol-map is not given", symbolicate.Kinds),
		mapFile:  arguments.NewPath("symbol-map", "Symbol map of index:name lines", "").MustExist(),
		patterns: arguments.NewPath("symbol-patterns", "File of patterns matching function references, one per line", "").MustExist(),
	}
}

// Group returns the arguments for an argument set.
func (a *SymbolArgs) Group() arguments.Group {
	return arguments.Group{Title: "Symbolication", Args: []arguments.Argument{a.kind, a.mapFile, a.patterns}}
}

// Rule loads the symbolicator so that bad symbol files are reported as
// invalid arguments. It must be added to the set holding Group.
func (a *SymbolArgs) Rule() error {
	kind, mapFile := "", a.mapFile.Value()
	if ref, ok := a.kind.Value(); ok {
		kind = ref.Name
		if mapFile == "" {
			mapFile = ref.Path
		}
	}
	sym, err := symbolicate.New(kind, mapFile, a.patterns.Value())
	if err != nil {
		return err
	}
	a.sym = sym
	return nil
}

// Symbolicator returns the symbolicator loaded by Rule, or nil.
func (a *SymbolArgs) Symbolicator() symbolicate.Symbolicator { return a.sym }
