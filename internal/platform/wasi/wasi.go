// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package wasi runs WebAssembly System Interface test applications on
// standalone engines.
package wasi

import (
	"context"
	"fmt"
	"time"

	"go.xharness.dev/xharness/internal/arguments"
	"go.xharness.dev/xharness/internal/backend"
	"go.xharness.dev/xharness/internal/command"
	"go.xharness.dev/xharness/internal/exitcode"
	"go.xharness.dev/xharness/internal/platform"
	"go.xharness.dev/xharness/internal/platform/wasm"
)

const defaultRunTimeout = 15 * time.Minute

// Engine is a WASI runtime.
type Engine int

// Supported engines.
const (
	WasmTime Engine = iota
)

// Engines returns every engine by name.
func Engines() map[string]Engine {
	return map[string]Engine{"WasmTime": WasmTime}
}

func (e Engine) String() string {
	if e == WasmTime {
		return "WasmTime"
	}
	return fmt.Sprintf("Engine(%d)", int(e))
}

// Binary returns the executable name of e.
func (e Engine) Binary() string { return "wasmtime" }

// Args returns the arguments running wasmFile on e with the current
// directory preopened. appArgs reach the application.
func (e Engine) Args(engineArgs []string, wasmFile string, appArgs []string) []string {
	args := append([]string{"run"}, engineArgs...)
	args = append(args, "--dir=.", wasmFile, "--")
	return append(args, appArgs...)
}

// Commands returns the wasi command set.
func Commands(deps *platform.Deps) *command.CommandSet {
	set := command.NewCommandSet("wasi", "Run WASI applications")
	set.Add(testCommand(deps))
	return set
}

func testCommand(deps *platform.Deps) *command.Command {
	run := backend.NewRunArgs(defaultRunTimeout)
	app := wasm.NewAppArgs()
	sym := wasm.NewSymbolArgs()
	engine := arguments.NewEnum("engine|e", "WASI engine", Engines(), WasmTime)
	enginePath := arguments.NewString("engine-path", "Engine executable; the engine's usual name is looked up in PATH by default", "")
	engineArgs := arguments.NewRepeated("engine-arg", "Argument passed to the engine; repeatable")
	wasmFile := arguments.NewRequiredString("wasm-file", "WebAssembly module to run, relative to the application directory")

	set := arguments.NewSet(run.Group(),
		arguments.Group{Title: "Engine", Args: []arguments.Argument{
			engine, enginePath, engineArgs, app.Dir, wasmFile, app.DLLFile,
		}},
		sym.Group())
	set.AddRule(sym.Rule)
	set.AllowPassThrough()

	return command.New("test", "Run a WASI application",
		"Runs the module on a WASI engine with the application directory preopened and collects the results it prints. "+
			"Arguments after -- are passed to the application.",
		set, func(ctx context.Context) (exitcode.Code, error) {
			e := engine.Value()
			bin := enginePath.Value()
			if bin == "" {
				bin = e.Binary()
			}
			l := &wasm.Launch{
				Name:         app.Name(),
				Engine:       e.String(),
				Binary:       bin,
				Args:         e.Args(engineArgs.Values(), wasmFile.Value(), app.Args(set.PassThrough())),
				Dir:          app.Dir.Value(),
				Symbolicator: sym.Symbolicator(),
			}
			return backend.Execute[*wasm.Launch](ctx, wasm.NewEngineBackend(deps.Runner), l,
				run.Options(deps.Reporting, platform.DefaultJargons...))
		})
}
