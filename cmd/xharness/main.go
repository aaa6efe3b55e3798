// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package main implements the xharness executable, used to run test
// applications on Android, Apple, WebAssembly and WASI targets.
package main

import (
	"context"
	"io"
	"os"

	"go.xharness.dev/xharness/internal/command"
	"go.xharness.dev/xharness/internal/config"
	"go.xharness.dev/xharness/internal/hostinfo"
	"go.xharness.dev/xharness/internal/logging"
	"go.xharness.dev/xharness/internal/platform"
	"go.xharness.dev/xharness/internal/platform/android"
	"go.xharness.dev/xharness/internal/platform/apple"
	"go.xharness.dev/xharness/internal/platform/wasi"
	"go.xharness.dev/xharness/internal/platform/wasm"
	"go.xharness.dev/xharness/internal/procexec"
	"go.xharness.dev/xharness/internal/timeout"
)

// Version is the version of this executable. It is set at link time.
var Version = "<unknown>"

const appleUnavailable = "Apple targets are only supported on macOS hosts"

// newRouter builds the command tree. Apple commands are registered only on
// macOS hosts.
func newRouter(rt *command.Runtime, deps *platform.Deps, info *hostinfo.Info, bridge android.Bridge) *command.Router {
	r := command.NewRouter("xharness", rt)
	root := r.Root()
	root.AddSet(android.Commands(deps, bridge))
	if info.IsDarwin() {
		root.AddSet(apple.Commands(deps))
	} else {
		root.AddUnavailable("apple", appleUnavailable)
	}
	root.AddSet(wasm.Commands(deps))
	root.AddSet(wasi.Commands(deps))
	root.Add(versionCommand(deps.Stdout, info))
	return r
}

// newDeps returns the collaborators of platform commands on this host.
func newDeps(env *config.Env, stdout io.Writer, info *hostinfo.Info) *platform.Deps {
	deps := &platform.Deps{
		Stdout:  stdout,
		Runner:  procexec.NewExecRunner(env.Path),
		Limiter: timeout.Default,
	}
	deps.Reporting.Env = info.Environment(Version, env.Lang)
	return deps
}

// doMain implements the main body of the program. It's a separate function so
// that its deferred functions will run before os.Exit makes the program exit
// immediately.
func doMain() int {
	env := config.FromOS()
	ctx := context.Background()
	info := hostinfo.Get(ctx)

	rt := &command.Runtime{
		Env:     env,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Console: logging.NewConsoleSink(os.Stdout, !env.DisableColor),
	}
	installSignalHandler(os.Stderr)

	code := newRouter(rt, newDeps(env, os.Stdout, info), info, android.NewBridge()).Run(ctx, os.Args[1:])
	return env.ExitCodes.Value(code)
}

func main() {
	os.Exit(doMain())
}
