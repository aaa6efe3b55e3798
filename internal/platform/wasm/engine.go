// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package wasm

import (
	"context"
	"fmt"

	"go.xharness.dev/xharness/internal/appoutput"
	"go.xharness.dev/xharness/internal/backend"
	"go.xharness.dev/xharness/internal/exitcode"
	"go.xharness.dev/xharness/internal/logging"
	"go.xharness.dev/xharness/internal/procexec"
	"go.xharness.dev/xharness/internal/symbolicate"
)

// ExitMarker prefixes the line reporting the exit code of an application.
const ExitMarker = "WASM EXIT"

// Engine is a JavaScript engine able to run WebAssembly.
type Engine int

// Supported engines.
const (
	V8 Engine = iota
	JavaScriptCore
	SpiderMonkey
	NodeJS
)

var engineNames = map[Engine]string{
	V8:             "V8",
	JavaScriptCore: "JavaScriptCore",
	SpiderMonkey:   "SpiderMonkey",
	NodeJS:         "NodeJS",
}

// engineBinaries are looked up in PATH when no engine path is given.
var engineBinaries = map[Engine]string{
	V8:             "v8",
	JavaScriptCore: "jsc",
	SpiderMonkey:   "sm",
	NodeJS:         "node",
}

// Engines returns every engine by name.
func Engines() map[string]Engine {
	m := make(map[string]Engine, len(engineNames))
	for e, n := range engineNames {
		m[n] = e
	}
	return m
}

func (e Engine) String() string {
	if n, ok := engineNames[e]; ok {
		return n
	}
	return fmt.Sprintf("Engine(%d)", int(e))
}

// Binary returns the executable name of e.
func (e Engine) Binary() string { return engineBinaries[e] }

// Args returns the arguments running jsFile on e. appArgs reach the
// application.
func (e Engine) Args(engineArgs []string, jsFile string, appArgs []string) []string {
	var args []string
	if e == V8 {
		args = append(args, "--expose_wasm")
	}
	args = append(args, engineArgs...)
	args = append(args, jsFile)
	switch e {
	case V8, JavaScriptCore:
		args = append(args, "--")
	}
	return append(args, appArgs...)
}

// Launch is one engine process running a test application.
type Launch struct {
	// Name identifies the application in results.
	Name string
	// Engine names the engine in messages.
	Engine string
	// Binary is the engine executable, a path or a bare name.
	Binary string
	Args   []string
	// Env holds "KEY=value" entries for the engine.
	Env []string
	Dir string
	// Symbolicator rewrites application output. It may be nil.
	Symbolicator symbolicate.Symbolicator
}

// EngineBackend runs applications on command-line engines.
type EngineBackend struct {
	runner procexec.Runner
}

var _ backend.Backend[*Launch] = &EngineBackend{}

// NewEngineBackend returns an EngineBackend starting engines with runner.
func NewEngineBackend(runner procexec.Runner) *EngineBackend {
	return &EngineBackend{runner: runner}
}

// Run implements backend.Backend.
func (b *EngineBackend) Run(ctx context.Context, l *Launch) (*backend.Result, error) {
	path, err := b.runner.LookPath(l.Binary)
	if err != nil {
		return nil, backend.WrapFailure(err, exitcode.EngineNotFound, "%s engine %s not found", l.Engine, l.Binary)
	}
	logging.Infof(ctx, "Running %s on %s", l.Name, l.Engine)

	out := appoutput.New(ctx, ExitMarker, l.Symbolicator)
	pres, err := b.runner.Run(ctx, &procexec.Cmd{
		Name:   path,
		Args:   l.Args,
		Env:    l.Env,
		Dir:    l.Dir,
		Stdout: out.Line,
		Stderr: out.Line,
	})
	if err != nil {
		if ctx.Err() == nil {
			return nil, backend.WrapFailure(err, exitcode.AppLaunchFailure, "failed to run %s", l.Engine)
		}
		res, _ := result(ctx, l.Name, out, nil)
		res.Outcome = backend.TimedOut
		return res, ctx.Err()
	}
	return result(ctx, l.Name, out, &pres.ExitCode)
}

// result interprets application output. The exit code printed by the
// application takes precedence over procCode, the exit code of its host
// process.
func result(ctx context.Context, name string, out *appoutput.Processor, procCode *int) (*backend.Result, error) {
	sum, sumErr := out.Summary(name)
	res := &backend.Result{Outcome: backend.Succeeded, Summary: sum}
	if sum != nil && sum.Failed > 0 {
		res.Outcome = backend.TestsFailed
	}
	if sumErr != nil {
		return res, backend.WrapFailure(sumErr, exitcode.GeneralFailure, "bad results from %s", name)
	}

	if code, ok := out.ExitCode(); ok {
		res.AppExitCode = &code
		return res, nil
	}
	if procCode == nil {
		if res.Outcome == backend.Succeeded {
			res.Outcome = backend.NoReturnCode
		}
		return res, nil
	}
	code := *procCode
	logging.Debugf(ctx, "No %q line; using the engine exit code %d", ExitMarker, code)
	if code < 0 || code > 128 {
		res.Outcome = backend.Crashed
	}
	res.AppExitCode = &code
	return res, nil
}
