// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package wasm runs WebAssembly test applications on JavaScript engines
// and in browsers.
package wasm

import (
	"context"
	"path/filepath"
	"time"

	"golang.org/x/text/language"

	"go.xharness.dev/xharness/internal/arguments"
	"go.xharness.dev/xharness/internal/backend"
	"go.xharness.dev/xharness/internal/command"
	"go.xharness.dev/xharness/internal/exitcode"
	"go.xharness.dev/xharness/internal/platform"
	"go.xharness.dev/xharness/internal/platform/wasm/webserver"
)

const (
	defaultRunTimeout   = 15 * time.Minute
	defaultJSFile       = "runtime.js"
	defaultHTMLFile     = "index.html"
	defaultDebuggerPort = 9222
)

// Commands returns the wasm command set.
func Commands(deps *platform.Deps) *command.CommandSet {
	set := command.NewCommandSet("wasm", "Run WebAssembly applications")
	set.Add(testCommand(deps))
	set.Add(testBrowserCommand(deps))
	return set
}

// AppArgs are the arguments locating the application.
type AppArgs struct {
	Dir     *arguments.Path
	DLLFile *arguments.String
	Locale  *arguments.Locale
}

// NewAppArgs returns the application arguments.
func NewAppArgs() *AppArgs {
	return &AppArgs{
		Dir:     arguments.NewPath("app|a", "Directory holding the application", ".").MustExist(),
		DLLFile: arguments.NewString("dll-file", "Assembly the application runs, relative to the application directory", ""),
		Locale:  arguments.NewLocale("locale", "Locale of the application, e.g. de-DE", language.Und),
	}
}

// Args returns the arguments passed to the application: "--run <dll>" when
// an assembly is given, then passThrough.
func (a *AppArgs) Args(passThrough []string) []string {
	var args []string
	if dll := a.DLLFile.Value(); dll != "" {
		args = append(args, "--run", dll)
	}
	return append(args, passThrough...)
}

// Env returns engine environment variables selecting the locale.
func (a *AppArgs) Env() []string {
	if l := posixLocale(a.Locale.Value()); l != "" {
		return []string{"LANG=" + l}
	}
	return nil
}

// Name returns the name of the application used in results.
func (a *AppArgs) Name() string {
	if dll := a.DLLFile.Value(); dll != "" {
		return filepath.Base(dll)
	}
	dir, err := filepath.Abs(a.Dir.Value())
	if err != nil {
		return a.Dir.Value()
	}
	return filepath.Base(dir)
}

func testCommand(deps *platform.Deps) *command.Command {
	run := backend.NewRunArgs(defaultRunTimeout)
	app := NewAppArgs()
	sym := NewSymbolArgs()
	engine := arguments.NewEnum("engine|e", "JavaScript engine", Engines(), V8)
	enginePath := arguments.NewString("engine-path", "Engine executable; the engine's usual name is looked up in PATH by default", "")
	engineArgs := arguments.NewRepeated("engine-arg", "Argument passed to the engine; repeatable")
	jsFile := arguments.NewString("js-file", "Entry script of the application, relative to the application directory", defaultJSFile)

	set := arguments.NewSet(run.Group(),
		arguments.Group{Title: "Engine", Args: []arguments.Argument{
			engine, enginePath, engineArgs, app.Dir, jsFile, app.DLLFile, app.Locale,
		}},
		sym.Group())
	set.AddRule(sym.Rule)
	set.AllowPassThrough()

	return command.New("test", "Run a WebAssembly application on a JavaScript engine",
		"Runs the application's entry script on an engine and collects the results it prints. "+
			"Arguments after -- are passed to the application.",
		set, func(ctx context.Context) (exitcode.Code, error) {
			e := engine.Value()
			bin := enginePath.Value()
			if bin == "" {
				bin = e.Binary()
			}
			l := &Launch{
				Name:         app.Name(),
				Engine:       e.String(),
				Binary:       bin,
				Args:         e.Args(engineArgs.Values(), jsFile.Value(), app.Args(set.PassThrough())),
				Env:          app.Env(),
				Dir:          app.Dir.Value(),
				Symbolicator: sym.Symbolicator(),
			}
			return backend.Execute[*Launch](ctx, NewEngineBackend(deps.Runner), l,
				run.Options(deps.Reporting, platform.DefaultJargons...))
		})
}

func testBrowserCommand(deps *platform.Deps) *command.Command {
	run := backend.NewRunArgs(defaultRunTimeout)
	app := NewAppArgs()
	sym := NewSymbolArgs()
	browser := arguments.NewEnum("browser|b", "Browser", Browsers(), Chrome)
	browserPath := arguments.NewString("browser-path", "Browser executable; the browser's usual name is looked up in PATH by default", "")
	browserArgs := arguments.NewRepeated("browser-arg", "Argument passed to the browser; repeatable")
	debugger := arguments.NewRangedInt("debugger|d", "Remote debugging port of the browser", defaultDebuggerPort, 1, 65535)
	htmlFile := arguments.NewString("html-file", "Page of the application, relative to the application directory", defaultHTMLFile)
	noHeadless := arguments.NewSwitch("no-headless", "Show the browser window", false)
	middleware := arguments.NewReferences("web-server-middleware",
		"Web server middleware as path,name; repeatable", webserver.Middlewares)
	https := arguments.NewSwitch("web-server-use-https", "Serve the application over HTTPS", false)
	cors := arguments.NewSwitch("web-server-use-cors", "Allow cross-origin requests", false)
	cop := arguments.NewSwitch("web-server-use-cop", "Set cross-origin opener and embedder policies", false)

	set := arguments.NewSet(run.Group(),
		arguments.Group{Title: "Browser", Args: []arguments.Argument{
			browser, browserPath, browserArgs, debugger, noHeadless, app.Dir, htmlFile, app.DLLFile, app.Locale,
		}},
		arguments.Group{Title: "Web server", Args: []arguments.Argument{middleware, https, cors, cop}},
		sym.Group())
	set.AddRule(sym.Rule)
	var mws []webserver.Middleware
	set.AddRule(func() error {
		mws = nil
		for _, ref := range middleware.Values() {
			mw, err := webserver.Middlewares.New(ref.Name, ref.Path)
			if err != nil {
				return &arguments.ValidationError{Msg: err.Error()}
			}
			mws = append(mws, mw)
		}
		return nil
	})
	set.AllowPassThrough()

	return command.New("test-browser", "Run a WebAssembly application in a browser",
		"Serves the application directory, opens its page in a browser and collects the results it posts. "+
			"Arguments after -- are passed to the application.",
		set, func(ctx context.Context) (exitcode.Code, error) {
			cfg := &BrowserConfig{
				Name:         app.Name(),
				Browser:      browser.Value(),
				BrowserPath:  browserPath.Value(),
				BrowserArgs:  browserArgs.Values(),
				AppDir:       app.Dir.Value(),
				HTMLFile:     htmlFile.Value(),
				AppArgs:      app.Args(set.PassThrough()),
				DebuggerPort: debugger.Value(),
				NoHeadless:   noHeadless.Value(),
				Locale:       app.Locale.Value(),
				Middleware:   mws,
				HTTPS:        https.Value(),
				CORS:         cors.Value(),
				COP:          cop.Value(),
				Symbolicator: sym.Symbolicator(),
			}
			return backend.Execute[*BrowserConfig](ctx, NewBrowserBackend(deps.Runner, deps.Limiter), cfg,
				run.Options(deps.Reporting, platform.DefaultJargons...))
		})
}
