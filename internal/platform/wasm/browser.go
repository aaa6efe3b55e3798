// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package wasm

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"golang.org/x/text/language"

	"go.xharness.dev/xharness/errors"
	"go.xharness.dev/xharness/internal/appoutput"
	"go.xharness.dev/xharness/internal/backend"
	"go.xharness.dev/xharness/internal/exitcode"
	"go.xharness.dev/xharness/internal/logging"
	"go.xharness.dev/xharness/internal/platform/wasm/webserver"
	"go.xharness.dev/xharness/internal/procexec"
	"go.xharness.dev/xharness/internal/symbolicate"
	"go.xharness.dev/xharness/internal/timeout"
)

// Browser is a web browser driving browser test runs.
type Browser int

// Supported browsers.
const (
	Chrome Browser = iota
	Firefox
	Edge
)

var browserNames = map[Browser]string{
	Chrome:  "Chrome",
	Firefox: "Firefox",
	Edge:    "Edge",
}

var browserBinaries = map[Browser]string{
	Chrome:  "google-chrome",
	Firefox: "firefox",
	Edge:    "microsoft-edge",
}

// Browsers returns every browser by name.
func Browsers() map[string]Browser {
	m := make(map[string]Browser, len(browserNames))
	for b, n := range browserNames {
		m[n] = b
	}
	return m
}

func (b Browser) String() string {
	if n, ok := browserNames[b]; ok {
		return n
	}
	return fmt.Sprintf("Browser(%d)", int(b))
}

// Binary returns the executable name of b.
func (b Browser) Binary() string { return browserBinaries[b] }

// BrowserConfig is a validated browser run.
type BrowserConfig struct {
	// Name identifies the application in results.
	Name        string
	Browser     Browser
	BrowserPath string
	BrowserArgs []string
	// AppDir is served at the root of the web server.
	AppDir   string
	HTMLFile string
	// AppArgs reach the application as repeated "arg" query parameters.
	AppArgs      []string
	DebuggerPort int
	NoHeadless   bool
	Locale       language.Tag
	Middleware   []webserver.Middleware
	HTTPS        bool
	CORS         bool
	COP          bool
	Symbolicator symbolicate.Symbolicator
}

// BrowserBackend runs applications in a browser.
type BrowserBackend struct {
	runner  procexec.Runner
	limiter *timeout.Limiter
}

var _ backend.Backend[*BrowserConfig] = &BrowserBackend{}

// NewBrowserBackend returns a BrowserBackend starting browsers with runner.
func NewBrowserBackend(runner procexec.Runner, limiter *timeout.Limiter) *BrowserBackend {
	return &BrowserBackend{runner: runner, limiter: limiter}
}

// errAppExited stops the browser once the application reported its exit
// code.
var errAppExited = errors.New("application exited")

// Run implements backend.Backend.
func (b *BrowserBackend) Run(ctx context.Context, cfg *BrowserConfig) (*backend.Result, error) {
	bin := cfg.BrowserPath
	if bin == "" {
		bin = cfg.Browser.Binary()
	}
	path, err := b.runner.LookPath(bin)
	if err != nil {
		return nil, backend.WrapFailure(err, exitcode.BrowserNotFound, "%v browser %s not found", cfg.Browser, bin)
	}

	profile, err := os.MkdirTemp("", "xharness-browser.")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create browser profile")
	}
	defer os.RemoveAll(profile)

	bctx, cancel := b.limiter.WithCancel(ctx)
	defer cancel(context.Canceled)

	out := appoutput.New(ctx, ExitMarker, cfg.Symbolicator)
	srv, err := webserver.Start(ctx, &webserver.Options{
		Root: cfg.AppDir,
		Console: func(stream, line string) {
			out.Line(line)
			if _, ok := out.ExitCode(); ok {
				cancel(errAppExited)
			}
		},
		Middleware: cfg.Middleware,
		CORS:       cfg.CORS,
		COP:        cfg.COP,
		HTTPS:      cfg.HTTPS,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logging.Warningf(ctx, "Failed to stop web server: %v", err)
		}
	}()

	u := appURL(srv.URL(), cfg.HTMLFile, cfg.AppArgs)
	logging.Infof(ctx, "Opening %s in %v", u, cfg.Browser)
	var env []string
	if l := posixLocale(cfg.Locale); l != "" {
		env = append(env, "LANG="+l)
	}
	pres, err := b.runner.Run(bctx, &procexec.Cmd{
		Name: path,
		Args: browserArgs(cfg, profile, u),
		Env:  env,
	})
	exited := err != nil && errors.Is(bctx.Err(), errAppExited)
	switch {
	case err != nil && bctx.Err() == nil:
		return nil, backend.WrapFailure(err, exitcode.AppLaunchFailure, "failed to run %v", cfg.Browser)
	case err != nil && !exited:
		res, _ := result(ctx, cfg.Name, out, nil)
		res.Outcome = backend.TimedOut
		return res, err
	case err == nil:
		logging.Warningf(ctx, "%v exited with %d before the application finished", cfg.Browser, pres.ExitCode)
	}
	return result(ctx, cfg.Name, out, nil)
}

// browserArgs returns the command line opening u.
func browserArgs(cfg *BrowserConfig, profile, u string) []string {
	var args []string
	switch cfg.Browser {
	case Firefox:
		if !cfg.NoHeadless {
			args = append(args, "-headless")
		}
		args = append(args, "-no-remote", "-profile", profile,
			"--start-debugger-server", strconv.Itoa(cfg.DebuggerPort))
	default:
		if !cfg.NoHeadless {
			args = append(args, "--headless=new")
		}
		args = append(args,
			"--remote-debugging-port="+strconv.Itoa(cfg.DebuggerPort),
			"--user-data-dir="+profile,
			"--no-first-run",
			"--no-default-browser-check")
		if cfg.Locale != language.Und {
			args = append(args, "--lang="+cfg.Locale.String())
		}
		if cfg.HTTPS {
			args = append(args, "--ignore-certificate-errors")
		}
	}
	args = append(args, cfg.BrowserArgs...)
	return append(args, u)
}

// appURL returns the page URL passing args to the application.
func appURL(base, html string, args []string) string {
	u := base + "/" + html
	if len(args) > 0 {
		u += "?" + url.Values{"arg": args}.Encode()
	}
	return u
}

// posixLocale converts t to a POSIX locale such as "en_US.UTF-8". It
// returns "" for the undetermined tag.
func posixLocale(t language.Tag) string {
	if t == language.Und {
		return ""
	}
	base, _ := t.Base()
	l := base.String()
	if r, conf := t.Region(); conf == language.Exact {
		l += "_" + r.String()
	}
	return l + ".UTF-8"
}
