// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package wasm

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/language"

	"go.xharness.dev/xharness/internal/backend"
	"go.xharness.dev/xharness/internal/exitcode"
	"go.xharness.dev/xharness/internal/procexec"
	"go.xharness.dev/xharness/internal/procexec/procexectest"
	"go.xharness.dev/xharness/internal/timeout"
	"go.xharness.dev/xharness/testutil"
)

const chromePath = "/opt/google/chrome/google-chrome"

func TestBrowserArgs(t *testing.T) {
	cfg := &BrowserConfig{
		Browser:      Chrome,
		BrowserArgs:  []string{"--incognito"},
		DebuggerPort: 9333,
		Locale:       language.MustParse("de-DE"),
		HTTPS:        true,
	}
	got := browserArgs(cfg, "/tmp/profile", "https://127.0.0.1:1/index.html")
	want := []string{
		"--headless=new",
		"--remote-debugging-port=9333",
		"--user-data-dir=/tmp/profile",
		"--no-first-run",
		"--no-default-browser-check",
		"--lang=de-DE",
		"--ignore-certificate-errors",
		"--incognito",
		"https://127.0.0.1:1/index.html",
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Chrome args mismatch (-got +want):\n%s", diff)
	}

	cfg = &BrowserConfig{Browser: Firefox, DebuggerPort: 6000, NoHeadless: true}
	got = browserArgs(cfg, "/tmp/profile", "http://127.0.0.1:1/index.html")
	want = []string{"-no-remote", "-profile", "/tmp/profile", "--start-debugger-server", "6000", "http://127.0.0.1:1/index.html"}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Firefox args mismatch (-got +want):\n%s", diff)
	}
}

func TestAppURL(t *testing.T) {
	if got, want := appURL("http://h:1", "index.html", nil), "http://h:1/index.html"; got != want {
		t.Errorf("appURL = %q; want %q", got, want)
	}
	got := appURL("http://h:1", "main.html", []string{"--run", "Tests.dll"})
	if want := "http://h:1/main.html?arg=--run&arg=Tests.dll"; got != want {
		t.Errorf("appURL = %q; want %q", got, want)
	}
}

func TestPosixLocale(t *testing.T) {
	for tag, want := range map[string]string{
		"de-DE": "de_DE.UTF-8",
		"ja":    "ja.UTF-8",
		"und":   "",
	} {
		if got := posixLocale(language.MustParse(tag)); got != want {
			t.Errorf("posixLocale(%s) = %q; want %q", tag, got, want)
		}
	}
}

// postConsole simulates the page sending lines to the web server whose
// page URL is the last browser argument.
func postConsole(c *procexec.Cmd, lines ...string) error {
	u, err := url.Parse(c.Args[len(c.Args)-1])
	if err != nil {
		return err
	}
	u.Path = "/console/stdout"
	u.RawQuery = ""
	res, err := http.Post(u.String(), "text/plain", strings.NewReader(strings.Join(lines, "\n")+"\n"))
	if err != nil {
		return err
	}
	return res.Body.Close()
}

func browserConfig(t *testing.T) *BrowserConfig {
	dir := testutil.TempDir(t)
	if err := testutil.WriteFiles(dir, map[string]string{"index.html": "<html></html>"}); err != nil {
		t.Fatal(err)
	}
	return &BrowserConfig{
		Name:         "Tests.dll",
		Browser:      Chrome,
		AppDir:       dir,
		HTMLFile:     "index.html",
		AppArgs:      []string{"--run", "Tests.dll"},
		DebuggerPort: 9222,
		Locale:       language.MustParse("de-DE"),
	}
}

func TestBrowserBackendRun(t *testing.T) {
	r := procexectest.NewRunner()
	var page *http.Response
	r.Handle(chromePath, func(ctx context.Context, c *procexec.Cmd) (int, error) {
		res, err := http.Get(c.Args[len(c.Args)-1])
		if err != nil {
			return 0, err
		}
		page = res
		res.Body.Close()
		if err := postConsole(c, append(resultLines(failingDoc), "WASM EXIT 1")...); err != nil {
			return 0, err
		}
		<-ctx.Done()
		return 0, ctx.Err()
	})

	res, err := NewBrowserBackend(r, timeout.Default).Run(context.Background(), browserConfig(t))
	if err != nil {
		t.Fatal("Run failed: ", err)
	}
	if page == nil || page.StatusCode != http.StatusOK {
		t.Errorf("Page request got %v; want 200", page)
	}
	if res.Outcome != backend.TestsFailed {
		t.Errorf("Outcome = %v; want %v", res.Outcome, backend.TestsFailed)
	}
	if res.AppExitCode == nil || *res.AppExitCode != 1 {
		t.Errorf("AppExitCode = %v; want 1", res.AppExitCode)
	}
	if res.Summary == nil || res.Summary.Failed != 1 {
		t.Errorf("Summary = %+v; want 1 failure", res.Summary)
	}

	calls := r.Calls()
	if len(calls) != 1 {
		t.Fatalf("Ran %d commands; want 1", len(calls))
	}
	if diff := cmp.Diff(calls[0].Env, []string{"LANG=de_DE.UTF-8"}); diff != "" {
		t.Errorf("Env mismatch (-got +want):\n%s", diff)
	}
	if u := calls[0].Args[len(calls[0].Args)-1]; !strings.HasSuffix(u, "/index.html?arg=--run&arg=Tests.dll") {
		t.Errorf("Opened %q; want the page with app arguments", u)
	}
}

func TestBrowserBackendTimeout(t *testing.T) {
	r := procexectest.NewRunner()
	r.Handle(chromePath, func(ctx context.Context, c *procexec.Cmd) (int, error) {
		if err := postConsole(c, "starting"); err != nil {
			return 0, err
		}
		<-ctx.Done()
		return 0, ctx.Err()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := NewBrowserBackend(r, timeout.Default).Run(ctx, browserConfig(t))
	if err == nil {
		t.Fatal("Run succeeded unexpectedly")
	}
	if res == nil || res.Outcome != backend.TimedOut {
		t.Errorf("Result = %+v; want a timed out result", res)
	}
}

func TestBrowserBackendNotFound(t *testing.T) {
	_, err := NewBrowserBackend(procexectest.NewRunner(), timeout.Default).Run(context.Background(), browserConfig(t))
	if code := failureCode(t, err); code != exitcode.BrowserNotFound {
		t.Errorf("Exit code = %v; want %v", code, exitcode.BrowserNotFound)
	}
}
