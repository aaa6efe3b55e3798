// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package procexec

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"go.xharness.dev/xharness/errors"
	"go.xharness.dev/xharness/internal/timeout"
	"go.xharness.dev/xharness/testutil"
)

type lines struct {
	mu sync.Mutex
	l  []string
}

func (l *lines) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.l = append(l.l, s)
}

func TestRunCapturesOutput(t *testing.T) {
	dir := testutil.TempDir(t)
	testutil.WriteExecutable(t, dir, "engine", "first\nsecond", "oops", 3)

	var stdout, stderr lines
	r := NewExecRunner(dir)
	res, err := r.Run(context.Background(), &Cmd{Name: "engine", Stdout: stdout.add, Stderr: stderr.add})
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d; want 3", res.ExitCode)
	}
	if diff := cmp.Diff(stdout.l, []string{"first", "second"}); diff != "" {
		t.Errorf("Stdout mismatch (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(stderr.l, []string{"oops"}); diff != "" {
		t.Errorf("Stderr mismatch (-got +want):\n%s", diff)
	}
}

func TestRunPassesArgsAndEnv(t *testing.T) {
	dir := testutil.TempDir(t)
	p := filepath.Join(dir, "echo.sh")
	if err := os.WriteFile(p, []byte("#!/bin/sh\necho \"$1|$2|$XH_VALUE\"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	var out lines
	if _, err := NewExecRunner("").Run(context.Background(), &Cmd{
		Name:   p,
		Args:   []string{"a b", "--"},
		Env:    []string{"XH_VALUE=v"},
		Stdout: out.add,
	}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(out.l, []string{"a b|--|v"}); diff != "" {
		t.Errorf("Output mismatch (-got +want):\n%s", diff)
	}
}

func TestRunTimeout(t *testing.T) {
	dir := testutil.TempDir(t)
	p := filepath.Join(dir, "hang")
	if err := os.WriteFile(p, []byte("#!/bin/sh\nexec sleep 30\n"), 0755); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := timeout.Default.WithTimeout(context.Background(), 100*time.Millisecond, "engine run")
	defer cancel(context.Canceled)

	_, err := NewExecRunner(dir).Run(ctx, &Cmd{Name: "hang"})
	var terr *timeout.Error
	if !errors.As(err, &terr) || terr.Phase != "engine run" {
		t.Errorf("Run = %v; want a timeout of the engine run", err)
	}
}

func TestLookPath(t *testing.T) {
	dir := testutil.TempDir(t)
	exe := testutil.WriteExecutable(t, dir, "node", "", "", 0)
	if err := os.WriteFile(filepath.Join(dir, "plain"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	r := NewExecRunner(filepath.Join(dir, "missing") + string(filepath.ListSeparator) + dir)

	if got, err := r.LookPath("node"); err != nil || got != exe {
		t.Errorf("LookPath(node) = %q, %v; want %q", got, err, exe)
	}
	for _, name := range []string{"plain", "nothing", filepath.Join(dir, "plain"), dir} {
		if _, err := r.LookPath(name); err == nil {
			t.Errorf("LookPath(%q) succeeded", name)
		}
	}
}

func TestQuote(t *testing.T) {
	for _, c := range []struct{ in, want string }{
		{``, `''`},
		{` `, `' '`},
		{`ab`, `ab`},
		{`a b`, `'a b'`},
		{`AZaz09@%_+=:,./-`, `AZaz09@%_+=:,./-`},
		{`a!b`, `'a!b'`},
		{`'`, `''"'"''`},
		{`=foo`, `'=foo'`},
		{`it's`, `'it'"'"'s'`},
	} {
		if got := Quote(c.in); got != c.want {
			t.Errorf("Quote(%q) = %q; want %q", c.in, got, c.want)
		}
	}
	if got, want := CommandLine("/bin/v8", []string{"--expose-wasm", "a b"}), `/bin/v8 --expose-wasm 'a b'`; got != want {
		t.Errorf("CommandLine = %q; want %q", got, want)
	}
}
