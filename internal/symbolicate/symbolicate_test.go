// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package symbolicate

import (
	"path/filepath"
	"testing"

	"go.xharness.dev/xharness/errors"
	"go.xharness.dev/xharness/internal/arguments"
	"go.xharness.dev/xharness/testutil"
)

func TestNewWithoutMap(t *testing.T) {
	s, err := New("", "", "")
	if err != nil || s != nil {
		t.Errorf(`New("", "", "") = %v, %v; want nil, nil`, s, err)
	}
}

func TestSymbolicate(t *testing.T) {
	dir := testutil.TempDir(t)
	if err := testutil.WriteFiles(dir, map[string]string{
		"dotnet.js.symbols": "0:mono_wasm_load\n\n1:do_icall\n12:mono_runtime_invoke\n",
	}); err != nil {
		t.Fatal(err)
	}
	s, err := New("wasm", filepath.Join(dir, "dotnet.js.symbols"), "")
	if err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct{ in, want string }{
		{"at wasm-function[12]:0x1234", "at mono_runtime_invoke:0x1234"},
		{"at $func1 (dotnet.wasm)", "at do_icall (dotnet.wasm)"},
		{"wasm-function[0] <- wasm-function[1]", "mono_wasm_load <- do_icall"},
		{"at wasm-function[99]:0x1", "at wasm-function[99]:0x1"},
		{"plain line", "plain line"},
	} {
		if got := s.Symbolicate(tc.in); got != tc.want {
			t.Errorf("Symbolicate(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestCustomPatterns(t *testing.T) {
	dir := testutil.TempDir(t)
	if err := testutil.WriteFiles(dir, map[string]string{
		"map":      "7:main\n",
		"patterns": "# frames\nfunc#(?P<funcNum>\\d+)\n",
	}); err != nil {
		t.Fatal(err)
	}
	s, err := New("", filepath.Join(dir, "map"), filepath.Join(dir, "patterns"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := s.Symbolicate("in func#7 and wasm-function[7]"), "in main and wasm-function[7]"; got != want {
		t.Errorf("Symbolicate = %q; want %q", got, want)
	}
}

func TestNewInvalid(t *testing.T) {
	dir := testutil.TempDir(t)
	if err := testutil.WriteFiles(dir, map[string]string{
		"good":       "1:f\n",
		"bad":        "1:f\nnot a symbol\n",
		"noindex":    "x:f\n",
		"badpattern": "wasm-function\\[(\n",
		"nogroup":    "wasm-function\\[\\d+\\]\n",
	}); err != nil {
		t.Fatal(err)
	}
	p := func(name string) string { return filepath.Join(dir, name) }

	for _, tc := range []struct {
		name                   string
		kind, mapFile, pattern string
	}{
		{"malformed map", "", p("bad"), ""},
		{"non-numeric index", "", p("noindex"), ""},
		{"missing map", "", p("missing"), ""},
		{"malformed pattern", "", p("good"), p("badpattern")},
		{"pattern without group", "", p("good"), p("nogroup")},
		{"unknown kind", "elf", p("good"), ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.kind, tc.mapFile, tc.pattern)
			var verr *arguments.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("New = %v; want a ValidationError", err)
			}
		})
	}
}
