// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package arguments

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/language"

	"go.xharness.dev/xharness/testutil"
)

type fakeCatalog []string

func (c fakeCatalog) Has(name string) bool {
	for _, n := range c {
		if n == name {
			return true
		}
	}
	return false
}

func (c fakeCatalog) Names() []string { return c }

func parseAndValidate(t *testing.T, s *Set, args ...string) error {
	t.Helper()
	if unknown := s.Parse(args); len(unknown) > 0 {
		t.Fatalf("Parse(%q) left unrecognized tokens %q", args, unknown)
	}
	return s.Validate()
}

func TestDefaultsValidate(t *testing.T) {
	s := NewSet(Group{Title: "All", Args: []Argument{
		NewString("string", "", "def"),
		NewPath("path", "", "/nonexistent"),
		NewInt("int", "", 7),
		NewRangedInt("ranged", "", 0, 16, 35),
		NewInts("ints", "", 16, 35),
		NewDuration("duration", "", 15*time.Minute),
		NewSwitch("switch", "", true),
		NewRepeated("repeated", ""),
		NewEnum("enum", "", map[string]int{"A": 1, "B": 2}, 1),
		NewKeyValue("kv", ""),
		NewReference("ref", "", fakeCatalog{"x"}),
		NewLocale("locale", "", language.AmericanEnglish),
	}})
	if err := parseAndValidate(t, s); err != nil {
		t.Errorf("Validate() with no flags failed: %v", err)
	}
}

func TestRepeatedOrder(t *testing.T) {
	a := NewRepeated("arg|a", "")
	s := NewSet(Group{Args: []Argument{a}})
	if err := parseAndValidate(t, s, "-a", "foo", "-a=bar", "--arg", "baz"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a.Values(), []string{"foo", "bar", "baz"}); diff != "" {
		t.Errorf("Values mismatch (-got +want):\n%s", diff)
	}
}

func TestRepeatedAllowed(t *testing.T) {
	a := NewRepeated("device-arch", "").Allow("x86", "arm64-v8a")
	s := NewSet(Group{Args: []Argument{a}})
	err := parseAndValidate(t, s, "--device-arch=mips")
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("Validate() = %v; want FormatError", err)
	}
}

func TestRangedInt(t *testing.T) {
	for _, tc := range []struct {
		value   string
		wantErr interface{}
		msg     []string
	}{
		{"16", nil, nil},
		{"35", nil, nil},
		{"15", &ValidationError{}, []string{"15", "[16, 35]"}},
		{"36", &ValidationError{}, []string{"36", "[16, 35]"}},
		{"abc", &FormatError{}, []string{"must be an integer"}},
	} {
		a := NewRangedInt("api-version|api", "", 0, 16, 35)
		s := NewSet(Group{Args: []Argument{a}})
		err := parseAndValidate(t, s, "--api-version="+tc.value)
		switch tc.wantErr.(type) {
		case nil:
			if err != nil {
				t.Errorf("%s: Validate() failed: %v", tc.value, err)
			}
			continue
		case *ValidationError:
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("%s: Validate() = %v; want ValidationError", tc.value, err)
				continue
			}
		case *FormatError:
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Errorf("%s: Validate() = %v; want FormatError", tc.value, err)
				continue
			}
		}
		for _, m := range tc.msg {
			if !strings.Contains(err.Error(), m) {
				t.Errorf("%s: error %q does not mention %q", tc.value, err.Error(), m)
			}
		}
	}
}

func TestIntsRange(t *testing.T) {
	a := NewInts("api-levels", "", 16, 35)
	s := NewSet(Group{Args: []Argument{a}})
	err := parseAndValidate(t, s, "--api-levels=29", "--api-levels=40")
	var ve *ValidationError
	if !errors.As(err, &ve) || !strings.Contains(err.Error(), "40") {
		t.Errorf("Validate() = %v; want ValidationError about 40", err)
	}
}

func TestMutuallyExclusive(t *testing.T) {
	for _, tc := range []struct {
		args    []string
		wantErr bool
	}{
		{nil, false},
		{[]string{"--api-version=28"}, false},
		{[]string{"--api-levels=29", "--api-levels=30"}, false},
		{[]string{"--api-version=28", "--api-levels=29", "--api-levels=30"}, true},
	} {
		version := NewRangedInt("api-version|api", "", 0, 16, 35)
		levels := NewInts("api-levels", "", 16, 35)
		s := NewSet(Group{Args: []Argument{version, levels}})
		s.AddRule(MutuallyExclusive(version, levels))
		err := parseAndValidate(t, s, tc.args...)
		if !tc.wantErr {
			if err != nil {
				t.Errorf("%q: Validate() failed: %v", tc.args, err)
			}
			continue
		}
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%q: Validate() = %v; want ValidationError", tc.args, err)
			continue
		}
		for _, f := range []string{"--api-version", "--api-levels"} {
			if !strings.Contains(err.Error(), f) {
				t.Errorf("%q: error %q does not name %s", tc.args, err.Error(), f)
			}
		}
	}
}

func TestIndividualErrorsBeforeRules(t *testing.T) {
	version := NewRangedInt("api-version", "", 0, 16, 35)
	levels := NewInts("api-levels", "", 16, 35)
	s := NewSet(Group{Args: []Argument{version, levels}})
	s.AddRule(MutuallyExclusive(version, levels))
	err := parseAndValidate(t, s, "--api-version=99", "--api-levels=29")
	if err == nil || !strings.Contains(err.Error(), "99") {
		t.Errorf("Validate() = %v; want the range error first", err)
	}
}

func TestSwitch(t *testing.T) {
	for _, tc := range []struct {
		def  bool
		args []string
		want bool
	}{
		{false, []string{"--flag"}, true},
		{true, []string{"--flag=false"}, false},
		{false, []string{"--flag=off"}, false},
		{true, []string{"--flag=OFF"}, false},
		{false, []string{"--flag=On"}, true},
		{false, []string{"--flag=1"}, true},
		{true, []string{"--flag=0"}, false},
		{true, nil, true},
		{false, nil, false},
	} {
		a := NewSwitch("flag", "", tc.def)
		s := NewSet(Group{Args: []Argument{a}})
		if err := parseAndValidate(t, s, tc.args...); err != nil {
			t.Errorf("def=%v %q: Validate() failed: %v", tc.def, tc.args, err)
		} else if a.Value() != tc.want {
			t.Errorf("def=%v %q: Value() = %v; want %v", tc.def, tc.args, a.Value(), tc.want)
		}
	}
}

func TestSwitchBadValue(t *testing.T) {
	a := NewSwitch("flag", "", false)
	s := NewSet(Group{Args: []Argument{a}})
	var fe *FormatError
	if err := parseAndValidate(t, s, "--flag=yes"); !errors.As(err, &fe) {
		t.Errorf("Validate() = %v; want FormatError", err)
	}
}

func TestSwitchDoesNotConsumeNextToken(t *testing.T) {
	a := NewSwitch("flag", "", false)
	s := NewSet(Group{Args: []Argument{a}})
	unknown := s.Parse([]string{"--flag", "false"})
	if diff := cmp.Diff(unknown, []string{"false"}); diff != "" {
		t.Errorf("Unrecognized mismatch (-got +want):\n%s", diff)
	}
}

func TestKeyValue(t *testing.T) {
	a := NewKeyValue("set-env|env", "")
	s := NewSet(Group{Args: []Argument{a}})
	if err := parseAndValidate(t, s, "--env=A=1", "--env", "B=x=y", "--set-env=C="); err != nil {
		t.Fatal(err)
	}
	want := []Pair{{"A", "1"}, {"B", "x=y"}, {"C", ""}}
	if diff := cmp.Diff(a.Pairs(), want); diff != "" {
		t.Errorf("Pairs mismatch (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(a.Map(), map[string]string{"A": "1", "B": "x=y", "C": ""}); diff != "" {
		t.Errorf("Map mismatch (-got +want):\n%s", diff)
	}
}

func TestKeyValueErrors(t *testing.T) {
	a := NewKeyValue("env", "")
	s := NewSet(Group{Args: []Argument{a}})
	var fe *FormatError
	if err := parseAndValidate(t, s, "--env=A"); !errors.As(err, &fe) {
		t.Errorf("--env=A: Validate() = %v; want FormatError", err)
	}

	a = NewKeyValue("env", "")
	s = NewSet(Group{Args: []Argument{a}})
	var ve *ValidationError
	if err := parseAndValidate(t, s, "--env=A=1", "--env=A=2"); !errors.As(err, &ve) {
		t.Errorf("duplicate: Validate() = %v; want ValidationError", err)
	}
}

func TestKeyValueFile(t *testing.T) {
	td := testutil.TempDir(t)
	if err := testutil.WriteFiles(td, map[string]string{
		"env.yaml": "B: from-file\nA: overridden\nN: 3\n",
	}); err != nil {
		t.Fatal(err)
	}
	a := NewKeyValue("env", "")
	s := NewSet(Group{Args: []Argument{a, a.FileArgument("env-file", "")}})
	if err := parseAndValidate(t, s, "--env=A=1", "--env-file", filepath.Join(td, "env.yaml")); err != nil {
		t.Fatal(err)
	}
	want := []Pair{{"B", "from-file"}, {"N", "3"}, {"A", "1"}}
	if diff := cmp.Diff(a.Pairs(), want); diff != "" {
		t.Errorf("Pairs mismatch (-got +want):\n%s", diff)
	}
}

func TestKeyValueFileKeepsText(t *testing.T) {
	td := testutil.TempDir(t)
	if err := testutil.WriteFiles(td, map[string]string{
		"env.yaml": "FLAG: on\nVERSION: 1.10\nID: 0123\nN: yes\nQUOTED: \"a: b\"\nEMPTY:\n",
	}); err != nil {
		t.Fatal(err)
	}
	a := NewKeyValue("env", "")
	s := NewSet(Group{Args: []Argument{a, a.FileArgument("env-file", "")}})
	if err := parseAndValidate(t, s, "--env-file", filepath.Join(td, "env.yaml")); err != nil {
		t.Fatal(err)
	}
	want := []Pair{
		{"FLAG", "on"},
		{"VERSION", "1.10"},
		{"ID", "0123"},
		{"N", "yes"},
		{"QUOTED", "a: b"},
		{"EMPTY", ""},
	}
	if diff := cmp.Diff(a.Pairs(), want); diff != "" {
		t.Errorf("Pairs mismatch (-got +want):\n%s", diff)
	}
}

func TestKeyValueFileRejectsNested(t *testing.T) {
	td := testutil.TempDir(t)
	if err := testutil.WriteFiles(td, map[string]string{
		"list.yaml":   "- a\n- b\n",
		"nested.yaml": "A:\n  B: c\n",
	}); err != nil {
		t.Fatal(err)
	}
	for _, fn := range []string{"list.yaml", "nested.yaml"} {
		a := NewKeyValue("env", "")
		s := NewSet(Group{Args: []Argument{a, a.FileArgument("env-file", "")}})
		err := parseAndValidate(t, s, "--env-file", filepath.Join(td, fn))
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("Loading %s: Validate() = %v; want ValidationError", fn, err)
		}
	}
}

func TestEnum(t *testing.T) {
	values := map[string]int{"Unset": 0, "UsbTunnel": 1, "Network": 2}
	a := NewEnum("communication-channel", "", values, 1, "Unset")
	s := NewSet(Group{Args: []Argument{a}})
	if err := parseAndValidate(t, s, "--communication-channel=network"); err != nil {
		t.Fatal(err)
	}
	if a.Value() != 2 {
		t.Errorf("Value() = %d; want 2", a.Value())
	}

	a = NewEnum("communication-channel", "", values, 1, "Unset")
	s = NewSet(Group{Args: []Argument{a}})
	err := parseAndValidate(t, s, "--communication-channel=unset")
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("Validate() = %v; want FormatError", err)
	}
	if !strings.Contains(err.Error(), "Network, UsbTunnel") || strings.Contains(err.Error(), "Unset") {
		t.Errorf("Error %q should list Network, UsbTunnel only", err.Error())
	}
}

func TestDuration(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want time.Duration
	}{
		{"90s", 90 * time.Second},
		{"15m", 15 * time.Minute},
		{"120", 2 * time.Minute},
		{"01:02:03", time.Hour + 2*time.Minute + 3*time.Second},
	} {
		got, err := ParseDuration(tc.in)
		if err != nil {
			t.Errorf("ParseDuration(%q) failed: %v", tc.in, err)
		} else if got != tc.want {
			t.Errorf("ParseDuration(%q) = %v; want %v", tc.in, got, tc.want)
		}
	}
	for _, in := range []string{"", "abc", "-5", "00:61:00", "1:2"} {
		if _, err := ParseDuration(in); err == nil {
			t.Errorf("ParseDuration(%q) succeeded unexpectedly", in)
		}
	}
}

func TestRequired(t *testing.T) {
	a := NewRequiredString("package-name|p", "")
	s := NewSet(Group{Args: []Argument{a}})
	var ve *ValidationError
	if err := parseAndValidate(t, s); !errors.As(err, &ve) {
		t.Errorf("Validate() = %v; want ValidationError", err)
	}

	a = NewRequiredString("package-name|p", "")
	s = NewSet(Group{Args: []Argument{a}})
	if err := parseAndValidate(t, s, "-p", "net.dot.Tests"); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
}

func TestRequiredPath(t *testing.T) {
	td := testutil.TempDir(t)
	if err := testutil.WriteFiles(td, map[string]string{"App.app/Info.plist": ""}); err != nil {
		t.Fatal(err)
	}
	a := NewRequiredPath("app|a", "")
	s := NewSet(Group{Args: []Argument{a}})
	if err := parseAndValidate(t, s, "--app", filepath.Join(td, "App.app")); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}

	a = NewRequiredPath("app|a", "")
	s = NewSet(Group{Args: []Argument{a}})
	var ve *ValidationError
	if err := parseAndValidate(t, s, "--app", filepath.Join(td, "Missing.app")); !errors.As(err, &ve) {
		t.Errorf("Validate() = %v; want ValidationError", err)
	}
}

func TestDoubleDashAsValue(t *testing.T) {
	a := NewString("engine-arg", "", "")
	r := NewRepeated("browser-arg", "")
	s := NewSet(Group{Args: []Argument{a, r}})
	if err := parseAndValidate(t, s, "--engine-arg", "--", "--browser-arg", "--", "--browser-arg=--"); err != nil {
		t.Fatal(err)
	}
	if a.Value() != "--" {
		t.Errorf("String value = %q; want %q", a.Value(), "--")
	}
	if diff := cmp.Diff(r.Values(), []string{"--", "--"}); diff != "" {
		t.Errorf("Repeated mismatch (-got +want):\n%s", diff)
	}
}

func TestPassThrough(t *testing.T) {
	a := NewString("engine", "", "")
	s := NewSet(Group{Args: []Argument{a}})
	s.AllowPassThrough()
	unknown := s.Parse([]string{"--engine=V8", "--", "--run", "x"})
	if len(unknown) > 0 {
		t.Errorf("Unrecognized = %q; want none", unknown)
	}
	if diff := cmp.Diff(s.PassThrough(), []string{"--run", "x"}); diff != "" {
		t.Errorf("PassThrough mismatch (-got +want):\n%s", diff)
	}

	s = NewSet(Group{Args: []Argument{NewString("engine", "", "")}})
	if diff := cmp.Diff(s.Parse([]string{"--", "x"}), []string{"--", "x"}); diff != "" {
		t.Errorf("Unrecognized mismatch (-got +want):\n%s", diff)
	}
}

func TestUnknownTokens(t *testing.T) {
	s := NewSet(Group{Args: []Argument{NewString("app", "", "")}})
	unknown := s.Parse([]string{"--bogus", "--app=x", "positional", "-z=1"})
	if diff := cmp.Diff(unknown, []string{"--bogus", "positional", "-z=1"}); diff != "" {
		t.Errorf("Unrecognized mismatch (-got +want):\n%s", diff)
	}
}

func TestLastValueWins(t *testing.T) {
	a := NewString("output-directory|o", "", "")
	s := NewSet(Group{Args: []Argument{a}})
	if err := parseAndValidate(t, s, "-o", "first", "--output-directory=second"); err != nil {
		t.Fatal(err)
	}
	if a.Value() != "second" {
		t.Errorf("Value() = %q; want %q", a.Value(), "second")
	}
}

func TestMissingValue(t *testing.T) {
	s := NewSet(Group{Args: []Argument{NewString("app", "", "")}})
	if err := parseAndValidate(t, s, "--app"); err == nil {
		t.Error("Validate() succeeded for a flag missing its value")
	}
}

func TestFlagIsNotAValue(t *testing.T) {
	serial := NewString("device-id", "", "")
	out := NewString("output-directory|o", "", "")
	s := NewSet(Group{Args: []Argument{serial, out}})
	err := parseAndValidate(t, s, "--device-id", "-o", "results")
	if err == nil || !strings.Contains(err.Error(), "--device-id requires a value") {
		t.Errorf("Validate() = %v; want a missing value error for --device-id", err)
	}
	if serial.Value() != "" || out.Value() != "results" {
		t.Errorf("Values = %q, %q; want \"\", \"results\"", serial.Value(), out.Value())
	}
}

func TestDashedValue(t *testing.T) {
	a := NewRepeated("engine-arg", "")
	s := NewSet(Group{Args: []Argument{a}})
	if err := parseAndValidate(t, s, "--engine-arg", "--stack-size=1024", "--engine-arg", "-trace", "--engine-arg=-v"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a.Values(), []string{"--stack-size=1024", "-trace", "-v"}); diff != "" {
		t.Errorf("Values mismatch (-got +want):\n%s", diff)
	}
}

func TestDuplicateNamesPanic(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewSet did not panic on duplicate names")
		}
	}()
	NewSet(Group{Args: []Argument{NewString("app|a", "", ""), NewSwitch("all|a", "", false)}})
}

func TestHelpAndVerbosity(t *testing.T) {
	s := NewSet()
	if err := parseAndValidate(t, s, "-h", "--verbosity=debug"); err != nil {
		t.Fatal(err)
	}
	if !s.HelpRequested() {
		t.Error("HelpRequested() = false; want true")
	}
	if got := s.Verbosity().String(); got != "Debug" {
		t.Errorf("Verbosity() = %s; want Debug", got)
	}
}

func TestReference(t *testing.T) {
	td := testutil.TempDir(t)
	if err := testutil.WriteFiles(td, map[string]string{"mw.so": ""}); err != nil {
		t.Fatal(err)
	}
	catalog := fakeCatalog{"cors", "echo"}
	mw := filepath.Join(td, "mw.so")

	a := NewReferences("web-server-middleware", "", catalog)
	s := NewSet(Group{Args: []Argument{a}})
	if err := parseAndValidate(t, s, "--web-server-middleware="+mw+",cors", "--web-server-middleware", mw+",echo"); err != nil {
		t.Fatal(err)
	}
	want := []Ref{{Path: mw, Name: "cors"}, {Path: mw, Name: "echo"}}
	if diff := cmp.Diff(a.Values(), want); diff != "" {
		t.Errorf("Values mismatch (-got +want):\n%s", diff)
	}

	for _, tc := range []struct {
		arg  string
		want interface{}
	}{
		{"cors", &FormatError{}},
		{filepath.Join(td, "missing.so") + ",cors", &ValidationError{}},
		{mw + ",unknown", &ValidationError{}},
	} {
		a := NewReferences("web-server-middleware", "", catalog)
		s := NewSet(Group{Args: []Argument{a}})
		err := parseAndValidate(t, s, "--web-server-middleware="+tc.arg)
		switch tc.want.(type) {
		case *FormatError:
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Errorf("%s: Validate() = %v; want FormatError", tc.arg, err)
			}
		case *ValidationError:
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("%s: Validate() = %v; want ValidationError", tc.arg, err)
			}
		}
	}

	single := NewReference("symbolicator", "", fakeCatalog{"wasm"})
	s = NewSet(Group{Args: []Argument{single}})
	if err := parseAndValidate(t, s, "--symbolicator=wasm"); err != nil {
		t.Fatal(err)
	}
	if r, ok := single.Value(); !ok || r != (Ref{Name: "wasm"}) {
		t.Errorf("Value() = %+v, %v; want {Name: wasm}", r, ok)
	}
}

func TestLocale(t *testing.T) {
	a := NewLocale("locale", "", language.Und)
	s := NewSet(Group{Args: []Argument{a}})
	if err := parseAndValidate(t, s, "--locale=de-DE"); err != nil {
		t.Fatal(err)
	}
	if got := a.Value().String(); got != "de-DE" {
		t.Errorf("Value() = %s; want de-DE", got)
	}

	a = NewLocale("locale", "", language.Und)
	s = NewSet(Group{Args: []Argument{a}})
	var fe *FormatError
	if err := parseAndValidate(t, s, "--locale=not a locale"); !errors.As(err, &fe) {
		t.Errorf("Validate() = %v; want FormatError", err)
	}
}

func TestWriteHelp(t *testing.T) {
	s := NewSet(Group{Title: "Android", Args: []Argument{
		NewRequiredString("package-name|p", "Package name of the test application"),
		NewSwitch("reset-emulator", "Reset the emulator first", false),
	}})
	var b strings.Builder
	s.WriteHelp(&b)
	out := b.String()
	for _, want := range []string{
		"Common options:", "--verbosity, -v=VALUE", "(default: Information)",
		"Android options:", "--package-name, -p=VALUE", "--reset-emulator", "Reset the emulator first (default: false)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Help output does not contain %q:\n%s", want, out)
		}
	}
}
