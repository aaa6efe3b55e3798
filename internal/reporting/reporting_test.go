// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package reporting

import (
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/google/go-cmp/cmp"

	"go.xharness.dev/xharness/internal/summary"
	"go.xharness.dev/xharness/testutil"
)

var runStart = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func testOptions() Options {
	return Options{
		Env:   Environment{FrameworkVersion: "3.13", Platform: "Linux", MachineName: "host", Culture: "en-US"},
		Clock: fakeclock.NewFakeClock(runStart),
		NewID: func() string { return "id" },
	}
}

func sampleSummary() *summary.Summary {
	fixture := summary.FromCases("Tests.MathTests", runStart, []*summary.Case{
		{Name: "Add", FullName: "Tests.MathTests.Add", Result: summary.Passed, Duration: 500 * time.Millisecond, Asserts: 3},
		{Name: "Div", FullName: "Tests.MathTests.Div", Result: summary.Failed, Duration: time.Second,
			Message: "Expected 2 but was 3", StackTrace: "at Div()"},
		{Name: "Mul", FullName: "Tests.MathTests.Mul", Result: summary.Skipped, Message: "not ready"},
		{Name: "Sub", FullName: "Tests.MathTests.Sub", Result: summary.Inconclusive},
	})
	return summary.Aggregate("run", summary.Aggregate("Tests.dll", fixture))
}

func write(t *testing.T, j Jargon, s *summary.Summary) string {
	t.Helper()
	w, err := New(j, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := w.Write(&buf, s); err != nil {
		t.Fatalf("Write(%v) failed: %v", j, err)
	}
	out := buf.String()
	if err := xml.Unmarshal(buf.Bytes(), new(struct{})); err != nil {
		t.Fatalf("Write(%v) produced malformed XML: %v\n%s", j, err, out)
	}
	return out
}

func TestFileName(t *testing.T) {
	want := map[Jargon]string{
		TouchUnit: "TestResults.TouchUnit.xml",
		NUnitV2:   "TestResults.NUnitV2.xml",
		NUnitV3:   "TestResults.NUnitV3.xml",
		XUnit:     "TestResults.xUnit.xml",
		XUnitV3:   "TestResults.xUnitV3.xml",
	}
	for j, name := range want {
		if got := FileName(j); got != name {
			t.Errorf("FileName(%v) = %q; want %q", j, got, name)
		}
	}
	if len(Jargons()) != len(want) {
		t.Errorf("Jargons() = %v; want %d entries", Jargons(), len(want))
	}
}

func TestNUnit2(t *testing.T) {
	out := write(t, NUnitV2, sampleSummary())
	for _, s := range []string{
		`<?xml version="1.0" encoding="utf-8"?>`,
		`date="2025-01-02"`,
		`time="03:04:05"`,
		`nunit-version="2.6.4"`,
		`total="4"`,
		`failures="1"`,
		`current-culture="en-US"`,
		`name="Tests.MathTests.Div" executed="True" result="Failure" success="False" time="1.000"`,
		`result="Ignored"`,
		`<message>Expected 2 but was 3</message>`,
	} {
		if !strings.Contains(out, s) {
			t.Errorf("NUnitV2 output does not contain %s:\n%s", s, out)
		}
	}
}

func TestTouchUnitMarker(t *testing.T) {
	out := write(t, TouchUnit, sampleSummary())
	if !strings.Contains(out, `nunit-version="Touch.Unit"`) {
		t.Errorf("TouchUnit output lacks the Touch.Unit marker:\n%s", out)
	}
	if !strings.Contains(out, "<test-results ") {
		t.Errorf("TouchUnit output is not an NUnit v2 document:\n%s", out)
	}
}

func TestNUnit3Generated(t *testing.T) {
	s := sampleSummary()
	seed := 42
	s.Seed = &seed
	out := write(t, NUnitV3, s)
	for _, want := range []string{
		`start-time="2025-01-02 03:04:05Z"`,
		`end-time="2025-01-02 03:04:06Z"`,
		`duration="1.500"`,
		`random-seed="42"`,
		`result="Failed"`,
		`type="Assembly"`,
		`type="TestFixture"`,
		`label="Ignored"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("NUnitV3 output does not contain %s:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "<test-run "); n != 1 {
		t.Errorf("NUnitV3 output has %d <test-run> elements; want 1", n)
	}
}

const nativeDoc = `<?xml version="1.0" encoding="utf-8"?>
<test-run id="2" total="1" passed="1" failed="0" inconclusive="0" skipped="0">
  <command-line><![CDATA[run]]></command-line>
  <environment framework-version="3.13" />
  <test-suite type="Assembly" name="%s" fullname="%s" total="1" passed="1" failed="0" inconclusive="0" skipped="0">
    <environment framework-version="3.13"><extra/></environment>
    <test-case name="A" fullname="A" result="Passed" />
  </test-suite>
</test-run>`

func nativeSummary(t *testing.T, name string) *summary.Summary {
	t.Helper()
	doc := strings.ReplaceAll(nativeDoc, "%s", name)
	s, err := summary.ParseNUnit3(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNUnit3NativeSingleEnvironment(t *testing.T) {
	for _, tc := range []struct {
		name  string
		nodes []string
	}{
		{"one", []string{"A.dll"}},
		{"two", []string{"A.dll", "B.dll"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var children []*summary.Summary
			for _, n := range tc.nodes {
				children = append(children, nativeSummary(t, n))
			}
			root := summary.Aggregate("run", children...)
			if len(children) == 1 {
				root = children[0]
			}
			out := write(t, NUnitV3, root)
			if n := strings.Count(out, "<test-run "); n != 1 {
				t.Errorf("Got %d <test-run> elements; want 1:\n%s", n, out)
			}
			if n := strings.Count(out, "<environment "); n != 1 {
				t.Errorf("Got %d <environment> elements; want 1:\n%s", n, out)
			}
			if strings.Contains(out, "command-line") || strings.Contains(out, "<extra") {
				t.Errorf("Run-level or environment content was copied:\n%s", out)
			}
			for _, n := range tc.nodes {
				if !strings.Contains(out, `fullname="`+n+`"`) {
					t.Errorf("Native suite %s missing:\n%s", n, out)
				}
			}
		})
	}
}

func TestNUnit3MalformedNative(t *testing.T) {
	s := summary.FromCases("x", runStart, nil)
	s.Native = []byte("<test-suite><test-case></test-suite>")
	w, err := New(NUnitV3, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(&bytes.Buffer{}, s); err == nil {
		t.Error("Write succeeded for a malformed native document")
	}
}

type xunitAssembly struct {
	Total   int `xml:"total,attr"`
	Passed  int `xml:"passed,attr"`
	Failed  int `xml:"failed,attr"`
	Skipped int `xml:"skipped,attr"`
	NotRun  int `xml:"not-run,attr"`
	Tests   []struct {
		Result string `xml:"result,attr"`
	} `xml:"collection>test"`
}

type xunitDoc struct {
	Assemblies []xunitAssembly `xml:"assembly"`
}

func parseXUnit(t *testing.T, out string) xunitDoc {
	t.Helper()
	var doc xunitDoc
	if err := xml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Assemblies) != 1 {
		t.Fatalf("Got %d assemblies; want 1", len(doc.Assemblies))
	}
	return doc
}

func TestXUnitCounts(t *testing.T) {
	a := parseXUnit(t, write(t, XUnit, sampleSummary())).Assemblies[0]
	var results []string
	for _, r := range a.Tests {
		results = append(results, r.Result)
	}
	if diff := cmp.Diff(results, []string{"Pass", "Fail", "Skip", "Skip"}); diff != "" {
		t.Errorf("xUnit results mismatch (-got +want):\n%s", diff)
	}
	if a.Total != 4 || a.Passed != 1 || a.Failed != 1 || a.Skipped != 2 {
		t.Errorf("xUnit counts = %+v; want total 4, passed 1, failed 1, skipped 2", a)
	}
}

func TestXUnitV3Counts(t *testing.T) {
	out := write(t, XUnitV3, sampleSummary())
	a := parseXUnit(t, out).Assemblies[0]
	if a.Skipped != 1 || a.NotRun != 1 {
		t.Errorf("xUnit v3 counts = %+v; want skipped 1, not-run 1", a)
	}
	if !strings.Contains(out, `schema-version="3"`) || !strings.Contains(out, `result="NotRun"`) {
		t.Errorf("xUnit v3 output lacks v3 markers:\n%s", out)
	}
	if !strings.Contains(out, `run-date="2025-01-02" run-time="03:04:05"`) {
		t.Errorf("xUnit v3 output has wrong run timestamps:\n%s", out)
	}
}

func TestRunStartFromClock(t *testing.T) {
	s := summary.FromCases("x", time.Time{}, []*summary.Case{{Name: "a"}})
	out := write(t, NUnitV2, s)
	if !strings.Contains(out, `date="2025-01-02" time="03:04:05"`) {
		t.Errorf("Run start not taken from the clock:\n%s", out)
	}
}

func TestWriteFile(t *testing.T) {
	dir := testutil.TempDir(t)
	path, err := WriteFile(dir, XUnit, testOptions(), sampleSummary())
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "TestResults.xUnit.xml"); path != want {
		t.Errorf("WriteFile path = %q; want %q", path, want)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	parseXUnit(t, string(b))
}

func TestNewUnknownJargon(t *testing.T) {
	if _, err := New(Jargon(99), Options{}); err == nil {
		t.Error("New(99) succeeded")
	}
}
