// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package reporting

import (
	"io"

	"go.xharness.dev/xharness/internal/summary"
)

// nunit2Writer writes NUnit 2.x documents, optionally marked as produced by
// Touch.Unit.
type nunit2Writer struct {
	opts      Options
	touchUnit bool
}

func (w *nunit2Writer) Write(out io.Writer, s *summary.Summary) error {
	x := newXMLWriter(out)
	start := w.opts.runStart(s)
	env := w.opts.Env

	x.start("test-results",
		attr("name", s.Name),
		intAttr("total", s.Total),
		intAttr("errors", 0),
		intAttr("failures", s.Failed),
		intAttr("not-run", s.Skipped),
		intAttr("inconclusive", s.Inconclusive),
		intAttr("ignored", s.Skipped),
		intAttr("skipped", 0),
		intAttr("invalid", 0),
		attr("date", start.Format(dateLayout)),
		attr("time", start.Format(timeLayout)))

	version := "2.6.4"
	if w.touchUnit {
		version = "Touch.Unit"
	}
	x.empty("environment",
		attr("nunit-version", version),
		attr("clr-version", env.RuntimeVersion),
		attr("os-version", env.OSVersion),
		attr("platform", env.Platform),
		attr("cwd", env.WorkDir),
		attr("machine-name", env.MachineName),
		attr("user", env.User),
		attr("user-domain", env.UserDomain))
	x.empty("culture-info",
		attr("current-culture", env.Culture),
		attr("current-uiculture", env.Culture))

	w.suite(x, s, "Assemblies")
	x.end("test-results")
	return x.close()
}

func (w *nunit2Writer) suite(x *xmlWriter, s *summary.Summary, typ string) {
	x.start("test-suite",
		attr("type", typ),
		attr("name", s.FullName),
		boolAttr("executed", s.Total > s.Skipped),
		attr("result", nunit2SuiteResult(s)),
		boolAttr("success", s.Succeeded()),
		attr("time", seconds(s.Duration)),
		intAttr("asserts", s.Asserts))
	x.start("results")
	for _, c := range s.Children {
		childType := "TestSuite"
		if typ == "Assemblies" {
			childType = "Assembly"
		}
		if len(c.Cases) > 0 {
			childType = "TestFixture"
		}
		w.suite(x, c, childType)
	}
	for _, c := range s.Cases {
		w.testCase(x, c)
	}
	x.end("results")
	x.end("test-suite")
}

func (w *nunit2Writer) testCase(x *xmlWriter, c *summary.Case) {
	name := c.FullName
	if name == "" {
		name = c.Name
	}
	executed := c.Result != summary.Skipped
	x.start("test-case",
		attr("name", name),
		boolAttr("executed", executed),
		attr("result", nunit2CaseResult(c.Result)),
		boolAttr("success", c.Result == summary.Passed),
		attr("time", seconds(c.Duration)),
		intAttr("asserts", c.Asserts))
	switch c.Result {
	case summary.Failed:
		x.start("failure")
		x.elem("message", c.Message)
		x.elem("stack-trace", c.StackTrace)
		x.end("failure")
	case summary.Skipped, summary.Inconclusive:
		if c.Message != "" {
			x.start("reason")
			x.elem("message", c.Message)
			x.end("reason")
		}
	}
	x.end("test-case")
}

func nunit2SuiteResult(s *summary.Summary) string {
	switch {
	case s.Failed > 0:
		return "Failure"
	case s.Total > 0 && s.Total == s.Inconclusive:
		return "Inconclusive"
	default:
		return "Success"
	}
}

func nunit2CaseResult(r summary.Result) string {
	switch r {
	case summary.Passed:
		return "Success"
	case summary.Failed:
		return "Failure"
	case summary.Skipped:
		return "Ignored"
	default:
		return "Inconclusive"
	}
}
