// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package reporting

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"time"

	"go.xharness.dev/xharness/errors"
	"go.xharness.dev/xharness/internal/summary"
)

// nunit3Writer writes NUnit 3.x documents. Every node of the summary
// becomes a <test-suite> under one <test-run>; nodes carrying a native
// document are copied from it.
type nunit3Writer struct {
	opts Options
	ids  int
}

func (w *nunit3Writer) Write(out io.Writer, s *summary.Summary) error {
	x := newXMLWriter(out)
	start := w.opts.runStart(s)
	end := start.Add(s.Duration)
	env := w.opts.Env
	w.ids = 1000

	attrs := []xml.Attr{
		attr("id", w.opts.NewID()),
		attr("name", s.Name),
		attr("fullname", s.FullName),
		intAttr("testcasecount", s.Total),
		attr("result", nunit3Result(s)),
		intAttr("total", s.Total),
		intAttr("passed", s.Passed),
		intAttr("failed", s.Failed),
		intAttr("warnings", 0),
		intAttr("inconclusive", s.Inconclusive),
		intAttr("skipped", s.Skipped),
		intAttr("asserts", s.Asserts),
		attr("engine-version", env.FrameworkVersion),
		attr("clr-version", env.RuntimeVersion),
		attr("start-time", nunit3Time(start)),
		attr("end-time", nunit3Time(end)),
		attr("duration", seconds(s.Duration)),
	}
	if s.Seed != nil {
		attrs = append(attrs, intAttr("random-seed", *s.Seed))
	}
	x.start("test-run", attrs...)

	x.empty("environment",
		attr("framework-version", env.FrameworkVersion),
		attr("clr-version", env.RuntimeVersion),
		attr("os-version", env.OSVersion),
		attr("platform", env.Platform),
		attr("cwd", env.WorkDir),
		attr("machine-name", env.MachineName),
		attr("user", env.User),
		attr("user-domain", env.UserDomain),
		attr("culture", env.Culture),
		attr("uiculture", env.Culture),
		attr("os-architecture", env.OSArchitecture))

	switch {
	case s.Native != nil:
		w.copyNative(x, s.Native)
	case len(s.Children) > 0:
		for _, c := range s.Children {
			w.node(x, c, "Assembly")
		}
	default:
		w.node(x, s, "Assembly")
	}

	x.end("test-run")
	return x.close()
}

func (w *nunit3Writer) node(x *xmlWriter, s *summary.Summary, typ string) {
	if s.Native != nil {
		w.copyNative(x, s.Native)
		return
	}
	if len(s.Cases) > 0 {
		typ = "TestFixture"
	}
	start := w.opts.runStart(s)
	x.start("test-suite",
		attr("type", typ),
		attr("id", w.nextID()),
		attr("name", s.Name),
		attr("fullname", s.FullName),
		intAttr("testcasecount", s.Total),
		attr("result", nunit3Result(s)),
		attr("start-time", nunit3Time(start)),
		attr("end-time", nunit3Time(start.Add(s.Duration))),
		attr("duration", seconds(s.Duration)),
		intAttr("total", s.Total),
		intAttr("passed", s.Passed),
		intAttr("failed", s.Failed),
		intAttr("warnings", 0),
		intAttr("inconclusive", s.Inconclusive),
		intAttr("skipped", s.Skipped),
		intAttr("asserts", s.Asserts))
	for _, c := range s.Children {
		w.node(x, c, "TestSuite")
	}
	for _, c := range s.Cases {
		w.testCase(x, c)
	}
	x.end("test-suite")
}

func (w *nunit3Writer) testCase(x *xmlWriter, c *summary.Case) {
	attrs := []xml.Attr{
		attr("id", w.nextID()),
		attr("name", c.Name),
		attr("fullname", c.FullName),
		attr("result", c.Result.String()),
	}
	if c.Result == summary.Skipped {
		attrs = append(attrs, attr("label", "Ignored"))
	}
	attrs = append(attrs, attr("duration", seconds(c.Duration)), intAttr("asserts", c.Asserts))
	x.start("test-case", attrs...)
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
	if c.Output != "" {
		x.elem("output", c.Output)
	}
	x.end("test-case")
}

func (w *nunit3Writer) nextID() string {
	w.ids++
	return "0-" + strconv.Itoa(w.ids)
}

// copyNative re-emits the <test-suite> elements of a native document token
// by token. An enclosing <test-run> is dropped, as are <environment>
// elements at any depth and other run-level elements.
func (w *nunit3Writer) copyNative(x *xmlWriter, native []byte) {
	if x.err != nil {
		return
	}
	d := xml.NewDecoder(bytes.NewReader(native))
	depth := 0 // depth within a copied <test-suite>
	skip := 0  // depth within a dropped subtree
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			x.err = errors.Wrap(err, "malformed native results")
			return
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case skip > 0:
				skip++
			case t.Name.Local == "environment":
				skip = 1
			case depth == 0 && t.Name.Local == "test-run":
			case depth == 0 && t.Name.Local != "test-suite":
				skip = 1
			default:
				depth++
				x.token(t.Copy())
			}
		case xml.EndElement:
			switch {
			case skip > 0:
				skip--
			case depth > 0:
				depth--
				x.token(t)
			}
		case xml.CharData:
			if skip == 0 && depth > 0 && len(bytes.TrimSpace(t)) > 0 {
				x.token(t.Copy())
			}
		}
	}
}

func nunit3Result(s *summary.Summary) string {
	switch {
	case s.Failed > 0:
		return "Failed"
	case s.Total > 0 && s.Total == s.Skipped:
		return "Skipped"
	case s.Total > 0 && s.Total == s.Inconclusive:
		return "Inconclusive"
	default:
		return "Passed"
	}
}

func nunit3Time(t time.Time) string {
	return t.Format(dateLayout + " " + timeLayout + "Z")
}
