// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package reporting

import (
	"encoding/xml"
	"io"
	"strconv"

	"go.xharness.dev/xharness/internal/summary"
)

// xunitWriter writes xUnit.net documents. Each top-level child of the
// summary becomes an <assembly>; every node holding test cases becomes a
// <collection>.
type xunitWriter struct {
	opts Options
	v3   bool
}

func (w *xunitWriter) Write(out io.Writer, s *summary.Summary) error {
	x := newXMLWriter(out)
	start := w.opts.runStart(s)

	rootAttrs := []xml.Attr{attr("timestamp", start.Format("01/02/2006 "+timeLayout))}
	if w.v3 {
		rootAttrs = append(rootAttrs, attr("schema-version", "3"),
			attr("id", w.opts.NewID()),
			attr("computer", w.opts.Env.MachineName),
			attr("user", w.opts.Env.User),
			attr("start-rtf", start.Format(rtfLayout)),
			attr("finish-rtf", start.Add(s.Duration).Format(rtfLayout)))
	}
	x.start("assemblies", rootAttrs...)

	assemblies := s.Children
	if len(assemblies) == 0 {
		assemblies = []*summary.Summary{s}
	}
	for _, a := range assemblies {
		w.assembly(x, a)
	}
	x.end("assemblies")
	return x.close()
}

const rtfLayout = "2006-01-02T15:04:05.0000000Z07:00"

func (w *xunitWriter) assembly(x *xmlWriter, s *summary.Summary) {
	start := w.opts.runStart(s)
	name := s.FullName
	if name == "" {
		name = s.Name
	}
	attrs := []xml.Attr{
		attr("name", name),
		attr("test-framework", "xUnit.net "+w.opts.Env.FrameworkVersion),
		attr("environment", w.opts.Env.Platform+" "+w.opts.Env.OSArchitecture),
		attr("run-date", start.Format(dateLayout)),
		attr("run-time", start.Format(timeLayout)),
		attr("time", seconds(s.Duration)),
		intAttr("total", s.Total),
		intAttr("passed", s.Passed),
		intAttr("failed", s.Failed),
	}
	if w.v3 {
		attrs = append(attrs,
			intAttr("skipped", s.Skipped),
			intAttr("not-run", s.Inconclusive),
			attr("id", w.opts.NewID()),
			attr("start-rtf", start.Format(rtfLayout)),
			attr("finish-rtf", start.Add(s.Duration).Format(rtfLayout)))
	} else {
		attrs = append(attrs, intAttr("skipped", s.Skipped+s.Inconclusive))
	}
	attrs = append(attrs, intAttr("errors", 0))
	x.start("assembly", attrs...)
	x.empty("errors")
	w.collections(x, s, 0)
	x.end("assembly")
}

// collections writes one <collection> per node of s holding test cases,
// depth first.
func (w *xunitWriter) collections(x *xmlWriter, s *summary.Summary, n int) int {
	if len(s.Cases) > 0 {
		name := s.FullName
		if name == "" {
			name = s.Name
		}
		attrs := []xml.Attr{
			attr("name", "Test collection for "+name),
			intAttr("total", s.Total),
			intAttr("passed", s.Passed),
			intAttr("failed", s.Failed),
		}
		if w.v3 {
			attrs = append(attrs, intAttr("skipped", s.Skipped), intAttr("not-run", s.Inconclusive),
				attr("id", strconv.Itoa(n)))
		} else {
			attrs = append(attrs, intAttr("skipped", s.Skipped+s.Inconclusive))
		}
		attrs = append(attrs, attr("time", seconds(s.Duration)))
		x.start("collection", attrs...)
		for _, c := range s.Cases {
			w.test(x, s, c)
		}
		x.end("collection")
		n++
	}
	for _, c := range s.Children {
		n = w.collections(x, c, n)
	}
	return n
}

func (w *xunitWriter) test(x *xmlWriter, fixture *summary.Summary, c *summary.Case) {
	full := c.FullName
	if full == "" {
		full = c.Name
	}
	typ := fixture.FullName
	if typ == "" {
		typ = fixture.Name
	}
	x.start("test",
		attr("name", full),
		attr("type", typ),
		attr("method", c.Name),
		attr("time", seconds(c.Duration)),
		attr("result", w.result(c.Result)))
	switch c.Result {
	case summary.Failed:
		x.start("failure", attr("exception-type", "Exception"))
		x.elem("message", c.Message)
		x.elem("stack-trace", c.StackTrace)
		x.end("failure")
	case summary.Skipped, summary.Inconclusive:
		if c.Message != "" {
			x.elem("reason", c.Message)
		}
	}
	if c.Output != "" {
		x.elem("output", c.Output)
	}
	x.end("test")
}

func (w *xunitWriter) result(r summary.Result) string {
	switch r {
	case summary.Passed:
		return "Pass"
	case summary.Failed:
		return "Fail"
	case summary.Inconclusive:
		if w.v3 {
			return "NotRun"
		}
		return "Skip"
	default:
		return "Skip"
	}
}
