// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package summary

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"time"

	"go.xharness.dev/xharness/errors"
)

// nunitNode is any element of an NUnit v3 document.
type nunitNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr  `xml:",any,attr"`
	Failure *nunitText  `xml:"failure"`
	Reason  *nunitText  `xml:"reason"`
	Output  string      `xml:"output"`
	Nodes   []nunitNode `xml:",any"`
}

type nunitText struct {
	Message    string `xml:"message"`
	StackTrace string `xml:"stack-trace"`
}

func (n *nunitNode) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (n *nunitNode) intAttr(name string) int {
	v, _ := strconv.Atoi(n.attr(name))
	return v
}

func (n *nunitNode) duration() time.Duration {
	secs, err := strconv.ParseFloat(n.attr("duration"), 64)
	if err != nil {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

// nunitTimeLayouts are the layouts seen in start-time attributes.
var nunitTimeLayouts = []string{
	"2006-01-02 15:04:05Z",
	"2006-01-02 15:04:05.999999999Z",
	time.RFC3339Nano,
}

func (n *nunitNode) start() time.Time {
	v := n.attr("start-time")
	for _, layout := range nunitTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ParseNUnit3 reads a result document in NUnit v3 format. The root may be
// either <test-run> or a single <test-suite>. The returned Summary keeps
// the document in Native.
func ParseNUnit3(r io.Reader) (*Summary, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read NUnit v3 results")
	}
	var root nunitNode
	if err := xml.Unmarshal(b, &root); err != nil {
		return nil, errors.Wrap(err, "failed to parse NUnit v3 results")
	}

	var s *Summary
	switch root.XMLName.Local {
	case "test-run":
		s = nodeSummary(&root)
		if v := root.attr("random-seed"); v != "" {
			if seed, err := strconv.Atoi(v); err == nil {
				s.Seed = &seed
			}
		}
	case "test-suite":
		s = nodeSummary(&root)
	default:
		return nil, errors.Errorf("unexpected NUnit v3 root element <%s>", root.XMLName.Local)
	}
	s.Native = bytes.TrimSpace(b)
	if err := s.Validate(); err != nil {
		return nil, errors.Wrap(err, "inconsistent NUnit v3 results")
	}
	return s, nil
}

// nodeSummary converts a <test-run> or <test-suite> element.
func nodeSummary(n *nunitNode) *Summary {
	s := &Summary{
		Name:         n.attr("name"),
		FullName:     n.attr("fullname"),
		Total:        n.intAttr("total"),
		Passed:       n.intAttr("passed"),
		Failed:       n.intAttr("failed"),
		Inconclusive: n.intAttr("inconclusive"),
		Skipped:      n.intAttr("skipped"),
		Asserts:      n.intAttr("asserts"),
		Duration:     n.duration(),
		Start:        n.start(),
	}
	if s.FullName == "" {
		s.FullName = s.Name
	}
	for i := range n.Nodes {
		c := &n.Nodes[i]
		switch c.XMLName.Local {
		case "test-suite":
			s.Children = append(s.Children, nodeSummary(c))
		case "test-case":
			s.Cases = append(s.Cases, nodeCase(c))
		}
	}
	return s
}

func nodeCase(n *nunitNode) *Case {
	c := &Case{
		Name:     n.attr("name"),
		FullName: n.attr("fullname"),
		Result:   parseResult(n.attr("result")),
		Duration: n.duration(),
		Asserts:  n.intAttr("asserts"),
		Output:   strings.TrimSpace(n.Output),
	}
	switch {
	case n.Failure != nil:
		c.Message = strings.TrimSpace(n.Failure.Message)
		c.StackTrace = strings.TrimSpace(n.Failure.StackTrace)
	case n.Reason != nil:
		c.Message = strings.TrimSpace(n.Reason.Message)
	}
	return c
}

func parseResult(result string) Result {
	switch result {
	case "Passed":
		return Passed
	case "Failed":
		return Failed
	case "Skipped":
		return Skipped
	default:
		return Inconclusive
	}
}
