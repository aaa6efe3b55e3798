// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package reporting writes test run summaries as XML result files.
package reporting

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/google/uuid"

	"go.xharness.dev/xharness/errors"
	"go.xharness.dev/xharness/internal/summary"
)

// Jargon is an XML result dialect.
type Jargon int

const (
	// TouchUnit is the NUnit v2 document shape marked as produced by Touch.Unit.
	TouchUnit Jargon = iota
	// NUnitV2 is the NUnit 2.x result format.
	NUnitV2
	// NUnitV3 is the NUnit 3.x result format.
	NUnitV3
	// XUnit is the classic xUnit.net v2 result format.
	XUnit
	// XUnitV3 is the xUnit.net v3 result format.
	XUnitV3
)

var jargonNames = map[Jargon]string{
	TouchUnit: "TouchUnit",
	NUnitV2:   "NUnitV2",
	NUnitV3:   "NUnitV3",
	XUnit:     "xUnit",
	XUnitV3:   "xUnitV3",
}

// Jargons returns every dialect by name.
func Jargons() map[string]Jargon {
	m := make(map[string]Jargon, len(jargonNames))
	for j, n := range jargonNames {
		m[n] = j
	}
	return m
}

func (j Jargon) String() string {
	if n, ok := jargonNames[j]; ok {
		return n
	}
	return fmt.Sprintf("Jargon(%d)", int(j))
}

// FileName returns the name of the result file written for j.
func FileName(j Jargon) string {
	return "TestResults." + j.String() + ".xml"
}

// Fixed formats of serialized dates, times and durations.
const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// Environment describes the host a run happened on.
type Environment struct {
	FrameworkVersion string
	RuntimeVersion   string
	OSVersion        string
	Platform         string
	OSArchitecture   string
	MachineName      string
	User             string
	UserDomain       string
	WorkDir          string
	Culture          string
}

// Options configures writers.
type Options struct {
	Env Environment
	// Clock supplies the run start when a summary has none.
	Clock clock.Clock
	// NewID returns unique run and assembly identifiers.
	NewID func() string
}

func (o *Options) fill() {
	if o.Clock == nil {
		o.Clock = clock.NewClock()
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
}

func (o *Options) runStart(s *summary.Summary) time.Time {
	if !s.Start.IsZero() {
		return s.Start.UTC()
	}
	return o.Clock.Now().UTC()
}

// Writer serializes a summary in one dialect.
type Writer interface {
	Write(w io.Writer, s *summary.Summary) error
}

// New returns the writer for j.
func New(j Jargon, opts Options) (Writer, error) {
	opts.fill()
	switch j {
	case TouchUnit:
		return &nunit2Writer{opts: opts, touchUnit: true}, nil
	case NUnitV2:
		return &nunit2Writer{opts: opts}, nil
	case NUnitV3:
		return &nunit3Writer{opts: opts}, nil
	case XUnit:
		return &xunitWriter{opts: opts}, nil
	case XUnitV3:
		return &xunitWriter{opts: opts, v3: true}, nil
	default:
		return nil, errors.Errorf("unsupported result format %v", j)
	}
}

// WriteFile writes s in dialect j to dir and returns the file path.
func WriteFile(dir string, j Jargon, opts Options, s *summary.Summary) (path string, retErr error) {
	w, err := New(j, opts)
	if err != nil {
		return "", err
	}
	path = filepath.Join(dir, FileName(j))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to create result file")
	}
	defer func() {
		if err := f.Close(); err != nil && retErr == nil {
			retErr = errors.Wrap(err, "failed to close result file")
		}
	}()
	bw := bufio.NewWriter(f)
	if err := w.Write(bw, s); err != nil {
		return path, errors.Wrapf(err, "failed to write %v results", j)
	}
	if err := bw.Flush(); err != nil {
		return path, errors.Wrap(err, "failed to write result file")
	}
	return path, nil
}

// xmlWriter streams elements to an xml.Encoder. The first error sticks and
// later calls do nothing.
type xmlWriter struct {
	enc *xml.Encoder
	err error
}

func newXMLWriter(w io.Writer) *xmlWriter {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	x := &xmlWriter{enc: enc}
	x.token(xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="utf-8"`)})
	return x
}

func (x *xmlWriter) token(t xml.Token) {
	if x.err == nil {
		x.err = x.enc.EncodeToken(t)
	}
}

func (x *xmlWriter) start(name string, attrs ...xml.Attr) {
	x.token(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (x *xmlWriter) end(name string) {
	x.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func (x *xmlWriter) text(s string) {
	x.token(xml.CharData(s))
}

// elem writes an element holding text.
func (x *xmlWriter) elem(name, text string, attrs ...xml.Attr) {
	x.start(name, attrs...)
	if text != "" {
		x.text(text)
	}
	x.end(name)
}

// empty writes an element with no content.
func (x *xmlWriter) empty(name string, attrs ...xml.Attr) {
	x.start(name, attrs...)
	x.end(name)
}

func (x *xmlWriter) close() error {
	if x.err == nil {
		x.err = x.enc.Flush()
	}
	return x.err
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func intAttr(name string, v int) xml.Attr {
	return attr(name, strconv.Itoa(v))
}

func boolAttr(name string, v bool) xml.Attr {
	if v {
		return attr(name, "True")
	}
	return attr(name, "False")
}
