// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package appoutput interprets the console output of test applications.
//
// Besides free-form log lines, an application may print:
//
//	STARTRESULTXML <size> <base64 data>
//	<more base64 data>
//	ENDRESULTXML
//
// to transfer an NUnit v3 result document, and an exit marker such as
//
//	WASM EXIT 0
//
// to report its exit code.
package appoutput

import (
	"bytes"
	"context"
	"encoding/base64"
	"strconv"
	"strings"
	"sync"

	"go.xharness.dev/xharness/errors"
	"go.xharness.dev/xharness/internal/logging"
	"go.xharness.dev/xharness/internal/summary"
	"go.xharness.dev/xharness/internal/symbolicate"
)

const (
	startMarker = "STARTRESULTXML"
	endMarker   = "ENDRESULTXML"
)

// Processor consumes output lines. It is safe for concurrent use, so both
// stdout and stderr of a process can feed it.
type Processor struct {
	ctx        context.Context
	exitMarker string
	sym        symbolicate.Symbolicator

	mu       sync.Mutex
	inXML    bool
	xmlSize  int
	xmlData  strings.Builder
	docs     [][]byte
	exitCode *int
	errs     []error
}

// New returns a Processor logging application output to ctx. exitMarker is
// the prefix of exit code lines, e.g. "WASM EXIT". sym may be nil.
func New(ctx context.Context, exitMarker string, sym symbolicate.Symbolicator) *Processor {
	return &Processor{ctx: ctx, exitMarker: exitMarker, sym: sym}
}

// Line processes one line of output.
func (p *Processor) Line(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	trimmed := strings.TrimSpace(line)
	switch {
	case p.inXML && trimmed == endMarker:
		p.finishXML()
	case p.inXML:
		p.xmlData.WriteString(trimmed)
	case strings.HasPrefix(trimmed, startMarker):
		p.startXML(strings.Fields(strings.TrimPrefix(trimmed, startMarker)))
	case p.exitMarker != "" && strings.HasPrefix(trimmed, p.exitMarker+" "):
		v := strings.TrimSpace(strings.TrimPrefix(trimmed, p.exitMarker))
		code, err := strconv.Atoi(v)
		if err != nil {
			logging.Warningf(p.ctx, "Ignoring malformed exit line %q", line)
			return
		}
		p.exitCode = &code
		logging.Info(p.ctx, line)
	default:
		if p.sym != nil {
			line = p.sym.Symbolicate(line)
		}
		logging.Info(p.ctx, line)
	}
}

func (p *Processor) startXML(fields []string) {
	p.inXML = true
	p.xmlSize = -1
	p.xmlData.Reset()
	if len(fields) == 0 {
		return
	}
	if n, err := strconv.Atoi(fields[0]); err == nil {
		p.xmlSize = n
		fields = fields[1:]
	}
	for _, f := range fields {
		p.xmlData.WriteString(f)
	}
}

func (p *Processor) finishXML() {
	p.inXML = false
	b, err := base64.StdEncoding.DecodeString(p.xmlData.String())
	if err != nil {
		p.errs = append(p.errs, errors.Wrap(err, "malformed result data"))
		return
	}
	if p.xmlSize >= 0 && len(b) != p.xmlSize {
		p.errs = append(p.errs, errors.Errorf("result data has %d bytes; announced %d", len(b), p.xmlSize))
		return
	}
	logging.Debugf(p.ctx, "Received %d bytes of results", len(b))
	p.docs = append(p.docs, b)
}

// ExitCode returns the exit code printed by the application, if any.
func (p *Processor) ExitCode() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exitCode == nil {
		return 0, false
	}
	return *p.exitCode, true
}

// Summary returns the results transferred so far, or nil if there are none.
// Several documents are aggregated under name. Documents that could not be
// read are reported in the returned error, and the others are still
// returned.
func (p *Processor) Summary(name string) (*summary.Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	errs := append([]error(nil), p.errs...)
	if p.inXML {
		errs = append(errs, errors.New("result data was not terminated"))
	}
	var nodes []*summary.Summary
	for _, d := range p.docs {
		s, err := summary.ParseNUnit3(bytes.NewReader(d))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		nodes = append(nodes, s)
	}

	var s *summary.Summary
	switch len(nodes) {
	case 0:
	case 1:
		s = nodes[0]
	default:
		s = summary.Aggregate(name, nodes...)
	}
	if len(errs) > 0 {
		return s, errors.Wrap(errs[0], "failed to read test results")
	}
	return s, nil
}
