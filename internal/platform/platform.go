// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package platform holds what the per-platform command sets share.
package platform

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"go.xharness.dev/xharness/internal/procexec"
	"go.xharness.dev/xharness/internal/reporting"
	"go.xharness.dev/xharness/internal/timeout"
)

// Deps are the collaborators of platform commands. They are created once
// in main.
type Deps struct {
	// Stdout receives command output that is not logging, such as device
	// listings.
	Stdout    io.Writer
	Runner    procexec.Runner
	Limiter   *timeout.Limiter
	Reporting reporting.Options
}

// DefaultJargons are the result files written by platforms whose result
// format is not selectable.
var DefaultJargons = []reporting.Jargon{reporting.XUnit, reporting.NUnitV3}

// WriteTable renders rows under header to w.
func WriteTable(w io.Writer, header table.Row, rows []table.Row) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(header)
	tw.AppendRows(rows)
	tw.Render()
}
