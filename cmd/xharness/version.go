// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"go.xharness.dev/xharness/internal/arguments"
	"go.xharness.dev/xharness/internal/command"
	"go.xharness.dev/xharness/internal/exitcode"
	"go.xharness.dev/xharness/internal/hostinfo"
)

func versionCommand(out io.Writer, info *hostinfo.Info) *command.Command {
	return command.New("version", "Print version information", "Prints the xharness version and host details.",
		arguments.NewSet(), func(ctx context.Context) (exitcode.Code, error) {
			fmt.Fprintf(out, "xharness version %s\n", Version)
			fmt.Fprintf(out, "%s, %s/%s\n", runtime.Version(), info.OSVersion(), info.Arch)
			return exitcode.Success, nil
		})
}
