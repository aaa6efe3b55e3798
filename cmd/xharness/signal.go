// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build unix

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// installSignalHandler starts a goroutine that restores the terminal and
// stops child processes when xharness is terminated by a signal, which
// prevents deferred functions from running.
func installSignalHandler(out io.Writer) {
	var st *term.State
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		st, _ = term.GetState(fd)
	}

	ch := make(chan os.Signal, 1)
	go func() {
		sig := <-ch
		fmt.Fprintf(out, "\nxharness: Caught %v signal; exiting\n", sig)
		if st != nil {
			term.Restore(fd, st)
		}
		if sig == unix.SIGTERM {
			fmt.Fprint(out, "\nxharness: Dumping all goroutines...\n\n")
			if p := pprof.Lookup("goroutine"); p != nil {
				p.WriteTo(out, 2)
			}
		}
		terminateChildren(out)
		os.Exit(1)
	}()
	signal.Notify(ch, unix.SIGINT, unix.SIGTERM)
}

// terminateChildren sends SIGTERM to direct children such as adb, mlaunch,
// engines and browsers.
func terminateChildren(out io.Writer) {
	procs, err := process.Processes()
	if err != nil {
		fmt.Fprintf(out, "Failed to terminate subprocesses: %v\n", err)
		return
	}
	self := int32(os.Getpid())
	for _, p := range procs {
		if ppid, err := p.Ppid(); err == nil && ppid == self {
			p.Terminate()
		}
	}
}
