// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package procexec runs external tools such as adb, mlaunch, wasm engines
// and browsers.
package procexec

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"go.xharness.dev/xharness/errors"
	"go.xharness.dev/xharness/internal/logging"
)

// LineFunc receives one line of process output without its line ending.
type LineFunc func(line string)

// Cmd describes a process to run.
type Cmd struct {
	// Name is a path or a bare name looked up in the runner's search path.
	Name string
	Args []string
	// Env holds "KEY=value" entries added to the harness environment.
	Env []string
	Dir string
	// Stdout and Stderr receive output lines. Output of a nil LineFunc is
	// logged at trace level.
	Stdout, Stderr LineFunc
}

// Result is the outcome of a process that ran to completion.
type Result struct {
	ExitCode int
	Duration time.Duration
}

// Runner runs processes.
type Runner interface {
	// Run runs c and waits for it to exit. A non-zero exit status is not
	// an error. If ctx is done before the process exits, the process is
	// killed and ctx.Err() is returned.
	Run(ctx context.Context, c *Cmd) (*Result, error)
	// LookPath resolves name, a path or a bare name, to an executable.
	LookPath(name string) (string, error)
}

// ExecRunner is a Runner starting local processes.
type ExecRunner struct {
	path string
}

var _ Runner = &ExecRunner{}

// NewExecRunner returns an ExecRunner resolving bare names in path, a
// list in PATH format.
func NewExecRunner(path string) *ExecRunner {
	return &ExecRunner{path: path}
}

// killGrace bounds how long output is drained after a process is killed.
const killGrace = 2 * time.Second

// LookPath resolves name to an executable file.
func (r *ExecRunner) LookPath(name string) (string, error) {
	if filepath.Base(name) != name {
		if err := checkExecutable(name); err != nil {
			return "", err
		}
		return name, nil
	}
	for _, dir := range filepath.SplitList(r.path) {
		if dir == "" {
			dir = "."
		}
		p := filepath.Join(dir, name)
		if checkExecutable(p) == nil {
			return p, nil
		}
	}
	return "", errors.Errorf("%s not found in PATH", name)
}

func checkExecutable(p string) error {
	fi, err := os.Stat(p)
	if err != nil {
		return errors.Wrapf(err, "cannot run %s", p)
	}
	if fi.IsDir() || fi.Mode()&0111 == 0 {
		return errors.Errorf("%s is not executable", p)
	}
	return nil
}

// Run runs c. See Runner.Run for details.
func (r *ExecRunner) Run(ctx context.Context, c *Cmd) (*Result, error) {
	path, err := r.LookPath(c.Name)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.WaitDelay = killGrace
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	cmd.Stdout = outW
	cmd.Stderr = errW

	logging.Debugf(ctx, "Running %s", CommandLine(path, c.Args))
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %s", c.Name)
	}

	var g errgroup.Group
	g.Go(func() error { return pump(ctx, outR, c.Stdout) })
	g.Go(func() error { return pump(ctx, errR, c.Stderr) })

	waitErr := cmd.Wait()
	outW.Close()
	errW.Close()
	pumpErr := g.Wait()
	elapsed := time.Since(start)

	if err := ctx.Err(); err != nil {
		logging.Debugf(ctx, "Killed %s after %v", filepath.Base(path), elapsed.Round(time.Millisecond))
		return nil, err
	}
	var exitErr *exec.ExitError
	switch {
	case errors.As(waitErr, &exitErr):
	case waitErr != nil:
		return nil, errors.Wrapf(waitErr, "failed to wait for %s", c.Name)
	}
	if pumpErr != nil {
		return nil, errors.Wrapf(pumpErr, "failed to read output of %s", c.Name)
	}
	res := &Result{ExitCode: cmd.ProcessState.ExitCode(), Duration: elapsed}
	logging.Debugf(ctx, "%s exited with %d", filepath.Base(path), res.ExitCode)
	return res, nil
}

// pump feeds lines read from r to f until r is exhausted.
func pump(ctx context.Context, r io.ReadCloser, f LineFunc) error {
	defer r.Close()
	if f == nil {
		f = func(line string) { logging.Trace(ctx, line) }
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		f(line)
	}
	if err := sc.Err(); err != nil {
		// Drain so the writer side never blocks.
		io.Copy(io.Discard, r)
		return err
	}
	return nil
}
