// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package android

import (
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.xharness.dev/xharness/errors"
	"go.xharness.dev/xharness/internal/arguments"
	"go.xharness.dev/xharness/internal/backend"
	"go.xharness.dev/xharness/internal/exitcode"
	"go.xharness.dev/xharness/internal/logging"
	"go.xharness.dev/xharness/internal/summary"
	"go.xharness.dev/xharness/internal/timeout"
)

// stagingDir is where packages are copied before installation.
const stagingDir = "/data/local/tmp"

// Config is a validated android run.
type Config struct {
	// APK is the package file to install. It is empty when the package is
	// already installed.
	APK     string
	Package string
	// Instrumentation is the runner class. It is looked up on the device
	// when empty.
	Instrumentation string
	Args            []arguments.Pair
	Filter          Filter
	ResetEmulator   bool
	// LaunchTimeout bounds installation of the package.
	LaunchTimeout time.Duration
	OutputDir     string
}

// Backend runs instrumentations on devices of a Bridge.
type Backend struct {
	bridge  Bridge
	limiter *timeout.Limiter
	// bootPoll is the interval between boot completion checks.
	bootPoll time.Duration
}

var _ backend.Backend[*Config] = &Backend{}

// New returns a Backend using bridge.
func New(bridge Bridge, limiter *timeout.Limiter) *Backend {
	return &Backend{bridge: bridge, limiter: limiter, bootPoll: 2 * time.Second}
}

// Run implements backend.Backend.
func (b *Backend) Run(ctx context.Context, cfg *Config) (*backend.Result, error) {
	dev, info, err := SelectDevice(ctx, b.bridge, &cfg.Filter)
	if err != nil {
		return nil, err
	}
	logging.Infof(ctx, "Using device %s (%s, API %d, %s)", info.Serial, info.Model, info.APILevel, strings.Join(info.ABIs, ","))

	if cfg.ResetEmulator {
		if err := b.resetEmulator(ctx, dev, info); err != nil {
			return nil, err
		}
	}

	if cfg.APK != "" {
		if err := b.install(ctx, dev, cfg); err != nil {
			return nil, err
		}
		defer func() {
			if ctx.Err() != nil {
				return
			}
			if out, err := dev.Shell(ctx, "pm", "uninstall", cfg.Package); err != nil {
				logging.Warningf(ctx, "Failed to uninstall %s: %v", cfg.Package, err)
			} else {
				logging.Debugf(ctx, "Uninstalled %s: %s", cfg.Package, strings.TrimSpace(out))
			}
		}()
	} else if err := checkInstalled(ctx, dev, cfg.Package); err != nil {
		return nil, err
	}

	runner := cfg.Instrumentation
	if runner == "" {
		if runner, err = findInstrumentation(ctx, dev, cfg.Package); err != nil {
			return nil, err
		}
	} else if !strings.Contains(runner, "/") {
		runner = cfg.Package + "/" + runner
	}

	args := []string{"am", "instrument", "-w"}
	for _, p := range cfg.Args {
		args = append(args, "-e", p.Key, p.Value)
	}
	args = append(args, runner)
	logging.Infof(ctx, "Starting instrumentation %s", runner)
	out, err := dev.Shell(ctx, args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, backend.WrapFailure(err, exitcode.AdbFailure, "failed to run instrumentation")
	}
	for _, l := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		logging.Debug(ctx, l)
	}
	return b.result(ctx, dev, cfg, ParseInstrumentation(out))
}

func (b *Backend) result(ctx context.Context, dev Device, cfg *Config, in *Instrumentation) (*backend.Result, error) {
	if in.Failed != "" {
		return nil, backend.Failf(exitcode.InstrumentationFailure, "instrumentation failed: %s", in.Failed)
	}
	res := &backend.Result{Outcome: backend.Succeeded}

	if p, ok := in.Results[resultsPathKey]; ok && strings.TrimSpace(p) != "" {
		s, err := pullResults(ctx, dev, strings.TrimSpace(p), cfg.OutputDir)
		if err != nil {
			return nil, err
		}
		res.Summary = s
		if s.Failed > 0 {
			res.Outcome = backend.TestsFailed
		}
	}

	switch {
	case in.Crashed():
		res.Outcome = backend.Crashed
		return res, nil
	case in.Code == nil:
		return res, backend.Failf(exitcode.InstrumentationFailure, "instrumentation did not report a result code")
	case *in.Code != activityResultOK:
		logging.Warningf(ctx, "Instrumentation finished with code %d", *in.Code)
	}
	code, ok := in.ReturnCode()
	if !ok {
		res.Outcome = backend.NoReturnCode
		return res, nil
	}
	res.AppExitCode = &code
	return res, nil
}

func pullResults(ctx context.Context, dev Device, remote, outDir string) (*summary.Summary, error) {
	var buf bytes.Buffer
	if err := dev.Pull(ctx, remote, &buf); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, backend.WrapFailure(err, exitcode.DeviceFileCopyFailure, "failed to pull %s", remote)
	}
	if outDir != "" {
		local := filepath.Join(outDir, "device-"+path.Base(remote))
		if err := os.WriteFile(local, buf.Bytes(), 0644); err != nil {
			return nil, errors.Wrap(err, "failed to save device results")
		}
		logging.Debugf(ctx, "Saved device results to %s", local)
	}
	return summary.ParseNUnit3(&buf)
}

func (b *Backend) install(ctx context.Context, dev Device, cfg *Config) error {
	ctx, cancel := b.limiter.WithError(ctx, cfg.LaunchTimeout, &timeout.Error{
		Phase: "package installation", Limit: cfg.LaunchTimeout, Code: exitcode.PackageInstallationTimeout,
	})
	defer cancel(context.Canceled)

	remote := path.Join(stagingDir, filepath.Base(cfg.APK))
	logging.Infof(ctx, "Installing %s", cfg.APK)
	if err := dev.Push(ctx, cfg.APK, remote); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return backend.WrapFailure(err, exitcode.DeviceFileCopyFailure, "failed to copy %s to the device", cfg.APK)
	}
	out, err := dev.Shell(ctx, "pm", "install", "-r", "-g", "-t", remote)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return backend.WrapFailure(err, exitcode.PackageInstallationFailure, "failed to install %s", cfg.APK)
	}
	if !strings.Contains(out, "Success") {
		return backend.Failf(exitcode.PackageInstallationFailure, "failed to install %s: %s", cfg.APK, strings.TrimSpace(out))
	}
	if _, err := dev.Shell(ctx, "rm", "-f", remote); err != nil {
		logging.Warningf(ctx, "Failed to remove %s: %v", remote, err)
	}
	return nil
}

func checkInstalled(ctx context.Context, dev Device, pkg string) error {
	out, err := dev.Shell(ctx, "pm", "list", "packages", pkg)
	if err != nil {
		return backend.WrapFailure(err, exitcode.AdbFailure, "failed to list packages")
	}
	for _, l := range strings.Split(out, "\n") {
		if strings.TrimSpace(l) == "package:"+pkg {
			return nil
		}
	}
	return backend.Failf(exitcode.PackageNotFound, "package %s is not installed", pkg)
}

// findInstrumentation returns the runner targeting pkg. Lines look like
// "instrumentation:com.example.tests/androidx.test.runner.AndroidJUnitRunner (target=com.example)".
func findInstrumentation(ctx context.Context, dev Device, pkg string) (string, error) {
	out, err := dev.Shell(ctx, "pm", "list", "instrumentation")
	if err != nil {
		return "", backend.WrapFailure(err, exitcode.AdbFailure, "failed to list instrumentations")
	}
	for _, l := range strings.Split(out, "\n") {
		l = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(l), "instrumentation:"))
		name, target, ok := strings.Cut(l, " (target=")
		if !ok {
			continue
		}
		if strings.TrimSuffix(target, ")") == pkg || strings.HasPrefix(name, pkg+"/") {
			return name, nil
		}
	}
	return "", backend.Failf(exitcode.InstrumentationFailure, "no instrumentation found for %s", pkg)
}

// resetEmulator reboots an emulator and waits for it to boot.
func (b *Backend) resetEmulator(ctx context.Context, dev Device, info *DeviceInfo) error {
	if !info.IsEmulator() {
		logging.Warningf(ctx, "Not resetting %s since it is not an emulator", info.Serial)
		return nil
	}
	logging.Infof(ctx, "Rebooting %s", info.Serial)
	if _, err := dev.Shell(ctx, "reboot"); err != nil && ctx.Err() == nil {
		logging.Debugf(ctx, "reboot: %v", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.bootPoll):
		}
		if v, err := getprop(ctx, dev, "sys.boot_completed"); err == nil && v == "1" {
			logging.Infof(ctx, "%s booted", info.Serial)
			return nil
		}
	}
}
