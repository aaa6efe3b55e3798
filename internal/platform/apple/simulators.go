// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apple

import (
	"context"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/exp/slices"

	"go.xharness.dev/xharness/errors"
	"go.xharness.dev/xharness/internal/backend"
	"go.xharness.dev/xharness/internal/exitcode"
	"go.xharness.dev/xharness/internal/logging"
	"go.xharness.dev/xharness/internal/procexec"
)

// SimDevice is a simulator listed by "mlaunch --listsim".
type SimDevice struct {
	UDID       string `xml:"UDID,attr"`
	Name       string `xml:"Name,attr"`
	Runtime    string `xml:"SimRuntime"`
	DeviceType string `xml:"SimDeviceType"`
	DataPath   string `xml:"DataPath"`
}

type simList struct {
	Devices []*SimDevice `xml:"Simulator>AvailableDevices>SimDevice"`
}

// ParseSimulators parses the XML written by "mlaunch --listsim".
func ParseSimulators(r io.Reader) ([]*SimDevice, error) {
	var l simList
	if err := xml.NewDecoder(r).Decode(&l); err != nil {
		return nil, errors.Wrap(err, "failed to parse simulator list")
	}
	return l.Devices, nil
}

// SelectSimulator picks the simulator for t. Among matching simulators the
// newest runtime wins; ties keep the listed order.
func SelectSimulator(devs []*SimDevice, t Target) (*SimDevice, bool) {
	var best *SimDevice
	for _, d := range devs {
		if !t.MatchesRuntime(d.Runtime) {
			continue
		}
		if best == nil || slices.Compare(runtimeVersion(d.Runtime), runtimeVersion(best.Runtime)) > 0 {
			best = d
		}
	}
	return best, best != nil
}

// listSimulators runs "mlaunch --listsim" and parses its output file.
func listSimulators(ctx context.Context, r procexec.Runner, mlaunch string) ([]*SimDevice, error) {
	dir, err := os.MkdirTemp("", "xharness-simulators.")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temporary directory")
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "simulators.xml")
	res, err := r.Run(ctx, &procexec.Cmd{Name: mlaunch, Args: []string{"--listsim", out}})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, backend.WrapFailure(err, exitcode.SimulatorFailure, "failed to list simulators")
	}
	if res.ExitCode != 0 {
		return nil, backend.Failf(exitcode.SimulatorFailure, "mlaunch --listsim exited with %d", res.ExitCode)
	}
	f, err := os.Open(out)
	if err != nil {
		return nil, backend.WrapFailure(err, exitcode.SimulatorFailure, "mlaunch wrote no simulator list")
	}
	defer f.Close()
	devs, err := ParseSimulators(f)
	if err != nil {
		return nil, backend.WrapFailure(err, exitcode.SimulatorFailure, "bad simulator list")
	}
	logging.Debugf(ctx, "Found %d simulators", len(devs))
	return devs, nil
}

// resetSimulator shuts a simulator down and erases its contents.
func resetSimulator(ctx context.Context, r procexec.Runner, d *SimDevice) error {
	logging.Infof(ctx, "Resetting simulator %s (%s)", d.Name, d.UDID)
	for _, args := range [][]string{
		{"simctl", "shutdown", d.UDID},
		{"simctl", "erase", d.UDID},
	} {
		res, err := r.Run(ctx, &procexec.Cmd{Name: "xcrun", Args: args})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return backend.WrapFailure(err, exitcode.SimulatorFailure, "failed to reset simulator %s", d.UDID)
		}
		// shutdown fails for simulators that are not booted.
		if res.ExitCode != 0 && args[1] == "erase" {
			return backend.Failf(exitcode.SimulatorFailure, "xcrun simctl erase %s exited with %d", d.UDID, res.ExitCode)
		}
	}
	return nil
}
