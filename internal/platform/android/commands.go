// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package android runs instrumented test packages on Android devices and
// emulators through adb.
package android

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"go.xharness.dev/xharness/internal/arguments"
	"go.xharness.dev/xharness/internal/backend"
	"go.xharness.dev/xharness/internal/command"
	"go.xharness.dev/xharness/internal/exitcode"
	"go.xharness.dev/xharness/internal/platform"
)

const (
	minAPILevel = 16
	maxAPILevel = 35

	defaultLaunchTimeout = 5 * time.Minute
	defaultRunTimeout    = 15 * time.Minute
)

// deviceArgs select a device.
type deviceArgs struct {
	serial     *arguments.String
	arch       *arguments.Repeated
	apiVersion *arguments.Int
	apiLevels  *arguments.Ints
}

func newDeviceArgs() *deviceArgs {
	return &deviceArgs{
		serial: arguments.NewString("device-id", "Serial of the device to use", ""),
		arch: arguments.NewRepeated("device-arch",
			"Architecture the device must support; repeatable ("+strings.Join(ABIs, ", ")+")").Allow(ABIs...),
		apiVersion: arguments.NewRangedInt("api-version|api", "API level the device must have", 0, minAPILevel, maxAPILevel),
		apiLevels:  arguments.NewInts("api-levels", "Acceptable API levels; repeatable", minAPILevel, maxAPILevel),
	}
}

func (a *deviceArgs) group() arguments.Group {
	return arguments.Group{Title: "Device", Args: []arguments.Argument{a.serial, a.arch, a.apiVersion, a.apiLevels}}
}

func (a *deviceArgs) rule() func() error {
	return arguments.MutuallyExclusive(a.apiVersion, a.apiLevels)
}

func (a *deviceArgs) filter() Filter {
	f := Filter{Serial: a.serial.Value(), ABIs: a.arch.Values(), APILevels: a.apiLevels.Values()}
	if a.apiVersion.IsSet() {
		f.APILevels = []int{a.apiVersion.Value()}
	}
	return f
}

// runArgs are the arguments of test and run.
type runArgs struct {
	dev             *deviceArgs
	run             *backend.RunArgs
	pkg             *arguments.String
	instrumentation *arguments.String
	args            *arguments.KeyValue
	argFile         arguments.Argument
	resetEmulator   *arguments.Switch
	launchTimeout   *arguments.Duration
}

func newRunArgs() *runArgs {
	kv := arguments.NewKeyValue("arg", "Instrumentation argument as key=value; repeatable")
	return &runArgs{
		dev:             newDeviceArgs(),
		run:             backend.NewRunArgs(defaultRunTimeout),
		pkg:             arguments.NewRequiredString("package-name|p", "Package to test"),
		instrumentation: arguments.NewString("instrumentation|i", "Instrumentation runner class", ""),
		args:            kv,
		argFile:         kv.FileArgument("arg-file", "YAML file of instrumentation arguments"),
		resetEmulator:   arguments.NewSwitch("reset-emulator", "Reboot the emulator before the run", false),
		launchTimeout:   arguments.NewDuration("launch-timeout", "Time limit of package installation", defaultLaunchTimeout),
	}
}

func (a *runArgs) group() arguments.Group {
	return arguments.Group{Title: "Android", Args: []arguments.Argument{
		a.pkg, a.instrumentation, a.args, a.argFile, a.resetEmulator, a.launchTimeout,
	}}
}

func (a *runArgs) config(apk string) *Config {
	return &Config{
		APK:             apk,
		Package:         a.pkg.Value(),
		Instrumentation: a.instrumentation.Value(),
		Args:            a.args.Pairs(),
		Filter:          a.dev.filter(),
		ResetEmulator:   a.resetEmulator.Value(),
		LaunchTimeout:   a.launchTimeout.Value(),
		OutputDir:       a.run.OutputDir.Value(),
	}
}

// Commands returns the android command set.
func Commands(deps *platform.Deps, bridge Bridge) *command.CommandSet {
	set := command.NewCommandSet("android", "Run tests on Android devices")
	set.Add(testCommand(deps, bridge))
	set.Add(runCommand(deps, bridge))
	set.Add(deviceCommand(deps, bridge))
	return set
}

func testCommand(deps *platform.Deps, bridge Bridge) *command.Command {
	ra := newRunArgs()
	apk := arguments.NewRequiredPath("app|a", "Path to the .apk to install")
	set := arguments.NewSet(ra.dev.group(), ra.run.Group(), ra.group(),
		arguments.Group{Title: "Package", Args: []arguments.Argument{apk}})
	set.AddRule(ra.dev.rule())

	return command.New("test", "Install a package and run its instrumentation",
		"Installs the package on a matching device, runs its instrumentation, collects results and uninstalls it.",
		set, func(ctx context.Context) (exitcode.Code, error) {
			return backend.Execute[*Config](ctx, New(bridge, deps.Limiter), ra.config(apk.Value()),
				ra.run.Options(deps.Reporting, platform.DefaultJargons...))
		})
}

func runCommand(deps *platform.Deps, bridge Bridge) *command.Command {
	ra := newRunArgs()
	set := arguments.NewSet(ra.dev.group(), ra.run.Group(), ra.group())
	set.AddRule(ra.dev.rule())

	return command.New("run", "Run the instrumentation of an installed package",
		"Runs the instrumentation of a package already installed on a matching device.",
		set, func(ctx context.Context) (exitcode.Code, error) {
			return backend.Execute[*Config](ctx, New(bridge, deps.Limiter), ra.config(""),
				ra.run.Options(deps.Reporting, platform.DefaultJargons...))
		})
}

func deviceCommand(deps *platform.Deps, bridge Bridge) *command.Command {
	da := newDeviceArgs()
	set := arguments.NewSet(da.group())
	set.AddRule(da.rule())

	return command.New("device", "List devices matching the filters",
		"Prints attached devices matching the filters. Fails with DEVICE_NOT_FOUND when none matches.",
		set, func(ctx context.Context) (exitcode.Code, error) {
			_, infos, err := ListDevices(ctx, bridge)
			if err != nil {
				return 0, err
			}
			f := da.filter()
			var rows []table.Row
			for _, info := range infos {
				if f.Match(info) {
					rows = append(rows, table.Row{info.Serial, info.Model, strconv.Itoa(info.APILevel), strings.Join(info.ABIs, ",")})
				}
			}
			if len(rows) == 0 {
				return 0, backend.Failf(exitcode.DeviceNotFound, "no device found for %v", &f)
			}
			platform.WriteTable(deps.Stdout, table.Row{"Serial", "Model", "API", "ABIs"}, rows)
			return exitcode.Success, nil
		})
}
