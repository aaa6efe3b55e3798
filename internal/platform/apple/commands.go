// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package apple runs application bundles on Apple simulators, devices and
// Mac Catalyst through mlaunch.
package apple

import (
	"context"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"go.xharness.dev/xharness/internal/arguments"
	"go.xharness.dev/xharness/internal/backend"
	"go.xharness.dev/xharness/internal/command"
	"go.xharness.dev/xharness/internal/exitcode"
	"go.xharness.dev/xharness/internal/platform"
	"go.xharness.dev/xharness/internal/reporting"
)

const (
	defaultLaunchTimeout = 5 * time.Minute
	defaultRunTimeout    = 15 * time.Minute
)

var channels = map[string]Channel{"UsbTunnel": UsbTunnel, "Network": Network}

var jargons = map[string]reporting.Jargon{
	"TouchUnit": reporting.TouchUnit,
	"NUnitV2":   reporting.NUnitV2,
	"NUnitV3":   reporting.NUnitV3,
	"xUnit":     reporting.XUnit,
}

// targetArgs select where applications run.
type targetArgs struct {
	targets *arguments.Repeated
	mlaunch *arguments.Path
}

func newTargetArgs() *targetArgs {
	return &targetArgs{
		targets: arguments.NewRepeated("target|targets|t",
			"Target such as ios-simulator-64_13.4, tvos-device or maccatalyst; repeatable"),
		mlaunch: arguments.NewPath("mlaunch", "Path to mlaunch; looked up in PATH by default", "").MustExist(),
	}
}

func (a *targetArgs) parsed() ([]Target, error) {
	var ts []Target
	for _, v := range a.targets.Values() {
		t, err := ParseTarget(v)
		if err != nil {
			return nil, &arguments.ValidationError{Msg: "--target: " + err.Error()}
		}
		ts = append(ts, t)
	}
	return ts, nil
}

func (a *targetArgs) rule() error {
	_, err := a.parsed()
	return err
}

// runArgs are the arguments of test and run.
type runArgs struct {
	tgt            *targetArgs
	run            *backend.RunArgs
	app            *arguments.Path
	env            *arguments.KeyValue
	envFile        arguments.Argument
	launchTimeout  *arguments.Duration
	resetSimulator *arguments.Switch
}

func newRunArgs() *runArgs {
	env := arguments.NewKeyValue("set-env|env", "Environment variable of the application as key=value; repeatable")
	return &runArgs{
		tgt:            newTargetArgs(),
		run:            backend.NewRunArgs(defaultRunTimeout),
		app:            arguments.NewRequiredPath("app|a", "Path to the .app bundle"),
		env:            env,
		envFile:        env.FileArgument("env-file", "YAML file of application environment variables"),
		launchTimeout:  arguments.NewDuration("launch-timeout", "Time the application has to print its first line", defaultLaunchTimeout),
		resetSimulator: arguments.NewSwitch("reset-simulator", "Erase the simulator before the run", false),
	}
}

func (a *runArgs) groups() []arguments.Group {
	return []arguments.Group{
		a.run.Group(),
		{Title: "Apple", Args: []arguments.Argument{
			a.app, a.tgt.targets, a.tgt.mlaunch, a.env, a.envFile, a.launchTimeout, a.resetSimulator,
		}},
	}
}

func (a *runArgs) set(extra ...arguments.Group) *arguments.Set {
	s := arguments.NewSet(append(a.groups(), extra...)...)
	s.AddRule(arguments.RequiredOneOf(a.tgt.targets))
	s.AddRule(a.tgt.rule)
	return s
}

func (a *runArgs) config() *Config {
	ts, _ := a.tgt.parsed()
	return &Config{
		App:            a.app.Value(),
		Targets:        ts,
		Mlaunch:        a.tgt.mlaunch.Value(),
		Env:            a.env.Pairs(),
		LaunchTimeout:  a.launchTimeout.Value(),
		ResetSimulator: a.resetSimulator.Value(),
	}
}

// Commands returns the apple command set.
func Commands(deps *platform.Deps) *command.CommandSet {
	set := command.NewCommandSet("apple", "Run applications on Apple simulators and devices")
	set.Add(testCommand(deps))
	set.Add(runCommand(deps))
	set.Add(deviceCommand(deps))
	return set
}

func testCommand(deps *platform.Deps) *command.Command {
	ra := newRunArgs()
	channel := arguments.NewEnum("communication-channel", "How a device reaches the harness", channels, UsbTunnel)
	jargon := arguments.NewEnum("xml-jargon|xj", "Result format produced by the application", jargons, reporting.XUnit)
	methods := arguments.NewRepeated("method|m", "Test method to run; repeatable")
	classes := arguments.NewRepeated("class|c", "Test class to run; repeatable")
	signalEnd := arguments.NewSwitch("signal-test-end", "End the run as soon as the application reports that tests finished", false)
	set := ra.set(arguments.Group{Title: "Tests", Args: []arguments.Argument{channel, jargon, methods, classes, signalEnd}})

	return command.New("test", "Run a test application",
		"Launches a test application on every target, collects its results and writes them in the selected format.",
		set, func(ctx context.Context) (exitcode.Code, error) {
			cfg := ra.config()
			cfg.Channel = channel.Value()
			cfg.Jargon = jargon.Value()
			cfg.Methods = methods.Values()
			cfg.Classes = classes.Values()
			cfg.SignalTestEnd = signalEnd.Value()
			return backend.Execute[*Config](ctx, New(deps.Runner, deps.Limiter), cfg,
				ra.run.Options(deps.Reporting, cfg.Jargon))
		})
}

func runCommand(deps *platform.Deps) *command.Command {
	ra := newRunArgs()
	set := ra.set()

	return command.New("run", "Run an application and check its exit code",
		"Launches an application on every target and compares its exit code with --expected-exit-code.",
		set, func(ctx context.Context) (exitcode.Code, error) {
			cfg := ra.config()
			cfg.RunOnly = true
			return backend.Execute[*Config](ctx, New(deps.Runner, deps.Limiter), cfg, ra.run.Options(deps.Reporting))
		})
}

func deviceCommand(deps *platform.Deps) *command.Command {
	ta := newTargetArgs()
	set := arguments.NewSet(arguments.Group{Title: "Apple", Args: []arguments.Argument{ta.targets, ta.mlaunch}})
	set.AddRule(ta.rule)

	return command.New("device", "List simulators matching the targets",
		"Prints available simulators, restricted to those that can host one of the given targets.",
		set, func(ctx context.Context) (exitcode.Code, error) {
			mlaunch, err := FindMlaunch(deps.Runner, ta.mlaunch.Value())
			if err != nil {
				return 0, err
			}
			sims, err := listSimulators(ctx, deps.Runner, mlaunch)
			if err != nil {
				return 0, err
			}
			ts, _ := ta.parsed()
			var rows []table.Row
			for _, s := range sims {
				if matchesAny(s, ts) {
					rows = append(rows, table.Row{s.UDID, s.Name, strings.TrimPrefix(s.Runtime, runtimePrefix), strings.TrimPrefix(s.DeviceType, deviceTypePrefix)})
				}
			}
			if len(rows) == 0 {
				return 0, backend.Failf(exitcode.DeviceNotFound, "no simulator matches %s", strings.Join(ta.targets.Values(), ", "))
			}
			platform.WriteTable(deps.Stdout, table.Row{"UDID", "Name", "Runtime", "Device type"}, rows)
			return exitcode.Success, nil
		})
}

const deviceTypePrefix = "com.apple.CoreSimulator.SimDeviceType."

func matchesAny(s *SimDevice, ts []Target) bool {
	if len(ts) == 0 {
		return true
	}
	for _, t := range ts {
		if t.MatchesRuntime(s.Runtime) {
			return true
		}
	}
	return false
}
