// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apple

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"go.xharness.dev/xharness/errors"
	"go.xharness.dev/xharness/internal/appoutput"
	"go.xharness.dev/xharness/internal/arguments"
	"go.xharness.dev/xharness/internal/backend"
	"go.xharness.dev/xharness/internal/exitcode"
	"go.xharness.dev/xharness/internal/logging"
	"go.xharness.dev/xharness/internal/procexec"
	"go.xharness.dev/xharness/internal/reporting"
	"go.xharness.dev/xharness/internal/summary"
	"go.xharness.dev/xharness/internal/timeout"
)

// Channel is how a device application reaches the harness.
type Channel int

// Supported channels.
const (
	UsbTunnel Channel = iota
	Network
)

func (c Channel) String() string {
	if c == Network {
		return "Network"
	}
	return "UsbTunnel"
}

// Environment variables read by the test runner inside the application.
const (
	envAutoExit   = "NUNIT_AUTOEXIT"
	envXMLOutput  = "NUNIT_ENABLE_XML_OUTPUT"
	envXMLVersion = "NUNIT_XML_VERSION"
	envTransport  = "NUNIT_TRANSPORT"
	envMethods    = "NUNIT_RUN_METHODS"
	envClasses    = "NUNIT_RUN_CLASSES"
	envEndTag     = "NUNIT_RUN_END_TAG"
)

// Config is a validated apple run.
type Config struct {
	App     string
	Targets []Target
	Channel Channel
	Jargon  reporting.Jargon
	// Methods and Classes restrict the tests run by the application.
	Methods, Classes []string
	// SignalTestEnd makes the application print a tag once tests finished,
	// and the run end as soon as the tag is seen.
	SignalTestEnd  bool
	Mlaunch        string
	Env            []arguments.Pair
	LaunchTimeout  time.Duration
	ResetSimulator bool
	// RunOnly runs an application that is not a test runner: no runner
	// variables are set and no results are expected.
	RunOnly bool
}

// Backend runs application bundles through mlaunch.
type Backend struct {
	runner  procexec.Runner
	limiter *timeout.Limiter
	// newTag returns the tag printed at the end of tests.
	newTag func() string
}

var _ backend.Backend[*Config] = &Backend{}

// New returns a Backend running processes with runner.
func New(runner procexec.Runner, limiter *timeout.Limiter) *Backend {
	return &Backend{runner: runner, limiter: limiter, newTag: uuid.NewString}
}

// errTestEnd cancels a run whose application signaled the end of tests.
var errTestEnd = errors.New("application signaled the end of tests")

// Run implements backend.Backend. Targets run one after another; the run
// stops at the first failure.
func (b *Backend) Run(ctx context.Context, cfg *Config) (*backend.Result, error) {
	mlaunch := ""
	for _, t := range cfg.Targets {
		if t.Platform != MacCatalyst {
			var err error
			if mlaunch, err = FindMlaunch(b.runner, cfg.Mlaunch); err != nil {
				return nil, err
			}
			logging.Debugf(ctx, "Using %s", mlaunch)
			break
		}
	}

	name := strings.TrimSuffix(filepath.Base(cfg.App), ".app")
	total := &backend.Result{Outcome: backend.Succeeded}
	var sums []*summary.Summary
	for _, t := range cfg.Targets {
		logging.Infof(ctx, "Running %s on %v", name, t)
		res, err := b.runTarget(ctx, cfg, mlaunch, t)
		if res != nil {
			merge(total, res)
			if res.Summary != nil {
				sums = append(sums, res.Summary)
			}
		}
		if err != nil || (total.Outcome != backend.Succeeded && total.Outcome != backend.TestsFailed) {
			total.Summary = aggregate(name, sums)
			return total, err
		}
	}
	total.Summary = aggregate(name, sums)
	return total, nil
}

// merge folds res into total. The first outcome other than success sticks,
// and so does the first non-zero exit code.
func merge(total, res *backend.Result) {
	if total.Outcome == backend.Succeeded {
		total.Outcome = res.Outcome
	}
	if res.AppExitCode != nil && (total.AppExitCode == nil || *total.AppExitCode == 0) {
		total.AppExitCode = res.AppExitCode
	}
}

func aggregate(name string, sums []*summary.Summary) *summary.Summary {
	switch len(sums) {
	case 0:
		return nil
	case 1:
		return sums[0]
	default:
		return summary.Aggregate(name, sums...)
	}
}

func (b *Backend) runTarget(ctx context.Context, cfg *Config, mlaunch string, t Target) (*backend.Result, error) {
	env := b.appEnv(cfg)
	tag := ""
	if cfg.SignalTestEnd {
		tag = b.newTag()
		env = append([]arguments.Pair{{Key: envEndTag, Value: tag}}, env...)
	}

	cmd := &procexec.Cmd{}
	switch {
	case t.Platform == MacCatalyst:
		cmd.Name = filepath.Join(cfg.App, "Contents", "MacOS", strings.TrimSuffix(filepath.Base(cfg.App), ".app"))
		for _, p := range env {
			cmd.Env = append(cmd.Env, p.Key+"="+p.Value)
		}
	case t.Simulator:
		sim, err := b.simulator(ctx, cfg, mlaunch, t)
		if err != nil {
			return nil, err
		}
		cmd.Name = mlaunch
		cmd.Args = append([]string{"--launchsim", cfg.App, "--device", ":v2:udid=" + sim.UDID, "--wait-for-exit"}, setEnvArgs(env)...)
	default:
		cmd.Name = mlaunch
		cmd.Args = append([]string{"--launchdev", cfg.App, "--wait-for-exit"}, setEnvArgs(env)...)
	}

	rctx, disarm, cancel := b.limiter.Watchdog(ctx, cfg.LaunchTimeout, &timeout.Error{
		Phase: "app launch", Limit: cfg.LaunchTimeout, Code: exitcode.AppLaunchTimeout,
	})
	defer cancel(context.Canceled)

	out := appoutput.New(ctx, "", nil)
	line := func(l string) {
		disarm()
		out.Line(l)
		if tag != "" && strings.Contains(l, tag) {
			logging.Debug(ctx, "Application signaled the end of tests")
			cancel(errTestEnd)
		}
	}
	cmd.Stdout, cmd.Stderr = line, line

	pres, runErr := b.runner.Run(rctx, cmd)
	ended := runErr != nil && errors.Is(rctx.Err(), errTestEnd)
	if runErr != nil && rctx.Err() == nil {
		return nil, backend.WrapFailure(runErr, exitcode.AppLaunchFailure, "failed to launch %s", cfg.App)
	}

	sum, sumErr := out.Summary(t.String())
	res := &backend.Result{Outcome: backend.Succeeded, Summary: sum}
	if sum != nil && sum.Failed > 0 {
		res.Outcome = backend.TestsFailed
	}
	switch {
	case runErr != nil && !ended:
		return res, runErr
	case sumErr != nil:
		return res, backend.WrapFailure(sumErr, exitcode.GeneralFailure, "bad results from %s", cfg.App)
	case ended:
		return res, nil
	}

	code := pres.ExitCode
	switch {
	case code > 128:
		logging.Errorf(ctx, "Application exited with %d (signal %d)", code, code-128)
		res.Outcome = backend.Crashed
	case sum == nil && code != 0 && !cfg.RunOnly:
		return nil, backend.Failf(exitcode.AppLaunchFailure, "%s exited with %d before reporting results", filepath.Base(cmd.Name), code)
	case sum == nil && !cfg.RunOnly:
		logging.Warningf(ctx, "%s reported no test results", cfg.App)
	}
	res.AppExitCode = &code
	return res, nil
}

func (b *Backend) simulator(ctx context.Context, cfg *Config, mlaunch string, t Target) (*SimDevice, error) {
	sims, err := listSimulators(ctx, b.runner, mlaunch)
	if err != nil {
		return nil, err
	}
	sim, ok := SelectSimulator(sims, t)
	if !ok {
		return nil, backend.Failf(exitcode.DeviceNotFound, "no simulator for %v among %d", t, len(sims))
	}
	logging.Infof(ctx, "Using simulator %s (%s, %s)", sim.Name, sim.UDID, strings.TrimPrefix(sim.Runtime, runtimePrefix))
	if cfg.ResetSimulator {
		if err := resetSimulator(ctx, b.runner, sim); err != nil {
			return nil, err
		}
	}
	return sim, nil
}

// appEnv returns the variables configuring the test runner. User variables
// come last so they can override the others.
func (b *Backend) appEnv(cfg *Config) []arguments.Pair {
	if cfg.RunOnly {
		return cfg.Env
	}
	env := []arguments.Pair{
		{Key: envAutoExit, Value: "true"},
		{Key: envXMLOutput, Value: "true"},
		{Key: envXMLVersion, Value: cfg.Jargon.String()},
		{Key: envTransport, Value: strings.ToUpper(cfg.Channel.String())},
	}
	if len(cfg.Methods) > 0 {
		env = append(env, arguments.Pair{Key: envMethods, Value: strings.Join(cfg.Methods, ",")})
	}
	if len(cfg.Classes) > 0 {
		env = append(env, arguments.Pair{Key: envClasses, Value: strings.Join(cfg.Classes, ",")})
	}
	return append(env, cfg.Env...)
}

func setEnvArgs(env []arguments.Pair) []string {
	var args []string
	for _, p := range env {
		args = append(args, "--setenv="+p.Key+"="+p.Value)
	}
	return args
}
