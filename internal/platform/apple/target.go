// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apple

import (
	"fmt"
	"strconv"
	"strings"

	"go.xharness.dev/xharness/errors"
)

// Platform is an Apple operating system family.
type Platform int

// Supported platforms.
const (
	IOS Platform = iota
	TvOS
	WatchOS
	MacCatalyst
)

var platformNames = map[Platform]string{
	IOS:         "ios",
	TvOS:        "tvos",
	WatchOS:     "watchos",
	MacCatalyst: "maccatalyst",
}

// runtimeNames are the platform names used in simulator runtime
// identifiers.
var runtimeNames = map[Platform]string{
	IOS:     "iOS",
	TvOS:    "tvOS",
	WatchOS: "watchOS",
}

func (p Platform) String() string {
	if n, ok := platformNames[p]; ok {
		return n
	}
	return fmt.Sprintf("Platform(%d)", int(p))
}

// Target is a parsed target descriptor such as "ios-simulator-64_13.4".
type Target struct {
	Platform  Platform
	Simulator bool
	// Is32Bit selects a 32-bit simulator.
	Is32Bit bool
	// OSVersion is the requested OS version, e.g. "13.4". It is empty when
	// any version will do.
	OSVersion string
}

// ParseTarget parses a descriptor of the form
// "<platform>-<simulator|device>[-32|-64][_<version>]", or "maccatalyst".
func ParseTarget(s string) (Target, error) {
	desc, version, _ := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "_")
	if version != "" {
		if err := checkVersion(version); err != nil {
			return Target{}, errors.Wrapf(err, "bad target %q", s)
		}
	}
	if desc == "maccatalyst" {
		if version != "" {
			return Target{}, errors.Errorf("bad target %q: maccatalyst takes no version", s)
		}
		return Target{Platform: MacCatalyst}, nil
	}

	parts := strings.Split(desc, "-")
	if len(parts) < 2 || len(parts) > 3 {
		return Target{}, errors.Errorf("bad target %q: want <platform>-<simulator|device>[-32|-64][_<version>]", s)
	}
	var t Target
	switch parts[0] {
	case "ios":
		t.Platform = IOS
	case "tvos":
		t.Platform = TvOS
	case "watchos":
		t.Platform = WatchOS
	default:
		return Target{}, errors.Errorf("bad target %q: unknown platform %q", s, parts[0])
	}
	switch parts[1] {
	case "simulator":
		t.Simulator = true
	case "device":
	default:
		return Target{}, errors.Errorf("bad target %q: %q is neither simulator nor device", s, parts[1])
	}
	if len(parts) == 3 {
		switch parts[2] {
		case "32":
			t.Is32Bit = true
		case "64":
		default:
			return Target{}, errors.Errorf("bad target %q: unknown architecture %q", s, parts[2])
		}
		if !t.Simulator {
			return Target{}, errors.Errorf("bad target %q: architecture applies to simulators only", s)
		}
	}
	t.OSVersion = version
	return t, nil
}

func checkVersion(v string) error {
	for _, p := range strings.Split(v, ".") {
		if _, err := strconv.Atoi(p); err != nil {
			return errors.Errorf("malformed OS version %q", v)
		}
	}
	return nil
}

// String returns the canonical descriptor of t.
func (t Target) String() string {
	if t.Platform == MacCatalyst {
		return "maccatalyst"
	}
	s := t.Platform.String()
	if t.Simulator {
		s += "-simulator"
		if t.Is32Bit {
			s += "-32"
		} else {
			s += "-64"
		}
	} else {
		s += "-device"
	}
	if t.OSVersion != "" {
		s += "_" + t.OSVersion
	}
	return s
}

const runtimePrefix = "com.apple.CoreSimulator.SimRuntime."

// MatchesRuntime reports whether a simulator runtime identifier such as
// "com.apple.CoreSimulator.SimRuntime.iOS-13-4" can host t.
func (t Target) MatchesRuntime(id string) bool {
	name, ok := runtimeNames[t.Platform]
	if !ok || !t.Simulator {
		return false
	}
	prefix := runtimePrefix + name + "-"
	if !strings.HasPrefix(id, prefix) {
		return false
	}
	if t.OSVersion == "" {
		return true
	}
	return strings.TrimPrefix(id, prefix) == strings.ReplaceAll(t.OSVersion, ".", "-")
}

// runtimeVersion extracts the comparable version of a runtime identifier,
// e.g. [13 4] for "com.apple.CoreSimulator.SimRuntime.iOS-13-4".
func runtimeVersion(id string) []int {
	id = strings.TrimPrefix(id, runtimePrefix)
	_, v, ok := strings.Cut(id, "-")
	if !ok {
		return nil
	}
	var out []int
	for _, p := range strings.Split(v, "-") {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		out = append(out, n)
	}
	return out
}
