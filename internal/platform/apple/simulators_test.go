// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apple

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const simulatorsXML = `<?xml version="1.0" encoding="utf-8"?>
<MTouch>
  <Simulator>
    <AvailableRuntimes>
      <SimRuntime><Name>iOS 13.4</Name><Identifier>com.apple.CoreSimulator.SimRuntime.iOS-13-4</Identifier></SimRuntime>
    </AvailableRuntimes>
    <AvailableDevices>
      <SimDevice UDID="A1" Name="iPhone 8">
        <SimRuntime>com.apple.CoreSimulator.SimRuntime.iOS-13-4</SimRuntime>
        <SimDeviceType>com.apple.CoreSimulator.SimDeviceType.iPhone-8</SimDeviceType>
        <DataPath>/sims/A1</DataPath>
      </SimDevice>
      <SimDevice UDID="B2" Name="iPhone 11">
        <SimRuntime>com.apple.CoreSimulator.SimRuntime.iOS-14-2</SimRuntime>
        <SimDeviceType>com.apple.CoreSimulator.SimDeviceType.iPhone-11</SimDeviceType>
        <DataPath>/sims/B2</DataPath>
      </SimDevice>
      <SimDevice UDID="C3" Name="Apple TV">
        <SimRuntime>com.apple.CoreSimulator.SimRuntime.tvOS-14-2</SimRuntime>
        <SimDeviceType>com.apple.CoreSimulator.SimDeviceType.Apple-TV-1080p</SimDeviceType>
        <DataPath>/sims/C3</DataPath>
      </SimDevice>
      <SimDevice UDID="D4" Name="iPhone 12">
        <SimRuntime>com.apple.CoreSimulator.SimRuntime.iOS-14-2</SimRuntime>
        <SimDeviceType>com.apple.CoreSimulator.SimDeviceType.iPhone-12</SimDeviceType>
        <DataPath>/sims/D4</DataPath>
      </SimDevice>
    </AvailableDevices>
  </Simulator>
</MTouch>
`

func TestParseSimulators(t *testing.T) {
	devs, err := ParseSimulators(strings.NewReader(simulatorsXML))
	if err != nil {
		t.Fatal(err)
	}
	if len(devs) != 4 {
		t.Fatalf("Got %d simulators; want 4", len(devs))
	}
	want := &SimDevice{
		UDID:       "A1",
		Name:       "iPhone 8",
		Runtime:    "com.apple.CoreSimulator.SimRuntime.iOS-13-4",
		DeviceType: "com.apple.CoreSimulator.SimDeviceType.iPhone-8",
		DataPath:   "/sims/A1",
	}
	if diff := cmp.Diff(devs[0], want); diff != "" {
		t.Errorf("First simulator mismatch (-got +want):\n%s", diff)
	}
}

func TestParseSimulatorsMalformed(t *testing.T) {
	if _, err := ParseSimulators(strings.NewReader("<MTouch><Simulator>")); err == nil {
		t.Error("ParseSimulators unexpectedly succeeded")
	}
}

func TestSelectSimulator(t *testing.T) {
	devs, err := ParseSimulators(strings.NewReader(simulatorsXML))
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		target string
		want   string
	}{
		{"ios-simulator-64", "B2"},
		{"ios-simulator-64_13.4", "A1"},
		{"tvos-simulator", "C3"},
		{"watchos-simulator", ""},
		{"ios-simulator-64_12.0", ""},
	} {
		tg, err := ParseTarget(tc.target)
		if err != nil {
			t.Fatal(err)
		}
		got := ""
		if d, ok := SelectSimulator(devs, tg); ok {
			got = d.UDID
		}
		if got != tc.want {
			t.Errorf("SelectSimulator(%v) = %q; want %q", tg, got, tc.want)
		}
	}
}
