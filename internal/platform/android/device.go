// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package android

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"go.xharness.dev/xharness/errors"
	"go.xharness.dev/xharness/internal/backend"
	"go.xharness.dev/xharness/internal/exitcode"
	"go.xharness.dev/xharness/internal/logging"
)

// ABIs accepted by --device-arch.
var ABIs = []string{"x86", "x86_64", "arm64-v8a", "armeabi-v7a"}

// DeviceInfo describes an attached device.
type DeviceInfo struct {
	Serial   string
	Model    string
	APILevel int
	ABIs     []string
}

// IsEmulator reports whether the device is an emulator.
func (d *DeviceInfo) IsEmulator() bool {
	return strings.HasPrefix(d.Serial, "emulator-")
}

func getprop(ctx context.Context, d Device, name string) (string, error) {
	out, err := d.Shell(ctx, "getprop", name)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", name)
	}
	return strings.TrimSpace(out), nil
}

// Describe queries properties of d.
func Describe(ctx context.Context, d Device) (*DeviceInfo, error) {
	info := &DeviceInfo{Serial: d.Serial()}
	sdk, err := getprop(ctx, d, "ro.build.version.sdk")
	if err != nil {
		return nil, err
	}
	if info.APILevel, err = strconv.Atoi(sdk); err != nil {
		return nil, errors.Errorf("%s: unexpected API level %q", info.Serial, sdk)
	}
	abis, err := getprop(ctx, d, "ro.product.cpu.abilist")
	if err != nil {
		return nil, err
	}
	for _, a := range strings.Split(abis, ",") {
		if a = strings.TrimSpace(a); a != "" {
			info.ABIs = append(info.ABIs, a)
		}
	}
	if info.Model, err = getprop(ctx, d, "ro.product.model"); err != nil {
		return nil, err
	}
	return info, nil
}

// Filter selects devices. Zero fields match every device.
type Filter struct {
	Serial    string
	ABIs      []string
	APILevels []int
}

// Match reports whether info passes f.
func (f *Filter) Match(info *DeviceInfo) bool {
	if f.Serial != "" && info.Serial != f.Serial {
		return false
	}
	if len(f.APILevels) > 0 && !slices.Contains(f.APILevels, info.APILevel) {
		return false
	}
	if len(f.ABIs) > 0 {
		found := false
		for _, a := range f.ABIs {
			if slices.Contains(info.ABIs, a) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (f *Filter) String() string {
	var parts []string
	if f.Serial != "" {
		parts = append(parts, "serial "+f.Serial)
	}
	if len(f.ABIs) > 0 {
		parts = append(parts, "architecture "+strings.Join(f.ABIs, "|"))
	}
	if len(f.APILevels) > 0 {
		parts = append(parts, fmt.Sprintf("API level %v", f.APILevels))
	}
	if len(parts) == 0 {
		return "any device"
	}
	return strings.Join(parts, ", ")
}

// ListDevices describes every device of b. Devices that cannot be queried
// are skipped.
func ListDevices(ctx context.Context, b Bridge) ([]Device, []*DeviceInfo, error) {
	devs, err := b.Devices(ctx)
	if err != nil {
		return nil, nil, backend.WrapFailure(err, exitcode.AdbDeviceEnumerationFailure, "failed to enumerate devices")
	}
	var ok []Device
	var infos []*DeviceInfo
	for _, d := range devs {
		info, err := Describe(ctx, d)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			logging.Warningf(ctx, "Skipping device %s: %v", d.Serial(), err)
			continue
		}
		ok = append(ok, d)
		infos = append(infos, info)
	}
	return ok, infos, nil
}

// SelectDevice returns the first device of b matching f. Devices are
// tried in the order adb lists them.
func SelectDevice(ctx context.Context, b Bridge, f *Filter) (Device, *DeviceInfo, error) {
	devs, infos, err := ListDevices(ctx, b)
	if err != nil {
		return nil, nil, err
	}
	for i, info := range infos {
		if f.Match(info) {
			return devs[i], info, nil
		}
	}
	return nil, nil, backend.Failf(exitcode.DeviceNotFound, "no device found for %v (%d attached)", f, len(devs))
}
