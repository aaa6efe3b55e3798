// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package android

import (
	"context"
	"io"
	"strings"
	"sync"

	"go.xharness.dev/xharness/errors"
)

// fakeDevice answers getprop from props and other shell commands from
// shell, keyed by the command line.
type fakeDevice struct {
	serial string
	props  map[string]string
	shell  map[string]string
	files  map[string]string

	mu       sync.Mutex
	commands []string
	pushed   []string
}

func newFakeDevice(serial string, api, abis string) *fakeDevice {
	return &fakeDevice{
		serial: serial,
		props: map[string]string{
			"ro.build.version.sdk":   api,
			"ro.product.cpu.abilist": abis,
			"ro.product.model":       "Pixel",
			"sys.boot_completed":     "1",
		},
		shell: make(map[string]string),
		files: make(map[string]string),
	}
}

func (d *fakeDevice) Serial() string { return d.serial }

func (d *fakeDevice) Shell(ctx context.Context, args ...string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	line := strings.Join(args, " ")
	d.commands = append(d.commands, line)
	if args[0] == "getprop" {
		return d.props[args[1]] + "\n", nil
	}
	if out, ok := d.shell[line]; ok {
		return out, nil
	}
	return "", nil
}

func (d *fakeDevice) Push(ctx context.Context, local, remote string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushed = append(d.pushed, remote)
	return nil
}

func (d *fakeDevice) Pull(ctx context.Context, remote string, w io.Writer) error {
	c, ok := d.files[remote]
	if !ok {
		return errors.Errorf("%s: no such file", remote)
	}
	_, err := io.WriteString(w, c)
	return err
}

func (d *fakeDevice) ran(prefix string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.commands {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

type fakeBridge []Device

func (b fakeBridge) Devices(ctx context.Context) ([]Device, error) { return b, nil }
