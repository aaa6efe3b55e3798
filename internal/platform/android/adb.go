// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package android

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/electricbubble/gadb"

	"go.xharness.dev/xharness/errors"
	"go.xharness.dev/xharness/internal/procexec"
)

// Device is an Android device reachable through adb.
type Device interface {
	Serial() string
	// Shell runs a shell command and returns its combined output.
	Shell(ctx context.Context, args ...string) (string, error)
	// Push copies a local file to the device.
	Push(ctx context.Context, local, remote string) error
	// Pull copies a device file to w.
	Pull(ctx context.Context, remote string, w io.Writer) error
}

// Bridge enumerates devices.
type Bridge interface {
	Devices(ctx context.Context) ([]Device, error)
}

// adbBridge talks to the local adb server.
type adbBridge struct{}

// NewBridge returns a Bridge using the adb server on this host.
func NewBridge() Bridge {
	return adbBridge{}
}

func (adbBridge) Devices(ctx context.Context) ([]Device, error) {
	var devs []gadb.Device
	if err := doAsync(ctx, func() error {
		cl, err := gadb.NewClient()
		if err != nil {
			return errors.Wrap(err, "failed to connect to the adb server")
		}
		if devs, err = cl.DeviceList(); err != nil {
			return errors.Wrap(err, "failed to list adb devices")
		}
		return nil
	}); err != nil {
		return nil, err
	}
	var ds []Device
	for _, d := range devs {
		ds = append(ds, &adbDevice{d: d})
	}
	return ds, nil
}

type adbDevice struct {
	d gadb.Device
}

func (a *adbDevice) Serial() string { return a.d.Serial() }

func (a *adbDevice) Shell(ctx context.Context, args ...string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("empty shell command")
	}
	quoted := make([]string, len(args))
	for i, s := range args {
		quoted[i] = procexec.Quote(s)
	}
	var out string
	err := doAsync(ctx, func() error {
		var err error
		out, err = a.d.RunShellCommand(strings.Join(quoted, " "))
		return err
	})
	return out, err
}

func (a *adbDevice) Push(ctx context.Context, local, remote string) error {
	f, err := os.Open(local)
	if err != nil {
		return err
	}
	return doAsync(ctx, func() error {
		defer f.Close()
		return a.d.PushFile(f, remote)
	})
}

func (a *adbDevice) Pull(ctx context.Context, remote string, w io.Writer) error {
	return doAsync(ctx, func() error { return a.d.Pull(remote, w) })
}

// doAsync runs f in a goroutine and returns its error, or ctx.Err() if ctx
// is done first. gadb calls cannot be interrupted, so f may still be
// running when doAsync returns.
func doAsync(ctx context.Context, f func() error) error {
	ch := make(chan error, 1)
	go func() { ch <- f() }()
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
