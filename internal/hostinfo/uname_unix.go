// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build unix

package hostinfo

import "golang.org/x/sys/unix"

func fillFromUname(info *Info) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return
	}
	if info.KernelVersion == "" {
		info.KernelVersion = unix.ByteSliceToString(u.Release[:])
	}
	if info.Hostname == "" {
		info.Hostname = unix.ByteSliceToString(u.Nodename[:])
	}
	if info.Platform == "" {
		info.Platform = unix.ByteSliceToString(u.Sysname[:])
	}
}
