// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package apple

import (
	"go.xharness.dev/xharness/internal/backend"
	"go.xharness.dev/xharness/internal/exitcode"
	"go.xharness.dev/xharness/internal/procexec"
)

// DefaultMlaunchPath is where Xamarin installs mlaunch.
const DefaultMlaunchPath = "/Library/Frameworks/Xamarin.iOS.framework/Versions/Current/bin/mlaunch"

// FindMlaunch resolves the mlaunch executable. An explicit path must be
// executable; otherwise mlaunch is looked up in PATH and then at
// DefaultMlaunchPath.
func FindMlaunch(r procexec.Runner, explicit string) (string, error) {
	if explicit != "" {
		p, err := r.LookPath(explicit)
		if err != nil {
			return "", backend.WrapFailure(err, exitcode.MlaunchNotFound, "bad mlaunch %s", explicit)
		}
		return p, nil
	}
	for _, name := range []string{"mlaunch", DefaultMlaunchPath} {
		if p, err := r.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", backend.Failf(exitcode.MlaunchNotFound, "mlaunch was found neither in PATH nor at %s; pass --mlaunch", DefaultMlaunchPath)
}
