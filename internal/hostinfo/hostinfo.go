// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package hostinfo reports facts about the machine running the harness.
package hostinfo

import (
	"context"
	"os"
	"os/user"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"golang.org/x/text/language"

	"go.xharness.dev/xharness/internal/reporting"
)

// Info describes the host.
type Info struct {
	// OS is the operating system in GOOS terms, e.g. "linux" or "darwin".
	OS              string
	Platform        string
	PlatformVersion string
	KernelVersion   string
	Arch            string
	Hostname        string
}

// Get collects host facts. Fields gopsutil cannot provide are filled from
// uname(2) and the Go runtime.
func Get(ctx context.Context) *Info {
	info := &Info{OS: runtime.GOOS, Arch: runtime.GOARCH}
	if st, err := host.InfoWithContext(ctx); err == nil {
		info.OS = st.OS
		info.Platform = st.Platform
		info.PlatformVersion = st.PlatformVersion
		info.KernelVersion = st.KernelVersion
		info.Hostname = st.Hostname
		if st.KernelArch != "" {
			info.Arch = st.KernelArch
		}
	}
	fillFromUname(info)
	if info.Hostname == "" {
		info.Hostname, _ = os.Hostname()
	}
	return info
}

// IsDarwin reports whether the host runs macOS.
func (i *Info) IsDarwin() bool {
	return i.OS == "darwin"
}

// OSVersion returns a human-readable OS description.
func (i *Info) OSVersion() string {
	var parts []string
	for _, p := range []string{i.Platform, i.PlatformVersion, i.KernelVersion} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return i.OS
	}
	return strings.Join(parts, " ")
}

// Environment returns the facts recorded in result files. lang is a POSIX
// locale such as "en_US.UTF-8".
func (i *Info) Environment(frameworkVersion, lang string) reporting.Environment {
	env := reporting.Environment{
		FrameworkVersion: frameworkVersion,
		RuntimeVersion:   runtime.Version(),
		OSVersion:        i.OSVersion(),
		Platform:         i.OS,
		OSArchitecture:   i.Arch,
		MachineName:      i.Hostname,
		Culture:          Culture(lang),
	}
	if u, err := user.Current(); err == nil {
		env.User = u.Username
	}
	if _, domain, ok := strings.Cut(i.Hostname, "."); ok {
		env.UserDomain = domain
	} else {
		env.UserDomain = i.Hostname
	}
	env.WorkDir, _ = os.Getwd()
	return env
}

// Culture converts a POSIX locale to a BCP 47 tag. It returns "en-US" for
// the C locale and for values it cannot parse.
func Culture(lang string) string {
	lang, _, _ = strings.Cut(lang, ".")
	lang, _, _ = strings.Cut(lang, "@")
	if lang == "" || lang == "C" || lang == "POSIX" {
		return "en-US"
	}
	tag, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil {
		return "en-US"
	}
	return tag.String()
}
