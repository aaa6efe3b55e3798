// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package exitcode defines the process exit codes returned by xharness.
//
// Codes are grouped in ranges: control codes (0-4), general failures (70+),
// run-phase failures (78+) and platform specific failures (100+ for Android,
// 150+ for Apple, 200+ for WebAssembly). A value is never reused for a
// different meaning.
package exitcode

import "fmt"

// Code is a process exit code.
type Code int

// Control codes.
const (
	Success          Code = 0
	TestsFailed      Code = 1
	HelpShown        Code = 2
	InvalidArguments Code = 3
	PackageNotFound  Code = 4
)

// General failures.
const (
	TimedOut       Code = 70
	GeneralFailure Code = 71
)

// Run-phase failures.
const (
	PackageInstallationFailure Code = 78
	FailedToGetBundleInfo      Code = 79
	AppCrash                   Code = 80
	DeviceNotFound             Code = 81
	ReturnCodeNotSet           Code = 82
	AppLaunchFailure           Code = 83
	DeviceFileCopyFailure      Code = 84
	SimulatorFailure           Code = 85
	DeviceFailure              Code = 86
	AppLaunchTimeout           Code = 90
	AdbFailure                 Code = 91
)

// Platform specific failures.
const (
	AdbDeviceEnumerationFailure Code = 100
	PackageInstallationTimeout  Code = 101
	InstrumentationFailure      Code = 102
	AppNotSigned                Code = 150
	MlaunchNotFound             Code = 151
	EngineNotFound              Code = 200
	BrowserNotFound             Code = 201
)

var names = map[Code]string{
	Success:                     "SUCCESS",
	TestsFailed:                 "TESTS_FAILED",
	HelpShown:                   "HELP_SHOWN",
	InvalidArguments:            "INVALID_ARGUMENTS",
	PackageNotFound:             "PACKAGE_NOT_FOUND",
	TimedOut:                    "TIMED_OUT",
	GeneralFailure:              "GENERAL_FAILURE",
	PackageInstallationFailure:  "PACKAGE_INSTALLATION_FAILURE",
	FailedToGetBundleInfo:       "FAILED_TO_GET_BUNDLE_INFO",
	AppCrash:                    "APP_CRASH",
	DeviceNotFound:              "DEVICE_NOT_FOUND",
	ReturnCodeNotSet:            "RETURN_CODE_NOT_SET",
	AppLaunchFailure:            "APP_LAUNCH_FAILURE",
	DeviceFileCopyFailure:       "DEVICE_FILE_COPY_FAILURE",
	SimulatorFailure:            "SIMULATOR_FAILURE",
	DeviceFailure:               "DEVICE_FAILURE",
	AppLaunchTimeout:            "APP_LAUNCH_TIMEOUT",
	AdbFailure:                  "ADB_FAILURE",
	AdbDeviceEnumerationFailure: "ADB_DEVICE_ENUMERATION_FAILURE",
	PackageInstallationTimeout:  "PACKAGE_INSTALLATION_TIMEOUT",
	InstrumentationFailure:      "INSTRUMENTATION_FAILURE",
	AppNotSigned:                "APP_NOT_SIGNED",
	MlaunchNotFound:             "MLAUNCH_NOT_FOUND",
	EngineNotFound:              "ENGINE_NOT_FOUND",
	BrowserNotFound:             "BROWSER_NOT_FOUND",
}

// All returns every defined code in ascending order.
func All() []Code {
	return []Code{
		Success, TestsFailed, HelpShown, InvalidArguments, PackageNotFound,
		TimedOut, GeneralFailure,
		PackageInstallationFailure, FailedToGetBundleInfo, AppCrash, DeviceNotFound,
		ReturnCodeNotSet, AppLaunchFailure, DeviceFileCopyFailure, SimulatorFailure,
		DeviceFailure, AppLaunchTimeout, AdbFailure,
		AdbDeviceEnumerationFailure, PackageInstallationTimeout, InstrumentationFailure,
		AppNotSigned, MlaunchNotFound, EngineNotFound, BrowserNotFound,
	}
}

func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("Code(%d)", int(c))
}
