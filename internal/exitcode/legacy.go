// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package exitcode

// Scheme selects the numbering used when a Code leaves the process.
type Scheme int

const (
	// Shared is the canonical numbering defined by the constants in this
	// package.
	Shared Scheme = iota
	// Legacy is the numbering used by older CLI front ends, which moved
	// every failure category into the 1000+ range.
	Legacy
)

// legacyCodes maps shared codes to their legacy values. Control codes keep
// their value in both schemes and are absent here.
var legacyCodes = map[Code]int{
	TimedOut:                    1001,
	GeneralFailure:              1000,
	PackageInstallationFailure:  1100,
	FailedToGetBundleInfo:       1101,
	AppCrash:                    1050,
	DeviceNotFound:              1051,
	ReturnCodeNotSet:            1052,
	AppLaunchFailure:            1053,
	DeviceFileCopyFailure:       1102,
	SimulatorFailure:            1054,
	DeviceFailure:               1055,
	AppLaunchTimeout:            1056,
	AdbFailure:                  1057,
	AdbDeviceEnumerationFailure: 1058,
	PackageInstallationTimeout:  1103,
	InstrumentationFailure:      1059,
	AppNotSigned:                1104,
	MlaunchNotFound:             1060,
	EngineNotFound:              1061,
	BrowserNotFound:             1062,
}

// Value returns the process exit status for c under scheme s.
func (s Scheme) Value(c Code) int {
	if s == Legacy {
		if v, ok := legacyCodes[c]; ok {
			return v
		}
	}
	return int(c)
}

func (s Scheme) String() string {
	if s == Legacy {
		return "legacy"
	}
	return "shared"
}
