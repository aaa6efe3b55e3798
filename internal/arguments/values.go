// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package arguments

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

// String is a string-valued argument.
type String struct {
	info
	val      string
	def      string
	required bool
}

// NewString returns an optional String argument with a default value.
func NewString(names, desc, def string) *String {
	return &String{info: newInfo(names, desc), val: def, def: def}
}

// NewRequiredString returns a String argument that must be given.
func NewRequiredString(names, desc string) *String {
	return &String{info: newInfo(names, desc), required: true}
}

// Action implements Argument.
func (a *String) Action(raw string) error {
	a.val = raw
	a.set = true
	return nil
}

// Validate implements Argument.
func (a *String) Validate() error {
	if a.required && (!a.set || a.val == "") {
		return missing(a.flag())
	}
	return nil
}

// DefaultString returns the default shown in help output.
func (a *String) DefaultString() string { return a.def }

// Value returns the current value.
func (a *String) Value() string { return a.val }

// Path is an argument naming a file or directory.
type Path struct {
	String
	mustExist bool
}

// NewPath returns an optional Path argument.
func NewPath(names, desc, def string) *Path {
	return &Path{String: *NewString(names, desc, def)}
}

// NewRequiredPath returns a Path argument that must be given and must exist.
func NewRequiredPath(names, desc string) *Path {
	return &Path{String: *NewRequiredString(names, desc), mustExist: true}
}

// MustExist makes validation fail when a given path does not exist.
func (a *Path) MustExist() *Path {
	a.mustExist = true
	return a
}

// Required makes validation fail when the path is not given. Unlike
// NewRequiredPath, the path does not need to exist.
func (a *Path) Required() *Path {
	a.required = true
	return a
}

// Action implements Argument.
func (a *Path) Action(raw string) error {
	if raw == "" {
		return a.formatError(raw, "path must not be empty")
	}
	return a.String.Action(filepath.Clean(raw))
}

// Validate implements Argument.
func (a *Path) Validate() error {
	if err := a.String.Validate(); err != nil {
		return err
	}
	if a.mustExist && a.set {
		if _, err := os.Stat(a.val); err != nil {
			return validationErrorf("%s: %s does not exist", a.flag(), a.val)
		}
	}
	return nil
}

// Int is an integer argument, optionally restricted to an inclusive range.
type Int struct {
	info
	val, def int
	ranged   bool
	min, max int
}

// NewInt returns an Int argument with a default value.
func NewInt(names, desc string, def int) *Int {
	return &Int{info: newInfo(names, desc), val: def, def: def}
}

// NewRangedInt returns an Int argument whose given value must lie in
// [min, max].
func NewRangedInt(names, desc string, def, min, max int) *Int {
	a := NewInt(names, desc, def)
	a.ranged, a.min, a.max = true, min, max
	return a
}

// Action implements Argument.
func (a *Int) Action(raw string) error {
	v, err := parseInt(raw)
	if err != nil {
		return a.formatError(raw, "must be an integer")
	}
	a.val = v
	a.set = true
	return nil
}

// Validate implements Argument.
func (a *Int) Validate() error {
	if a.set && a.ranged {
		return checkRange(a.flag(), a.val, a.min, a.max)
	}
	return nil
}

// DefaultString returns the default shown in help output.
func (a *Int) DefaultString() string { return strconv.Itoa(a.def) }

// Value returns the current value.
func (a *Int) Value() int { return a.val }

// Ints is a repeatable integer argument restricted to an inclusive range.
type Ints struct {
	info
	vals     []int
	min, max int
}

// NewInts returns an Ints argument accepting values in [min, max].
func NewInts(names, desc string, min, max int) *Ints {
	return &Ints{info: newInfo(names, desc), min: min, max: max}
}

// Action implements Argument.
func (a *Ints) Action(raw string) error {
	v, err := parseInt(raw)
	if err != nil {
		return a.formatError(raw, "must be an integer")
	}
	a.vals = append(a.vals, v)
	a.set = true
	return nil
}

// Validate implements Argument.
func (a *Ints) Validate() error {
	for _, v := range a.vals {
		if err := checkRange(a.flag(), v, a.min, a.max); err != nil {
			return err
		}
	}
	return nil
}

// Values returns the given values in encounter order.
func (a *Ints) Values() []int { return append([]int(nil), a.vals...) }

func parseInt(raw string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(raw))
}

func checkRange(flag string, v, min, max int) error {
	if v < min || v > max {
		return validationErrorf("%s: %d is out of the supported range [%d, %d]", flag, v, min, max)
	}
	return nil
}

// Duration is a time span argument. Values are accepted as Go durations
// ("90s", "1h15m"), bare integer seconds ("120") or "hh:mm:ss".
type Duration struct {
	info
	val, def time.Duration
}

// NewDuration returns a Duration argument with a default value.
func NewDuration(names, desc string, def time.Duration) *Duration {
	return &Duration{info: newInfo(names, desc), val: def, def: def}
}

// Action implements Argument.
func (a *Duration) Action(raw string) error {
	d, err := ParseDuration(raw)
	if err != nil {
		return a.formatError(raw, "must be a duration such as 90s, 15m, 120 or 00:15:00")
	}
	a.val = d
	a.set = true
	return nil
}

// DefaultString returns the default shown in help output.
func (a *Duration) DefaultString() string { return a.def.String() }

// Value returns the current value.
func (a *Duration) Value() time.Duration { return a.val }

// ParseDuration parses s in any of the formats accepted by Duration.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		if secs < 0 {
			return 0, strconv.ErrRange
		}
		return time.Duration(secs) * time.Second, nil
	}
	if parts := strings.Split(s, ":"); len(parts) == 3 {
		var total time.Duration
		for i, unit := range []time.Duration{time.Hour, time.Minute, time.Second} {
			n, err := strconv.Atoi(parts[i])
			if err != nil || n < 0 || (i > 0 && n > 59) {
				return 0, strconv.ErrSyntax
			}
			total += time.Duration(n) * unit
		}
		return total, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, strconv.ErrRange
	}
	return d, nil
}

// Switch is a boolean argument. Given bare it means true.
type Switch struct {
	info
	val, def bool
}

// NewSwitch returns a Switch argument with a default value.
func NewSwitch(names, desc string, def bool) *Switch {
	return &Switch{info: newInfo(names, desc), val: def, def: def}
}

// Mode implements Argument.
func (a *Switch) Mode() ValueMode { return ValueOptional }

// Bare is called when the switch is given without a value.
func (a *Switch) Bare() error {
	a.val = true
	a.set = true
	return nil
}

// Action implements Argument.
func (a *Switch) Action(raw string) error {
	switch strings.ToLower(raw) {
	case "true", "on", "1":
		a.val = true
	case "false", "off", "0":
		a.val = false
	default:
		return a.formatError(raw, "must be one of true, false, on, off, 1, 0")
	}
	a.set = true
	return nil
}

// DefaultString returns the default shown in help output.
func (a *Switch) DefaultString() string { return strconv.FormatBool(a.def) }

// Value returns the current value.
func (a *Switch) Value() bool { return a.val }

// Repeated is a repeatable string argument. Values keep their encounter
// order and are not deduplicated.
type Repeated struct {
	info
	vals    []string
	allowed []string
}

// NewRepeated returns a Repeated argument.
func NewRepeated(names, desc string) *Repeated {
	return &Repeated{info: newInfo(names, desc)}
}

// Allow restricts values to the given literals.
func (a *Repeated) Allow(vals ...string) *Repeated {
	a.allowed = vals
	return a
}

// Action implements Argument.
func (a *Repeated) Action(raw string) error {
	if len(a.allowed) > 0 && !slices.Contains(a.allowed, raw) {
		return a.formatError(raw, "must be one of "+strings.Join(a.allowed, ", "))
	}
	a.vals = append(a.vals, raw)
	a.set = true
	return nil
}

// Values returns the given values in encounter order.
func (a *Repeated) Values() []string { return append([]string(nil), a.vals...) }

func missing(flag string) error {
	return validationErrorf("required argument %s was not specified", flag)
}
