// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package arguments

import (
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Enum is an argument whose value is picked from a closed set of names.
// Names match case-insensitively.
type Enum[T comparable] struct {
	info
	values   map[string]T
	excluded []string
	val, def T
}

// NewEnum returns an Enum argument over values. Names listed in excluded
// are hidden from help and rejected on the command line; they are meant
// for sentinel values such as "unset".
func NewEnum[T comparable](names, desc string, values map[string]T, def T, excluded ...string) *Enum[T] {
	return &Enum[T]{
		info:     newInfo(names, desc),
		values:   values,
		excluded: excluded,
		val:      def,
		def:      def,
	}
}

// Action implements Argument.
func (a *Enum[T]) Action(raw string) error {
	for name, v := range a.values {
		if strings.EqualFold(name, raw) && !a.isExcluded(name) {
			a.val = v
			a.set = true
			return nil
		}
	}
	return a.formatError(raw, "must be one of "+strings.Join(a.Allowed(), ", "))
}

// Allowed returns the names accepted on the command line, sorted.
func (a *Enum[T]) Allowed() []string {
	var names []string
	for _, n := range maps.Keys(a.values) {
		if !a.isExcluded(n) {
			names = append(names, n)
		}
	}
	slices.Sort(names)
	return names
}

func (a *Enum[T]) isExcluded(name string) bool {
	for _, e := range a.excluded {
		if strings.EqualFold(e, name) {
			return true
		}
	}
	return false
}

// DefaultString returns the name of the default value.
func (a *Enum[T]) DefaultString() string {
	names := maps.Keys(a.values)
	slices.Sort(names)
	for _, n := range names {
		if a.values[n] == a.def && !a.isExcluded(n) {
			return n
		}
	}
	return ""
}

// Value returns the current value.
func (a *Enum[T]) Value() T { return a.val }
