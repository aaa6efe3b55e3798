// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package plugin maps configuration names to statically linked
// implementations, such as symbolicators and web server middleware.
package plugin

import (
	"fmt"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"go.xharness.dev/xharness/errors"
)

// Factory constructs an implementation. path is the optional file given
// next to the name on the command line; it is empty when none was given.
type Factory[T any] func(path string) (T, error)

// Registry is a named set of factories of one kind.
type Registry[T any] struct {
	kind string

	mu        sync.RWMutex
	factories map[string]Factory[T]
}

// NewRegistry returns an empty registry. kind is used in error messages,
// e.g. "symbolicator".
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, factories: make(map[string]Factory[T])}
}

// Register adds a factory under name. It panics if name is taken.
func (r *Registry[T]) Register(name string, f Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		panic(fmt.Sprintf("%s %q registered twice", r.kind, name))
	}
	r.factories[name] = f
}

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := maps.Keys(r.factories)
	slices.Sort(names)
	return names
}

// New constructs the implementation registered under name.
func (r *Registry[T]) New(name, path string) (T, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, errors.Errorf("unknown %s %q", r.kind, name)
	}
	v, err := f(path)
	if err != nil {
		var zero T
		return zero, errors.Wrapf(err, "failed to create %s %q", r.kind, name)
	}
	return v, nil
}
