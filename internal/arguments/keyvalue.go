// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package arguments

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"go.xharness.dev/xharness/errors"
)

// Pair is one key=value entry.
type Pair struct {
	Key   string
	Value string
}

// KeyValue is a repeatable "key=value" argument. Entries keep their
// encounter order.
type KeyValue struct {
	info
	pairs []Pair
	files []string
}

// NewKeyValue returns a KeyValue argument.
func NewKeyValue(names, desc string) *KeyValue {
	return &KeyValue{info: newInfo(names, desc)}
}

// Action implements Argument. The raw value is split on its first "=".
func (a *KeyValue) Action(raw string) error {
	k, v, ok := strings.Cut(raw, "=")
	if !ok || k == "" {
		return a.formatError(raw, "must be in the form key=value")
	}
	a.pairs = append(a.pairs, Pair{Key: k, Value: v})
	a.set = true
	return nil
}

// Validate implements Argument. A key given twice on the command line is an
// error. Entries of files added with FileArgument are merged in afterwards;
// command-line entries override them.
func (a *KeyValue) Validate() error {
	seen := make(map[string]bool)
	for _, p := range a.pairs {
		if seen[p.Key] {
			return validationErrorf("%s: duplicate key %q", a.flag(), p.Key)
		}
		seen[p.Key] = true
	}

	var fromFiles []Pair
	for _, fn := range a.files {
		ps, err := loadPairs(fn)
		if err != nil {
			return validationErrorf("%s: %v", a.flag(), err)
		}
		for _, p := range ps {
			if !seen[p.Key] {
				seen[p.Key] = true
				fromFiles = append(fromFiles, p)
			}
		}
	}
	a.pairs = append(fromFiles, a.pairs...)
	a.files = nil
	return nil
}

// Pairs returns the entries in order.
func (a *KeyValue) Pairs() []Pair { return append([]Pair(nil), a.pairs...) }

// Map returns the entries as a map.
func (a *KeyValue) Map() map[string]string {
	m := make(map[string]string, len(a.pairs))
	for _, p := range a.pairs {
		m[p.Key] = p.Value
	}
	return m
}

// FileArgument returns an argument naming YAML files whose top-level
// mappings are added to a. It must be placed in the same Set as a.
func (a *KeyValue) FileArgument(names, desc string) Argument {
	return &keyValueFile{info: newInfo(names, desc), target: a}
}

type keyValueFile struct {
	info
	target *KeyValue
}

func (f *keyValueFile) Action(raw string) error {
	if raw == "" {
		return f.formatError(raw, "path must not be empty")
	}
	f.target.files = append(f.target.files, raw)
	f.set = true
	return nil
}

// loadPairs reads the top-level mapping of a YAML file. Keys and values
// keep their text as written, so "on", "0123" or "1.10" are not converted.
func loadPairs(fn string) ([]Pair, error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, errors.Wrapf(err, "%s", fn)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	m := doc.Content[0]
	if m.Kind != yaml.MappingNode {
		return nil, errors.Errorf("%s: not a mapping", fn)
	}
	var pairs []Pair
	for i := 0; i+1 < len(m.Content); i += 2 {
		k, v := m.Content[i], m.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, errors.Errorf("%s:%d: key is not a scalar", fn, k.Line)
		}
		if v.Kind != yaml.ScalarNode {
			return nil, errors.Errorf("%s:%d: value of %q is not a scalar", fn, v.Line, k.Value)
		}
		p := Pair{Key: k.Value, Value: v.Value}
		if v.Tag == "!!null" {
			p.Value = ""
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}
