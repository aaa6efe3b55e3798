// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package arguments

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// Catalog is a set of names that a Reference may point to.
type Catalog interface {
	Has(name string) bool
	Names() []string
}

// Ref is a parsed "[path,]name" reference.
type Ref struct {
	// Path is an optional file backing the named implementation.
	Path string
	// Name selects the implementation.
	Name string
}

// ParseRef parses "[path,]name". The name follows the last comma.
func ParseRef(s string) (Ref, bool) {
	i := strings.LastIndex(s, ",")
	r := Ref{Name: strings.TrimSpace(s[i+1:])}
	if i >= 0 {
		r.Path = strings.TrimSpace(s[:i])
		if r.Path == "" {
			return Ref{}, false
		}
	}
	return r, r.Name != ""
}

// Reference is an argument naming an implementation registered in a
// Catalog, optionally together with a file that backs it. It can be
// repeatable.
type Reference struct {
	info
	catalog    Catalog
	repeatable bool
	pathNeeded bool
	refs       []Ref
}

// NewReference returns a single-valued Reference argument.
func NewReference(names, desc string, catalog Catalog) *Reference {
	return &Reference{info: newInfo(names, desc), catalog: catalog}
}

// NewReferences returns a repeatable Reference argument whose values must
// carry a path.
func NewReferences(names, desc string, catalog Catalog) *Reference {
	return &Reference{info: newInfo(names, desc), catalog: catalog, repeatable: true, pathNeeded: true}
}

// Action implements Argument.
func (a *Reference) Action(raw string) error {
	r, ok := ParseRef(raw)
	if !ok || (a.pathNeeded && r.Path == "") {
		if a.pathNeeded {
			return a.formatError(raw, "must be in the form path,name")
		}
		return a.formatError(raw, "must be in the form [path,]name")
	}
	if a.repeatable {
		a.refs = append(a.refs, r)
	} else {
		a.refs = []Ref{r}
	}
	a.set = true
	return nil
}

// Validate implements Argument. Referenced files must exist and names must
// be registered.
func (a *Reference) Validate() error {
	for _, r := range a.refs {
		if r.Path != "" {
			if _, err := os.Stat(r.Path); err != nil {
				return validationErrorf("%s: %s does not exist", a.flag(), r.Path)
			}
		}
		if !a.catalog.Has(r.Name) {
			return validationErrorf("%s: unknown name %q (available: %s)", a.flag(), r.Name, strings.Join(a.catalog.Names(), ", "))
		}
	}
	return nil
}

// Value returns the last given reference.
func (a *Reference) Value() (Ref, bool) {
	if len(a.refs) == 0 {
		return Ref{}, false
	}
	return a.refs[len(a.refs)-1], true
}

// Values returns all given references in encounter order.
func (a *Reference) Values() []Ref { return append([]Ref(nil), a.refs...) }

// Locale is a BCP 47 language tag argument.
type Locale struct {
	info
	tag language.Tag
	def language.Tag
}

// NewLocale returns a Locale argument with a default tag.
func NewLocale(names, desc string, def language.Tag) *Locale {
	return &Locale{info: newInfo(names, desc), tag: def, def: def}
}

// Action implements Argument.
func (a *Locale) Action(raw string) error {
	t, err := language.Parse(raw)
	if err != nil {
		return a.formatError(raw, "must be a language tag such as en-US")
	}
	a.tag = t
	a.set = true
	return nil
}

// DefaultString returns the default shown in help output.
func (a *Locale) DefaultString() string {
	if a.def == language.Und {
		return ""
	}
	return a.def.String()
}

// Value returns the current tag.
func (a *Locale) Value() language.Tag { return a.tag }
