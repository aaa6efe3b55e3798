// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package symbolicate rewrites WebAssembly function references in engine
// output into symbol names.
package symbolicate

import (
	"bufio"
	"os"
	"regexp"
	"strconv"
	"strings"

	"go.xharness.dev/xharness/errors"
	"go.xharness.dev/xharness/internal/arguments"
	"go.xharness.dev/xharness/internal/plugin"
)

// Symbolicator rewrites one line of diagnostic output.
type Symbolicator interface {
	// Symbolicate returns line with known references replaced by symbol
	// names. line is returned unchanged when nothing applies.
	Symbolicate(line string) string
}

// Table maps function indices to symbol names.
type Table interface {
	Lookup(index int) (string, bool)
}

// Kinds holds the symbol table formats selectable with --symbolicator. The
// factory receives the symbol map file.
var Kinds = plugin.NewRegistry[Table]("symbolicator")

// DefaultKind is used when no kind is given.
const DefaultKind = "wasm"

func init() {
	Kinds.Register(DefaultKind, func(path string) (Table, error) { return LoadMap(path) })
}

// funcGroup is the capture group every pattern must define.
const funcGroup = "funcNum"

// DefaultPatterns match V8 and SpiderMonkey style stack frames.
var DefaultPatterns = []string{
	`wasm-function\[(?P<funcNum>\d+)\]`,
	`\$func(?P<funcNum>\d+)`,
}

// New returns a symbolicator of kind reading symbols from mapFile and
// patterns from patternFile. It returns nil and no error when mapFile is
// empty. DefaultPatterns are used when patternFile is empty.
func New(kind, mapFile, patternFile string) (Symbolicator, error) {
	if mapFile == "" {
		return nil, nil
	}
	if kind == "" {
		kind = DefaultKind
	}
	if !Kinds.Has(kind) {
		return nil, &arguments.ValidationError{Msg: "unknown symbolicator " + strconv.Quote(kind) +
			"; known: " + strings.Join(Kinds.Names(), ", ")}
	}

	patterns := DefaultPatterns
	if patternFile != "" {
		var err error
		if patterns, err = readLines(patternFile); err != nil {
			return nil, err
		}
	}
	res, err := compilePatterns(patternFile, patterns)
	if err != nil {
		return nil, err
	}

	table, err := Kinds.New(kind, mapFile)
	if err != nil {
		return nil, err
	}
	return &symbolicator{table: table, patterns: res}, nil
}

func compilePatterns(file string, patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, &arguments.ValidationError{Msg: file + ": no patterns"}
	}
	var res []*regexp.Regexp
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &arguments.ValidationError{Msg: file + ": " + err.Error()}
		}
		if re.SubexpIndex(funcGroup) < 0 {
			return nil, &arguments.ValidationError{
				Msg: file + ": pattern " + strconv.Quote(p) + " has no (?P<" + funcGroup + ">...) group"}
		}
		res = append(res, re)
	}
	return res, nil
}

type symbolicator struct {
	table    Table
	patterns []*regexp.Regexp
}

func (s *symbolicator) Symbolicate(line string) string {
	for _, re := range s.patterns {
		group := re.SubexpIndex(funcGroup)
		line = re.ReplaceAllStringFunc(line, func(m string) string {
			sub := re.FindStringSubmatch(m)
			if sub == nil {
				return m
			}
			n, err := strconv.Atoi(sub[group])
			if err != nil {
				return m
			}
			if name, ok := s.table.Lookup(n); ok {
				return name
			}
			return m
		})
	}
	return line
}

// Map is a Table read from "index:name" lines, as emitted by emcc
// --emit-symbol-map.
type Map map[int]string

// Lookup implements Table.
func (m Map) Lookup(index int) (string, bool) {
	name, ok := m[index]
	return name, ok
}

// LoadMap reads a symbol map file. Malformed lines are reported as
// *arguments.ValidationError.
func LoadMap(path string) (Map, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	m := make(Map, len(lines))
	for i, l := range lines {
		idx, name, ok := strings.Cut(l, ":")
		n, err := strconv.Atoi(strings.TrimSpace(idx))
		if !ok || err != nil || n < 0 || name == "" {
			return nil, &arguments.ValidationError{
				Msg: path + ":" + strconv.Itoa(i+1) + ": malformed symbol " + strconv.Quote(l)}
		}
		m[n] = name
	}
	return m, nil
}

// readLines returns the non-empty lines of path that are not comments.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &arguments.ValidationError{Msg: path + " does not exist"}
		}
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(nil, 1<<20)
	for sc.Scan() {
		l := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(l) == "" || strings.HasPrefix(l, "#") {
			continue
		}
		lines = append(lines, l)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return lines, nil
}
