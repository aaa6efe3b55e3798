// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package summary holds the result tree of one test run.
package summary

import (
	"fmt"
	"time"

	"go.xharness.dev/xharness/errors"
)

// Result is the outcome of one test case.
type Result int

const (
	// Passed means the test case succeeded.
	Passed Result = iota
	// Failed means the test case failed or errored.
	Failed
	// Inconclusive means the test case ran but reached no verdict.
	Inconclusive
	// Skipped means the test case was not run.
	Skipped
)

func (r Result) String() string {
	switch r {
	case Passed:
		return "Passed"
	case Failed:
		return "Failed"
	case Inconclusive:
		return "Inconclusive"
	case Skipped:
		return "Skipped"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Case is a leaf test case.
type Case struct {
	Name     string
	FullName string
	Result   Result
	Duration time.Duration
	Asserts  int
	// Message is the failure message or the skip reason.
	Message    string
	StackTrace string
	Output     string
}

// Summary is one node of a result tree: an aggregated run, an assembly or
// a fixture. A Summary is not modified once it is handed to a writer.
type Summary struct {
	Name     string
	FullName string

	Total        int
	Passed       int
	Failed       int
	Inconclusive int
	Skipped      int
	Asserts      int

	Duration time.Duration
	Start    time.Time
	// Seed is the random seed used to order tests, if any.
	Seed *int

	Children []*Summary
	Cases    []*Case

	// Native is a result document in NUnit v3 format produced by the
	// backend, if any. Writers of that format re-emit it as is.
	Native []byte
}

// Succeeded reports whether no test failed.
func (s *Summary) Succeeded() bool {
	return s.Failed == 0
}

// Validate checks that every node's counts add up to its total.
func (s *Summary) Validate() error {
	return s.validate(s.Name)
}

func (s *Summary) validate(path string) error {
	if s.Total != s.Passed+s.Failed+s.Inconclusive+s.Skipped {
		return errors.Errorf("%s: total %d != passed %d + failed %d + inconclusive %d + skipped %d",
			path, s.Total, s.Passed, s.Failed, s.Inconclusive, s.Skipped)
	}
	for _, c := range s.Children {
		if err := c.validate(path + "/" + c.Name); err != nil {
			return err
		}
	}
	return nil
}

// FromCases returns a Summary counting cases.
func FromCases(name string, start time.Time, cases []*Case) *Summary {
	s := &Summary{Name: name, FullName: name, Start: start, Cases: cases}
	for _, c := range cases {
		s.add(c)
	}
	return s
}

func (s *Summary) add(c *Case) {
	s.Total++
	s.Asserts += c.Asserts
	s.Duration += c.Duration
	switch c.Result {
	case Passed:
		s.Passed++
	case Failed:
		s.Failed++
	case Inconclusive:
		s.Inconclusive++
	case Skipped:
		s.Skipped++
	}
}

// Aggregate returns a root node over children. Counts, asserts and
// durations are summed and the start is the earliest child start.
func Aggregate(name string, children ...*Summary) *Summary {
	root := &Summary{Name: name, FullName: name, Children: children}
	for _, c := range children {
		root.Total += c.Total
		root.Passed += c.Passed
		root.Failed += c.Failed
		root.Inconclusive += c.Inconclusive
		root.Skipped += c.Skipped
		root.Asserts += c.Asserts
		root.Duration += c.Duration
		if !c.Start.IsZero() && (root.Start.IsZero() || c.Start.Before(root.Start)) {
			root.Start = c.Start
		}
		if root.Seed == nil && c.Seed != nil {
			root.Seed = c.Seed
		}
	}
	return root
}

// Walk calls f for s and every descendant in depth-first order.
func (s *Summary) Walk(f func(*Summary)) {
	f(s)
	for _, c := range s.Children {
		c.Walk(f)
	}
}
