// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package timeout bounds run phases with deadlines that cancel a
// context.Context with a typed *Error instead of context.DeadlineExceeded.
package timeout

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"code.cloudfoundry.org/clock"

	"go.xharness.dev/xharness/internal/exitcode"
)

// Error is the cancellation cause of a context whose phase ran out of time.
type Error struct {
	// Phase names what was running, e.g. "test run" or "app launch".
	Phase string
	// Limit is the time the phase was given.
	Limit time.Duration
	// Code is the exit code reported for the timeout.
	Code exitcode.Code
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s timed out after %v", e.Phase, e.Limit)
}

// Is makes errors.Is(err, context.DeadlineExceeded) hold for timeouts.
func (e *Error) Is(target error) bool { return target == context.DeadlineExceeded }

// ExitCode returns the exit code reported for the timeout.
func (e *Error) ExitCode() exitcode.Code { return e.Code }

// CancelFunc cancels a context with err. Calls after the first have no
// effect. It panics if err is nil. Once it returns, the context is done.
type CancelFunc func(err error)

// Limiter creates deadline contexts measured on a clock.
type Limiter struct {
	clk clock.Clock
}

// NewLimiter returns a Limiter using clk. Tests pass a fakeclock.
func NewLimiter(clk clock.Clock) *Limiter {
	return &Limiter{clk: clk}
}

// Default is a Limiter on the real clock.
var Default = NewLimiter(clock.NewClock())

// WithTimeout returns a context canceled with a *Error for phase once d
// elapses. A non-positive d sets no deadline.
func (l *Limiter) WithTimeout(parent context.Context, d time.Duration, phase string) (context.Context, CancelFunc) {
	return l.WithError(parent, d, &Error{Phase: phase, Limit: d, Code: exitcode.TimedOut})
}

// WithError is like WithTimeout but cancels the context with err.
func (l *Limiter) WithError(parent context.Context, d time.Duration, err *Error) (context.Context, CancelFunc) {
	if err == nil {
		panic("timeout: WithError called with nil err")
	}
	if d <= 0 {
		return l.newContext(parent, nil, time.Time{})
	}
	return l.newContext(parent, err, l.clk.Now().Add(d))
}

// WithCancel returns a context that can be canceled with arbitrary errors.
func (l *Limiter) WithCancel(parent context.Context) (context.Context, CancelFunc) {
	return l.newContext(parent, nil, time.Time{})
}

// Watchdog returns a context canceled with err unless disarm is called
// within d. A non-positive d never fires. Calling disarm more than once is
// fine.
func (l *Limiter) Watchdog(parent context.Context, d time.Duration, err *Error) (ctx context.Context, disarm func(), cancel CancelFunc) {
	ctx, cancel = l.WithCancel(parent)
	if d <= 0 {
		return ctx, func() {}, cancel
	}
	disarmed := make(chan struct{})
	var once sync.Once
	tm := l.clk.NewTimer(d)
	go func() {
		defer tm.Stop()
		select {
		case <-tm.C():
			select {
			case <-disarmed:
			default:
				cancel(err)
			}
		case <-disarmed:
		case <-ctx.Done():
		}
	}()
	return ctx, func() { once.Do(func() { close(disarmed) }) }, cancel
}

// limitedContext is a context.Context whose Err may be any error.
type limitedContext struct {
	parent      context.Context
	hasDeadline bool
	deadline    time.Time

	done chan struct{}
	// req carries the first cancellation request. Its capacity is 1 so the
	// first send never blocks.
	req chan error
	err atomic.Value
}

// newContext returns a context canceled when parent is, when cancel is
// called or, if deadlineErr is non-nil, at reqDeadline with deadlineErr.
func (l *Limiter) newContext(parent context.Context, deadlineErr error, reqDeadline time.Time) (context.Context, CancelFunc) {
	ownDeadline := false
	deadline, hasDeadline := parent.Deadline()
	if deadlineErr != nil && (!hasDeadline || reqDeadline.Before(deadline)) {
		deadline, hasDeadline, ownDeadline = reqDeadline, true, true
	}

	ctx := &limitedContext{
		parent:      parent,
		hasDeadline: hasDeadline,
		deadline:    deadline,
		done:        make(chan struct{}),
		req:         make(chan error, 1),
	}

	if err := parent.Err(); err != nil {
		ctx.finish(err)
		return ctx, ctx.cancel
	}
	if ownDeadline && !deadline.After(l.clk.Now()) {
		ctx.finish(deadlineErr)
		return ctx, ctx.cancel
	}

	go func() {
		var expired <-chan time.Time
		if ownDeadline {
			tm := l.clk.NewTimer(deadline.Sub(l.clk.Now()))
			defer tm.Stop()
			expired = tm.C()
		}
		select {
		case <-parent.Done():
			ctx.finish(parent.Err())
		case <-expired:
			ctx.finish(deadlineErr)
		case err := <-ctx.req:
			ctx.finish(err)
		}
	}()
	return ctx, ctx.cancel
}

func (c *limitedContext) finish(err error) {
	c.err.Store(err)
	close(c.done)
}

func (c *limitedContext) Deadline() (time.Time, bool)       { return c.deadline, c.hasDeadline }
func (c *limitedContext) Done() <-chan struct{}             { return c.done }
func (c *limitedContext) Value(key interface{}) interface{} { return c.parent.Value(key) }

func (c *limitedContext) Err() error {
	if v := c.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func (c *limitedContext) cancel(err error) {
	if err == nil {
		panic("timeout: cancel called with nil")
	}
	select {
	case c.req <- err:
	default:
	}
	<-c.done
}
