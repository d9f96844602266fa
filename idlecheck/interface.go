/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package idlecheck watches a connection's activity on a shared ticker and
// force-quits it after a configured number of consecutive idle ticks, the
// way the teacher's context package propagates a force-quit signal to every
// watcher derived from an isolated parent context.
package idlecheck

import (
	"context"
	"errors"
	"time"
)

// ErrIdleTimeout is delivered (via the Done channel's context.Cause, and
// returned by Err) once TaskIdleMaxCount consecutive idle ticks elapse.
var ErrIdleTimeout = errors.New("idlecheck: task idle timeout")

// Config parameterizes a Checker.
type Config struct {
	// Interval is the shared tick period.
	Interval time.Duration

	// TaskIdleMaxCount is how many consecutive idle ticks are tolerated
	// before ErrIdleTimeout fires.
	TaskIdleMaxCount int
}

// Checker watches one task's activity against a shared ticker.
type Checker interface {
	// MarkActive records that a byte or state change happened since the
	// last tick; it resets this checker's idle_count.
	MarkActive()

	// Done returns a channel closed when the checker force-quits, either
	// because TaskIdleMaxCount ticks elapsed with no activity or because
	// the parent context was cancelled.
	Done() <-chan struct{}

	// Err returns the reason Done closed (ErrIdleTimeout, the parent
	// context's error, or context.Canceled after the Group closes), or nil
	// if Done has not closed yet or closed because of Stop.
	Err() error

	// Stop unregisters this checker from the shared ticker and closes
	// Done; Err then reports nil.
	Stop()
}

// Group runs one shared ticker for all Checkers registered on it, fanning
// out force-quit via context cancellation per watcher (mirrors
// context.IsolateParent: each checker gets its own cancellable leaf derived
// from a common parent so one checker's timeout never affects another's).
type Group interface {
	// NewChecker registers and returns a new Checker derived from ctx.
	NewChecker(ctx context.Context, cfg Config) Checker

	// Close stops the shared ticker and force-quits every still-running
	// checker.
	Close()
}

// NewGroup starts a Group; the shared ticker period is the minimum
// Interval across registered checkers, re-evaluated each time a checker is
// added (consistent with "shared time.Ticker-driven interval").
func NewGroup() Group {
	g := &group{
		add:    make(chan *checker),
		remove: make(chan *checker),
		quit:   make(chan struct{}),
	}
	go g.run()
	return g
}
