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

package idlecheck

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

type checker struct {
	cfg    Config
	active atomic.Bool
	idle   atomic.Int32

	ctx    context.Context
	cancel context.CancelCauseFunc

	group *group
}

func (c *checker) MarkActive() {
	c.active.Store(true)
}

func (c *checker) Done() <-chan struct{} {
	return c.ctx.Done()
}

// errStopped is the cancel cause Stop uses; Err reports it as nil.
var errStopped = errors.New("idlecheck: stopped")

func (c *checker) Err() error {
	if err := context.Cause(c.ctx); err != errStopped {
		return err
	}
	return nil
}

func (c *checker) Stop() {
	c.cancel(errStopped)
	select {
	case c.group.remove <- c:
	case <-c.group.quit:
	}
}

// tick is called by the owning group once per Interval; it is never called
// concurrently with itself for the same checker.
func (c *checker) tick() bool {
	if c.active.Swap(false) {
		c.idle.Store(0)
		return true
	}

	n := c.idle.Add(1)
	if int(n) >= c.cfg.TaskIdleMaxCount {
		c.cancel(ErrIdleTimeout)
		return false
	}
	return true
}

type group struct {
	mu       sync.Mutex
	checkers map[*checker]struct{}
	interval time.Duration

	add    chan *checker
	remove chan *checker
	quit   chan struct{}
	once   sync.Once
}

func (g *group) NewChecker(ctx context.Context, cfg Config) Checker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.TaskIdleMaxCount <= 0 {
		cfg.TaskIdleMaxCount = 1
	}

	cctx, cancel := context.WithCancelCause(ctx)
	c := &checker{cfg: cfg, ctx: cctx, cancel: cancel, group: g}

	select {
	case g.add <- c:
	case <-g.quit:
		cancel(nil)
	}

	return c
}

func (g *group) Close() {
	g.once.Do(func() {
		close(g.quit)
	})
}

// run is the single shared-ticker loop; it owns g.checkers exclusively.
func (g *group) run() {
	g.checkers = make(map[*checker]struct{})
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-g.quit:
			for c := range g.checkers {
				c.cancel(nil)
			}
			return
		case c := <-g.add:
			g.checkers[c] = struct{}{}
			g.retune(ticker)
		case c := <-g.remove:
			delete(g.checkers, c)
		case <-ticker.C:
			for c := range g.checkers {
				select {
				case <-c.ctx.Done():
					delete(g.checkers, c)
				default:
					if !c.tick() {
						delete(g.checkers, c)
					}
				}
			}
		}
	}
}

// retune re-derives the ticker period as the minimum Interval across all
// currently registered checkers.
func (g *group) retune(ticker *time.Ticker) {
	min := time.Duration(0)
	for c := range g.checkers {
		if min == 0 || c.cfg.Interval < min {
			min = c.cfg.Interval
		}
	}
	if min > 0 {
		ticker.Reset(min)
	}
}
