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

package effcache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	fetchedAt time.Time
	failedAt  time.Time
	hasFailed bool
}

type flight[V any] struct {
	waiters int
	done    chan struct{}
	value   V
	err     error
}

type effCache[K comparable, V any] struct {
	cfg   Config
	fetch Fetcher[K, V]

	mu       sync.Mutex
	entries  map[K]*entry[V]
	inFlight map[K]*flight[V]
	closed   bool
}

func (c *effCache[K, V]) Get(ctx context.Context, key K) (V, error) {
	c.mu.Lock()
	e, hasEntry := c.entries[key]
	age := time.Duration(0)
	if hasEntry {
		age = time.Since(e.fetchedAt)
	}
	c.mu.Unlock()

	switch {
	case hasEntry && age < c.cfg.ProtectiveTTL:
		return e.value, nil

	case hasEntry && age < c.cfg.MaximumTTL:
		// Stale-while-refresh: serve the cached value, kick at most one
		// concurrent background refresh.
		c.triggerRefresh(key)
		return e.value, nil

	case hasEntry && e.hasFailed && time.Since(e.failedAt) < c.cfg.VanishWait:
		// Last refresh failed but VanishWait hasn't elapsed: keep serving
		// the stale value rather than blocking the caller.
		return e.value, nil

	default:
		return c.blockingFetch(ctx, key)
	}
}

func (c *effCache[K, V]) triggerRefresh(key K) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if _, busy := c.inFlight[key]; busy {
		c.mu.Unlock()
		return
	}
	f := &flight[V]{done: make(chan struct{})}
	c.inFlight[key] = f
	c.mu.Unlock()

	go c.runFetch(context.Background(), key, f)
}

func (c *effCache[K, V]) blockingFetch(ctx context.Context, key K) (V, error) {
	c.mu.Lock()
	f, busy := c.inFlight[key]
	if !busy {
		f = &flight[V]{done: make(chan struct{})}
		c.inFlight[key] = f
		c.mu.Unlock()
		go c.runFetch(ctx, key, f)
	} else {
		f.waiters++
		c.mu.Unlock()
	}

	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

func (c *effCache[K, V]) runFetch(ctx context.Context, key K, f *flight[V]) {
	v, err := c.fetch(ctx, key)

	f.value, f.err = v, err
	close(f.done)

	c.mu.Lock()
	delete(c.inFlight, key)
	if err != nil {
		if e, ok := c.entries[key]; ok {
			e.hasFailed = true
			e.failedAt = time.Now()
		}
	} else {
		c.entries[key] = &entry[V]{value: v, fetchedAt: time.Now()}
	}
	c.mu.Unlock()
}

func (c *effCache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *effCache[K, V]) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}
