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

// Package effcache layers single-flight request coalescing and
// stale-while-refresh semantics over its own mutex-guarded map, serving a
// stale value while one refresh is in flight instead of stampeding the
// backend. Pending lookups are coalesced per key but not batched.
//
// Coalescing is hand-rolled (a map of in-flight waiter channels guarded by
// a mutex) rather than imported from golang.org/x/sync/singleflight, to
// match the teacher cache package's own concurrency idiom of guarding a
// plain map with a mutex instead of reaching for an external coalescing
// primitive.
package effcache

import (
	"context"
	"time"
)

// Fetcher produces a fresh value for key. It is the caller's backend call
// (a keyless-RPC round trip, a certificate-agent lookup, ...).
type Fetcher[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Config parameterizes an EffectiveCache.
type Config struct {
	// ProtectiveTTL is how long a freshly fetched value is served without
	// triggering any refresh at all.
	ProtectiveTTL time.Duration

	// MaximumTTL is the hard expiry: past this age a cached value is not
	// served, and a fetch blocks the caller, unless VanishWait applies.
	MaximumTTL time.Duration

	// VanishWait is how long, counted from a failed refresh, a key keeps
	// serving its last successfully fetched value, even past MaximumTTL.
	// Entries are never evicted; after VanishWait Get blocks for a fetch.
	VanishWait time.Duration

	// CacheRequestBatchCount is defaulted by New but not read by the
	// cache; the number of Get calls coalesced into one fetch is not
	// bounded.
	CacheRequestBatchCount int
}

// EffectiveCache serves Fetcher results with coalescing and
// stale-while-refresh.
type EffectiveCache[K comparable, V any] interface {
	// Get returns a cached value if younger than MaximumTTL. Between
	// ProtectiveTTL and MaximumTTL it triggers at most one concurrent
	// background refresh and serves the stale value immediately; callers
	// racing during that window are coalesced into the same refresh. Past
	// MaximumTTL (or with no cached value) Get blocks for a fresh fetch,
	// unless VanishWait still covers a failed refresh of a cached value.
	Get(ctx context.Context, key K) (V, error)

	// Invalidate drops key's cached value immediately.
	Invalidate(key K)

	// Close stops background refreshes.
	Close() error
}

// New creates an EffectiveCache backed by fetch.
func New[K comparable, V any](cfg Config, fetch Fetcher[K, V]) EffectiveCache[K, V] {
	if cfg.ProtectiveTTL <= 0 {
		cfg.ProtectiveTTL = time.Second
	}
	if cfg.MaximumTTL <= cfg.ProtectiveTTL {
		cfg.MaximumTTL = cfg.ProtectiveTTL * 10
	}
	if cfg.CacheRequestBatchCount <= 0 {
		cfg.CacheRequestBatchCount = 64
	}

	return &effCache[K, V]{
		cfg:     cfg,
		fetch:   fetch,
		entries: make(map[K]*entry[V]),
		inFlight: make(map[K]*flight[V]),
	}
}
