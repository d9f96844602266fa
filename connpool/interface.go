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

// Package connpool maintains a target-sized set of live connections to a
// backend, reconnecting as needed and draining gracefully when peers
// change, the way httpserver/pool and the ldap package's dial/reconnect
// loop manage backend liveness but generalized to an arbitrary Dialer.
package connpool

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNoAvailableConnection is returned by Get when WaitForConnection is
// false and no connection is currently alive.
var ErrNoAvailableConnection = errors.New("connpool: no available connection")

// ErrPoolClosed is returned by Get once Close or CloseGraceful has been
// called.
var ErrPoolClosed = errors.New("connpool: pool closed")

// Conn is whatever the pool hands back to a caller; it must be closeable
// and the pool only ever interacts with it through this seam.
type Conn = io.Closer

// Dialer creates one new Conn to a given peer address.
type Dialer func(ctx context.Context, peer string) (Conn, error)

// Config parameterizes a Pool.
type Config struct {
	// Target is the desired number of alive connections.
	Target int

	// ConnectConcurrency bounds the number of simultaneous connect
	// attempts fanned out per replenish tick.
	ConnectConcurrency int

	// CheckInterval is how often the pool re-evaluates target vs alive.
	CheckInterval time.Duration

	// GracefulCloseWait is how long existing connections are allowed to
	// drain after UpdatePeers replaces the peer set.
	GracefulCloseWait time.Duration

	// WaitForConnection, when true, makes Get block until a connection
	// becomes available instead of returning ErrNoAvailableConnection
	// immediately when alive == 0.
	WaitForConnection bool
}

// Pool maintains Config.Target live connections to the current peer set.
type Pool interface {
	io.Closer

	// Get returns one alive connection, or blocks/errors per
	// Config.WaitForConnection.
	Get(ctx context.Context) (Conn, error)

	// UpdatePeers replaces the peer address set. Every connection dialed
	// before the call is closed after GracefulCloseWait, whether or not its
	// peer is still in the new set; replacements are dialed from the new
	// set on the next replenish tick.
	UpdatePeers(peers []string)

	// CloseGraceful stops replenishing, waits GracefulCloseWait (or until
	// ctx is done, whichever comes first), then closes every live
	// connection and returns ctx.Err().
	CloseGraceful(ctx context.Context) error

	// Alive returns the current count of live connections.
	Alive() int
}

// New starts a Pool dialing peers with dialer per cfg. The pool's
// background loop runs until Close or CloseGraceful.
func New(ctx context.Context, peers []string, dialer Dialer, cfg Config) Pool {
	if cfg.Target <= 0 {
		cfg.Target = 1
	}
	if cfg.ConnectConcurrency <= 0 {
		cfg.ConnectConcurrency = cfg.Target
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 5 * time.Second
	}

	p := &pool{
		dialer:   dialer,
		cfg:      cfg,
		peers:    append([]string(nil), peers...),
		conns:    make(map[Conn]struct{}),
		gen:      make(chan struct{}),
		updateCh: make(chan []string, 1),
		newConnCh: make(chan Conn, cfg.Target),
		closedCh: make(chan Conn, cfg.Target),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	go p.run(ctx)

	return p
}
