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

// Package h2 issues one HTTP/2 request per task over a cached
// golang.org/x/net/http2.ClientConn, mirroring pipeline/h1's task shape but
// specialized to a multiplexed connection: a fresh stream per request
// instead of a fresh (or reused) socket.
package h2

import (
	"context"
	"net"
	"net/http"

	"golang.org/x/net/http2"
)

// Dialer creates a fresh TLS/TCP connection suitable for an HTTP/2 handshake.
type Dialer func(ctx context.Context) (net.Conn, error)

// Config parameterizes a Task.
type Config struct {
	// NoMultiplex drops the cached ClientConn after one request instead
	// of reusing it for subsequent Do calls.
	NoMultiplex bool

	// MaxConcurrentStreams caps in-flight requests sharing one
	// connection; enforced with a golang.org/x/sync/semaphore gate.
	MaxConcurrentStreams int
}

// Task owns or leases one http2.ClientConn.
type Task interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
	Close() error
}

// New creates a Task dialing connections through d and speaking HTTP/2 via
// transport (a *http2.Transport configured by the caller, e.g. with TLS
// NextProtos already set to ["h2"]).
func New(d Dialer, transport *http2.Transport, cfg Config) Task {
	if cfg.MaxConcurrentStreams <= 0 {
		cfg.MaxConcurrentStreams = 100
	}
	return &task{dialer: d, transport: transport, cfg: cfg}
}
