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

// Package connect bridges an HTTP CONNECT request to stream relay, grounded
// on g3proxy's inspect/http/v1/connect H1ConnectTask: take the CONNECT
// target the caller parsed, relay the request to upstream, wait for the
// upstream's full response header, forward the status line and headers to
// the client, and on a 2xx status transition the caller to raw stream relay
// against the resolved upstream address. The forwarded headers are
// re-serialized from the parsed response (names canonicalized and sorted),
// so the head bytes are not copied verbatim.
package connect

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"time"
)

// Outcome is the terminal result of a CONNECT bridging attempt.
type Outcome struct {
	// Upstream is set only when the upstream answered 2xx: the connection
	// should now be relayed verbatim to this address.
	Upstream string

	// StatusCode is the upstream's response status code, 0 if none was
	// received before a failure.
	StatusCode int

	// KeepAlive reports whether the client-facing connection may be reused
	// for another request after a non-2xx response.
	KeepAlive bool
}

// Config parameterizes a Bridge.
type Config struct {
	// RspHeadRecvTimeout bounds how long to wait for the upstream's full
	// response header.
	RspHeadRecvTimeout time.Duration

	// RspHeadMaxSize is the configured response header size limit. Run
	// does not read it; the response header size is not bounded.
	RspHeadMaxSize int

	// DefaultPort is used when the CONNECT target carries no explicit port.
	DefaultPort int
}

// DefaultConfig matches the upstream inspection defaults used throughout
// the pack: a generous header timeout and HTTPS's default port.
func DefaultConfig() Config {
	return Config{
		RspHeadRecvTimeout: 10 * time.Second,
		RspHeadMaxSize:     8192,
		DefaultPort:        443,
	}
}

// Bridge drives the CONNECT-to-stream-relay handshake between a client
// connection and an already-dialed upstream connection.
type Bridge interface {
	// Run relays a CONNECT for target (the client's request target, already
	// parsed by the caller's HTTP front end) to upstream, waits for its
	// response header, forwards it to the client, and reports the
	// Outcome. When it fails before forwarding the header (bad target,
	// upstream write failure, header timeout, unparseable response) it
	// writes a best-effort error response to the client; on ctx
	// cancellation it writes nothing.
	Run(ctx context.Context, target string, clt *bufio.ReadWriter, ups *bufio.ReadWriter) (Outcome, error)
}

// New creates a Bridge.
func New(cfg Config) Bridge {
	if cfg.RspHeadRecvTimeout <= 0 {
		cfg = DefaultConfig()
	}
	return &bridge{cfg: cfg}
}

// SplitHostPort normalizes a CONNECT target into host:port, applying
// defaultPort when the target carries none.
func SplitHostPort(target string, defaultPort int) (string, error) {
	host, port, err := net.SplitHostPort(target)
	if err != nil {
		return net.JoinHostPort(target, strconv.Itoa(defaultPort)), nil
	}
	return net.JoinHostPort(host, port), nil
}
