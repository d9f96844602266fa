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

// Package greeting relays and rewrites an SMTP or IMAP server greeting
// during interception, grounded on g3proxy's inspect/smtp/greeting.rs and
// inspect/imap/greeting.rs: read greeting lines from upstream under a
// timeout, parse the status/host announcement, rewrite the
// capability/EHLO-equivalent line to the intersection of what upstream
// advertised and what policy allows, and forward the rewritten lines to
// the client. On a negative/BYE reply, forward it and mark the session for
// close; on malformed input or a timeout, synthesize a protocol-appropriate
// "service not ready" reply only if nothing has been sent yet, then close.
package greeting

import (
	"bufio"
	"net"
	"time"
)

// Protocol selects the greeting grammar to parse.
type Protocol int

const (
	SMTP Protocol = iota
	IMAP
)

// Outcome is the terminal result of relaying a greeting.
type Outcome struct {
	// Host is the upstream host announced in an SMTP greeting, when
	// present; it stays empty for IMAP.
	Host string

	// Close reports whether the session should be torn down after the
	// greeting (a negative SMTP reply code, or IMAP BYE).
	Close bool

	// BytesWritten counts how many bytes were forwarded to the client
	// before any failure; used to decide whether a synthetic error
	// reply may still be sent.
	BytesWritten int
}

// Config parameterizes a Relay.
type Config struct {
	// Timeout bounds the whole greeting exchange.
	Timeout time.Duration

	// AllowedCapabilities is the policy-permitted token set used to
	// filter the rewritten capability/EHLO line. A nil set allows
	// everything observed from upstream unchanged.
	AllowedCapabilities map[string]bool
}

// Relay drives a greeting interception for one protocol.
type Relay interface {
	// Run reads the greeting from ups, rewrites capability lines against
	// cfg.AllowedCapabilities, and forwards the result to clt. LocalIP
	// seeds a synthesized "service not ready" reply if nothing has been
	// written yet when a failure occurs.
	Run(localIP net.IP, ups *bufio.Reader, clt *bufio.Writer) (Outcome, error)
}

// New creates a Relay for proto.
func New(proto Protocol, cfg Config) Relay {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &relay{proto: proto, cfg: cfg}
}
