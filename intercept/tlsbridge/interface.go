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

// Package tlsbridge performs TLS MITM splicing, grounded on g3proxy's
// inspect/tls/tlcp.rs: given the SNI and ALPN offer the caller extracted
// from an incoming ClientHello (Run does not parse the ClientHello), kick off a background pre-fetch of a fake certificate keyed by SNI,
// build and complete an upstream TLS handshake with a restricted-then-
// widened ALPN offer, fall back to a synchronous fake-cert fetch keyed off
// the observed upstream certificate if the pre-fetch produced nothing,
// install the fake certificate and the upstream's selected ALPN protocol
// on the client-facing TLS server, and complete the client handshake.
//
// The pre-fetch and the upstream handshake run concurrently via
// golang.org/x/sync/errgroup, mirroring the original's two
// tokio::spawn'd pre-fetch tasks racing the upstream connector. The GM/T
// 0024 TLCP cipher suite pair the original additionally negotiates has no
// equivalent in crypto/tls; this package bridges standard TLS 1.2/1.3 only.
//
// Cipher suite, curve, and TLS version restrictions are sourced from the
// certificates package (Config.Material), applied here on both legs of the
// splice.
package tlsbridge

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"time"

	"github.com/bytedance/g3-sub007/certificates"
)

// ErrTerminal enumerates the terminal failure states from §4.6(b).
type ErrTerminal int

const (
	ClientHandshakeFailed ErrTerminal = iota
	UpstreamHandshakeFailed
	UpstreamHandshakeTimeout
	NoFakeCertGenerated
)

func (e ErrTerminal) Error() string {
	switch e {
	case ClientHandshakeFailed:
		return "client TLS handshake failed"
	case UpstreamHandshakeFailed:
		return "upstream TLS handshake failed"
	case UpstreamHandshakeTimeout:
		return "upstream TLS handshake timed out"
	case NoFakeCertGenerated:
		return "no fake certificate could be generated"
	}
	return "unknown tls bridge failure"
}

// FakeCertFetcher issues a leaf certificate impersonating sni, optionally
// seeded by the real upstream certificate once it has been observed.
// Implementations are expected to front this with an effcache cache.
type FakeCertFetcher func(ctx context.Context, sni string, upstreamLeaf *x509.Certificate) (tls.Certificate, error)

// Config parameterizes a Bridge.
type Config struct {
	// HandshakeTimeout bounds the upstream TLS handshake.
	HandshakeTimeout time.Duration

	// AllowedALPN restricts the ALPN offer sent upstream; when empty the
	// client's original offer is used unmodified.
	AllowedALPN []string

	// RootCAs verifies the upstream certificate; nil uses the system pool.
	RootCAs *x509.CertPool

	// Material supplies the cipher suite, curve, and TLS version
	// restrictions applied to both the upstream and client-facing
	// tls.Config (certificates.TLSConfig.TlsConfig). Nil uses crypto/tls
	// defaults on both sides.
	Material certificates.TLSConfig
}

// Result carries the spliced connections and negotiation outcome once a
// bridge completes successfully.
type Result struct {
	Client         *tls.Conn
	Upstream       *tls.Conn
	SelectedALPN   string
	UpstreamVerify error
}

// Bridge drives one MITM TLS splice.
type Bridge interface {
	// Run performs the upstream handshake against upstreamConn using sni
	// and the client's offered ALPN protocols, pre-fetching a fake
	// certificate concurrently, then completes the client handshake on
	// clientConn using that certificate.
	Run(ctx context.Context, clientConn, upstreamConn net.Conn, sni string, clientALPN []string) (*Result, error)
}

// New creates a Bridge backed by fetch.
func New(cfg Config, fetch FakeCertFetcher) Bridge {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &bridge{cfg: cfg, fetch: fetch}
}

func intersectALPN(offered, allowed []string) []string {
	if len(allowed) == 0 {
		return offered
	}
	allow := make(map[string]bool, len(allowed))
	for _, p := range allowed {
		allow[p] = true
	}
	var out []string
	for _, p := range offered {
		if allow[p] {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return offered
	}
	return out
}
