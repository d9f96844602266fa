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

// Package certagent is the client side of a fake-certificate issuance
// sidecar: it encodes a CertRequest as MessagePack (github.com/ugorji/go/codec,
// the same library the certificates package's config layer already supports
// as an encoding format) over a connection dialed for each request, decodes
// the CertResponse, and turns the DER chain plus PKCS#8 private key of the
// response into a crypto/tls.Certificate. Results are
// fronted by effcache so repeat requests for the same (usage, domain) pair
// are coalesced and served stale-while-refresh instead of round-tripping
// to the sidecar on every TLS handshake.
package certagent

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"time"

	"github.com/bytedance/g3-sub007/effcache"
	"github.com/bytedance/g3-sub007/intercept/tlsbridge"
)

// Usage selects which key purpose the sidecar should issue for.
type Usage int

const (
	UsageTLSServerSignature Usage = iota
	UsageTLCPServerSignature
	UsageTLCPServerEncryption
)

// CertRequest is the wire request sent to the issuance sidecar.
type CertRequest struct {
	Usage  Usage  `codec:"usage"`
	Domain string `codec:"domain"`
	// UpstreamCertDER is the observed upstream leaf certificate, used by
	// the sidecar to mimic its subject/SAN/validity when present.
	UpstreamCertDER []byte `codec:"upstream_cert,omitempty"`
}

// CertResponse is the wire response from the issuance sidecar.
type CertResponse struct {
	OK         bool     `codec:"ok"`
	Reason     string   `codec:"reason,omitempty"`
	CertDER    [][]byte `codec:"cert_der,omitempty"`
	PrivateKey []byte   `codec:"private_key,omitempty"`
}

// Dialer opens a fresh connection to the issuance sidecar.
type Dialer func(ctx context.Context) (net.Conn, error)

// Config parameterizes an Agent.
type Config struct {
	RequestTimeout time.Duration
	Cache          effcache.Config
}

func DefaultConfig() Config {
	return Config{
		RequestTimeout: 2 * time.Second,
		Cache: effcache.Config{
			ProtectiveTTL: time.Minute,
			MaximumTTL:    time.Hour,
			VanishWait:    10 * time.Second,
		},
	}
}

// key is the effcache key: one fake certificate per (usage, domain) pair.
type key struct {
	usage  Usage
	domain string
}

// Agent issues fake certificates via the sidecar, cached per domain/usage.
type Agent interface {
	// Fetch returns a cached certificate if one is fresh enough, else
	// blocks on a round trip to the sidecar. upstreamLeaf seeds the
	// request when present (see CertRequest.UpstreamCertDER); it may be
	// nil for a pure pre-fetch keyed only by SNI.
	Fetch(ctx context.Context, usage Usage, domain string, upstreamLeaf *x509.Certificate) (tls.Certificate, error)

	// PreFetch starts (or joins) a background fetch and returns
	// immediately without the result; used to race the upstream
	// handshake the way intercept/tlsbridge does.
	PreFetch(usage Usage, domain string)

	Close() error
}

// New creates an Agent that dials the sidecar with dial.
func New(dial Dialer, cfg Config) Agent {
	if cfg.RequestTimeout <= 0 {
		cfg = DefaultConfig()
	}
	a := &agent{dial: dial, cfg: cfg}
	a.cache = effcache.New[key, tls.Certificate](cfg.Cache, a.roundTrip)
	return a
}

// AsFakeCertFetcher adapts a, fixed to usage, to the single-SNI-argument
// shape intercept/tlsbridge.Bridge expects for its pre-fetch and fallback
// hooks.
func AsFakeCertFetcher(a Agent, usage Usage) tlsbridge.FakeCertFetcher {
	return func(ctx context.Context, sni string, upstreamLeaf *x509.Certificate) (tls.Certificate, error) {
		return a.Fetch(ctx, usage, sni, upstreamLeaf)
	}
}
