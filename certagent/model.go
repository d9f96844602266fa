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

package certagent

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"sync"
	"time"

	"github.com/ugorji/go/codec"

	"github.com/bytedance/g3-sub007/effcache"
)

var mpHandle codec.MsgpackHandle

type agent struct {
	dial Dialer
	cfg  Config

	cache effcache.EffectiveCache[key, tls.Certificate]

	mu      sync.Mutex
	seedCDs map[key][]byte
}

func (a *agent) Fetch(ctx context.Context, usage Usage, domain string, upstreamLeaf *x509.Certificate) (tls.Certificate, error) {
	k := key{usage: usage, domain: domain}
	if upstreamLeaf != nil {
		a.mu.Lock()
		if a.seedCDs == nil {
			a.seedCDs = make(map[key][]byte)
		}
		a.seedCDs[k] = upstreamLeaf.Raw
		a.mu.Unlock()
	}
	return a.cache.Get(ctx, k)
}

func (a *agent) PreFetch(usage Usage, domain string) {
	k := key{usage: usage, domain: domain}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.RequestTimeout)
		defer cancel()
		_, _ = a.cache.Get(ctx, k)
	}()
}

func (a *agent) Close() error {
	return a.cache.Close()
}

func (a *agent) roundTrip(ctx context.Context, k key) (tls.Certificate, error) {
	conn, err := a.dial(ctx)
	if err != nil {
		return tls.Certificate{}, ErrorDialFailed
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(a.cfg.RequestTimeout))
	}

	a.mu.Lock()
	seed := a.seedCDs[k]
	a.mu.Unlock()

	req := CertRequest{Usage: k.usage, Domain: k.domain, UpstreamCertDER: seed}

	enc := codec.NewEncoder(conn, &mpHandle)
	if err := enc.Encode(&req); err != nil {
		return tls.Certificate{}, ErrorEncodeFailed
	}

	var resp CertResponse
	dec := codec.NewDecoder(conn, &mpHandle)
	if err := dec.Decode(&resp); err != nil {
		return tls.Certificate{}, ErrorDecodeFailed
	}

	if !resp.OK {
		return tls.Certificate{}, ErrorSidecarRefused
	}

	privKey, err := x509.ParsePKCS8PrivateKey(resp.PrivateKey)
	if err != nil {
		return tls.Certificate{}, ErrorInvalidPrivateKey
	}

	return tls.Certificate{Certificate: resp.CertDER, PrivateKey: privKey}, nil
}
