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

package tlsbridge

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"

	"golang.org/x/sync/errgroup"
)

type bridge struct {
	cfg   Config
	fetch FakeCertFetcher
}

// baseTLSConfig builds the starting tls.Config for one leg of the splice,
// carrying over the cipher/curve/version restrictions from cfg.Material
// when one was supplied.
func (b *bridge) baseTLSConfig(serverName string) *tls.Config {
	if b.cfg.Material != nil {
		return b.cfg.Material.TlsConfig(serverName)
	}
	return &tls.Config{ServerName: serverName}
}

func (b *bridge) Run(ctx context.Context, clientConn, upstreamConn net.Conn, sni string, clientALPN []string) (*Result, error) {
	hsCtx, cancel := context.WithTimeout(ctx, b.cfg.HandshakeTimeout)
	defer cancel()

	var preFetched tls.Certificate
	var preFetchOK bool

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		cert, err := b.fetch(grpCtx, sni, nil)
		if err == nil {
			preFetched = cert
			preFetchOK = true
		}
		return nil // pre-fetch failure is not fatal: fall back below
	})

	upstreamALPN := intersectALPN(clientALPN, b.cfg.AllowedALPN)
	upstreamTLSCfg := b.baseTLSConfig(sni)
	upstreamTLSCfg.NextProtos = upstreamALPN
	if b.cfg.RootCAs != nil {
		upstreamTLSCfg.RootCAs = b.cfg.RootCAs
	}

	upsTLS := tls.Client(upstreamConn, upstreamTLSCfg)
	hsErrCh := make(chan error, 1)
	go func() { hsErrCh <- upsTLS.HandshakeContext(hsCtx) }()

	select {
	case err := <-hsErrCh:
		if err != nil {
			_ = grp.Wait()
			return nil, UpstreamHandshakeFailed
		}
	case <-hsCtx.Done():
		_ = grp.Wait()
		return nil, UpstreamHandshakeTimeout
	}

	state := upsTLS.ConnectionState()
	var upstreamLeaf *x509.Certificate
	if len(state.PeerCertificates) > 0 {
		upstreamLeaf = state.PeerCertificates[0]
	}

	_ = grp.Wait()

	fakeCert := preFetched
	if !preFetchOK {
		cert, err := b.fetch(ctx, sni, upstreamLeaf)
		if err != nil {
			return nil, NoFakeCertGenerated
		}
		fakeCert = cert
	}

	clientTLSCfg := b.baseTLSConfig(sni)
	clientTLSCfg.Certificates = []tls.Certificate{fakeCert}
	if state.NegotiatedProtocol != "" {
		clientTLSCfg.NextProtos = []string{state.NegotiatedProtocol}
	}

	cltTLS := tls.Server(clientConn, clientTLSCfg)
	if err := cltTLS.HandshakeContext(ctx); err != nil {
		return nil, ClientHandshakeFailed
	}

	var verifyErr error
	if upstreamLeaf != nil {
		if _, err := upstreamLeaf.Verify(x509.VerifyOptions{Roots: b.cfg.RootCAs}); err != nil {
			verifyErr = err
		}
	}

	return &Result{
		Client:         cltTLS,
		Upstream:       upsTLS,
		SelectedALPN:   state.NegotiatedProtocol,
		UpstreamVerify: verifyErr,
	}, nil
}
