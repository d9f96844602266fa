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

package connect

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"
)

type bridge struct {
	cfg Config
}

func (b *bridge) Run(ctx context.Context, target string, clt *bufio.ReadWriter, ups *bufio.ReadWriter) (Outcome, error) {
	hostport, err := SplitHostPort(target, b.cfg.DefaultPort)
	if err != nil {
		b.replyError(clt, http.StatusBadRequest)
		return Outcome{}, ErrorMalformedTarget
	}

	fmt.Fprintf(ups, "CONNECT %s HTTP/1.1\r\nHost: %s\r\n\r\n", hostport, hostport)
	if err := ups.Flush(); err != nil {
		b.replyError(clt, http.StatusBadGateway)
		return Outcome{}, ErrorUpstreamWriteFailed
	}

	type result struct {
		resp *http.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		req := &http.Request{Method: http.MethodConnect}
		resp, err := http.ReadResponse(ups.Reader, req)
		done <- result{resp, err}
	}()

	var rr result
	select {
	case rr = <-done:
	case <-time.After(b.cfg.RspHeadRecvTimeout):
		b.replyError(clt, http.StatusGatewayTimeout)
		return Outcome{}, ErrorResponseHeaderTimeout
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}

	if rr.err != nil {
		b.replyError(clt, http.StatusBadGateway)
		return Outcome{}, ErrorUpstreamResponseInvalid
	}
	resp := rr.resp

	var head bytes.Buffer
	fmt.Fprintf(&head, "HTTP/%d.%d %s\r\n", resp.ProtoMajor, resp.ProtoMinor, resp.Status)
	_ = resp.Header.Write(&head)
	head.WriteString("\r\n")

	if _, err := clt.Write(head.Bytes()); err != nil {
		return Outcome{}, ErrorClientWriteFailed
	}
	if err := clt.Flush(); err != nil {
		return Outcome{}, ErrorClientWriteFailed
	}

	out := Outcome{
		StatusCode: resp.StatusCode,
		KeepAlive:  resp.Close == false,
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		out.Upstream = hostport
		return out, nil
	case isPeerTimeoutStatus(resp.StatusCode):
		return out, ErrorPeerTimeout
	default:
		return out, ErrorUnexpectedStatusCode
	}
}

// isPeerTimeoutStatus reports whether status is one of the gateway/peer
// timeout codes an upstream CONNECT proxy may answer with, per g3proxy's
// H1ConnectTask: 504 Gateway Timeout, and Cloudflare's 522/524 extensions
// for an unresponsive or slow origin.
func isPeerTimeoutStatus(status int) bool {
	switch status {
	case http.StatusGatewayTimeout, 522, 524:
		return true
	}
	return false
}

func (b *bridge) replyError(clt *bufio.ReadWriter, status int) {
	fmt.Fprintf(clt, "HTTP/1.1 %d %s\r\nConnection: close\r\nContent-Length: 0\r\n\r\n", status, http.StatusText(status))
	_ = clt.Flush()
}
