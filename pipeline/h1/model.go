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

package h1

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"sync"
	"time"
)

type task struct {
	dialer Dialer
	cfg    Config

	mu             sync.Mutex
	conn           net.Conn
	reuseConnCount int
}

// fetchConnection peeks one byte non-blocking on the saved connection to
// detect whether the peer already closed it; if so (or if there is no
// saved connection), it redials under ConnectTimeout.
func (t *task) fetchConnection(ctx context.Context) (net.Conn, bool, error) {
	t.mu.Lock()
	c := t.conn
	t.mu.Unlock()

	if c != nil && t.stillOpen(c) {
		t.mu.Lock()
		t.reuseConnCount++
		n := t.reuseConnCount
		t.mu.Unlock()
		_ = n
		return c, true, nil
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if t.cfg.ConnectTimeout > 0 {
		dialCtx, cancel = context.WithTimeout(ctx, t.cfg.ConnectTimeout)
		defer cancel()
	}

	nc, err := t.dialer(dialCtx)
	if err != nil {
		return nil, false, err
	}

	t.mu.Lock()
	t.conn = nc
	t.mu.Unlock()

	return nc, false, nil
}

// stillOpen peeks one byte with a near-zero deadline: if the read would
// block, the socket is presumed still open and idle; EOF/error means the
// peer closed it.
func (t *task) stillOpen(c net.Conn) bool {
	_ = c.SetReadDeadline(time.Now().Add(time.Millisecond))
	defer c.SetReadDeadline(time.Time{})

	one := make([]byte, 1)
	n, err := c.Read(one)
	if n > 0 {
		// Unexpected data ahead of a response we haven't asked for yet;
		// treat the connection as unusable and let the caller redial.
		return false
	}
	if err == nil {
		return true
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return true
	}
	return false
}

func (t *task) Do(ctx context.Context, req *http.Request) (*Result, error) {
	start := time.Now()

	conn, reused, err := t.fetchConnection(ctx)
	if err != nil {
		return nil, err
	}

	hdrStart := time.Now()
	if err := req.Write(conn); err != nil {
		_ = t.invalidate()
		return nil, err
	}
	sendHdr := time.Since(hdrStart)

	sendAll := time.Since(hdrStart) // req.Write already wrote headers+body (vectored by net/http internally when body is set)

	recvStart := time.Now()
	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		_ = t.invalidate()
		return nil, err
	}
	recvHdr := time.Since(recvStart)

	if !t.cfg.KeepAlive || resp.Close {
		_ = t.invalidate()
	}

	t.mu.Lock()
	reuseCount := t.reuseConnCount
	t.mu.Unlock()

	return &Result{
		Response: resp,
		Timings: Timings{
			SendHdrTime: sendHdr,
			SendAllTime: sendAll,
			RecvHdrTime: recvHdr,
			TotalTime:   time.Since(start),
		},
		ReuseConnCount: reuseCount,
		Reused:         reused,
	}, nil
}

func (t *task) invalidate() error {
	t.mu.Lock()
	c := t.conn
	t.conn = nil
	t.mu.Unlock()

	if c != nil {
		return c.Close()
	}
	return nil
}

func (t *task) Close() error {
	return t.invalidate()
}
