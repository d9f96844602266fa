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

package h2

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/net/http2"
	"golang.org/x/sync/semaphore"
)

type task struct {
	dialer    Dialer
	transport *http2.Transport
	cfg       Config

	mu   sync.Mutex
	conn *http2.ClientConn

	gate *semaphore.Weighted
	once sync.Once
}

func (t *task) gateInit() {
	t.once.Do(func() {
		t.gate = semaphore.NewWeighted(int64(t.cfg.MaxConcurrentStreams))
	})
}

func (t *task) leaseConn(ctx context.Context) (*http2.ClientConn, error) {
	t.mu.Lock()
	c := t.conn
	t.mu.Unlock()

	if c != nil && c.CanTakeNewRequest() {
		return c, nil
	}

	nc, err := t.dialer(ctx)
	if err != nil {
		return nil, fmt.Errorf("h2: dial failed: %w", err)
	}

	cc, err := t.transport.NewClientConn(nc)
	if err != nil {
		_ = nc.Close()
		return nil, fmt.Errorf("h2: handshake failed: %w", err)
	}

	t.mu.Lock()
	t.conn = cc
	t.mu.Unlock()

	return cc, nil
}

func (t *task) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	t.gateInit()
	if err := t.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer t.gate.Release(1)

	cc, err := t.leaseConn(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := cc.RoundTrip(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	if t.cfg.NoMultiplex {
		t.mu.Lock()
		if t.conn == cc {
			t.conn = nil
		}
		t.mu.Unlock()
		go func() {
			<-ctx.Done()
			_ = cc.Close()
		}()
	}

	return resp, nil
}

func (t *task) Close() error {
	t.mu.Lock()
	c := t.conn
	t.conn = nil
	t.mu.Unlock()

	if c != nil {
		return c.Close()
	}
	return nil
}
