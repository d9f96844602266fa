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

// Package h1 runs one HTTP/1.1 request per task against a single saved
// connection, redialing when the saved socket is no longer reusable, with
// connection reuse detection and phase timing the way a benchmark client
// needs.
package h1

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Timings records the phase timers named by the spec.
type Timings struct {
	SendHdrTime time.Duration
	SendAllTime time.Duration
	RecvHdrTime time.Duration
	TotalTime   time.Duration
}

// Dialer creates a fresh connection for this task's target.
type Dialer func(ctx context.Context) (net.Conn, error)

// Config parameterizes a Task.
type Config struct {
	ConnectTimeout time.Duration
	KeepAlive      bool // client policy; actual reuse also needs server agreement
}

// Result is what one Do call reports back.
type Result struct {
	Response       *http.Response
	Timings        Timings
	ReuseConnCount int
	Reused         bool
}

// Task owns at most one saved connection and replays requests over it,
// redialing whenever FetchConnection finds the saved socket no longer
// reusable.
type Task interface {
	// Do sends req and returns the response plus phase timings. req must
	// not set req.Body to something requiring more than one read if the
	// task may retry internally (it does not retry automatically; callers
	// decide whether to call Do again after a redial-forcing error).
	Do(ctx context.Context, req *http.Request) (*Result, error)

	// Close closes the saved connection, if any.
	Close() error
}

// New creates a Task that dials through d as needed.
func New(d Dialer, cfg Config) Task {
	return &task{dialer: d, cfg: cfg}
}
