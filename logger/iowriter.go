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

package logger

import (
	"strings"

	loglvl "github.com/bytedance/g3-sub007/logger/level"
)

// Write lets a *logger stand in for any io.Writer consumer (the standard
// log package via SetStdLogger/GetStdLogger, an http.Server.ErrorLog, a TLS
// handshake tracer). Lines matching a registered filter pattern are dropped;
// everything else is logged at GetIOWriterLevel as a clean, message-only
// entry so it doesn't pick up caller/stack noise from inside this package.
func (o *logger) Write(p []byte) (n int, err error) {
	if o == nil {
		return len(p), nil
	}

	n = len(p)
	msg := strings.TrimRight(string(p), "\r\n")

	if msg == "" {
		return n, nil
	}

	for _, pat := range o.getIOWriterFilter() {
		if pat != "" && strings.Contains(msg, pat) {
			return n, nil
		}
	}

	o.newEntry(o.GetIOWriterLevel(), msg, nil, nil, nil).SetMessageOnly(true).Log()

	return n, nil
}

// Close releases any background sink (open log files) held by SetOptions.
func (o *logger) Close() error {
	if o == nil || o.c == nil {
		return nil
	}

	if i := o.c.Load(); i != nil {
		if v, k := i.(_Closer); k && v != nil {
			return v.Close()
		}
	}

	return nil
}

func (o *logger) SetIOWriterLevel(lvl loglvl.Level) {
	o.x.Store(keyIOWriterLevel, lvl)
}

func (o *logger) GetIOWriterLevel() loglvl.Level {
	if o == nil || o.x == nil {
		return loglvl.NilLevel
	} else if i, l := o.x.Load(keyIOWriterLevel); !l {
		return loglvl.NilLevel
	} else if v, k := i.(loglvl.Level); !k {
		return loglvl.NilLevel
	} else {
		return v
	}
}

func (o *logger) SetIOWriterFilter(pattern ...string) {
	o.x.Store(keyIOWriterFilter, append([]string{}, pattern...))
}

func (o *logger) AddIOWriterFilter(pattern ...string) {
	o.x.Store(keyIOWriterFilter, append(o.getIOWriterFilter(), pattern...))
}

func (o *logger) getIOWriterFilter() []string {
	if o == nil || o.x == nil {
		return nil
	} else if i, l := o.x.Load(keyIOWriterFilter); !l {
		return nil
	} else if v, k := i.([]string); !k {
		return nil
	} else {
		return v
	}
}
