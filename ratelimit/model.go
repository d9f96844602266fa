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

package ratelimit

import (
	"io"
	"sync"
	"sync/atomic"
	"time"
)

type window struct {
	mu      sync.Mutex
	started time.Time
	used    uint64
}

// consume blocks (cooperatively, via a timer) until n bytes can be
// accounted for in the current or a following window, then records them.
func (w *window) consume(shift ShiftMillis, cap_ uint64, n uint64) {
	if cap_ == 0 {
		return
	}

	size := shift.Window()

	for {
		w.mu.Lock()
		now := time.Now()
		if w.started.IsZero() || now.Sub(w.started) >= size {
			w.started = now
			w.used = 0
		}

		if w.used+n <= cap_ {
			w.used += n
			w.mu.Unlock()
			return
		}

		wait := size - now.Sub(w.started)
		w.mu.Unlock()

		if wait > 0 {
			timer := time.NewTimer(wait)
			<-timer.C
			timer.Stop()
		}
	}
}

type limitedStream struct {
	rw   io.ReadWriteCloser
	sink StatsSink

	mu  sync.RWMutex
	cfg Config

	north window
	south window

	readBytes    atomic.Uint64
	writeBytes   atomic.Uint64
	readPackets  atomic.Uint64
	writePackets atomic.Uint64
}

func (o *limitedStream) SetConfig(cfg Config) {
	o.mu.Lock()
	o.cfg = cfg
	o.mu.Unlock()
}

func (o *limitedStream) Config() Config {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cfg
}

func (o *limitedStream) Stats() Stats {
	return Stats{
		ReadBytes:    o.readBytes.Load(),
		WriteBytes:   o.writeBytes.Load(),
		ReadPackets:  o.readPackets.Load(),
		WritePackets: o.writePackets.Load(),
	}
}

func (o *limitedStream) Read(p []byte) (int, error) {
	cfg := o.Config()
	return o.transfer(p, South, cfg.Shift, cfg.MaxSouth, &o.south, o.rw.Read, &o.readBytes, &o.readPackets)
}

func (o *limitedStream) Write(p []byte) (int, error) {
	cfg := o.Config()
	return o.transfer(p, North, cfg.Shift, cfg.MaxNorth, &o.north, o.rw.Write, &o.writeBytes, &o.writePackets)
}

// transfer enforces the window cap by splitting p into cap-sized
// sub-consumptions: a single Read/Write larger than cap_ is performed as
// several underlying I/O calls, each preceded by a window.consume that may
// block until a following window has room, instead of letting one oversized
// call through uncapped.
func (o *limitedStream) transfer(
	p []byte,
	dir Direction,
	shift ShiftMillis,
	cap_ uint64,
	w *window,
	io_ func([]byte) (int, error),
	byteCounter, pktCounter *atomic.Uint64,
) (int, error) {
	chunk := len(p)
	if cap_ > 0 && uint64(chunk) > cap_ {
		chunk = int(cap_)
	}

	var total int
	for total < len(p) {
		end := total + chunk
		if end > len(p) {
			end = len(p)
		}
		want := end - total

		w.consume(shift, cap_, uint64(want))

		n, err := io_(p[total:end])
		if n > 0 {
			byteCounter.Add(uint64(n))
			pktCounter.Add(1)
			o.sink.Add(dir, uint64(n), 1)
			total += n
		}
		if err != nil {
			return total, err
		}
		if n < want {
			// short read/write: stop here rather than assume the rest of
			// this chunk is still available without blocking.
			return total, nil
		}
	}
	return total, nil
}

func (o *limitedStream) Close() error {
	return o.rw.Close()
}
