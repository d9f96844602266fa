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

// Package ratelimit wraps any net.Conn-shaped reader/writer with byte/packet
// counters and a windowed rate cap, the way ioutils/iowrapper wraps a stream
// with swappable read/write hooks but specialized to accounting instead of
// behavior substitution. NewFromAny uses iowrapper itself to adapt objects
// that only partially implement io.Reader/io.Writer/io.Closer up to the
// io.ReadWriteCloser shape this package's core New requires.
package ratelimit

import (
	"io"
	"time"

	"github.com/bytedance/g3-sub007/ioutils/iowrapper"
)

// ShiftMillis is the window-size exponent: window = 1 << ShiftMillis milliseconds.
// Valid range is [0, 12] (1ms .. 4096ms).
type ShiftMillis uint8

const (
	MinShiftMillis ShiftMillis = 0
	MaxShiftMillis ShiftMillis = 12
)

// Window returns the window duration for this shift.
func (s ShiftMillis) Window() time.Duration {
	if s > MaxShiftMillis {
		s = MaxShiftMillis
	}
	return time.Duration(uint64(1)<<uint(s)) * time.Millisecond
}

// Direction distinguishes the two independently-capped flows.
type Direction uint8

const (
	North Direction = iota // upload / write
	South                  // download / read
)

// Stats is a snapshot of the counters accrued by a LimitedStream.
type Stats struct {
	ReadBytes     uint64
	WriteBytes    uint64
	ReadPackets   uint64
	WritePackets  uint64
}

// StatsSink receives counter deltas as they accrue. Implementations must be
// safe for concurrent use; Add is called from whichever goroutine is doing
// the actual Read/Write.
type StatsSink interface {
	Add(dir Direction, bytes uint64, packets uint64)
}

// NopStatsSink discards everything; the default when no sink is injected.
type NopStatsSink struct{}

func (NopStatsSink) Add(Direction, uint64, uint64) {}

// Config parameterizes a LimitedStream's rate cap. A zero MaxNorth/MaxSouth
// means "unlimited" for that direction.
type Config struct {
	Shift    ShiftMillis
	MaxNorth uint64
	MaxSouth uint64
}

// ShrinkAsSmaller combines two configs (e.g. a server-wide cap and a
// per-host cap) by normalizing to the coarser (larger) shift and taking the
// smaller non-zero cap per field. A zero cap on either side means
// "unlimited" and loses to any non-zero cap on the other side.
// ShrinkAsSmaller(a, a) == a.
func ShrinkAsSmaller(a, b Config) Config {
	shift := a.Shift
	if b.Shift > shift {
		shift = b.Shift
	}

	rescale := func(cap_ uint64, from, to ShiftMillis) uint64 {
		if cap_ == 0 || from == to {
			return cap_
		}
		// widening the window by (to-from) bits scales the cap by the same factor
		return cap_ << uint(to-from)
	}

	an := rescale(a.MaxNorth, a.Shift, shift)
	bn := rescale(b.MaxNorth, b.Shift, shift)
	as := rescale(a.MaxSouth, a.Shift, shift)
	bs := rescale(b.MaxSouth, b.Shift, shift)

	return Config{
		Shift:    shift,
		MaxNorth: smallerNonZero(an, bn),
		MaxSouth: smallerNonZero(as, bs),
	}
}

func smallerNonZero(a, b uint64) uint64 {
	if a == 0 {
		return b
	}
	if b == 0 {
		return a
	}
	if a < b {
		return a
	}
	return b
}

// LimitedStream wraps an io.ReadWriteCloser with windowed rate limiting and
// byte/packet accounting. It is safe for one reader and one writer goroutine
// to use it concurrently (the north and south paths never share state).
type LimitedStream interface {
	io.Reader
	io.Writer
	io.Closer

	// SetConfig atomically replaces the rate-limit configuration. Takes
	// effect on the next Read or Write call; bytes already counted in the
	// current window still count against the new cap.
	SetConfig(cfg Config)
	Config() Config

	// Stats returns a snapshot of the accrued counters.
	Stats() Stats
}

// New wraps rw with rate limiting governed by cfg, reporting counter deltas
// to sink (NopStatsSink if nil).
func New(rw io.ReadWriteCloser, cfg Config, sink StatsSink) LimitedStream {
	if sink == nil {
		sink = NopStatsSink{}
	}
	return &limitedStream{
		rw:   rw,
		sink: sink,
		cfg:  cfg,
	}
}

// NewFromAny wraps in with rate limiting the same way New does, but accepts
// any object that implements some subset of io.Reader/io.Writer/io.Closer
// (e.g. a bare io.ReadCloser, or a type that only reads) by first adapting
// it to io.ReadWriteCloser through iowrapper.New. A Read or Write the
// underlying object doesn't support returns io.ErrUnexpectedEOF; Close on an
// object that is not an io.Closer returns nil.
func NewFromAny(in any, cfg Config, sink StatsSink) LimitedStream {
	return New(iowrapper.New(in), cfg, sink)
}
