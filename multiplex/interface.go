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

// Package multiplex implements a request/response transport over a single
// stream connection, correlating concurrent requests by a wraparound-safe
// uint32 id. One writer goroutine owns the write half, and one reader
// goroutine demultiplexes responses back to their pending request by id
// instead of by named sub-stream.
package multiplex

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrConnectionClosed is delivered to every pending request's channel when
// the underlying connection fails; it is also returned by Send once the
// transport has shut down.
var ErrConnectionClosed = errors.New("multiplex: connection closed")

// ErrTimedOut is delivered when a request's deadline elapses before a
// response is demultiplexed.
var ErrTimedOut = errors.New("multiplex: request timed out")

// State is the per-request lifecycle state.
type State uint8

const (
	Queued State = iota
	Writing
	WaitingResponse
	Completed
	Errored
	TimedOut
	Cancelled
)

func (s State) String() string {
	switch s {
	case Queued:
		return "Queued"
	case Writing:
		return "Writing"
	case WaitingResponse:
		return "WaitingResponse"
	case Completed:
		return "Completed"
	case Errored:
		return "Errored"
	case TimedOut:
		return "TimedOut"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Frame is one wire message: an id-correlated envelope around an opaque
// payload. The payload codec (keyless-RPC body, MessagePack, etc.) is the
// caller's concern; multiplex only owns id assignment and demultiplexing.
type Frame struct {
	ID      uint32
	Payload []byte
}

// Codec encodes/decodes Frames on a stream. Implementations are not
// required to be safe for concurrent Encode calls from multiple goroutines;
// the transport's single writer goroutine is the only Encode caller.
type Codec interface {
	Encode(w io.Writer, f Frame) error
	Decode(r io.Reader) (Frame, error)
}

// Config parameterizes a Transport.
type Config struct {
	// SendQueue bounds the buffered channel submitted requests flow
	// through before the writer goroutine picks them up.
	SendQueue int

	// CloseOnUnknownID closes the connection when a response with no
	// matching pending request arrives, instead of counting and
	// continuing (the default).
	CloseOnUnknownID bool
}

// DefaultConfig matches the teacher-grounded default (§9 open question c):
// unknown response ids are counted, the connection stays open.
func DefaultConfig() Config {
	return Config{SendQueue: 1024, CloseOnUnknownID: false}
}

// Transport multiplexes request/response pairs over one underlying stream.
type Transport interface {
	io.Closer

	// Send submits a payload and blocks until a matching response frame
	// arrives, ctx is cancelled, or the connection closes.
	Send(ctx context.Context, payload []byte) ([]byte, error)

	// UnknownResponses returns the count of response frames whose id
	// matched no pending request (relevant when CloseOnUnknownID is false).
	UnknownResponses() uint64
}

// New starts a Transport over rw using codec, with a writer goroutine and a
// reader goroutine both bound to ctx's lifetime (closing ctx tears down the
// transport the same as an I/O error would).
func New(ctx context.Context, rw io.ReadWriteCloser, codec Codec, cfg Config) Transport {
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = 1024
	}

	t := &transport{
		rw:      rw,
		codec:   codec,
		cfg:     cfg,
		sendCh:  make(chan *pendingRequest, cfg.SendQueue),
		closeCh: make(chan struct{}),
		demux:   make(map[uint32]*pendingRequest),
	}

	go t.writerLoop(ctx)
	go t.readerLoop(ctx)

	return t
}

type pendingRequest struct {
	id       uint32
	payload  []byte
	respCh   chan response
	deadline time.Time
}

type response struct {
	payload []byte
	err     error
}
