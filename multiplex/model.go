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

package multiplex

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type transport struct {
	rw    interface {
		Read([]byte) (int, error)
		Write([]byte) (int, error)
		Close() error
	}
	codec Codec
	cfg   Config

	sendCh  chan *pendingRequest
	closeCh chan struct{}
	closed  atomic.Bool

	nextID uint32

	mu    sync.Mutex
	demux map[uint32]*pendingRequest

	unknown atomic.Uint64
}

func (t *transport) Send(ctx context.Context, payload []byte) ([]byte, error) {
	if t.closed.Load() {
		return nil, ErrConnectionClosed
	}

	req := &pendingRequest{
		payload: payload,
		respCh:  make(chan response, 1),
	}
	if dl, ok := ctx.Deadline(); ok {
		req.deadline = dl
	}

	select {
	case t.sendCh <- req:
	case <-t.closeCh:
		return nil, ErrConnectionClosed
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimedOut
		}
		return nil, ctx.Err()
	}

	select {
	case r := <-req.respCh:
		return r.payload, r.err
	case <-t.closeCh:
		return nil, ErrConnectionClosed
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimedOut
		}
		return nil, ctx.Err()
	}
}

func (t *transport) UnknownResponses() uint64 {
	return t.unknown.Load()
}

func (t *transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(t.closeCh)
	return t.rw.Close()
}

// assignID picks the next wraparound-safe id, skipping any still live in
// the demux table.
func (t *transport) assignID() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	for {
		t.nextID++
		if t.nextID == 0 {
			continue
		}
		if _, taken := t.demux[t.nextID]; !taken {
			return t.nextID
		}
	}
}

// writerLoop is the literal state machine owning the write half: it is the
// only goroutine that ever calls codec.Encode on this connection.
func (t *transport) writerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			t.drain(ErrConnectionClosed)
			_ = t.Close()
			return
		case <-t.closeCh:
			return
		case req := <-t.sendCh:
			id := t.assignID()
			req.id = id

			t.mu.Lock()
			t.demux[id] = req
			t.mu.Unlock()

			if err := t.codec.Encode(t.rw, Frame{ID: id, Payload: req.payload}); err != nil {
				t.mu.Lock()
				delete(t.demux, id)
				t.mu.Unlock()
				t.drain(ErrConnectionClosed)
				_ = t.Close()
				return
			}
		}
	}
}

// readerLoop is the only goroutine that ever calls codec.Decode.
func (t *transport) readerLoop(ctx context.Context) {
	for {
		f, err := t.codec.Decode(t.rw)
		if err != nil {
			t.drain(ErrConnectionClosed)
			_ = t.Close()
			return
		}

		t.mu.Lock()
		req, ok := t.demux[f.ID]
		if ok {
			delete(t.demux, f.ID)
		}
		t.mu.Unlock()

		if !ok {
			t.unknown.Add(1)
			if t.cfg.CloseOnUnknownID {
				t.drain(ErrConnectionClosed)
				_ = t.Close()
				return
			}
			continue
		}

		if !req.deadline.IsZero() && time.Now().After(req.deadline) {
			req.respCh <- response{err: ErrTimedOut}
			continue
		}

		req.respCh <- response{payload: f.Payload}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// drain delivers err to every still-pending request; this is the clean
// drain mandated when any write or read error is terminal.
func (t *transport) drain(err error) {
	t.mu.Lock()
	pending := t.demux
	t.demux = make(map[uint32]*pendingRequest)
	t.mu.Unlock()

	for _, req := range pending {
		select {
		case req.respCh <- response{err: err}:
		default:
		}
	}
}
