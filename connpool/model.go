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

package connpool

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/semaphore"
)

type connEntry struct {
	conn Conn
	quit chan struct{}
}

type pool struct {
	dialer Dialer
	cfg    Config

	mu    sync.Mutex
	peers []string
	conns map[Conn]struct{}
	gen   chan struct{} // current generation's quit-notifier

	updateCh  chan []string
	newConnCh chan Conn
	closedCh  chan Conn

	quit   chan struct{}
	done   chan struct{}
	closed bool
}

func (p *pool) Alive() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

func (p *pool) Get(ctx context.Context) (Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	for c := range p.conns {
		p.mu.Unlock()
		return c, nil
	}
	wait := p.cfg.WaitForConnection
	p.mu.Unlock()

	if !wait {
		return nil, ErrNoAvailableConnection
	}

	for {
		select {
		case c := <-p.newConnCh:
			return c, nil
		case <-p.quit:
			return nil, ErrPoolClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (p *pool) UpdatePeers(peers []string) {
	p.mu.Lock()
	p.peers = append([]string(nil), peers...)
	oldGen := p.gen
	p.gen = make(chan struct{})
	p.mu.Unlock()

	if oldGen != nil {
		wait := p.cfg.GracefulCloseWait
		go func() {
			if wait > 0 {
				time.Sleep(wait)
			}
			close(oldGen)
		}()
	}
}

func (p *pool) CloseGraceful(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.quit)
	<-p.done

	p.mu.Lock()
	live := make([]Conn, 0, len(p.conns))
	for c := range p.conns {
		live = append(live, c)
	}
	p.mu.Unlock()

	if p.cfg.GracefulCloseWait > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(p.cfg.GracefulCloseWait):
		}
	}

	p.mu.Lock()
	for _, c := range live {
		_ = c.Close()
		delete(p.conns, c)
	}
	p.mu.Unlock()

	return ctx.Err()
}

func (p *pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.quit)
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	for c := range p.conns {
		_ = c.Close()
	}
	return nil
}

// run is the pool's single background loop: it replenishes at start and on
// every tick and removes connections reported on closedCh. p.conns is
// guarded by p.mu and is also written by the dial goroutines,
// watchGeneration, Close and CloseGraceful.
func (p *pool) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.cfg.CheckInterval)
	defer ticker.Stop()

	p.replenish(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case <-ticker.C:
			p.replenish(ctx)
		case c := <-p.closedCh:
			p.mu.Lock()
			delete(p.conns, c)
			p.mu.Unlock()
		}
	}
}

func (p *pool) replenish(ctx context.Context) {
	p.mu.Lock()
	alive := len(p.conns)
	peers := p.peers
	gen := p.gen
	p.mu.Unlock()

	needed := p.cfg.Target - alive
	if needed <= 0 || len(peers) == 0 {
		return
	}

	sem := semaphore.NewWeighted(int64(p.cfg.ConnectConcurrency))
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs *multierror.Error
	)

	for i := 0; i < needed; i++ {
		peer := peers[i%len(peers)]

		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(peer string) {
			defer wg.Done()
			defer sem.Release(1)

			c, err := p.dialer(ctx, peer)
			if err != nil {
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
				return
			}

			p.mu.Lock()
			if p.closed {
				p.mu.Unlock()
				_ = c.Close()
				return
			}
			p.conns[c] = struct{}{}
			p.mu.Unlock()

			select {
			case p.newConnCh <- c:
			default:
			}

			go p.watchGeneration(c, gen)
		}(peer)
	}

	wg.Wait()
	_ = errs.ErrorOrNil() // connect failures are collected in errs and then discarded; nothing reports them
}

// watchGeneration closes conn once its generation's quit-notifier fires,
// i.e. once GracefulCloseWait has elapsed since the peer set that produced
// it was superseded by UpdatePeers.
func (p *pool) watchGeneration(conn Conn, gen chan struct{}) {
	<-gen
	_ = conn.Close()

	p.mu.Lock()
	delete(p.conns, conn)
	p.mu.Unlock()

	select {
	case p.closedCh <- conn:
	default:
	}
}
