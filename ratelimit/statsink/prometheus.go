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

// Package statsink provides a ratelimit.StatsSink backed by Prometheus
// counters, for processes that already expose a /metrics endpoint via
// github.com/prometheus/client_golang.
package statsink

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bytedance/g3-sub007/ratelimit"
)

// Prometheus is a ratelimit.StatsSink that records byte/packet counts as
// Prometheus counters labeled by direction and a caller-supplied name
// (typically the listener or backend name).
type Prometheus struct {
	name  string
	bytes *prometheus.CounterVec
	pkts  *prometheus.CounterVec
}

// NewPrometheus registers two CounterVecs (bytes, packets) labeled by
// {stream, direction} on reg, and returns a sink for the given stream name.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewPrometheus(reg prometheus.Registerer, name string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	bytes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_stream_bytes_total",
		Help: "Bytes observed by a rate-limited stream, by direction.",
	}, []string{"stream", "direction"})

	pkts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_stream_packets_total",
		Help: "Read/write operations observed by a rate-limited stream, by direction.",
	}, []string{"stream", "direction"})

	// Registration can fail with AlreadyRegisteredError when multiple
	// streams share a registry; reuse the already-registered collector.
	if err := reg.Register(bytes); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			bytes = are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	if err := reg.Register(pkts); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			pkts = are.ExistingCollector.(*prometheus.CounterVec)
		}
	}

	return &Prometheus{name: name, bytes: bytes, pkts: pkts}
}

func (p *Prometheus) Add(dir ratelimit.Direction, bytes uint64, packets uint64) {
	label := "north"
	if dir == ratelimit.South {
		label = "south"
	}
	p.bytes.WithLabelValues(p.name, label).Add(float64(bytes))
	p.pkts.WithLabelValues(p.name, label).Add(float64(packets))
}
