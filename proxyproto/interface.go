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

// Package proxyproto implements the HAProxy PROXY protocol, versions 1
// (human-readable) and 2 (binary), used to carry the real client address
// across a TCP hop that would otherwise hide it (load balancer to proxy,
// proxy to upstream). Built on the standard library only: the wire format
// is a short fixed-and-delimited header over a raw byte stream, with no
// framing, compression, or schema-evolution concern that a third-party
// codec from the rest of the dependency set would meaningfully help with.
package proxyproto

import (
	"bufio"
	"net"
)

// Version identifies which PROXY protocol wire format was (or should be)
// used.
type Version int

const (
	V1 Version = iota + 1
	V2
)

// Header is the parsed result of a PROXY protocol preamble.
type Header struct {
	Version    Version
	Local      bool // v2 LOCAL command: no real addresses follow
	SourceAddr net.Addr
	DestAddr   net.Addr
}

// ReadHeader reads and parses a PROXY protocol header from r. It peeks
// the protocol signature before consuming anything else, so a caller
// that intends to conditionally wrap the same connection with or without
// a header can pass a *bufio.Reader already positioned at the start of
// the stream.
func ReadHeader(r *bufio.Reader) (Header, error) {
	return readHeader(r)
}

// WriteHeaderV1 writes a version 1 PROXY protocol header for TCP4/TCP6
// src/dst addresses.
func WriteHeaderV1(w interface{ Write([]byte) (int, error) }, src, dst *net.TCPAddr) error {
	return writeHeaderV1(w, src, dst)
}

// WriteHeaderV2 writes a version 2 binary PROXY protocol header.
func WriteHeaderV2(w interface{ Write([]byte) (int, error) }, src, dst *net.TCPAddr) error {
	return writeHeaderV2(w, src, dst)
}
