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

package proxyproto

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"strings"
)

var v2Signature = [12]byte{0x0D, 0x0A, 0x0D, 0x0A, 0x00, 0x0D, 0x0A, 0x51, 0x55, 0x49, 0x54, 0x0A}

func readHeader(r *bufio.Reader) (Header, error) {
	peek, err := r.Peek(len(v2Signature))
	if err == nil && string(peek) == string(v2Signature[:]) {
		return readHeaderV2(r)
	}
	return readHeaderV1(r)
}

func readHeaderV1(r *bufio.Reader) (Header, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return Header{}, ErrorMalformedHeader
	}
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "PROXY" {
		return Header{}, ErrorMalformedHeader
	}

	if fields[1] == "UNKNOWN" {
		return Header{Version: V1}, nil
	}
	if fields[1] != "TCP4" && fields[1] != "TCP6" {
		return Header{}, ErrorUnsupportedFamily
	}
	if len(fields) != 6 {
		return Header{}, ErrorMalformedHeader
	}

	srcIP := net.ParseIP(fields[2])
	dstIP := net.ParseIP(fields[3])
	srcPort, err1 := strconv.Atoi(fields[4])
	dstPort, err2 := strconv.Atoi(fields[5])
	if srcIP == nil || dstIP == nil || err1 != nil || err2 != nil {
		return Header{}, ErrorMalformedHeader
	}

	return Header{
		Version:    V1,
		SourceAddr: &net.TCPAddr{IP: srcIP, Port: srcPort},
		DestAddr:   &net.TCPAddr{IP: dstIP, Port: dstPort},
	}, nil
}

func readHeaderV2(r *bufio.Reader) (Header, error) {
	buf := make([]byte, 16)
	if _, err := readFull(r, buf); err != nil {
		return Header{}, ErrorMalformedHeader
	}

	verCmd := buf[12]
	if verCmd>>4 != 2 {
		return Header{}, ErrorUnsupportedVersion
	}
	cmd := verCmd & 0x0F

	famProto := buf[13]
	family := famProto >> 4
	addrLen := binary.BigEndian.Uint16(buf[14:16])

	addrBuf := make([]byte, addrLen)
	if _, err := readFull(r, addrBuf); err != nil {
		return Header{}, ErrorMalformedHeader
	}

	if cmd == 0x00 { // LOCAL: health-check connection, no real addresses
		return Header{Version: V2, Local: true}, nil
	}

	switch family {
	case 0x1: // AF_INET
		if len(addrBuf) < 12 {
			return Header{}, ErrorMalformedHeader
		}
		src := net.IP(addrBuf[0:4])
		dst := net.IP(addrBuf[4:8])
		srcPort := binary.BigEndian.Uint16(addrBuf[8:10])
		dstPort := binary.BigEndian.Uint16(addrBuf[10:12])
		return Header{
			Version:    V2,
			SourceAddr: &net.TCPAddr{IP: src, Port: int(srcPort)},
			DestAddr:   &net.TCPAddr{IP: dst, Port: int(dstPort)},
		}, nil
	case 0x2: // AF_INET6
		if len(addrBuf) < 36 {
			return Header{}, ErrorMalformedHeader
		}
		src := net.IP(addrBuf[0:16])
		dst := net.IP(addrBuf[16:32])
		srcPort := binary.BigEndian.Uint16(addrBuf[32:34])
		dstPort := binary.BigEndian.Uint16(addrBuf[34:36])
		return Header{
			Version:    V2,
			SourceAddr: &net.TCPAddr{IP: src, Port: int(srcPort)},
			DestAddr:   &net.TCPAddr{IP: dst, Port: int(dstPort)},
		}, nil
	default:
		return Header{Version: V2}, nil
	}
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func writeHeaderV1(w interface{ Write([]byte) (int, error) }, src, dst *net.TCPAddr) error {
	family := "TCP4"
	if src.IP.To4() == nil {
		family = "TCP6"
	}
	line := fmt.Sprintf("PROXY %s %s %s %d %d\r\n", family, src.IP.String(), dst.IP.String(), src.Port, dst.Port)
	_, err := w.Write([]byte(line))
	if err != nil {
		return ErrorWriteFailed
	}
	return nil
}

func writeHeaderV2(w interface{ Write([]byte) (int, error) }, src, dst *net.TCPAddr) error {
	var buf []byte
	buf = append(buf, v2Signature[:]...)
	buf = append(buf, 0x21) // version 2, command PROXY

	v4 := src.IP.To4() != nil
	var addr []byte
	if v4 {
		buf = append(buf, 0x11) // AF_INET, STREAM
		addr = make([]byte, 12)
		copy(addr[0:4], src.IP.To4())
		copy(addr[4:8], dst.IP.To4())
		binary.BigEndian.PutUint16(addr[8:10], uint16(src.Port))
		binary.BigEndian.PutUint16(addr[10:12], uint16(dst.Port))
	} else {
		buf = append(buf, 0x21) // AF_INET6, STREAM
		addr = make([]byte, 36)
		copy(addr[0:16], src.IP.To16())
		copy(addr[16:32], dst.IP.To16())
		binary.BigEndian.PutUint16(addr[32:34], uint16(src.Port))
		binary.BigEndian.PutUint16(addr[34:36], uint16(dst.Port))
	}

	lenBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBuf, uint16(len(addr)))
	buf = append(buf, lenBuf...)
	buf = append(buf, addr...)

	_, err := w.Write(buf)
	if err != nil {
		return ErrorWriteFailed
	}
	return nil
}
