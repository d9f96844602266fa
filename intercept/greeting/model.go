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

package greeting

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"
)

type relay struct {
	proto Protocol
	cfg   Config
}

type lineResult struct {
	line string
	err  error
}

func readLine(r *bufio.Reader) <-chan lineResult {
	ch := make(chan lineResult, 1)
	go func() {
		line, err := r.ReadString('\n')
		ch <- lineResult{line, err}
	}()
	return ch
}

func (g *relay) Run(localIP net.IP, ups *bufio.Reader, clt *bufio.Writer) (Outcome, error) {
	deadline := time.After(g.cfg.Timeout)
	out := Outcome{}
	var host string

	for {
		var lr lineResult
		select {
		case lr = <-readLine(ups):
		case <-deadline:
			g.replyNotReady(out, clt, localIP, "read timeout")
			return out, ErrorTimeout
		}

		if lr.err != nil {
			g.replyNotReady(out, clt, localIP, "connection closed")
			return out, ErrorUpstreamClosed
		}

		code, ok := parseReplyCode(lr.line)
		if !ok {
			g.replyNotReady(out, clt, localIP, "invalid response")
			return out, ErrorInvalidResponseLine
		}

		line := lr.line
		if host == "" && isServiceReady(g.proto, code) {
			if g.proto == SMTP {
				host = extractHost(lr.line)
			}
			if host != "" {
				out.Host = host
			}
			line = rewriteCapabilityLine(g.proto, lr.line, g.cfg.AllowedCapabilities)
		}

		n, err := clt.WriteString(line)
		if err != nil {
			return out, ErrorClientWriteFailed
		}
		out.BytesWritten += n
		if err := clt.Flush(); err != nil {
			return out, ErrorClientWriteFailed
		}

		switch {
		case isServiceReady(g.proto, code):
			if isFinalLine(line) {
				return out, nil
			}
		case isNegative(g.proto, code):
			out.Close = true
			if isFinalLine(line) {
				return out, nil
			}
		default:
			return out, ErrorUnexpectedReplyCode
		}
	}
}

func (g *relay) replyNotReady(out Outcome, clt *bufio.Writer, localIP net.IP, reason string) {
	if out.BytesWritten > 0 {
		return
	}
	var msg string
	switch g.proto {
	case SMTP:
		msg = fmt.Sprintf("421 %s Service not available, %s\r\n", localIP, reason)
	case IMAP:
		msg = fmt.Sprintf("* BYE %s Service not available, %s\r\n", localIP, reason)
	}
	_, _ = clt.WriteString(msg)
	_ = clt.Flush()
}

func parseReplyCode(line string) (string, bool) {
	// IMAP untagged responses: "* OK ..." yields "* O", "* BYE ..." "* B".
	if strings.HasPrefix(line, "* ") && len(line) >= 3 {
		return line[:3], true
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false
	}
	code := fields[0]
	if len(code) < 3 {
		return "", false
	}
	return code[:3], true
}

func isServiceReady(p Protocol, code string) bool {
	switch p {
	case SMTP:
		return code == "220"
	case IMAP:
		return strings.HasPrefix(code, "* O") // "* OK ..."
	}
	return false
}

func isNegative(p Protocol, code string) bool {
	switch p {
	case SMTP:
		return code == "554" || code == "421"
	case IMAP:
		return strings.HasPrefix(code, "* B") // "* BYE ..."
	}
	return false
}

func isFinalLine(line string) bool {
	// Multi-line SMTP replies use "250-" continuation; a final line has a
	// space (or nothing) after the code instead of a hyphen.
	if len(line) < 4 {
		return true
	}
	return line[3] != '-'
}

func extractHost(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

func rewriteCapabilityLine(p Protocol, line string, allowed map[string]bool) string {
	if allowed == nil {
		return line
	}
	fields := strings.Fields(line)
	if len(fields) <= 2 {
		return line
	}
	kept := fields[:2]
	for _, tok := range fields[2:] {
		if allowed[strings.ToUpper(tok)] {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ") + "\r\n"
}
