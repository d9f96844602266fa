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

// Package intercept records how a session was handled by the three
// protocol-aware MITM flows provided by its subpackages (connect,
// tlsbridge, greeting): which flow ran and which terminal state the
// session ended in, for logging. It does not select or run the flows; the
// caller drives them and records each Decision here. The flows themselves
// carry no knowledge of one another.
package intercept

// Kind identifies which interception flow handled a session.
type Kind int

const (
	KindConnect Kind = iota
	KindTLS
	KindSMTPGreeting
	KindIMAPGreeting
)

func (k Kind) String() string {
	switch k {
	case KindConnect:
		return "connect"
	case KindTLS:
		return "tls"
	case KindSMTPGreeting:
		return "smtp-greeting"
	case KindIMAPGreeting:
		return "imap-greeting"
	}
	return "unknown"
}

// Decision is one flow's outcome as passed to Session.Record: what flow ran, whether the
// underlying connection should now be closed, and whether it was handed
// off to raw stream relay at some upstream address.
type Decision struct {
	Kind          Kind
	Close         bool
	RelayUpstream string
	Err           error
}

// Session accumulates the terminal Decision for one intercepted
// connection across its lifetime, so a single log line can report the
// full outcome regardless of which flow ran.
type Session struct {
	decisions []Decision
}

// NewSession creates an empty Session.
func NewSession() *Session {
	return &Session{}
}

// Record appends d to the session's history. A session can record more
// than one Decision when a flow (e.g. CONNECT) itself ends in a
// handoff to a second flow (e.g. tlsbridge on the tunneled stream).
func (s *Session) Record(d Decision) {
	s.decisions = append(s.decisions, d)
}

// Decisions returns every Decision recorded so far, oldest first.
func (s *Session) Decisions() []Decision {
	out := make([]Decision, len(s.decisions))
	copy(out, s.decisions)
	return out
}

// Final returns the last recorded Decision, or the zero Decision if
// none was recorded yet.
func (s *Session) Final() Decision {
	if len(s.decisions) == 0 {
		return Decision{}
	}
	return s.decisions[len(s.decisions)-1]
}

// ShouldClose reports whether the most recent Decision requires the
// underlying connection to be torn down.
func (s *Session) ShouldClose() bool {
	return s.Final().Close
}
