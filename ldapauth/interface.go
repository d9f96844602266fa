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

// Package ldapauth layers simple-bind authentication with message-id
// correlation and reconnect-on-retry semantics over the teacher's
// github.com/bytedance/g3-sub007/ldap helper (itself built on
// github.com/go-ldap/ldap/v3). A bind response carrying the Notice of
// Disconnection OID (1.3.6.1.4.1.1466.20036) or any response tagged with
// the LDAP "retry" result code triggers exactly one reconnect-and-retry
// on the next authentication attempt; a second consecutive failure is
// reported to the caller without a further retry.
//
// Successful attribute lookups are fronted by the teacher's generic
// github.com/bytedance/g3-sub007/cache (a plain TTL map, no single-flight
// coalescing) so a burst of re-authentications for the same principal
// within AttributeCacheTTL does not re-run the LDAP search every time.
package ldapauth

import (
	"context"
	"time"

	"github.com/bytedance/g3-sub007/cache"
	liblap "github.com/bytedance/g3-sub007/ldap"
)

// NoticeOfDisconnectionOID is the LDAPv3 extended response OID a server
// sends to unilaterally tear down a connection.
const NoticeOfDisconnectionOID = "1.3.6.1.4.1.1466.20036"

// Outcome is the result of one authentication attempt.
type Outcome struct {
	Authenticated bool
	Retried       bool
	Attributes    map[string]string
}

// Config parameterizes an Authenticator.
type Config struct {
	// BindTimeout bounds one bind+search attempt.
	BindTimeout time.Duration

	// Attributes are fetched alongside a successful authentication.
	Attributes []string

	// AttributeCacheTTL caches a successful UserInfo lookup per username
	// for this long. Zero disables caching (every authentication performs
	// a fresh search).
	AttributeCacheTTL time.Duration
}

// Authenticator performs simple-bind authentication against an LDAP
// directory, reconnecting once when the connection was dropped by the
// server (Notice of Disconnection) or when the retry bit is set on a
// response.
type Authenticator interface {
	// Authenticate verifies username/password. On a connection-dropped
	// condition it transparently reconnects and retries exactly once;
	// Outcome.Retried reports whether that happened.
	Authenticate(ctx context.Context, username, password string) (Outcome, error)

	// Close releases the underlying LDAP connection.
	Close()
}

// New creates an Authenticator backed by an existing helper. The helper
// is expected to already carry its server/TLS configuration (see
// github.com/bytedance/g3-sub007/ldap.NewLDAP); ldapauth only drives the
// connect/bind/retry state machine on top of it.
func New(ctx context.Context, helper *liblap.HelperLDAP, cfg Config) Authenticator {
	if cfg.BindTimeout <= 0 {
		cfg.BindTimeout = 5 * time.Second
	}
	a := &authenticator{helper: helper, cfg: cfg}
	if cfg.AttributeCacheTTL > 0 {
		a.attrCache = cache.New[string, map[string]string](ctx, cfg.AttributeCacheTTL)
	}
	return a
}
