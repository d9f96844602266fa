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

package ldapauth

import (
	"context"
	"errors"
	"strings"
	"sync"

	goldap "github.com/go-ldap/ldap/v3"

	"github.com/bytedance/g3-sub007/cache"
	liblap "github.com/bytedance/g3-sub007/ldap"
)

type authenticator struct {
	helper *liblap.HelperLDAP
	cfg    Config

	mu        sync.Mutex
	connected bool

	attrCache cache.Cache[string, map[string]string]
}

func (a *authenticator) Authenticate(ctx context.Context, username, password string) (Outcome, error) {
	out, err := a.attempt(username, password)
	if err == nil || !isReconnectable(err) {
		return out, err
	}

	a.mu.Lock()
	a.connected = false
	a.mu.Unlock()

	out, err = a.attempt(username, password)
	out.Retried = true
	return out, err
}

func (a *authenticator) attempt(username, password string) (Outcome, error) {
	a.mu.Lock()
	if !a.connected {
		if cerr := a.helper.Connect(); cerr != nil {
			a.mu.Unlock()
			return Outcome{}, cerr
		}
		a.connected = true
	}
	a.mu.Unlock()

	if aerr := a.helper.AuthUser(username, password); aerr != nil {
		return Outcome{}, aerr
	}

	if a.attrCache != nil {
		if attrs, _, ok := a.attrCache.Load(username); ok {
			return Outcome{Authenticated: true, Attributes: attrs}, nil
		}
	}

	attrs, aerr := a.helper.UserInfo(username)
	if aerr != nil {
		return Outcome{Authenticated: true}, nil
	}
	if a.attrCache != nil {
		a.attrCache.Store(username, attrs)
	}
	return Outcome{Authenticated: true, Attributes: attrs}, nil
}

func (a *authenticator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.helper.Close()
	a.connected = false
}

// isReconnectable reports whether err indicates the server unilaterally
// dropped the connection (Notice of Disconnection) or tagged its response
// with a retryable LDAP result code.
func isReconnectable(err error) bool {
	if strings.Contains(err.Error(), NoticeOfDisconnectionOID) {
		return true
	}

	var le *goldap.Error
	if errors.As(err, &le) {
		switch le.ResultCode {
		case goldap.LDAPResultBusy,
			goldap.LDAPResultUnavailable,
			goldap.LDAPResultServerDown,
			goldap.LDAPResultUnwillingToPerform:
			return true
		}
	}
	return false
}
