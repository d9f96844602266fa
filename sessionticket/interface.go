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

// Package sessionticket implements TLS session ticket sealing with
// AES-256-CBC plus HMAC-SHA256 (encrypt-then-MAC), keyed by a rotating
// set of named keys. Built on crypto/aes, crypto/cipher and crypto/hmac
// from the standard library: this is exactly the primitive-composition
// case crypto/tls.Config.SetSessionTicketKeys itself expects callers to
// implement, and none of the pack's third-party libraries (CBOR, msgpack,
// LDAP, HTTP clients) has any bearing on raw AEAD-style ticket sealing.
//
// Each Keyring keeps its active keys in its own map guarded by a
// sync.RWMutex for the rotate-while-reading case. Seal takes a context
// from a sync.Pool but builds a fresh AES block cipher into it on every
// call; Open builds its own block cipher and does not use the pool.
package sessionticket

import (
	"errors"
	"time"
)

// KeySize is the AES-256 key length; TicketKey concatenates one AES key
// and one HMAC key of this size.
const KeySize = 32

// ErrTicketInvalid is returned when a ticket fails integrity
// verification or was sealed under an unknown key name.
var ErrTicketInvalid = errors.New("session ticket invalid or unrecognized")

// TicketKey is one named key pair used to seal/open tickets.
type TicketKey struct {
	Name      [16]byte
	AESKey    [KeySize]byte
	HMACKey   [KeySize]byte
	NotBefore time.Time
	NotAfter  time.Time
}

// Keyring manages the active set of TicketKeys and performs sealing and
// opening. Exactly one key, the most recently added, is used for sealing,
// and only while it has not expired; Seal does not fall back to an older
// key. Any non-expired known key is accepted for opening,
// which is what allows a graceful key rotation window.
type Keyring interface {
	// AddKey installs k as the current sealing key.
	AddKey(k TicketKey)

	// RemoveExpired drops every key whose NotAfter has passed.
	RemoveExpired(now time.Time)

	// Seal encrypts and authenticates plaintext under the current
	// sealing key, returning name||iv||ciphertext||hmac.
	Seal(plaintext []byte) ([]byte, error)

	// Open verifies and decrypts a ticket produced by Seal. It returns
	// ErrTicketInvalid if the key name is unknown, the key has expired,
	// or the HMAC does not verify.
	Open(ticket []byte) ([]byte, error)
}

// NewKeyring creates an empty Keyring.
func NewKeyring() Keyring {
	return &keyring{keys: make(map[[16]byte]TicketKey)}
}
