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

package sessionticket

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"sync"
	"time"
)

// cbcContext is the pooled per-operation state of Seal: one AES block
// cipher slot, refilled with a newly built cipher on every Seal call.
type cbcContext struct {
	block cipher.Block
}

var cbcPool = sync.Pool{
	New: func() interface{} { return &cbcContext{} },
}

type keyring struct {
	mu      sync.RWMutex
	keys    map[[16]byte]TicketKey
	current [16]byte
	hasCur  bool
}

func (k *keyring) AddKey(key TicketKey) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[key.Name] = key
	k.current = key.Name
	k.hasCur = true
}

func (k *keyring) RemoveExpired(now time.Time) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for name, key := range k.keys {
		if !key.NotAfter.IsZero() && now.After(key.NotAfter) {
			delete(k.keys, name)
			if k.hasCur && name == k.current {
				k.hasCur = false
			}
		}
	}
}

func (k *keyring) Seal(plaintext []byte) ([]byte, error) {
	k.mu.RLock()
	if !k.hasCur {
		k.mu.RUnlock()
		return nil, ErrTicketInvalid
	}
	key := k.keys[k.current]
	k.mu.RUnlock()
	if !key.NotAfter.IsZero() && time.Now().After(key.NotAfter) {
		return nil, ErrTicketInvalid
	}

	ctx := cbcPool.Get().(*cbcContext)
	defer cbcPool.Put(ctx)

	block, err := aes.NewCipher(key.AESKey[:])
	if err != nil {
		return nil, ErrorCipherSetupFailed
	}
	ctx.block = block

	padded := pkcs7Pad(plaintext, ctx.block.BlockSize())

	iv := make([]byte, ctx.block.BlockSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, ErrorRandomSourceFailed
	}

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(ctx.block, iv).CryptBlocks(ciphertext, padded)

	mac := hmac.New(sha256.New, key.HMACKey[:])
	mac.Write(key.Name[:])
	mac.Write(iv)
	mac.Write(ciphertext)
	sum := mac.Sum(nil)

	out := make([]byte, 0, 16+len(iv)+len(ciphertext)+len(sum))
	out = append(out, key.Name[:]...)
	out = append(out, iv...)
	out = append(out, ciphertext...)
	out = append(out, sum...)
	return out, nil
}

func (k *keyring) Open(ticket []byte) ([]byte, error) {
	const minLen = 16 + aes.BlockSize + aes.BlockSize + sha256.Size
	if len(ticket) < minLen {
		return nil, ErrTicketInvalid
	}

	var name [16]byte
	copy(name[:], ticket[:16])

	k.mu.RLock()
	key, ok := k.keys[name]
	k.mu.RUnlock()
	if !ok {
		return nil, ErrTicketInvalid
	}
	if !key.NotAfter.IsZero() && time.Now().After(key.NotAfter) {
		return nil, ErrTicketInvalid
	}

	sumStart := len(ticket) - sha256.Size
	iv := ticket[16 : 16+aes.BlockSize]
	ciphertext := ticket[16+aes.BlockSize : sumStart]
	gotSum := ticket[sumStart:]

	mac := hmac.New(sha256.New, key.HMACKey[:])
	mac.Write(name[:])
	mac.Write(iv)
	mac.Write(ciphertext)
	wantSum := mac.Sum(nil)
	if subtle.ConstantTimeCompare(gotSum, wantSum) != 1 {
		return nil, ErrTicketInvalid
	}

	block, err := aes.NewCipher(key.AESKey[:])
	if err != nil || len(ciphertext)%block.BlockSize() != 0 || len(ciphertext) == 0 {
		return nil, ErrTicketInvalid
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return pkcs7Unpad(plaintext)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrTicketInvalid
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, ErrTicketInvalid
	}
	return data[:len(data)-padLen], nil
}
