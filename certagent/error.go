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

package certagent

import "github.com/bytedance/g3-sub007/errors"

const (
	ErrorDialFailed errors.CodeError = iota + errors.MinPkgCertAgent
	ErrorEncodeFailed
	ErrorDecodeFailed
	ErrorSidecarRefused
	ErrorInvalidPrivateKey
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorDialFailed)
	errors.RegisterIdFctMessage(ErrorDialFailed, getMessage)
	errors.RegisterIdFctMessage(ErrorEncodeFailed, getMessage)
	errors.RegisterIdFctMessage(ErrorDecodeFailed, getMessage)
	errors.RegisterIdFctMessage(ErrorSidecarRefused, getMessage)
	errors.RegisterIdFctMessage(ErrorInvalidPrivateKey, getMessage)
}

func getMessage(code errors.CodeError) string {
	switch code {
	case errors.UNK_ERROR:
		return ""
	case ErrorDialFailed:
		return "failed to dial certificate issuance sidecar"
	case ErrorEncodeFailed:
		return "failed to encode certificate request"
	case ErrorDecodeFailed:
		return "failed to decode certificate response"
	case ErrorSidecarRefused:
		return "certificate issuance sidecar refused the request"
	case ErrorInvalidPrivateKey:
		return "sidecar returned an unparseable private key"
	}
	return ""
}
