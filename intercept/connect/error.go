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

package connect

import "github.com/bytedance/g3-sub007/errors"

const (
	ErrorMalformedTarget errors.CodeError = iota + errors.MinPkgInterceptConnect
	ErrorUpstreamWriteFailed
	ErrorResponseHeaderTimeout
	ErrorUpstreamResponseInvalid
	ErrorClientWriteFailed
	ErrorPeerTimeout
	ErrorUnexpectedStatusCode
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorMalformedTarget)
	errors.RegisterIdFctMessage(ErrorMalformedTarget, getMessage)
	errors.RegisterIdFctMessage(ErrorUpstreamWriteFailed, getMessage)
	errors.RegisterIdFctMessage(ErrorResponseHeaderTimeout, getMessage)
	errors.RegisterIdFctMessage(ErrorUpstreamResponseInvalid, getMessage)
	errors.RegisterIdFctMessage(ErrorClientWriteFailed, getMessage)
	errors.RegisterIdFctMessage(ErrorPeerTimeout, getMessage)
	errors.RegisterIdFctMessage(ErrorUnexpectedStatusCode, getMessage)
}

func getMessage(code errors.CodeError) string {
	switch code {
	case errors.UNK_ERROR:
		return ""
	case ErrorMalformedTarget:
		return "malformed CONNECT target"
	case ErrorUpstreamWriteFailed:
		return "failed to relay CONNECT request to upstream"
	case ErrorResponseHeaderTimeout:
		return "timed out waiting for upstream response header"
	case ErrorUpstreamResponseInvalid:
		return "upstream response could not be parsed"
	case ErrorClientWriteFailed:
		return "failed to forward response header to client"
	case ErrorPeerTimeout:
		return "upstream reported a gateway/peer timeout"
	case ErrorUnexpectedStatusCode:
		return "upstream answered the CONNECT request with an unexpected status code"
	}
	return ""
}
