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

package multiplex

import (
	"fmt"
	"io"

	libcbr "github.com/fxamacker/cbor/v2"
)

// wireFrame is the CBOR wire representation of a Frame.
type wireFrame struct {
	ID      uint32 `cbor:"id"`
	Message []byte `cbor:"message"`
}

// CBORCodec frames requests/responses with github.com/fxamacker/cbor/v2,
// one CBOR value per frame, streamed directly over the connection (no
// length prefix needed: CBOR is self-delimiting).
type CBORCodec struct{}

func (CBORCodec) Encode(w io.Writer, f Frame) error {
	if f.ID == 0 {
		return fmt.Errorf("multiplex: invalid frame id 0")
	}
	return libcbr.NewEncoder(w).Encode(wireFrame{ID: f.ID, Message: f.Payload})
}

func (CBORCodec) Decode(r io.Reader) (Frame, error) {
	var wf wireFrame
	if err := libcbr.NewDecoder(r).Decode(&wf); err != nil {
		return Frame{}, err
	}
	if wf.ID == 0 {
		return Frame{}, fmt.Errorf("multiplex: invalid frame id 0")
	}
	return Frame{ID: wf.ID, Payload: wf.Message}, nil
}
