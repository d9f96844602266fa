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

/*
Package ioutils holds small I/O helpers shared by the rest of the module.

# Architecture

The package is organized into a root-level bytes.Buffer-to-io.ReadCloser
helper, a set of CodeError values (error.go, in the errors.MinPkgIOUtils
range), and one subpackage:

	Root Package (ioutils)
	├── NewBufferReadCloser  - io.ReadCloser over a bytes.Buffer; Close resets the buffer
	│
	└── iowrapper           - Flexible I/O wrapper enabling customization and interception of I/O operations; adapts partial implementations up to io.ReadWriteCloser for ratelimit.NewFromAny

The root package has no file or directory helpers.

	buf := bytes.NewBufferString("payload")
	rc := ioutils.NewBufferReadCloser(buf)
	data, _ := io.ReadAll(rc) // "payload"
	_ = rc.Close()            // buf is now empty

# Related Packages

  - os: Standard library file operations
  - io: Standard library I/O interfaces
  - filepath: Path manipulation utilities
  - bufio: Buffered I/O operations

# Subpackage Overview

  - iowrapper: Flexible I/O wrapper that enables customization and interception of read, write, seek, and close operations on any underlying I/O object
*/
package ioutils
