/*
 * MIT License
 *
 * Copyright (c) 2021 Nicolas JUHEL
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
Package logger provides the structured, level-filtered logger used across
every daemon and client built on this module. It wraps logrus with a small,
chainable entry builder (logger/entry) and typed levels/fields
(logger/level, logger/fields) so connection-lifecycle events (accept,
handshake, intercept, idle-close) can be logged with consistent structured
fields instead of ad-hoc Printf calls.

# Sub-packages

  - entry: chainable log entry builder (fields, errors, data, gin registration)
  - fields: structured key/value field sets with clone/merge semantics
  - level: typed log levels and their logrus conversions
  - types: field-name constants shared between logger and logger/entry

# Output destinations

By default a Logger writes to stdout. SetOptions can additionally duplicate
output to one or more files (opened append-only). A Logger also implements
io.WriteCloser so it can be handed to anything expecting a plain writer: the
standard log package (GetStdLogger/SetStdLogger), an http.Server.ErrorLog, or
a TLS handshake tracer.

# Basic usage

	log := logger.New(context.Background())
	log.SetLevel(loglvl.InfoLevel)
	_ = log.SetOptions(&logger.Options{
		LogFile: []logger.OptionsFile{{Filepath: "/var/log/app/app.log", Create: true}},
	})
	defer log.Close()

	log.Info("listener started on %s", nil, addr)
	log.Entry(loglvl.ErrorLevel, "handshake failed").
		FieldAdd("remote", remoteAddr).
		ErrorAdd(true, err).
		Log()
*/
package logger
