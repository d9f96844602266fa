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

// Package logger provides the structured, level-filtered, field-carrying
// logger used across every daemon built on this module: proxies, the
// keyless-TLS crypto server, and the benchmark clients. It wraps logrus the
// way the connection pipelines wrap net.Conn: a small core (this package)
// delegates formatting/chaining to logger/entry and typed levels/fields to
// logger/level and logger/fields.
package logger

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	libctx "github.com/bytedance/g3-sub007/context"
	logent "github.com/bytedance/g3-sub007/logger/entry"
	logfld "github.com/bytedance/g3-sub007/logger/fields"
	loglvl "github.com/bytedance/g3-sub007/logger/level"
)

// FuncLog is a function type that returns a Logger instance.
// This is used for dependency injection and lazy initialization of loggers.
type FuncLog func() Logger

// Logger is the main interface for structured logging operations.
// It extends io.WriteCloser so it can be handed to anything that expects a
// plain writer (the standard log package, a net/http ErrorLog, a CLI
// progress bar) without the caller knowing it is backed by logrus.
type Logger interface {
	io.WriteCloser

	//SetLevel allow to change the minimal level of log message
	SetLevel(lvl loglvl.Level)

	//GetLevel return the minimal level of log message
	GetLevel() loglvl.Level

	//SetIOWriterLevel allow to change the level used when this logger is written to as an io.Writer
	SetIOWriterLevel(lvl loglvl.Level)

	//GetIOWriterLevel return the level used when this logger is written to as an io.Writer
	GetIOWriterLevel() loglvl.Level

	// SetIOWriterFilter allow to filter message that contained the given pattern.
	// When received any message, if one pattern is found, the log is drop.
	// If the given pattern is empty, the pattern list is truncated to no one pattern.
	SetIOWriterFilter(pattern ...string)

	// AddIOWriterFilter allow to add a filter pattern into the filter message pattern list.
	AddIOWriterFilter(pattern ...string)

	//SetOptions allow to set or update the options for the logger
	SetOptions(opt *Options) error

	//GetOptions return the options for the logger
	GetOptions() *Options

	//SetFields allow to set or update the default fields for all logger entry
	SetFields(field logfld.Fields)

	//GetFields return the default fields for all logger entry
	GetFields() logfld.Fields

	//Clone allow to duplicate the logger with a copy of the logger
	Clone() (Logger, error)

	//GetStdLogger return a golang log.logger instance linked with this main logger.
	GetStdLogger(lvl loglvl.Level, logFlags int) *log.Logger

	//SetStdLogger force the default golang log.logger instance linked with this main logger.
	SetStdLogger(lvl loglvl.Level, logFlags int)

	//Debug add an entry with DebugLevel to the logger
	Debug(message string, data interface{}, args ...interface{})

	//Info add an entry with InfoLevel to the logger
	Info(message string, data interface{}, args ...interface{})

	//Warning add an entry with WarnLevel to the logger
	Warning(message string, data interface{}, args ...interface{})

	//Error add an entry with ErrorLevel level to the logger
	Error(message string, data interface{}, args ...interface{})

	//Fatal add an entry with FatalLevel to the logger. Calls os.Exit(1) after logging.
	Fatal(message string, data interface{}, args ...interface{})

	//Panic add an entry with PanicLevel level to the logger. Panics after logging.
	Panic(message string, data interface{}, args ...interface{})

	//LogDetails add an entry to the logger with explicit errors and fields
	LogDetails(lvl loglvl.Level, message string, data interface{}, err []error, fields logfld.Fields, args ...interface{})

	//CheckError will check if a not nil error is given and if yes, will add an entry to the logger.
	// Otherwise, if lvlOK is given (and not NilLevel) the function will log and say ok.
	CheckError(lvlKO, lvlOK loglvl.Level, message string, err ...error) bool

	//Entry will return an entry struct to manage it (add fields, set gin context, log...)
	Entry(lvl loglvl.Level, message string, args ...interface{}) logent.Entry

	//Access will return an entry struct to store an info level access log message
	Access(remoteAddr, remoteUser string, localtime time.Time, latency time.Duration, method, request, proto string, status int, size int64) logent.Entry
}

// New returns a new Logger instance with the given context.
// The logger level is set to InfoLevel by default.
func New(ctx context.Context) Logger {
	l := &logger{
		m: sync.RWMutex{},
		x: libctx.New[uint8](ctx),
		f: logfld.New(ctx),
		c: new(atomic.Value),
	}

	l.SetLevel(loglvl.InfoLevel)
	l.SetIOWriterLevel(loglvl.InfoLevel)
	_ = l.SetOptions(&Options{})

	return l
}

// NewFrom creates a new Logger instance, optionally copying level, fields and
// options from an existing Logger (or a FuncLog returning one), and applying
// opt on top.
func NewFrom(ctx context.Context, opt *Options, other ...any) (Logger, error) {
	var base *logger

	for _, i := range other {
		if i == nil {
			continue
		}

		var h Logger

		if f, k := i.(FuncLog); k && f != nil {
			h = f()
		} else if g, c := i.(Logger); c && g != nil {
			h = g
		}

		if h == nil {
			continue
		}

		if g, k := h.(*logger); k {
			base = g
			break
		}
	}

	n := &logger{
		m: sync.RWMutex{},
		x: libctx.New[uint8](ctx),
		f: logfld.New(ctx),
		c: new(atomic.Value),
	}

	n.SetLevel(loglvl.InfoLevel)
	n.SetIOWriterLevel(loglvl.InfoLevel)

	if base != nil {
		n.SetLevel(base.GetLevel())
		n.SetIOWriterLevel(base.GetIOWriterLevel())
		n.SetFields(base.GetFields())
	}

	if opt == nil {
		opt = &Options{}
	}

	if base != nil {
		oo := *base.GetOptions()
		oo.Merge(opt)
		*opt = oo
	}

	return n, n.SetOptions(opt)
}
