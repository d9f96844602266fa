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

package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	libctx "github.com/bytedance/g3-sub007/context"
	logfld "github.com/bytedance/g3-sub007/logger/fields"
	loglvl "github.com/bytedance/g3-sub007/logger/level"
)

func (o *logger) switchCloser(c _Closer) {
	if o == nil {
		return
	} else if c == nil {
		c = _NewCloser()
	}

	i := o.c.Swap(c)

	if i == nil {
		return
	} else if v, k := i.(_Closer); k && v != nil {
		go func() {
			time.Sleep(200 * time.Millisecond)
			_ = v.Close()
		}()
	}
}

// Clone creates an independent copy of the logger: same level, fields and
// options, but its own context and closer, so the clone can be reconfigured
// (e.g. a per-connection child logger with extra fields) without touching
// the parent.
func (o *logger) Clone() (Logger, error) {
	if o == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	if e := o.x.Err(); e != nil {
		return nil, e
	}

	l := &logger{
		m: sync.RWMutex{},
		x: libctx.New[uint8](o.x),
		f: logfld.New(o.x),
		c: new(atomic.Value),
	}

	l.SetLevel(o.GetLevel())
	l.SetIOWriterLevel(o.GetIOWriterLevel())
	l.SetFields(o.GetFields())

	if e := l.SetOptions(o.GetOptions()); e != nil {
		return nil, e
	}

	return l, nil
}

func (o *logger) RegisterFuncUpdateLogger(fct FuncCustomConfig) {
	o.x.Store(keyFctUpdLog, fct)
}

func (o *logger) runFuncUpdateLogger() {
	if i, l := o.x.Load(keyFctUpdLog); !l {
		return
	} else if f, k := i.(FuncCustomConfig); !k || f == nil {
		return
	} else {
		f(o)
	}
}

func (o *logger) RegisterFuncUpdateLevel(fct FuncCustomConfig) {
	o.x.Store(keyFctUpdLvl, fct)
}

func (o *logger) runFuncUpdateLevel() {
	if i, l := o.x.Load(keyFctUpdLvl); !l {
		return
	} else if f, k := i.(FuncCustomConfig); !k || f == nil {
		return
	} else {
		f(o)
	}
}

// SetLevel changes the minimum log level for this logger.
func (o *logger) SetLevel(lvl loglvl.Level) {
	o.x.Store(keyLevel, lvl)
	o.setLogrusLevel(o.GetLevel())
	o.runFuncUpdateLevel()
}

// GetLevel returns the current minimum log level for this logger.
func (o *logger) GetLevel() loglvl.Level {
	if o == nil || o.x == nil {
		return loglvl.NilLevel
	} else if i, l := o.x.Load(keyLevel); !l {
		return loglvl.NilLevel
	} else if v, k := i.(loglvl.Level); !k {
		return loglvl.NilLevel
	} else {
		return v
	}
}

// SetFields replaces all default fields with the provided fields.
func (o *logger) SetFields(field logfld.Fields) {
	if o == nil {
		return
	}
	o.f.Clean()
	o.f.Merge(field)
}

// GetFields returns a copy of the current default fields.
func (o *logger) GetFields() logfld.Fields {
	if o == nil {
		return logfld.New(context.Background())
	}

	return o.f.Clone()
}

// SetOptions configures the logger's output destinations and formatting.
//
// By default the logger writes to stdout. When LogFile entries are
// configured, output is duplicated to each configured file path as well
// (opened append-only, created with FileMode if it does not exist yet).
func (o *logger) SetOptions(opt *Options) error {
	if opt == nil {
		opt = &Options{}
	}

	o.optionsMerge(opt)

	var (
		lvl = o.GetLevel()
		obj = logrus.New()
		clo = _NewCloser()
	)

	obj.SetLevel(lvl.Logrus())
	obj.SetFormatter(o.defaultFormatter(opt))

	if opt.DisableStandard {
		obj.SetOutput(io.Discard)
	} else {
		obj.SetOutput(os.Stdout)
	}

	if len(opt.LogFile) > 0 {
		writers := make([]io.Writer, 0, len(opt.LogFile)+1)
		if !opt.DisableStandard {
			writers = append(writers, os.Stdout)
		}

		for _, f := range opt.LogFile {
			mode := f.FileMode
			if mode == 0 {
				mode = 0o640
			}

			fh, err := os.OpenFile(f.Filepath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, mode)
			if err != nil {
				return fmt.Errorf("opening log file '%s': %w", f.Filepath, err)
			}

			clo.Add(fh)
			writers = append(writers, fh)
		}

		obj.SetOutput(io.MultiWriter(writers...))
	}

	if clo.Len() > 0 {
		o.switchCloser(clo)
	} else {
		o.switchCloser(nil)
	}

	o.x.Store(keyOptions, opt)
	o.x.Store(keyLogrus, obj)
	o.runFuncUpdateLogger()

	return nil
}

// GetOptions returns the current logger configuration options.
func (o *logger) GetOptions() *Options {
	if o == nil || o.x == nil {
		return &Options{}
	} else if i, l := o.x.Load(keyOptions); !l {
		return &Options{}
	} else if v, k := i.(*Options); !k || v == nil {
		return &Options{}
	} else {
		return v
	}
}
