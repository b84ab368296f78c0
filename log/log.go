// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package log is the structured diagnostic sink for gomxf: a small
// Logger/Helper/Filter contract in the kratos style. Diagnostics are
// key/value records written through a single Logger interface instead of
// ad hoc fmt.Printf calls, so an application can redirect, filter, or
// escalate them.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level is a diagnostic's severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the minimal sink every diagnostic is written through.
// keyvals is an alternating key/value list.
type Logger interface {
	Log(level Level, keyvals ...any) error
}

// stdLogger writes to an io.Writer as "LEVEL key=value key=value\n".
// A nil writer discards everything, used as the default when no logger is
// configured.
type stdLogger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdLogger wraps an io.Writer as a Logger. Passing nil yields a
// logger that discards all records.
func NewStdLogger(w io.Writer) Logger {
	if w == nil {
		w = io.Discard
	}
	return &stdLogger{w: w}
}

func (l *stdLogger) Log(level Level, keyvals ...any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s", level.String())
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(l.w, " %v=%v", keyvals[i], keyvals[i+1])
	}
	fmt.Fprintln(l.w)
	return nil
}

// filter wraps a Logger, dropping records below a minimum level.
type filter struct {
	next Logger
	min  Level
}

// FilterOption configures a level filter.
type FilterOption func(*filter)

// FilterLevel sets the minimum level that passes through the filter.
func FilterLevel(level Level) FilterOption {
	return func(f *filter) { f.min = level }
}

// NewFilter wraps next with a minimum-severity filter.
func NewFilter(next Logger, opts ...FilterOption) Logger {
	f := &filter{next: next, min: LevelDebug}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *filter) Log(level Level, keyvals ...any) error {
	if level < f.min {
		return nil
	}
	return f.next.Log(level, keyvals...)
}

// Helper provides convenience printf-style methods over a Logger.
type Helper struct {
	logger Logger
}

// NewHelper wraps a Logger in printf-style convenience methods.
func NewHelper(logger Logger) *Helper {
	if logger == nil {
		logger = NewStdLogger(os.Stdout)
	}
	return &Helper{logger: logger}
}

func (h *Helper) log(level Level, format string, args ...any) {
	h.logger.Log(level, "msg", fmt.Sprintf(format, args...))
}

func (h *Helper) Debugf(format string, args ...any) { h.log(LevelDebug, format, args...) }
func (h *Helper) Infof(format string, args ...any)  { h.log(LevelInfo, format, args...) }
func (h *Helper) Warnf(format string, args ...any)  { h.log(LevelWarn, format, args...) }
func (h *Helper) Errorf(format string, args ...any) { h.log(LevelError, format, args...) }
