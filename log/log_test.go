// Copyright 2026 The gomxf Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestStdLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLogger(&buf)

	if err := l.Log(LevelInfo, "msg", "hello", "sid", 2); err != nil {
		t.Fatalf("Log failed, reason: %v", err)
	}
	got := buf.String()
	if !strings.HasPrefix(got, "INFO") || !strings.Contains(got, "msg=hello") || !strings.Contains(got, "sid=2") {
		t.Errorf("log line = %q", got)
	}
}

func TestNilWriterDiscards(t *testing.T) {
	l := NewStdLogger(nil)
	if err := l.Log(LevelError, "msg", "dropped"); err != nil {
		t.Errorf("Log failed, reason: %v", err)
	}
}

func TestFilterLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewFilter(NewStdLogger(&buf), FilterLevel(LevelWarn))

	l.Log(LevelDebug, "msg", "quiet")
	l.Log(LevelInfo, "msg", "quiet")
	if buf.Len() != 0 {
		t.Errorf("filtered records were written: %q", buf.String())
	}
	l.Log(LevelError, "msg", "loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Errorf("error record missing: %q", buf.String())
	}
}

func TestHelperFormats(t *testing.T) {
	var buf bytes.Buffer
	h := NewHelper(NewStdLogger(&buf))

	h.Warnf("stream %d: %s", 2, "unresolved")
	got := buf.String()
	if !strings.HasPrefix(got, "WARN") || !strings.Contains(got, "stream 2: unresolved") {
		t.Errorf("helper line = %q", got)
	}
}

func TestLevelString(t *testing.T) {
	for level, want := range map[Level]string{
		LevelDebug: "DEBUG", LevelInfo: "INFO", LevelWarn: "WARN",
		LevelError: "ERROR", Level(42): "UNKNOWN",
	} {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String() = %q", level, got)
		}
	}
}
