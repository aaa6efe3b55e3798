// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timestampFormat = "2006-01-02T15:04:05.000000Z "

// SinkLogger is a Logger that filters logs by level and hands them to a Sink.
type SinkLogger struct {
	level     Level
	timestamp bool
	sink      Sink
}

// NewSinkLogger creates a new SinkLogger.
//
// level specifies the minimum level of logs passed to sink. If timestamp is
// true, a UTC timestamp is prepended to every log.
func NewSinkLogger(level Level, timestamp bool, sink Sink) *SinkLogger {
	return &SinkLogger{level: level, timestamp: timestamp, sink: sink}
}

// Log sends a log to the associated sink.
func (l *SinkLogger) Log(level Level, ts time.Time, msg string) {
	if level < l.level || l.level == LevelNone {
		return
	}
	if l.timestamp {
		msg = ts.UTC().Format(timestampFormat) + msg
	}
	l.sink.Log(level, msg)
}

// Sink is a destination of logs, e.g. the console or a log file.
type Sink interface {
	Log(level Level, msg string)
}

// WriterSink writes one line per log to an io.Writer. Writes are serialized.
type WriterSink struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewWriterSink creates a WriterSink that writes plain lines to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// NewConsoleSink creates a WriterSink for f that colors lines by level when
// color is requested and f is a terminal.
func NewConsoleSink(f *os.File, color bool) *WriterSink {
	return &WriterSink{w: f, color: color && term.IsTerminal(int(f.Fd()))}
}

// Log writes msg to the underlying writer.
func (s *WriterSink) Log(level Level, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.color {
		if c := levelColor(level); c != "" {
			fmt.Fprintf(s.w, "%s%s%s\n", c, msg, colorReset)
			return
		}
	}
	fmt.Fprintln(s.w, msg)
}

const colorReset = "\033[0m"

func levelColor(l Level) string {
	switch l {
	case LevelTrace, LevelDebug:
		return "\033[90m"
	case LevelWarning:
		return "\033[33m"
	case LevelError, LevelCritical:
		return "\033[31m"
	default:
		return ""
	}
}

// FileSink appends logs to a size-rotated log file.
type FileSink struct {
	*WriterSink
	lj *lumberjack.Logger
}

// NewFileSink creates a FileSink writing to path. The file is rotated once it
// grows past maxMegabytes, keeping a few compressed backups next to it.
func NewFileSink(path string, maxMegabytes int) *FileSink {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxMegabytes,
		MaxBackups: 3,
		Compress:   true,
	}
	return &FileSink{WriterSink: NewWriterSink(lj), lj: lj}
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	return s.lj.Close()
}
