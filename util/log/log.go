// Copyright 2023 The CubeFS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package log

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Level uint8

const (
	DebugLevel Level = 1
	InfoLevel        = DebugLevel<<1 + 1
	WarnLevel        = InfoLevel<<1 + 1
	ErrorLevel       = WarnLevel<<1 + 1
	FatalLevel       = ErrorLevel<<1 + 1
)

const (
	DefaultMaxSizeMB  = 64
	DefaultMaxBackups = 7
	DefaultMaxAgeDays = 7
)

var levelPrefixes = []string{
	"[DEBUG]",
	"[INFO.]",
	"[WARN.]",
	"[ERROR]",
	"[FATAL]",
}

var (
	ErrLogFileName   = "_error.log"
	WarnLogFileName  = "_warn.log"
	InfoLogFileName  = "_info.log"
	DebugLogFileName = "_debug.log"
)

// ParseLevel maps a level name from a config file to a Level.
func ParseLevel(levelName string, defaultLevel Level) Level {
	switch strings.ToLower(levelName) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal", "critical":
		return FatalLevel
	default:
		return defaultLevel
	}
}

type closableLogger struct {
	*log.Logger
	closer io.Closer
}

func newCloseableLogger(writer io.WriteCloser, prefix string, flag int) *closableLogger {
	return &closableLogger{
		Logger: log.New(writer, prefix, flag),
		closer: writer,
	}
}

func (c *closableLogger) Close() {
	if c.closer != nil {
		c.closer.Close()
	}
}

type Log struct {
	dir         string
	module      string
	errorLogger *closableLogger
	warnLogger  *closableLogger
	debugLogger *closableLogger
	infoLogger  *closableLogger
	level       Level
}

var (
	gLog   *Log = nil
	gLogMu sync.Mutex
)

// NewLog opens one rotating file per level under dir and installs the
// result as the package logger. Until it is called every Log* call is a
// no-op.
func NewLog(dir, module string, level Level) (*Log, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	} else if !fi.IsDir() {
		return nil, errors.New(dir + " is not a directory")
	}

	l := &Log{dir: dir, module: module}
	l.initLog(dir, module, level)

	gLogMu.Lock()
	old := gLog
	gLog = l
	gLogMu.Unlock()
	if old != nil {
		old.Close()
	}
	return l, nil
}

// NewWriterLog installs a logger that writes every level to w. Used by the
// command line tool to log to stderr.
func NewWriterLog(w io.Writer, level Level) *Log {
	wc := nopCloser{w}
	flags := log.LstdFlags | log.Lmicroseconds
	l := &Log{
		errorLogger: newCloseableLogger(wc, "", flags),
		warnLogger:  newCloseableLogger(wc, "", flags),
		debugLogger: newCloseableLogger(wc, "", flags),
		infoLogger:  newCloseableLogger(wc, "", flags),
		level:       level,
	}
	gLogMu.Lock()
	gLog = l
	gLogMu.Unlock()
	return l
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func (l *Log) initLog(logDir, module string, level Level) {
	logOpt := log.LstdFlags | log.Lmicroseconds

	getNewLog := func(logFileName string) *closableLogger {
		w := &lumberjack.Logger{
			Filename:   path.Join(logDir, module+logFileName),
			MaxSize:    DefaultMaxSizeMB,
			MaxAge:     DefaultMaxAgeDays,
			MaxBackups: DefaultMaxBackups,
			LocalTime:  true,
		}
		return newCloseableLogger(w, "", logOpt)
	}
	logHandles := [...]**closableLogger{&l.debugLogger, &l.infoLogger, &l.warnLogger, &l.errorLogger}
	logNames := [...]string{DebugLogFileName, InfoLogFileName, WarnLogFileName, ErrLogFileName}
	for i := range logHandles {
		*logHandles[i] = getNewLog(logNames[i])
	}
	l.level = level
}

func (l *Log) prefix(s, level string) string {
	_, file, line, ok := runtime.Caller(3)
	if !ok {
		line = 0
	}
	short := file
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			short = file[i+1:]
			break
		}
	}
	file = short
	return level + " " + file + ":" + strconv.Itoa(line) + ": " + s
}

// Close closes every level file.
func (l *Log) Close() {
	for _, logger := range []*closableLogger{l.debugLogger, l.infoLogger, l.warnLogger, l.errorLogger} {
		if logger != nil {
			logger.Close()
		}
	}
}

func current() *Log {
	gLogMu.Lock()
	defer gLogMu.Unlock()
	return gLog
}

func output(level Level, idx int, logger func(*Log) *closableLogger, s string) {
	l := current()
	if l == nil {
		return
	}
	if level&l.level != l.level {
		return
	}
	s = l.prefix(s, levelPrefixes[idx])
	logger(l).Output(3, s)
}

func debugLogger(l *Log) *closableLogger { return l.debugLogger }
func infoLogger(l *Log) *closableLogger  { return l.infoLogger }
func warnLogger(l *Log) *closableLogger  { return l.warnLogger }
func errorLogger(l *Log) *closableLogger { return l.errorLogger }

func LogDebugf(format string, v ...interface{}) {
	output(DebugLevel, 0, debugLogger, fmt.Sprintf(format, v...))
}

func LogInfo(v ...interface{}) {
	output(InfoLevel, 1, infoLogger, fmt.Sprintln(v...))
}

func LogInfof(format string, v ...interface{}) {
	output(InfoLevel, 1, infoLogger, fmt.Sprintf(format, v...))
}

func LogWarnf(format string, v ...interface{}) {
	output(WarnLevel, 2, warnLogger, fmt.Sprintf(format, v...))
}

func LogErrorf(format string, v ...interface{}) {
	output(ErrorLevel, 3, errorLogger, fmt.Sprintf(format, v...))
}

// LogPanicf records an unrecoverable kernel condition and panics. Callers
// use it for broken invariants that must stop the running thread.
func LogPanicf(format string, v ...interface{}) {
	s := fmt.Sprintf(format, v...)
	output(FatalLevel, 4, errorLogger, s)
	panic(s)
}

// LogFlush is kept for callers that flush before exiting; lumberjack
// writes through, so there is nothing buffered.
func LogFlush() {}
