// Copyright 2019-2020 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides a minimal leveled logger for extalloc and its
// callers. It keeps the source-tagged Logger interface of the original
// cri-resource-manager logging package but drops the parts that only make
// sense for a long-running daemon (gRPC interceptors, rate limiting,
// signal-triggered reconfiguration, CLI flag wiring): extalloc is a
// single-shot, in-process library and has no command line or service
// lifetime of its own.
package log

import (
	"fmt"
	"os"
	"sync"
)

// Level describes the severity of a log message.
type Level int

const (
	// LevelDebug is the severity for debug messages.
	LevelDebug Level = iota
	// LevelInfo is the severity for informational messages.
	LevelInfo
	// LevelWarn is the severity for warnings.
	LevelWarn
	// LevelError is the severity for errors.
	LevelError
)

var tags = map[Level]string{
	LevelDebug: "D: ",
	LevelInfo:  "I: ",
	LevelWarn:  "W: ",
	LevelError: "E: ",
}

// Logger is the interface for producing log messages for/from a particular source.
type Logger interface {
	// Debug formats and emits a debug message.
	Debug(format string, args ...interface{})
	// Info formats and emits an informational message.
	Info(format string, args ...interface{})
	// Warn formats and emits a warning message.
	Warn(format string, args ...interface{})
	// Error formats and emits an error message.
	Error(format string, args ...interface{})

	// EnableDebug enables or disables debug messages for this Logger,
	// returning the previous state.
	EnableDebug(bool) bool
	// DebugEnabled checks if debug messages are enabled for this Logger.
	DebugEnabled() bool

	// Source returns the source name of this Logger.
	Source() string
}

// logger is the default, fmt-based Logger implementation.
type logger struct {
	mu     sync.RWMutex
	source string
	debug  bool
}

var (
	registryMu sync.Mutex
	registry   = map[string]*logger{}
)

// NewLogger returns the (singleton) Logger for the given source name.
func NewLogger(source string) Logger {
	registryMu.Lock()
	defer registryMu.Unlock()

	if l, ok := registry[source]; ok {
		return l
	}

	l := &logger{source: source}
	registry[source] = l

	return l
}

func (l *logger) Source() string {
	return l.source
}

func (l *logger) EnableDebug(state bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	old := l.debug
	l.debug = state

	return old
}

func (l *logger) DebugEnabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.debug
}

func (l *logger) emit(level Level, format string, args ...interface{}) {
	if level == LevelDebug && !l.DebugEnabled() {
		return
	}

	fmt.Fprintf(os.Stderr, "%s%s: %s\n", tags[level], l.source, fmt.Sprintf(format, args...))
}

func (l *logger) Debug(format string, args ...interface{}) { l.emit(LevelDebug, format, args...) }
func (l *logger) Info(format string, args ...interface{})  { l.emit(LevelInfo, format, args...) }
func (l *logger) Warn(format string, args ...interface{})  { l.emit(LevelWarn, format, args...) }
func (l *logger) Error(format string, args ...interface{}) { l.emit(LevelError, format, args...) }
