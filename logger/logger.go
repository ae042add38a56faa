// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package logger

import (
	"sync"

	"github.com/sassoftware/viya-pdf-viewer/tracer"
)

// LogLevel represents log severity
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	ErrorLevel LogLevel = "error"
)

// LogFunc is a single logger function that handles all levels
type LogFunc func(level LogLevel, msg string, keyvals ...interface{})

var (
	mu      sync.RWMutex
	logFunc LogFunc = func(level LogLevel, msg string, keyvals ...interface{}) {}
)

// SetLogger sets the global logger function
func SetLogger(f LogFunc) {
	if f == nil {
		return
	}
	mu.Lock()
	logFunc = f
	mu.Unlock()
}

func emit(level LogLevel, msg string, keyvals []interface{}) {
	mu.RLock()
	f := logFunc
	mu.RUnlock()
	f(level, msg, keyvals...)
}

// splitTrace removes a trailing bool from keyvals and reports it.
func splitTrace(keyvals []interface{}) ([]interface{}, bool) {
	if len(keyvals)%2 == 1 {
		if b, ok := keyvals[len(keyvals)-1].(bool); ok {
			return keyvals[:len(keyvals)-1], b
		}
	}
	return keyvals, false
}

// Debug logs a message at debug level
// If the last keyvals element is a bool and true, it is treated as trace flag
func Debug(msg string, keyvals ...interface{}) {
	keyvals, trace := splitTrace(keyvals)
	emit(DebugLevel, msg, keyvals)
	if trace {
		tracer.Log(msg, keyvals...)
	}
}

// Info logs a message at info level
func Info(msg string, keyvals ...interface{}) {
	keyvals, trace := splitTrace(keyvals)
	emit(InfoLevel, msg, keyvals)
	if trace {
		tracer.Log(msg, keyvals...)
	}
}

// Error logs a message at error level. Errors are always traced.
func Error(msg string, keyvals ...interface{}) {
	keyvals, _ = splitTrace(keyvals)
	emit(ErrorLevel, msg, keyvals)
	tracer.Log("error: "+msg, keyvals...)
}
