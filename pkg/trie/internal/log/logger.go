// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

// Package log is a small leveled logger used by pkg/trie to report
// apply/prune progress, adapted from gossamer's internal/log.
package log

import (
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Logger is thread safe to use.
type Logger struct {
	mutex   sync.Mutex
	level   Level
	colour  bool
	context []string
	std     *log.Logger
}

// Option configures a Logger.
type Option func(l *Logger)

// SetLevel sets the minimum level logged. Lines below this level are dropped.
func SetLevel(level Level) Option {
	return func(l *Logger) { l.level = level }
}

// SetWriter sets the destination for log lines. Defaults to os.Stdout.
func SetWriter(writer io.Writer) Option {
	return func(l *Logger) { l.std = log.New(writer, "", 0) }
}

// SetColour enables or disables ANSI colouring of the level tag.
func SetColour(enabled bool) Option {
	return func(l *Logger) { l.colour = enabled }
}

// AddContext appends a "key=value" tag to every line logged by this logger.
func AddContext(key, value string) Option {
	return func(l *Logger) { l.context = append(l.context, key+"="+value) }
}

// New creates a logger at Info level writing to os.Stdout by default.
func New(options ...Option) *Logger {
	l := &Logger{
		level: Info,
		std:   log.New(os.Stdout, "", 0),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

// New returns a child logger that inherits this logger's writer but may
// override level, colour, or context.
func (l *Logger) New(options ...Option) *Logger {
	child := &Logger{
		level:   l.level,
		colour:  l.colour,
		std:     l.std,
		context: append([]string(nil), l.context...),
	}
	for _, option := range options {
		option(child)
	}
	return child
}

func (l *Logger) log(level Level, s string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if level < l.level {
		return
	}

	tag := level.String()
	if l.colour {
		tag = level.ColouredString()
	}

	line := tag + " " + s
	if len(l.context) > 0 {
		line += "\t" + strings.Join(l.context, " ")
	}

	_ = l.std.Output(3, line)
}

// Trace logs a per-node detail line.
func (l *Logger) Trace(s string) { l.log(Trace, s) }

// Debug logs a per-operation detail line.
func (l *Logger) Debug(s string) { l.log(Debug, s) }

// Info logs a completed state-changing operation.
func (l *Logger) Info(s string) { l.log(Info, s) }

// Warn logs a recoverable anomaly.
func (l *Logger) Warn(s string) { l.log(Warn, s) }

// Error logs an aborted operation.
func (l *Logger) Error(s string) { l.log(Error, s) }
