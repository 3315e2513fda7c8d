// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color" //nolint:misspell
)

// Level is the severity of a log line.
type Level uint8

const (
	// Trace is the most verbose level, used for per-node tree detail.
	Trace Level = iota
	// Debug is used for per-operation detail (one line per Apply).
	Debug
	// Info is used for state-changing operations completing (one line per
	// Prune).
	Info
	// Warn is used for recoverable anomalies.
	Warn
	// Error is used for operations that aborted.
	Error
)

func (level Level) String() (s string) {
	switch level {
	case Trace:
		return "TRCE"
	case Debug:
		return "DBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "EROR"
	default:
		return "???"
	}
}

// ColouredString returns the level tag coloured for terminal output.
func (level Level) ColouredString() string {
	attribute := color.Reset

	switch level {
	case Trace:
		attribute = color.FgHiCyan
	case Debug:
		attribute = color.FgHiBlue
	case Info:
		attribute = color.FgCyan
	case Warn:
		attribute = color.FgYellow
	case Error:
		attribute = color.FgHiRed
	}

	return color.New(attribute).Sprint(level.String())
}

// ErrLevelNotRecognised is returned by ParseLevel for an unknown level string.
var ErrLevelNotRecognised = errors.New("level is not recognised")

// ParseLevel parses a level string such as "debug" or "DBUG".
func ParseLevel(s string) (level Level, err error) {
	switch strings.ToUpper(s) {
	case Trace.String(), "TRACE":
		return Trace, nil
	case Debug.String(), "DEBUG":
		return Debug, nil
	case Info.String():
		return Info, nil
	case Warn.String():
		return Warn, nil
	case Error.String(), "ERROR":
		return Error, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrLevelNotRecognised, s)
}
