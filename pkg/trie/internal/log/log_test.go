// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerDropsLinesBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(SetLevel(Warn), SetWriter(&buf))

	l.Info("should not appear")
	l.Warn("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "should appear")
}

func TestLoggerIncludesContextTags(t *testing.T) {
	var buf bytes.Buffer
	l := New(SetWriter(&buf), AddContext("component", "apply"))

	l.Info("applied batch")

	assert.Contains(t, buf.String(), "component=apply")
}

func TestChildLoggerInheritsWriterAndContext(t *testing.T) {
	var buf bytes.Buffer
	parent := New(SetWriter(&buf), AddContext("module", "trie"))
	child := parent.New(AddContext("version", "7"))

	child.Info("child line")

	out := buf.String()
	assert.Contains(t, out, "module=trie")
	assert.Contains(t, out, "version=7")
}

func TestParseLevelRoundTripsStringRepresentation(t *testing.T) {
	for _, lvl := range []Level{Trace, Debug, Info, Warn, Error} {
		got, err := ParseLevel(lvl.String())
		require.NoError(t, err)
		assert.Equal(t, lvl, got)
	}
}

func TestParseLevelRejectsUnknownString(t *testing.T) {
	_, err := ParseLevel("bogus")
	assert.ErrorIs(t, err, ErrLevelNotRecognised)
}

func TestParseLevelIsCaseInsensitive(t *testing.T) {
	got, err := ParseLevel(strings.ToLower(Warn.String()))
	require.NoError(t, err)
	assert.Equal(t, Warn, got)
}
