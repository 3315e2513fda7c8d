// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

package trie

import "github.com/statechain/mtrie/pkg/trie/internal/log"

// Option configures a Tree at construction time, following the functional
// options pattern used by internal/log.New.
type Option func(t *Tree)

// WithHasher overrides the default Blake2bHasher.
func WithHasher(h Hasher) Option {
	return func(t *Tree) { t.hasher = h }
}

// WithLogger overrides the Tree's logger. Defaults to a logger at Info
// level writing to stdout.
func WithLogger(l *log.Logger) Option {
	return func(t *Tree) { t.logger = l }
}

// WithCache installs a read-through node cache in front of the node store.
// See NewCache for the default ristretto-backed implementation.
func WithCache(c NodeCache) Option {
	return func(t *Tree) { t.cache = c }
}
