// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

package trie

import (
	"bytes"
	"fmt"

	"github.com/statechain/mtrie/pkg/trie/nibble"
)

// frame is one level of the explicit traversal stack an Iterator walks,
// grounded on the First/Valid/Next/Key/Value/Release iterator shape used
// throughout chaindb.Iterator consumers, but over live trie nodes instead
// of flat KV rows.
//
// A node's own carried value sorts before every one of its children
// (its key is a strict prefix of theirs), so ascending order visits the
// value first and then children 0..15; descending order reverses both.
type frame struct {
	node      *Node
	path      nibble.Path
	valueDone bool
	slot      int // next child slot to try; walks 0->16 ascending, 15->-1 descending
}

// Iterator yields live (key, value) pairs at a fixed version in key order,
// within an optional half-open [lower, upper) range. It is lazy: each call
// to Next advances by at most one key. It does not observe concurrent
// Apply calls, since it walks an immutable version.
type Iterator struct {
	tree      *Tree
	lower     []byte
	upper     []byte
	ascending bool

	stack []frame
	key   []byte
	value []byte
	err   error
	done  bool
}

// NewIterator creates an Iterator over version, optionally bounded by
// lower (inclusive) and upper (exclusive); either may be nil for an
// unbounded end. Call First to begin.
func (t *Tree) NewIterator(version uint64, lower, upper []byte, ascending bool) (*Iterator, error) {
	root, err := t.rootChild(version)
	if err != nil {
		return nil, err
	}
	it := &Iterator{tree: t, lower: lower, upper: upper, ascending: ascending}
	if root == nil {
		it.done = true
		return it, nil
	}
	node, err := t.getNode(root.Version, nibble.Empty())
	if err != nil {
		return nil, fmt.Errorf("trie: iterate v%d: %w", version, err)
	}
	it.stack = []frame{it.newFrame(node, nibble.Empty())}
	return it, nil
}

func (it *Iterator) newFrame(node *Node, path nibble.Path) frame {
	f := frame{node: node, path: path}
	if it.ascending {
		f.slot = 0
	} else {
		f.slot = 15
	}
	return f
}

// First positions the iterator at the first in-range key and reports
// whether one was found. Equivalent to Next on a freshly created
// Iterator; provided for symmetry with chaindb's iterator idiom.
func (it *Iterator) First() bool { return it.Next() }

// Next advances to the next in-range key and reports whether one was
// found.
func (it *Iterator) Next() bool {
	if it.done || it.err != nil {
		return false
	}

	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]

		if it.ascending && !top.valueDone {
			top.valueDone = true
			if rec := top.node.Value; rec != nil && it.inRange(rec.Key) {
				it.key, it.value = rec.Key, rec.Value
				return true
			}
		}

		child, _, has := it.nextChild(top)
		if has {
			// child.Path, not top.path plus one nibble: a collapsed
			// singleton chain means the node this slot refers to may
			// live several nibbles deeper than top.
			node, err := it.tree.getNode(child.Version, child.Path)
			if err != nil {
				it.err = fmt.Errorf("trie: iterate: reading %s: %w", child.Path, err)
				return false
			}
			it.stack = append(it.stack, it.newFrame(node, child.Path))
			continue
		}

		if !it.ascending && !top.valueDone {
			top.valueDone = true
			if rec := top.node.Value; rec != nil && it.inRange(rec.Key) {
				it.key, it.value = rec.Key, rec.Value
				return true
			}
		}

		it.stack = it.stack[:len(it.stack)-1]
	}

	it.key, it.value = nil, nil
	it.done = true
	return false
}

// nextChild scans top's remaining slots (in traversal order) for the next
// present child, advancing top.slot past whatever it returns (or past all
// slots if none remain).
func (it *Iterator) nextChild(top *frame) (child *Child, slot int, ok bool) {
	if it.ascending {
		for s := top.slot; s < 16; s++ {
			if c := top.node.Children[s]; c != nil {
				top.slot = s + 1
				return c, s, true
			}
		}
		top.slot = 16
		return nil, 0, false
	}
	for s := top.slot; s >= 0; s-- {
		if c := top.node.Children[s]; c != nil {
			top.slot = s - 1
			return c, s, true
		}
	}
	top.slot = -1
	return nil, 0, false
}

// Valid reports whether the most recent First/Next call found a key.
func (it *Iterator) Valid() bool {
	return !it.done && it.err == nil && it.key != nil
}

// Key returns the current key. Only valid when Valid() is true.
func (it *Iterator) Key() []byte { return it.key }

// Value returns the current value. Only valid when Valid() is true.
func (it *Iterator) Value() []byte { return it.value }

// Err returns the first error encountered, if any.
func (it *Iterator) Err() error { return it.err }

// Release discards the iterator's state. Safe to call multiple times.
func (it *Iterator) Release() {
	it.stack = nil
	it.key, it.value = nil, nil
	it.done = true
}

func (it *Iterator) inRange(key []byte) bool {
	if it.lower != nil && bytes.Compare(key, it.lower) < 0 {
		return false
	}
	if it.upper != nil && bytes.Compare(key, it.upper) >= 0 {
		return false
	}
	return true
}
