// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

// Package memstore is an in-memory trie.Store/trie.OrphanLog pair, grounded
// on gossamer's lib/trie/db.MemoryDB: a mutex-protected map keyed by the
// encoded entry, useful for tests and short-lived trees.
package memstore

import (
	"sort"
	"sync"

	"github.com/statechain/mtrie/pkg/trie"
	"github.com/statechain/mtrie/pkg/trie/nibble"
)

// NodeStore is a trie.Store backed by an in-memory map. It is safe for
// concurrent use.
type NodeStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// New creates an empty in-memory node store.
func New() *NodeStore {
	return &NodeStore{data: make(map[string][]byte)}
}

func (s *NodeStore) Get(version uint64, path nibble.Path) (*trie.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, trie.ErrClosed
	}
	raw, ok := s.data[string(trie.EncodeNodeKey(version, path))]
	if !ok {
		return nil, trie.ErrNodeNotFound
	}
	return trie.DecodeNode(raw)
}

func (s *NodeStore) Put(version uint64, path nibble.Path, node *trie.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return trie.ErrClosed
	}
	s.data[string(trie.EncodeNodeKey(version, path))] = trie.EncodeNode(node)
	return nil
}

func (s *NodeStore) Delete(version uint64, path nibble.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return trie.ErrClosed
	}
	delete(s.data, string(trie.EncodeNodeKey(version, path)))
	return nil
}

func (s *NodeStore) RangeByVersion(version uint64, fn func(nibble.Path, *trie.Node) (bool, error)) error {
	s.mu.RLock()
	keys := make([]string, 0)
	for k := range s.data {
		v, _, ok := trie.DecodeNodeKey([]byte(k))
		if ok && v == version {
			keys = append(keys, k)
		}
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	for _, k := range keys {
		_, path, ok := trie.DecodeNodeKey([]byte(k))
		if !ok {
			continue
		}
		s.mu.RLock()
		raw, present := s.data[k]
		s.mu.RUnlock()
		if !present {
			continue
		}
		node, err := trie.DecodeNode(raw)
		if err != nil {
			return err
		}
		cont, err := fn(path, node)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return nil
}

func (s *NodeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// OrphanLog is a trie.OrphanLog backed by an in-memory set.
type OrphanLog struct {
	mu     sync.RWMutex
	data   map[string]struct{}
	closed bool
}

// NewOrphanLog creates an empty in-memory orphan log.
func NewOrphanLog() *OrphanLog {
	return &OrphanLog{data: make(map[string]struct{})}
}

func (o *OrphanLog) Put(since, origVersion uint64, path nibble.Path) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return trie.ErrClosed
	}
	o.data[string(trie.EncodeOrphanKey(since, origVersion, path))] = struct{}{}
	return nil
}

func (o *OrphanLog) Delete(since, origVersion uint64, path nibble.Path) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return trie.ErrClosed
	}
	delete(o.data, string(trie.EncodeOrphanKey(since, origVersion, path)))
	return nil
}

func (o *OrphanLog) RangeUpTo(upTo uint64, fn func(since, origVersion uint64, path nibble.Path) (bool, error)) error {
	o.mu.RLock()
	keys := make([]string, 0)
	for k := range o.data {
		since, _, _, ok := trie.DecodeOrphanKey([]byte(k))
		if ok && since <= upTo {
			keys = append(keys, k)
		}
	}
	o.mu.RUnlock()

	sort.Strings(keys)
	for _, k := range keys {
		since, origVersion, path, ok := trie.DecodeOrphanKey([]byte(k))
		if !ok {
			continue
		}
		cont, err := fn(since, origVersion, path)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return nil
}

func (o *OrphanLog) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

// RootIndex is a trie.RootIndex backed by an in-memory map.
type RootIndex struct {
	mu     sync.RWMutex
	data   map[uint64]*trie.RootPointer
	closed bool
}

// NewRootIndex creates an empty in-memory root index.
func NewRootIndex() *RootIndex {
	return &RootIndex{data: make(map[uint64]*trie.RootPointer)}
}

func (r *RootIndex) Get(version uint64) (*trie.RootPointer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, trie.ErrClosed
	}
	ptr, ok := r.data[version]
	if !ok {
		return nil, trie.ErrUnknownVersion
	}
	return ptr, nil
}

func (r *RootIndex) Put(version uint64, ptr *trie.RootPointer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return trie.ErrClosed
	}
	r.data[version] = ptr
	return nil
}

func (r *RootIndex) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
