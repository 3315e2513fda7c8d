// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

// Package badgerstore is a Badger-backed trie.Store/trie.OrphanLog pair for
// durable, large trees. It is grounded on gossamer's lib/utils.SetupDatabase
// (chaindb.NewBadgerDB) and dot/state's use of chaindb.NewTable to carve
// independent keyspaces out of one physical database, and on
// dot/state/pruner.go's storageDB/journalDB split for the NODES/ORPHANS
// separation.
package badgerstore

import (
	"bytes"
	"fmt"

	"github.com/ChainSafe/chaindb"

	"github.com/statechain/mtrie/pkg/trie"
	"github.com/statechain/mtrie/pkg/trie/nibble"
)

const (
	nodesPrefix   = "nodes"
	orphansPrefix = "orphans"
	rootsPrefix   = "roots"
)

// Open opens (creating if absent) a Badger database at dataDir and returns
// the NODES, ORPHANS, and ROOTS tables carved out of it via
// chaindb.NewTable. The caller owns the returned db's lifetime; Close on
// any table only drops that table's handle, not the underlying database.
func Open(dataDir string, inMemory bool) (db chaindb.Database, nodes *NodeStore, orphans *OrphanLog, roots *RootIndex, err error) {
	db, err = chaindb.NewBadgerDB(&chaindb.Config{
		DataDir:  dataDir,
		InMemory: inMemory,
	})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("trie/badgerstore: open: %w: %v", trie.ErrBackend, err)
	}
	nodes = &NodeStore{db: chaindb.NewTable(db, nodesPrefix)}
	orphans = &OrphanLog{db: chaindb.NewTable(db, orphansPrefix)}
	roots = &RootIndex{db: chaindb.NewTable(db, rootsPrefix)}
	return db, nodes, orphans, roots, nil
}

// NodeStore is a trie.Store backed by a chaindb.Database (a Badger table).
type NodeStore struct {
	db chaindb.Database
}

// NewNodeStore wraps an already-namespaced chaindb.Database as a NodeStore.
func NewNodeStore(db chaindb.Database) *NodeStore {
	return &NodeStore{db: db}
}

func (s *NodeStore) Get(version uint64, path nibble.Path) (*trie.Node, error) {
	raw, err := s.db.Get(trie.EncodeNodeKey(version, path))
	if err != nil {
		if err == chaindb.ErrKeyNotFound {
			return nil, trie.ErrNodeNotFound
		}
		return nil, fmt.Errorf("trie/badgerstore: get: %w: %v", trie.ErrBackend, err)
	}
	return trie.DecodeNode(raw)
}

func (s *NodeStore) Put(version uint64, path nibble.Path, node *trie.Node) error {
	if err := s.db.Put(trie.EncodeNodeKey(version, path), trie.EncodeNode(node)); err != nil {
		return fmt.Errorf("trie/badgerstore: put: %w: %v", trie.ErrBackend, err)
	}
	return nil
}

func (s *NodeStore) Delete(version uint64, path nibble.Path) error {
	if err := s.db.Del(trie.EncodeNodeKey(version, path)); err != nil {
		return fmt.Errorf("trie/badgerstore: delete: %w: %v", trie.ErrBackend, err)
	}
	return nil
}

func (s *NodeStore) RangeByVersion(version uint64, fn func(nibble.Path, *trie.Node) (bool, error)) error {
	prefix := make([]byte, 8)
	binaryPutUint64(prefix, version)

	itr := s.db.NewIterator()
	defer itr.Release()

	for itr.Next() {
		key := itr.Key()
		if len(key) < len(prefix) {
			continue
		}
		comp := bytes.Compare(key[:len(prefix)], prefix)
		if comp < 0 {
			continue
		}
		if comp > 0 {
			break
		}
		v, path, ok := trie.DecodeNodeKey(key)
		if !ok || v != version {
			continue
		}
		node, err := trie.DecodeNode(itr.Value())
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
	return s.db.Close()
}

// OrphanLog is a trie.OrphanLog backed by a chaindb.Database (a Badger table).
type OrphanLog struct {
	db chaindb.Database
}

// NewOrphanLog wraps an already-namespaced chaindb.Database as an OrphanLog.
func NewOrphanLog(db chaindb.Database) *OrphanLog {
	return &OrphanLog{db: db}
}

func (o *OrphanLog) Put(since, origVersion uint64, path nibble.Path) error {
	if err := o.db.Put(trie.EncodeOrphanKey(since, origVersion, path), []byte{}); err != nil {
		return fmt.Errorf("trie/badgerstore: put orphan: %w: %v", trie.ErrBackend, err)
	}
	return nil
}

func (o *OrphanLog) Delete(since, origVersion uint64, path nibble.Path) error {
	if err := o.db.Del(trie.EncodeOrphanKey(since, origVersion, path)); err != nil {
		return fmt.Errorf("trie/badgerstore: delete orphan: %w: %v", trie.ErrBackend, err)
	}
	return nil
}

func (o *OrphanLog) RangeUpTo(upTo uint64, fn func(since, origVersion uint64, path nibble.Path) (bool, error)) error {
	itr := o.db.NewIterator()
	defer itr.Release()

	for itr.Next() {
		since, origVersion, path, ok := trie.DecodeOrphanKey(itr.Key())
		if !ok {
			continue
		}
		if since > upTo {
			// ORPHANS is ordered by since ascending; nothing further qualifies.
			break
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
	return o.db.Close()
}

// RootIndex is a trie.RootIndex backed by a chaindb.Database (a Badger table).
type RootIndex struct {
	db chaindb.Database
}

// NewRootIndex wraps an already-namespaced chaindb.Database as a RootIndex.
func NewRootIndex(db chaindb.Database) *RootIndex {
	return &RootIndex{db: db}
}

func (r *RootIndex) Get(version uint64) (*trie.RootPointer, error) {
	raw, err := r.db.Get(trie.EncodeRootKey(version))
	if err != nil {
		if err == chaindb.ErrKeyNotFound {
			return nil, trie.ErrUnknownVersion
		}
		return nil, fmt.Errorf("trie/badgerstore: get root: %w: %v", trie.ErrBackend, err)
	}
	ptr, ok := trie.DecodeRootPointer(raw)
	if !ok {
		return nil, fmt.Errorf("trie/badgerstore: get root: %w", trie.ErrMalformedNode)
	}
	return ptr, nil
}

func (r *RootIndex) Put(version uint64, ptr *trie.RootPointer) error {
	if err := r.db.Put(trie.EncodeRootKey(version), trie.EncodeRootPointer(ptr)); err != nil {
		return fmt.Errorf("trie/badgerstore: put root: %w: %v", trie.ErrBackend, err)
	}
	return nil
}

func (r *RootIndex) Close() error {
	return r.db.Close()
}

func binaryPutUint64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
