// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

package trie

import (
	"encoding/binary"

	"github.com/statechain/mtrie/pkg/trie/nibble"
)

// Store is an ordered map keyed by (version, path), holding every node
// record ever written. Implementations must preserve lexicographic
// ordering over the encoded key so RangeByVersion can stream results
// without sorting in memory. Grounded on chaindb.Database's contract
// (Get/Put/Delete/NewIterator), generalized from a flat keyspace to the
// node/orphan two-collection model this package needs.
type Store interface {
	Get(version uint64, path nibble.Path) (*Node, error)
	Put(version uint64, path nibble.Path, node *Node) error
	Delete(version uint64, path nibble.Path) error
	// RangeByVersion calls fn for every (path, node) stored at exactly
	// version, in encoded-key order (see EncodeNodeKey): by path length
	// first, then by packed path bytes. This is not lexicographic nibble
	// order when paths of different lengths are stored. It stops when fn
	// returns false or an error occurs.
	RangeByVersion(version uint64, fn func(path nibble.Path, node *Node) (bool, error)) error
	// Close releases backend resources. Safe to call once.
	Close() error
}

// OrphanLog records that a node at (origVersion, path) is no longer
// referenced by any version >= since.
type OrphanLog interface {
	Put(since, origVersion uint64, path nibble.Path) error
	Delete(since, origVersion uint64, path nibble.Path) error
	// RangeUpTo calls fn for every orphan record with since <= upTo,
	// until fn returns false or an error occurs.
	RangeUpTo(upTo uint64, fn func(since, origVersion uint64, path nibble.Path) (bool, error)) error
	Close() error
}

// RootPointer resolves where a version's root node actually lives. Most
// versions rewrite their root, so OrigVersion equals the version itself;
// a version produced from an empty batch reuses the previous version's
// root row verbatim (structural sharing), so OrigVersion instead names
// that earlier version. A batch with at least one op rewrites the root
// row even when its net effect on the tree is nil.
//
// This index is necessary plumbing the node store alone cannot provide:
// it cannot answer root(v) for a version whose root was never rewritten,
// since no (v, ε) row exists for it. Grounded on the single-key metadata
// idiom used for the "last pruned" pointer in dot/state/pruner.go.
type RootPointer struct {
	OrigVersion uint64
	Hash        Digest
	IsLeaf      bool
}

// RootIndex is the small version -> RootPointer mapping described above.
type RootIndex interface {
	Get(version uint64) (*RootPointer, error)
	Put(version uint64, ptr *RootPointer) error
	Close() error
}

// EncodeNodeKey renders the node store key for (version, path):
// version:u64_be ‖ path_len:u16_be ‖ path_bytes.
func EncodeNodeKey(version uint64, path nibble.Path) []byte {
	packed := path.Bytes()
	key := make([]byte, 8+2+len(packed))
	binary.BigEndian.PutUint64(key[0:8], version)
	binary.BigEndian.PutUint16(key[8:10], uint16(path.Len()))
	copy(key[10:], packed)
	return key
}

// DecodeNodeKey is the inverse of EncodeNodeKey.
func DecodeNodeKey(key []byte) (version uint64, path nibble.Path, ok bool) {
	if len(key) < 10 {
		return 0, nibble.Path{}, false
	}
	version = binary.BigEndian.Uint64(key[0:8])
	n := int(binary.BigEndian.Uint16(key[8:10]))
	packed := key[10:]
	if len(packed) != (n+1)/2 {
		return 0, nibble.Path{}, false
	}
	return version, nibble.FromPacked(packed, n), true
}

// EncodeOrphanKey renders the orphan log key for (since, origVersion, path):
// v_orph:u64_be ‖ v_orig:u64_be ‖ path_len:u16_be ‖ path_bytes.
func EncodeOrphanKey(since, origVersion uint64, path nibble.Path) []byte {
	packed := path.Bytes()
	key := make([]byte, 8+8+2+len(packed))
	binary.BigEndian.PutUint64(key[0:8], since)
	binary.BigEndian.PutUint64(key[8:16], origVersion)
	binary.BigEndian.PutUint16(key[16:18], uint16(path.Len()))
	copy(key[18:], packed)
	return key
}

// DecodeOrphanKey is the inverse of EncodeOrphanKey.
func DecodeOrphanKey(key []byte) (since, origVersion uint64, path nibble.Path, ok bool) {
	if len(key) < 18 {
		return 0, 0, nibble.Path{}, false
	}
	since = binary.BigEndian.Uint64(key[0:8])
	origVersion = binary.BigEndian.Uint64(key[8:16])
	n := int(binary.BigEndian.Uint16(key[16:18]))
	packed := key[18:]
	if len(packed) != (n+1)/2 {
		return 0, 0, nibble.Path{}, false
	}
	return since, origVersion, nibble.FromPacked(packed, n), true
}

// EncodeRootKey renders the ROOTS key for version.
func EncodeRootKey(version uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, version)
	return key
}

// DecodeRootKey is the inverse of EncodeRootKey.
func DecodeRootKey(key []byte) (version uint64, ok bool) {
	if len(key) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(key), true
}

// EncodeRootPointer serializes a RootPointer: origVersion:u64_be ‖
// hash:32B ‖ is_leaf:1B.
func EncodeRootPointer(ptr *RootPointer) []byte {
	buf := make([]byte, 8+32+1)
	binary.BigEndian.PutUint64(buf[0:8], ptr.OrigVersion)
	copy(buf[8:40], ptr.Hash[:])
	if ptr.IsLeaf {
		buf[40] = 1
	}
	return buf
}

// DecodeRootPointer is the inverse of EncodeRootPointer.
func DecodeRootPointer(raw []byte) (*RootPointer, bool) {
	if len(raw) != 41 {
		return nil, false
	}
	ptr := &RootPointer{
		OrigVersion: binary.BigEndian.Uint64(raw[0:8]),
		IsLeaf:      raw[40] != 0,
	}
	copy(ptr.Hash[:], raw[8:40])
	return ptr, true
}
