// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

package trie

import (
	"encoding/binary"

	"github.com/statechain/mtrie/pkg/trie/nibble"
)

// Record is the (key, value) pair a node carries when a key's nibble
// representation terminates exactly at that node's path. Any node, leaf
// or branching, may carry one.
type Record struct {
	Key   []byte
	Value []byte
}

func (r *Record) clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{
		Key:   make([]byte, len(r.Key)),
		Value: make([]byte, len(r.Value)),
	}
	copy(out.Key, r.Key)
	copy(out.Value, r.Value)
	return out
}

// Child records one of a node's up to 16 slots. Path is the nibble path
// the referenced node actually lives at, which may run deeper than the
// parent's own path by more than one nibble: a non-root node with no
// value and exactly one child is never itself materialized, so the child
// descriptor a multi-child ancestor keeps is the one originally produced
// however many levels down the singleton chain bottomed out, carrying
// the skipped nibbles along with it. Path is storage addressing only; it
// never enters the digest.
type Child struct {
	Version uint64
	Hash    Digest
	IsLeaf  bool
	Path    nibble.Path
}

// Node is the tree's single node variant: an optional carried Record plus
// a sparse array of up to 16 children. There is no "extension" or
// "branch-only" variant: a non-root node must carry a value (with or
// without children) or branch into at least two children.
type Node struct {
	Value    *Record
	Children [16]*Child
}

// ChildCount returns the number of occupied child slots.
func (n *Node) ChildCount() int {
	count := 0
	for _, c := range n.Children {
		if c != nil {
			count++
		}
	}
	return count
}

// IsLeaf reports whether n carries a value and has no children, the
// condition required of any child entry with IsLeaf set.
func (n *Node) IsLeaf() bool {
	return n.Value != nil && n.ChildCount() == 0
}

// IsVacant reports whether n carries neither a value nor any children,
// i.e. it should not be materialized at all.
func (n *Node) IsVacant() bool {
	return n.Value == nil && n.ChildCount() == 0
}

func (n *Node) clone() *Node {
	out := &Node{Value: n.Value.clone()}
	for i, c := range n.Children {
		if c == nil {
			continue
		}
		cc := *c
		out.Children[i] = &cc
	}
	return out
}

// leafValueDigest hashes key and value with explicit length prefixes so
// that, e.g., ("foo","bar") and ("foob","ar") never collide.
func leafValueDigest(h Hasher, key, value []byte) Digest {
	buf := make([]byte, 0, 8+len(key)+len(value))
	buf = appendUint32(buf, uint32(len(key)))
	buf = append(buf, key...)
	buf = appendUint32(buf, uint32(len(value)))
	buf = append(buf, value...)
	return h.Sum(buf)
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// Digest computes the node's digest as:
//
//	H(domain_tag ‖ value_part ‖ children_part)
//
// domain_tag is domainLeaf for a childless node (which must then carry a
// value) and domainInternal otherwise. value_part is a
// single absence byte, or a presence byte followed by H_leaf(key‖value).
// children_part is, for each of the 16 slots in ascending index order,
// either an absence byte or a presence byte followed by the child's hash.
func (n *Node) Digest(h Hasher) Digest {
	domain := domainInternal
	if n.ChildCount() == 0 {
		domain = domainLeaf
	}

	buf := make([]byte, 0, 1+33+16*33)
	buf = append(buf, domain)

	if n.Value != nil {
		buf = append(buf, 0x01)
		vd := leafValueDigest(h, n.Value.Key, n.Value.Value)
		buf = append(buf, vd[:]...)
	} else {
		buf = append(buf, 0x00)
	}

	for _, c := range n.Children {
		if c == nil {
			buf = append(buf, 0x00)
			continue
		}
		buf = append(buf, 0x01)
		buf = append(buf, c.Hash[:]...)
	}

	return h.Sum(buf)
}
