// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

package trie

import "golang.org/x/crypto/blake2b"

// Digest is a 256-bit collision-resistant hash.
type Digest [32]byte

// IsZero reports whether d is the zero digest (not a meaningful tree state
// on its own, but useful for sanity checks in tests).
func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) Bytes() []byte {
	out := make([]byte, len(d))
	copy(out, d[:])
	return out
}

// Hasher is the pluggable collision-resistant hash primitive the tree is
// built on. Blake2bHasher is the module's default so it is usable
// standalone.
type Hasher interface {
	Sum(data []byte) Digest
}

// Blake2bHasher is the default Hasher, grounded on lib/common.Blake2bHash
// as used throughout trie and block hashing.
type Blake2bHasher struct{}

// Sum implements Hasher.
func (Blake2bHasher) Sum(data []byte) Digest {
	return blake2b.Sum256(data)
}

const (
	// domainEmpty tags the fixed empty-tree sentinel digest.
	domainEmpty byte = 0x00
	// domainLeaf tags the digest of a node with no children.
	domainLeaf byte = 0x01
	// domainInternal tags the digest of a node with at least one child.
	domainInternal byte = 0x02
)

// EmptyDigest returns the fixed sentinel digest for the empty tree,
// computed as H(domainEmpty) under the given hasher.
func EmptyDigest(h Hasher) Digest {
	return h.Sum([]byte{domainEmpty})
}
