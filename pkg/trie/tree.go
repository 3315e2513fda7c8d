// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

// Package trie implements a versioned, Merkle-committed 16-ary radix tree
// over raw byte keys and values, intended as the state commitment layer of
// a blockchain-style system. Every Apply call produces a new immutable
// version with structural sharing against its predecessors; historical
// versions remain queryable, with proof generation and verification, until
// explicitly pruned.
package trie

import (
	"fmt"
	"sync"

	"github.com/statechain/mtrie/pkg/trie/internal/log"
	"github.com/statechain/mtrie/pkg/trie/nibble"
)

var logger = log.New(log.SetLevel(log.Info))

// Tree is the top-level handle to a versioned trie instance. It is safe
// for concurrent use: Apply and Prune serialize on an internal mutex
// (single-writer), while Get, Iterate, and proof generation against any
// already-committed version may run concurrently with each other and with
// an in-flight writer.
type Tree struct {
	mu      sync.Mutex
	store   Store
	orphans OrphanLog
	roots   RootIndex
	hasher  Hasher
	logger  *log.Logger
	cache   NodeCache

	// version is the latest committed version. Protected by mu.
	version uint64
}

// New constructs a Tree over the given Store/OrphanLog/RootIndex, starting
// at resumeVersion: 0 for a new, empty tree, or the latest committed
// version when resuming an existing tree. The backend is not consulted;
// the caller supplies the version.
func New(store Store, orphans OrphanLog, roots RootIndex, resumeVersion uint64, options ...Option) *Tree {
	t := &Tree{
		store:   store,
		orphans: orphans,
		roots:   roots,
		hasher:  Blake2bHasher{},
		logger:  logger,
		version: resumeVersion,
	}
	for _, option := range options {
		option(t)
	}
	return t
}

// Version returns the latest committed version.
func (t *Tree) Version() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.version
}

// rootPointer resolves the RootPointer for version, or nil if the tree is
// empty at that version. Version 0 is always empty by definition and never
// touches the backend.
func (t *Tree) rootPointer(version uint64) (*RootPointer, error) {
	if version == 0 {
		return nil, nil
	}
	ptr, err := t.roots.Get(version)
	if err != nil {
		return nil, fmt.Errorf("trie: resolve root at v%d: %w", version, err)
	}
	if ptr.OrigVersion == 0 {
		return nil, nil
	}
	return ptr, nil
}

// rootChild is the root's descriptor as seen by the apply engine: the same
// shape as a NodeChild, since the root is read exactly like any other
// child once its origin version is known.
func (t *Tree) rootChild(version uint64) (*Child, error) {
	ptr, err := t.rootPointer(version)
	if err != nil {
		return nil, err
	}
	if ptr == nil {
		return nil, nil
	}
	return &Child{Version: ptr.OrigVersion, Hash: ptr.Hash, IsLeaf: ptr.IsLeaf, Path: nibble.Empty()}, nil
}

// Root returns the root digest at version, or EmptyDigest if the tree is
// empty at that version.
func (t *Tree) Root(version uint64) (Digest, error) {
	child, err := t.rootChild(version)
	if err != nil {
		return Digest{}, err
	}
	if child == nil {
		return EmptyDigest(t.hasher), nil
	}
	return child.Hash, nil
}

// Apply commits batch atomically, producing a new version. It returns the
// new version number and its root digest. An empty batch still advances
// the version counter, reusing the previous root via structural sharing
// (no new nodes are written).
func (t *Tree) Apply(batch Batch) (newVersion uint64, root Digest, err error) {
	ops, err := normalizeBatch(batch)
	if err != nil {
		return 0, Digest{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	oldVersion := t.version
	newVersion = oldVersion + 1

	rootBaseline, err := t.rootChild(oldVersion)
	if err != nil {
		return 0, Digest{}, err
	}

	newRootChild, err := applyBatch(t.store, t.orphans, t.hasher, oldVersion, newVersion, rootBaseline, ops)
	if err != nil {
		return 0, Digest{}, fmt.Errorf("trie: apply v%d: %w", newVersion, err)
	}

	var ptr *RootPointer
	if newRootChild == nil {
		ptr = &RootPointer{OrigVersion: 0, Hash: EmptyDigest(t.hasher)}
	} else {
		ptr = &RootPointer{OrigVersion: newRootChild.Version, Hash: newRootChild.Hash, IsLeaf: newRootChild.IsLeaf}
	}
	if err := t.roots.Put(newVersion, ptr); err != nil {
		return 0, Digest{}, fmt.Errorf("trie: apply v%d: recording root: %w", newVersion, err)
	}

	t.version = newVersion
	t.logger.Debug(fmt.Sprintf("applied %d ops at v%d -> v%d", len(ops), oldVersion, newVersion))
	return newVersion, ptr.Hash, nil
}

// getNode reads a node at (version, path), consulting the cache first if
// one is installed.
func (t *Tree) getNode(version uint64, path nibble.Path) (*Node, error) {
	if t.cache != nil {
		if n, ok := t.cache.Get(version, path); ok {
			return n, nil
		}
	}
	n, err := t.store.Get(version, path)
	if err != nil {
		return nil, err
	}
	if t.cache != nil {
		t.cache.Set(version, path, n)
	}
	return n, nil
}

// Get looks up key as of version. If withProof, a Proof is also returned:
// of Kind ProofMembership if the key was found, otherwise of one of the
// three non-membership kinds.
func (t *Tree) Get(version uint64, key []byte, withProof bool) (value []byte, proof *Proof, err error) {
	if len(key) == 0 {
		return nil, nil, ErrEmptyKey
	}

	root, err := t.rootChild(version)
	if err != nil {
		return nil, nil, err
	}
	target := nibble.FromKey(key)

	if root == nil {
		if withProof {
			return nil, emptyNonMembershipProof(), nil
		}
		return nil, nil, nil
	}

	return t.descend(root, target, key, withProof)
}

// descend walks from child toward target, collecting sibling data for a
// proof if requested. Get uses it both for plain lookups and for proof
// generation; proof.go only assembles the Proof from the collected steps.
//
// Each child descriptor addresses its node directly via its own Path,
// which may sit more than one nibble below the slot it was reached
// through: a singleton no-value node along the way is never
// materialized, so the descriptor handed down from it is whatever its
// sole descendant was actually stored at.
func (t *Tree) descend(child *Child, target nibble.Path, key []byte, withProof bool) ([]byte, *Proof, error) {
	var steps []proofStep

	for {
		if child.IsLeaf {
			node, err := t.getNode(child.Version, child.Path)
			if err != nil {
				return nil, nil, fmt.Errorf("trie: get: reading leaf at %s: %w", child.Path, err)
			}
			if node.Value != nil && string(node.Value.Key) == string(key) {
				if withProof {
					return node.Value.Value, buildProof(steps, node.Value.Key, node.Value.Value, true), nil
				}
				return node.Value.Value, nil, nil
			}
			if withProof {
				var leafKey, leafValue []byte
				if node.Value != nil {
					leafKey, leafValue = node.Value.Key, node.Value.Value
				}
				return nil, buildProof(steps, leafKey, leafValue, false), nil
			}
			return nil, nil, nil
		}

		node, err := t.getNode(child.Version, child.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("trie: get: reading node at %s: %w", child.Path, err)
		}

		if !target.HasPrefix(child.Path) {
			// The key ends or departs from the collapsed chain before
			// reaching this node's path, so nothing below it holds the key.
			if withProof {
				return nil, buildProofDivergentInternal(steps, node), nil
			}
			return nil, nil, nil
		}

		if child.Path.Len() == target.Len() {
			if node.Value != nil && string(node.Value.Key) == string(key) {
				if withProof {
					return node.Value.Value, buildProof(steps, node.Value.Key, node.Value.Value, true), nil
				}
				return node.Value.Value, nil, nil
			}
			if withProof {
				return nil, buildProofDivergentInternal(steps, node), nil
			}
			return nil, nil, nil
		}

		slot := target.At(child.Path.Len())
		next := node.Children[slot]
		if withProof {
			steps = append(steps, proofStep{node: node, slot: slot})
		}
		if next == nil {
			if withProof {
				return nil, buildProofDivergentInternal(steps[:len(steps)-1], node), nil
			}
			return nil, nil, nil
		}
		child = next
	}
}

// Prune deletes node records no longer referenced by any retained version.
// It does not track a minimum live version; the caller must not query
// versions below upTo afterward.
func (t *Tree) Prune(upTo uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return prune(t.store, t.orphans, upTo, t.logger)
}
