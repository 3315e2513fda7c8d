// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

package trie

import (
	"fmt"
	"sort"

	"github.com/statechain/mtrie/pkg/trie/nibble"
)

// OpKind distinguishes the two mutations a Batch entry may carry.
type OpKind uint8

const (
	OpInsert OpKind = iota
	OpDelete
)

// Op is a single pending mutation. Use Insert/Delete to construct one.
type Op struct {
	Kind  OpKind
	Key   []byte
	Value []byte
}

// Insert returns an Op that sets key to value.
func Insert(key, value []byte) Op {
	return Op{Kind: OpInsert, Key: key, Value: value}
}

// Delete returns an Op that removes key.
func Delete(key []byte) Op {
	return Op{Kind: OpDelete, Key: key}
}

// Batch is an unordered collection of pending mutations passed to Apply.
type Batch []Op

// preparedOp is a normalized Op with its nibble path precomputed, sorted
// ascending by path (equivalently, by key, per nibble.Compare).
type preparedOp struct {
	path    nibble.Path
	key     []byte
	value   []byte
	isDelete bool
}

// normalizeBatch validates a batch, collapses duplicate keys
// last-occurrence-wins, and sorts the result ascending by key.
func normalizeBatch(batch Batch) ([]preparedOp, error) {
	last := make(map[string]Op, len(batch))
	order := make([]string, 0, len(batch))
	for _, op := range batch {
		if len(op.Key) == 0 {
			return nil, ErrEmptyKey
		}
		k := string(op.Key)
		if _, seen := last[k]; !seen {
			order = append(order, k)
		}
		last[k] = op
	}

	prepared := make([]preparedOp, 0, len(order))
	for _, k := range order {
		op := last[k]
		prepared = append(prepared, preparedOp{
			path:     nibble.FromKey(op.Key),
			key:      op.Key,
			value:    op.Value,
			isDelete: op.Kind == OpDelete,
		})
	}

	sort.Slice(prepared, func(i, j int) bool {
		return nibble.Compare(prepared[i].path, prepared[j].path) < 0
	})
	return prepared, nil
}

// applyEngine holds the fixed parameters of one Apply call's recursion.
type applyEngine struct {
	store      Store
	orphans    OrphanLog
	hasher     Hasher
	oldVersion uint64 // version the read baseline descends from; the recursion reads each node at its baseline's own Version instead
	newVersion uint64
}

// applyAt recursively rewrites the subtree whose ops all share path as a
// nibble prefix, given the existing child descriptor there (nil if
// none). It returns the new child descriptor, or nil if the path is now
// vacant.
//
// baseline.Path may run deeper than path: a collapsed singleton chain
// means the node actually addressed by this slot can sit several
// nibbles below path. applyAcrossSkip handles that case; this function
// only ever sees baseline.Path == path (or baseline == nil).
func (e *applyEngine) applyAt(path nibble.Path, baseline *Child, ops []preparedOp) (*Child, error) {
	if len(ops) == 0 {
		return baseline, nil
	}

	if baseline != nil && baseline.Path.Len() > path.Len() {
		return e.applyAcrossSkip(path, baseline, ops)
	}

	var existing *Node
	if baseline != nil {
		n, err := e.store.Get(baseline.Version, path)
		if err != nil {
			return nil, fmt.Errorf("trie: apply: reading existing node at %s (v%d): %w", path, baseline.Version, err)
		}
		existing = n
	}

	return e.applyExisting(path, baseline, existing, ops)
}

// applyAcrossSkip handles ops whose common prefix is path when the
// existing content for this slot was collapsed deeper than path: a
// materialized node between path and baseline.Path would have to carry
// a value or branch, so the nibbles in between were never branched on.
// New ops may still agree
// with every one of those skipped nibbles (recurse straight through to
// where the old content actually lives) or disagree partway through,
// which forces a fresh branch node at the depth of first disagreement,
// keeping the untouched old content as one of its children, addressed
// exactly where it already was.
func (e *applyEngine) applyAcrossSkip(path nibble.Path, baseline *Child, ops []preparedOp) (*Child, error) {
	depth := path.Len()
	skipEnd := baseline.Path.Len()

	divergeAt := skipEnd
scan:
	for d := depth; d < skipEnd; d++ {
		want := baseline.Path.At(d)
		for _, op := range ops {
			if op.path.Len() <= d || op.path.At(d) != want {
				divergeAt = d
				break scan
			}
		}
	}

	if divergeAt == skipEnd {
		n, err := e.store.Get(baseline.Version, baseline.Path)
		if err != nil {
			return nil, fmt.Errorf("trie: apply: reading existing node at %s (v%d): %w", baseline.Path, baseline.Version, err)
		}
		return e.applyExisting(baseline.Path, baseline, n, ops)
	}

	branchPath := baseline.Path.Slice(0, divergeAt)
	oldSlot := baseline.Path.At(divergeAt)

	var buckets [16][]preparedOp
	var localOp *preparedOp
	for i := range ops {
		op := ops[i]
		if op.path.Len() == divergeAt {
			localOp = &op
			continue
		}
		buckets[op.path.At(divergeAt)] = append(buckets[op.path.At(divergeAt)], op)
	}

	var newValue *Record
	if localOp != nil && !localOp.isDelete {
		newValue = &Record{Key: localOp.key, Value: localOp.value}
	}

	var newChildren [16]*Child
	newChildren[oldSlot] = baseline
	for slot := 0; slot < 16; slot++ {
		if len(buckets[slot]) == 0 {
			continue
		}
		var childBaseline *Child
		if slot == int(oldSlot) {
			childBaseline = baseline
		}
		child, err := e.applyAt(branchPath.Push(byte(slot)), childBaseline, buckets[slot])
		if err != nil {
			return nil, err
		}
		newChildren[slot] = child
	}

	count := 0
	for _, c := range newChildren {
		if c != nil {
			count++
		}
	}

	switch {
	case count == 0 && newValue == nil:
		return nil, nil

	case count == 1 && newValue == nil:
		for _, c := range newChildren {
			if c != nil {
				return c, nil
			}
		}
		panic("trie: unreachable: count == 1 with no child set")

	default:
		node := &Node{Value: newValue, Children: newChildren}
		if err := e.store.Put(e.newVersion, branchPath, node); err != nil {
			return nil, fmt.Errorf("trie: apply: writing node at %s: %w", branchPath, err)
		}
		hash := node.Digest(e.hasher)
		return &Child{Version: e.newVersion, Hash: hash, IsLeaf: false, Path: branchPath}, nil
	}
}

// applyExisting is the common materialize-or-collapse step, run once the
// caller has resolved exactly what (if anything) already lives at
// nodePath. baseline, if non-nil, addresses that existing content and is
// what gets orphaned if nodePath's content changes.
func (e *applyEngine) applyExisting(nodePath nibble.Path, baseline *Child, existing *Node, ops []preparedOp) (*Child, error) {
	depth := nodePath.Len()
	var localOp *preparedOp
	rest := ops
	if ops[0].path.Len() == depth {
		localOp = &ops[0]
		rest = ops[1:]
	}

	newValue := (*Record)(nil)
	if existing != nil {
		newValue = existing.Value
	}
	if localOp != nil {
		if localOp.isDelete {
			newValue = nil
		} else {
			newValue = &Record{Key: localOp.key, Value: localOp.value}
		}
	}

	var buckets [16][]preparedOp
	for _, op := range rest {
		slot := op.path.At(depth)
		buckets[slot] = append(buckets[slot], op)
	}

	var newChildren [16]*Child
	for slot := 0; slot < 16; slot++ {
		if len(buckets[slot]) == 0 {
			if existing != nil {
				newChildren[slot] = existing.Children[slot]
			}
			continue
		}
		var childBaseline *Child
		if existing != nil {
			childBaseline = existing.Children[slot]
		}
		child, err := e.applyAt(nodePath.Push(byte(slot)), childBaseline, buckets[slot])
		if err != nil {
			return nil, err
		}
		newChildren[slot] = child
	}

	count := 0
	for _, c := range newChildren {
		if c != nil {
			count++
		}
	}

	orphanIfRewritten := func() error {
		if baseline != nil {
			if err := e.orphans.Put(e.newVersion, baseline.Version, nodePath); err != nil {
				return fmt.Errorf("trie: apply: recording orphan for %s: %w", nodePath, err)
			}
		}
		return nil
	}

	switch {
	case count == 0 && newValue == nil:
		if err := orphanIfRewritten(); err != nil {
			return nil, err
		}
		return nil, nil

	case count == 0 && newValue != nil:
		node := &Node{Value: newValue}
		if err := e.store.Put(e.newVersion, nodePath, node); err != nil {
			return nil, fmt.Errorf("trie: apply: writing leaf at %s: %w", nodePath, err)
		}
		if err := orphanIfRewritten(); err != nil {
			return nil, err
		}
		hash := node.Digest(e.hasher)
		return &Child{Version: e.newVersion, Hash: hash, IsLeaf: true, Path: nodePath}, nil

	case count == 1 && newValue == nil && !nodePath.IsEmpty():
		// nodePath would be a degenerate, single-child, no-value node,
		// which is never materialized. Pass the sole child's
		// descriptor straight up: it already carries its own Path, set
		// wherever it was actually materialized, however many nibbles
		// below nodePath that turns out to be. The caller addresses it
		// directly via that Path rather than assuming one nibble per
		// level.
		if err := orphanIfRewritten(); err != nil {
			return nil, err
		}
		for _, c := range newChildren {
			if c != nil {
				return c, nil
			}
		}
		panic("trie: unreachable: count == 1 with no child set")

	default:
		node := &Node{Value: newValue, Children: newChildren}
		if err := e.store.Put(e.newVersion, nodePath, node); err != nil {
			return nil, fmt.Errorf("trie: apply: writing node at %s: %w", nodePath, err)
		}
		if err := orphanIfRewritten(); err != nil {
			return nil, err
		}
		hash := node.Digest(e.hasher)
		return &Child{Version: e.newVersion, Hash: hash, IsLeaf: false, Path: nodePath}, nil
	}
}

// applyBatch runs the full apply engine over a normalized batch, given the
// resolved root descriptor for oldVersion (nil if the tree is empty). It
// returns the new root descriptor (nil if the tree is now empty).
func applyBatch(store Store, orphans OrphanLog, hasher Hasher, oldVersion, newVersion uint64, rootBaseline *Child, ops []preparedOp) (*Child, error) {
	e := &applyEngine{store: store, orphans: orphans, hasher: hasher, oldVersion: oldVersion, newVersion: newVersion}
	return e.applyAt(nibble.Empty(), rootBaseline, ops)
}
