// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

package memstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statechain/mtrie/pkg/trie"
	"github.com/statechain/mtrie/pkg/trie/nibble"
)

func TestNodeStorePutGet(t *testing.T) {
	s := New()
	n := &trie.Node{Value: &trie.Record{Key: []byte("a"), Value: []byte("1")}}
	require.NoError(t, s.Put(1, nibble.FromKey([]byte("a")), n))

	got, err := s.Get(1, nibble.FromKey([]byte("a")))
	require.NoError(t, err)
	assert.Equal(t, n.Value.Key, got.Value.Key)
	assert.Equal(t, n.Value.Value, got.Value.Value)
}

func TestNodeStoreGetMissing(t *testing.T) {
	s := New()
	_, err := s.Get(1, nibble.FromKey([]byte("missing")))
	assert.ErrorIs(t, err, trie.ErrNodeNotFound)
}

func TestNodeStoreRangeByVersionAscendingByPath(t *testing.T) {
	s := New()
	keys := [][]byte{[]byte("c"), []byte("a"), []byte("b")}
	for _, k := range keys {
		require.NoError(t, s.Put(1, nibble.FromKey(k), &trie.Node{Value: &trie.Record{Key: k, Value: k}}))
	}
	require.NoError(t, s.Put(2, nibble.FromKey([]byte("z")), &trie.Node{Value: &trie.Record{Key: []byte("z"), Value: []byte("z")}}))

	var seen [][]byte
	err := s.RangeByVersion(1, func(p nibble.Path, n *trie.Node) (bool, error) {
		seen = append(seen, n.Value.Key)
		return true, nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 3)
	assert.Equal(t, []byte("a"), seen[0])
	assert.Equal(t, []byte("b"), seen[1])
	assert.Equal(t, []byte("c"), seen[2])
}

func TestNodeStoreRangeByVersionStopsEarly(t *testing.T) {
	s := New()
	for _, k := range [][]byte{[]byte("a"), []byte("b"), []byte("c")} {
		require.NoError(t, s.Put(1, nibble.FromKey(k), &trie.Node{Value: &trie.Record{Key: k, Value: k}}))
	}

	count := 0
	err := s.RangeByVersion(1, func(p nibble.Path, n *trie.Node) (bool, error) {
		count++
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOrphanLogRangeUpToOrderedBySince(t *testing.T) {
	o := NewOrphanLog()
	require.NoError(t, o.Put(5, 1, nibble.FromKey([]byte("x"))))
	require.NoError(t, o.Put(3, 1, nibble.FromKey([]byte("y"))))
	require.NoError(t, o.Put(10, 1, nibble.FromKey([]byte("z"))))

	var sinces []uint64
	err := o.RangeUpTo(5, func(since, orig uint64, p nibble.Path) (bool, error) {
		sinces = append(sinces, since)
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 5}, sinces)
}

func TestRootIndexGetUnknownVersion(t *testing.T) {
	r := NewRootIndex()
	_, err := r.Get(42)
	assert.ErrorIs(t, err, trie.ErrUnknownVersion)
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	s := New()
	require.NoError(t, s.Close())
	err := s.Put(1, nibble.Empty(), &trie.Node{})
	assert.ErrorIs(t, err, trie.ErrClosed)
}
