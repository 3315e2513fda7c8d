// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

package trie_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/statechain/mtrie/pkg/trie"
	"github.com/statechain/mtrie/pkg/trie/store/memstore"
)

func buildVerifyTestTree(t *testing.T) (*trie.Tree, uint64) {
	t.Helper()
	tr := trie.New(memstore.New(), memstore.NewOrphanLog(), memstore.NewRootIndex(), 0)
	v, _, err := tr.Apply(trie.Batch{
		trie.Insert([]byte("apple"), []byte("1")),
		trie.Insert([]byte("apricot"), []byte("2")),
		trie.Insert([]byte("banana"), []byte("3")),
	})
	require.NoError(t, err)
	return tr, v
}

func TestVerifyMembershipAcceptsValidProof(t *testing.T) {
	tr, v := buildVerifyTestTree(t)
	root, err := tr.Root(v)
	require.NoError(t, err)

	value, proof, err := tr.Get(v, []byte("apple"), true)
	require.NoError(t, err)
	require.Equal(t, []byte("1"), value)
	require.NotNil(t, proof)

	assert := require.New(t)
	assert.True(trie.VerifyMembership(root, trie.Blake2bHasher{}, []byte("apple"), []byte("1"), proof))
}

func TestVerifyMembershipRejectsWrongValue(t *testing.T) {
	tr, v := buildVerifyTestTree(t)
	root, err := tr.Root(v)
	require.NoError(t, err)

	_, proof, err := tr.Get(v, []byte("apple"), true)
	require.NoError(t, err)

	require.False(t, trie.VerifyMembership(root, trie.Blake2bHasher{}, []byte("apple"), []byte("wrong"), proof))
}

func TestVerifyMembershipRejectsTamperedRoot(t *testing.T) {
	tr, v := buildVerifyTestTree(t)
	root, err := tr.Root(v)
	require.NoError(t, err)
	root[0] ^= 0xFF

	_, proof, err := tr.Get(v, []byte("apple"), true)
	require.NoError(t, err)

	require.False(t, trie.VerifyMembership(root, trie.Blake2bHasher{}, []byte("apple"), []byte("1"), proof))
}

func TestVerifyNonMembershipEmptyTree(t *testing.T) {
	tr := trie.New(memstore.New(), memstore.NewOrphanLog(), memstore.NewRootIndex(), 0)
	root, err := tr.Root(0)
	require.NoError(t, err)

	_, proof, err := tr.Get(0, []byte("anything"), true)
	require.NoError(t, err)
	require.Equal(t, trie.ProofEmptyTree, proof.Kind)

	require.True(t, trie.VerifyNonMembership(root, trie.Blake2bHasher{}, []byte("anything"), proof))
}

func TestVerifyNonMembershipDivergentLeaf(t *testing.T) {
	tr := trie.New(memstore.New(), memstore.NewOrphanLog(), memstore.NewRootIndex(), 0)
	v, _, err := tr.Apply(trie.Batch{trie.Insert([]byte("apple"), []byte("1"))})
	require.NoError(t, err)
	root, err := tr.Root(v)
	require.NoError(t, err)

	value, proof, err := tr.Get(v, []byte("apricot"), true)
	require.NoError(t, err)
	require.Nil(t, value)
	require.Equal(t, trie.ProofDivergentLeaf, proof.Kind)

	require.True(t, trie.VerifyNonMembership(root, trie.Blake2bHasher{}, []byte("apricot"), proof))
}

func TestVerifyNonMembershipDivergentInternal(t *testing.T) {
	tr, v := buildVerifyTestTree(t)
	root, err := tr.Root(v)
	require.NoError(t, err)

	value, proof, err := tr.Get(v, []byte("cherry"), true)
	require.NoError(t, err)
	require.Nil(t, value)
	require.Equal(t, trie.ProofDivergentInternal, proof.Kind)

	require.True(t, trie.VerifyNonMembership(root, trie.Blake2bHasher{}, []byte("cherry"), proof))
}

func TestVerifyNonMembershipRejectsProofForPresentKey(t *testing.T) {
	tr, v := buildVerifyTestTree(t)
	root, err := tr.Root(v)
	require.NoError(t, err)

	_, proof, err := tr.Get(v, []byte("apple"), true)
	require.NoError(t, err)
	require.Equal(t, trie.ProofMembership, proof.Kind)

	require.False(t, trie.VerifyNonMembership(root, trie.Blake2bHasher{}, []byte("apple"), proof))
}
