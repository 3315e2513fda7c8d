// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

package trie

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeNodeRoundTripLeaf(t *testing.T) {
	n := &Node{Value: &Record{Key: []byte("hello"), Value: []byte("world")}}
	raw := EncodeNode(n)
	got, err := DecodeNode(raw)
	require.NoError(t, err)
	if diff := cmp.Diff(n, got); diff != "" {
		t.Fatalf("round trip mismatch:\n%s", diff)
	}
}

func TestEncodeDecodeNodeRoundTripInternalNoValue(t *testing.T) {
	n := &Node{}
	n.Children[0] = &Child{Version: 7, Hash: Digest{1, 2, 3}, IsLeaf: true}
	n.Children[15] = &Child{Version: 8, Hash: Digest{4, 5, 6}, IsLeaf: false}

	raw := EncodeNode(n)
	got, err := DecodeNode(raw)
	require.NoError(t, err)
	if diff := cmp.Diff(n, got); diff != "" {
		t.Fatalf("round trip mismatch:\n%s", diff)
	}
}

func TestEncodeDecodeNodeRoundTripInternalWithValue(t *testing.T) {
	n := &Node{Value: &Record{Key: []byte("k"), Value: []byte{}}}
	n.Children[5] = &Child{Version: 1, Hash: Digest{9}, IsLeaf: true}

	raw := EncodeNode(n)
	got, err := DecodeNode(raw)
	require.NoError(t, err)
	if diff := cmp.Diff(n, got); diff != "" {
		t.Fatalf("round trip mismatch:\n%s", diff)
	}
}

func TestDecodeNodeRejectsTruncatedInput(t *testing.T) {
	_, err := DecodeNode([]byte{0x00})
	require.ErrorIs(t, err, ErrMalformedNode)
}

func TestDecodeNodeRejectsBadPresenceByte(t *testing.T) {
	n := &Node{} // no children, no value: bitmap is the only content before the presence byte
	raw := EncodeNode(n)
	raw[2] = 0xff // presence byte immediately follows the 2-byte bitmap
	_, err := DecodeNode(raw)
	require.Error(t, err)
}
