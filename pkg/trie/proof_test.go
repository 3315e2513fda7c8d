// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

package trie

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestProofBytesRoundTripMembership(t *testing.T) {
	p := &Proof{
		Kind:      ProofMembership,
		LeafKey:   []byte("k"),
		LeafValue: []byte("v"),
		Steps: []ProofStep{
			{Value: &Record{Key: []byte("p"), Value: []byte("pv")}, Slot: 3},
		},
	}
	p.Steps[0].Siblings[7] = &Child{Hash: Digest{0xAA}}

	raw := p.Bytes()
	got, err := ParseProof(raw)
	require.NoError(t, err)
	if diff := cmp.Diff(p, got); diff != "" {
		t.Fatalf("round trip mismatch:\n%s", diff)
	}
}

func TestProofBytesRoundTripEmptyTree(t *testing.T) {
	p := emptyNonMembershipProof()
	got, err := ParseProof(p.Bytes())
	require.NoError(t, err)
	if diff := cmp.Diff(p, got); diff != "" {
		t.Fatalf("round trip mismatch:\n%s", diff)
	}
}

func TestProofBytesRoundTripDivergentInternal(t *testing.T) {
	p := &Proof{
		Kind:            ProofDivergentInternal,
		DivergenceValue: &Record{Key: []byte("x"), Value: []byte("y")},
	}
	p.DivergenceChildren[2] = &Child{Hash: Digest{0x11}}
	p.DivergenceChildren[9] = &Child{Hash: Digest{0x22}}

	got, err := ParseProof(p.Bytes())
	require.NoError(t, err)
	if diff := cmp.Diff(p, got); diff != "" {
		t.Fatalf("round trip mismatch:\n%s", diff)
	}
}

func TestParseProofRejectsTruncatedInput(t *testing.T) {
	_, err := ParseProof([]byte{byte(ProofMembership)})
	require.ErrorIs(t, err, ErrMalformedNode)
}

func TestParseProofRejectsTrailingBytes(t *testing.T) {
	p := emptyNonMembershipProof()
	raw := append(p.Bytes(), 0xFF)
	_, err := ParseProof(raw)
	require.ErrorIs(t, err, ErrMalformedNode)
}
