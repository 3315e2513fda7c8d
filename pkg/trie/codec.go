// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

package trie

import (
	"encoding/binary"
	"fmt"

	"github.com/statechain/mtrie/pkg/trie/nibble"
)

// EncodeNode serializes n as a 16-bit bitmap of occupied child slots,
// then for each present child (ascending slot order) its version, hash,
// is_leaf byte, and addressing path (nibble count plus packed nibbles),
// then a value-presence byte and, if present, the length-prefixed key
// and value.
//
// This is deliberately a different encoding from the digest preimage in
// Digest: the digest commits only to hashes, while the stored encoding
// must additionally carry version, is_leaf, and the child's addressing
// path so the tree can resume traversal without rehashing or guessing
// how many nibbles a collapsed singleton chain skipped. Store
// implementations outside this package (memstore, badgerstore) use
// EncodeNode/DecodeNode to serialize values.
func EncodeNode(n *Node) []byte {
	var bitmap uint16
	for i, c := range n.Children {
		if c != nil {
			bitmap |= 1 << uint(i)
		}
	}

	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, bitmap)

	for _, c := range n.Children {
		if c == nil {
			continue
		}
		var rec [8 + 32 + 1]byte
		binary.BigEndian.PutUint64(rec[0:8], c.Version)
		copy(rec[8:40], c.Hash[:])
		if c.IsLeaf {
			rec[40] = 1
		}
		buf = append(buf, rec[:]...)
		buf = appendUint32(buf, uint32(c.Path.Len()))
		buf = append(buf, c.Path.Bytes()...)
	}

	if n.Value == nil {
		buf = append(buf, 0x00)
		return buf
	}
	buf = append(buf, 0x01)
	buf = appendUint32(buf, uint32(len(n.Value.Key)))
	buf = append(buf, n.Value.Key...)
	buf = appendUint32(buf, uint32(len(n.Value.Value)))
	buf = append(buf, n.Value.Value...)
	return buf
}

// DecodeNode is the inverse of EncodeNode. It returns ErrMalformedNode if
// raw is truncated or internally inconsistent.
func DecodeNode(raw []byte) (*Node, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("trie: decode node: %w: missing bitmap", ErrMalformedNode)
	}
	bitmap := binary.BigEndian.Uint16(raw[:2])
	off := 2

	n := &Node{}
	for i := 0; i < 16; i++ {
		if bitmap&(1<<uint(i)) == 0 {
			continue
		}
		if off+41 > len(raw) {
			return nil, fmt.Errorf("trie: decode node: %w: truncated child record", ErrMalformedNode)
		}
		c := &Child{
			Version: binary.BigEndian.Uint64(raw[off : off+8]),
			IsLeaf:  raw[off+40] != 0,
		}
		copy(c.Hash[:], raw[off+8:off+40])
		off += 41

		if off+4 > len(raw) {
			return nil, fmt.Errorf("trie: decode node: %w: truncated child path length", ErrMalformedNode)
		}
		pathLen := int(binary.BigEndian.Uint32(raw[off : off+4]))
		off += 4
		pathBytes := (pathLen + 1) / 2
		if off+pathBytes > len(raw) {
			return nil, fmt.Errorf("trie: decode node: %w: truncated child path", ErrMalformedNode)
		}
		c.Path = nibble.FromPacked(raw[off:off+pathBytes], pathLen)
		off += pathBytes

		n.Children[i] = c
	}

	if off >= len(raw) {
		return nil, fmt.Errorf("trie: decode node: %w: missing value-presence byte", ErrMalformedNode)
	}
	present := raw[off]
	off++
	switch present {
	case 0x00:
		return n, nil
	case 0x01:
		key, next, err := decodeLengthPrefixed(raw, off)
		if err != nil {
			return nil, fmt.Errorf("trie: decode node: %w: value key: %v", ErrMalformedNode, err)
		}
		value, next, err := decodeLengthPrefixed(raw, next)
		if err != nil {
			return nil, fmt.Errorf("trie: decode node: %w: value: %v", ErrMalformedNode, err)
		}
		if next != len(raw) {
			return nil, fmt.Errorf("trie: decode node: %w: trailing bytes", ErrMalformedNode)
		}
		n.Value = &Record{Key: key, Value: value}
		return n, nil
	default:
		return nil, fmt.Errorf("trie: decode node: %w: bad value-presence byte %#x", ErrMalformedNode, present)
	}
}

func decodeLengthPrefixed(raw []byte, off int) ([]byte, int, error) {
	if off+4 > len(raw) {
		return nil, 0, fmt.Errorf("truncated length prefix")
	}
	length := int(binary.BigEndian.Uint32(raw[off : off+4]))
	off += 4
	if off+length > len(raw) {
		return nil, 0, fmt.Errorf("truncated payload")
	}
	out := make([]byte, length)
	copy(out, raw[off:off+length])
	return out, off + length, nil
}
