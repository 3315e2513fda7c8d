// Copyright 2024 Statechain contributors
// SPDX-License-Identifier: LGPL-3.0-only

package trie

import (
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/statechain/mtrie/pkg/trie/nibble"
)

// NodeCache is a read-through cache of decoded nodes, keyed by
// (version, path). Grounded on gossamer's internal/dot/network.messageCache,
// generalized from a TTL dedup cache to an LFU value cache sitting in front
// of a Store.
type NodeCache interface {
	Get(version uint64, path nibble.Path) (*Node, bool)
	Set(version uint64, path nibble.Path, node *Node)
}

// RistrettoCache is the default NodeCache, backed by dgraph-io/ristretto.
type RistrettoCache struct {
	cache *ristretto.Cache
}

// NewCache creates a NodeCache sized for roughly maxNodes cached entries.
// NumCounters follows ristretto's own guidance of ~10x the expected key
// count; MaxCost is set to maxNodes since Set always passes a cost of 1.
func NewCache(maxNodes int64) (*RistrettoCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxNodes * 10,
		MaxCost:     maxNodes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("trie: new cache: %w", err)
	}
	return &RistrettoCache{cache: cache}, nil
}

func (c *RistrettoCache) Get(version uint64, path nibble.Path) (*Node, bool) {
	v, ok := c.cache.Get(string(EncodeNodeKey(version, path)))
	if !ok {
		return nil, false
	}
	node, ok := v.(*Node)
	return node, ok
}

func (c *RistrettoCache) Set(version uint64, path nibble.Path, node *Node) {
	c.cache.Set(string(EncodeNodeKey(version, path)), node, 1)
}
