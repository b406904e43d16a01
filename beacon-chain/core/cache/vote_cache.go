// Package cache implements the vote cache: a bounded LRU keyed by block
// hash, each entry holding a per-attested-parent-hash voter set and
// summed effective balance. It is process-wide auxiliary data, never a
// source of truth: losing an entry only means re-deriving it from the
// chain. Built on hashicorp/golang-lru behind a small owned wrapper
// rather than a bare package-level map.
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// voteEntry holds, per attested parent hash, the voters seen so far and
// their summed effective balance.
type voteEntry struct {
	voters  map[uint64]bool
	balance uint64
}

// VoteCache maps block hash -> parent hash -> voteEntry. The outer LRU
// bounds memory; the inner map is unbounded but sized by committee
// membership, which is itself bounded.
type VoteCache struct {
	mu    sync.Mutex
	inner *lru.Cache
}

// DefaultVoteCacheSize is a typical capacity for block-keyed caches:
// generous enough to span a handful of concurrent chain tips without
// unbounded growth.
const DefaultVoteCacheSize = 1024

// NewVoteCache constructs a vote cache with the given capacity (in
// number of distinct block hashes).
func NewVoteCache(capacity int) (*VoteCache, error) {
	inner, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &VoteCache{inner: inner}, nil
}

// RecordVote folds one attester's vote into the cache at
// (blockHash, parentHash), crediting balance only the first time this
// validatorIndex is recorded for that key ("first voter wins").
func (c *VoteCache) RecordVote(blockHash, parentHash [32]byte, validatorIndex uint64, balance uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var entry *voteEntry
	if raw, ok := c.inner.Get(blockHash); ok {
		byParent := raw.(map[[32]byte]*voteEntry)
		entry = byParent[parentHash]
		if entry == nil {
			entry = &voteEntry{voters: make(map[uint64]bool)}
			byParent[parentHash] = entry
		}
	} else {
		entry = &voteEntry{voters: make(map[uint64]bool)}
		c.inner.Add(blockHash, map[[32]byte]*voteEntry{parentHash: entry})
	}

	if entry.voters[validatorIndex] {
		return
	}
	entry.voters[validatorIndex] = true
	entry.balance += balance
}

// VoterBalance returns the summed effective balance recorded for
// (blockHash, parentHash), defaulting to 0 if absent.
func (c *VoteCache) VoterBalance(blockHash, parentHash [32]byte) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, ok := c.inner.Get(blockHash)
	if !ok {
		return 0
	}
	byParent := raw.(map[[32]byte]*voteEntry)
	entry, ok := byParent[parentHash]
	if !ok {
		return 0
	}
	return entry.balance
}
