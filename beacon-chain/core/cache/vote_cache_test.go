package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVoteCache_FirstVoterWins(t *testing.T) {
	c, err := NewVoteCache(DefaultVoteCacheSize)
	require.NoError(t, err)

	var block, parent [32]byte
	block[0] = 1
	parent[0] = 2

	c.RecordVote(block, parent, 7, 100)
	c.RecordVote(block, parent, 7, 100) // duplicate, must not double-count
	c.RecordVote(block, parent, 8, 50)

	if got := c.VoterBalance(block, parent); got != 150 {
		t.Fatalf("expected balance 150, got %d", got)
	}
}

func TestVoteCache_DefaultsToZero(t *testing.T) {
	c, err := NewVoteCache(DefaultVoteCacheSize)
	require.NoError(t, err)
	var block, parent [32]byte
	if got := c.VoterBalance(block, parent); got != 0 {
		t.Fatalf("expected 0 for an absent key, got %d", got)
	}
}

func TestVoteCache_DistinctParentHashesDoNotCollide(t *testing.T) {
	c, err := NewVoteCache(DefaultVoteCacheSize)
	require.NoError(t, err)
	var block, parentA, parentB [32]byte
	parentA[0] = 1
	parentB[0] = 2

	c.RecordVote(block, parentA, 1, 10)
	c.RecordVote(block, parentB, 2, 20)

	if got := c.VoterBalance(block, parentA); got != 10 {
		t.Fatalf("expected 10 for parentA, got %d", got)
	}
	if got := c.VoterBalance(block, parentB); got != 20 {
		t.Fatalf("expected 20 for parentB, got %d", got)
	}
}
