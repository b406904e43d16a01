// Package committee computes shuffled shard-committee assignments for a
// given slot, grounded on beacon-chain/casper/sharding.go's
// ValidatorsByHeightShard (the committees-per-slot/shard-assignment
// shape) and beacon-chain/core/helpers/committee.go (the per-seed
// memoization idea, adapted from its cache to a plain LRU here since
// this module has no per-epoch recomputation cache to key a richer
// cache against).
package committee

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/coldstake/beacon-core/beacon-chain/core/types"
	"github.com/coldstake/beacon-core/beacon-chain/utils"
	"github.com/coldstake/beacon-core/shared/params"
)

const seedCacheSize = 32

// Engine computes shufflings and memoizes them per seed, so a dynasty
// transition and the genesis builder sharing a seed within one cycle
// don't pay for the shuffle twice.
type Engine struct {
	cache *lru.Cache
}

// NewEngine constructs a committee engine with a small seed-keyed cache.
func NewEngine() *Engine {
	c, err := lru.New(seedCacheSize)
	if err != nil {
		// lru.New only errors for a non-positive size, which seedCacheSize
		// never is.
		panic(err)
	}
	return &Engine{cache: c}
}

// ActiveValidatorIndices returns the indices of validators active at
// slot, in registry order.
func ActiveValidatorIndices(registry []*types.Validator, slot uint64) []uint64 {
	indices := make([]uint64, 0, len(registry))
	for i, v := range registry {
		if v.IsActiveAt(slot) {
			indices = append(indices, uint64(i))
		}
	}
	return indices
}

func clampU64(v, lo, hi uint64) uint64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ceilDiv(n, d uint64) uint64 {
	if d == 0 {
		return 0
	}
	return (n + d - 1) / d
}

// GetShuffling implements get_shuffling: it
// shuffles the active validator set, splits it into EpochLength slot
// groups, then splits each slot group into committees and assigns them
// shards on a rolling cursor starting at startShard.
func (e *Engine) GetShuffling(seed [32]byte, validators []*types.Validator, startShard uint64, slot uint64, cfg *params.BeaconConfig) ([][]types.ShardCommittee, error) {
	if cached, ok := e.cache.Get(seed); ok {
		return cached.([][]types.ShardCommittee), nil
	}

	active := ActiveValidatorIndices(validators, slot)
	shuffled, err := utils.ShuffleIndices(seed, active)
	if err != nil {
		return nil, errors.Wrap(err, "could not shuffle active validator indices")
	}

	epochLength := cfg.EpochLength
	slotGroups := utils.SplitIndices(shuffled, epochLength)

	committeesPerSlot := clampU64(
		ceilDiv(ceilDiv(uint64(len(active)), epochLength), cfg.TargetCommitteeSize),
		1,
		cfg.ShardCount/epochLength,
	)

	result := make([][]types.ShardCommittee, epochLength)
	shardCursor := uint64(0)
	for i, group := range slotGroups {
		committees := utils.SplitIndices(group, committeesPerSlot)
		row := make([]types.ShardCommittee, 0, committeesPerSlot)
		for _, committee := range committees {
			shard := (startShard + shardCursor) % cfg.ShardCount
			row = append(row, types.ShardCommittee{ShardID: shard, Committee: committee})
			shardCursor++
		}
		result[i] = row
	}

	e.cache.Add(seed, result)
	return result, nil
}

// CommitteeAt returns the shard committee assigned to slot within the
// 2-cycle-deep schedule, indexed relative to the schedule's starting
// slot.
func CommitteeAt(schedule [][]types.ShardCommittee, scheduleStartSlot, slot uint64) ([]types.ShardCommittee, error) {
	if slot < scheduleStartSlot {
		return nil, errors.New("slot precedes the schedule's starting slot")
	}
	offset := slot - scheduleStartSlot
	if offset >= uint64(len(schedule)) {
		return nil, errors.Errorf("slot %d is outside the 2-cycle-deep schedule", slot)
	}
	return schedule[offset], nil
}

// ProposerIndex returns slot's assigned proposer: the validator at seat
// (slot mod len(committee)) within the first shard committee of that
// slot's row, grounded on beacon-chain/casper/validator.go's
// ProposerShardAndIndex.
func ProposerIndex(row []types.ShardCommittee, slot uint64) (uint64, error) {
	if len(row) == 0 || len(row[0].Committee) == 0 {
		return 0, errors.New("slot has no assigned committee to select a proposer from")
	}
	first := row[0].Committee
	return first[slot%uint64(len(first))], nil
}
