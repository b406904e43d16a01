// Package balances computes the per-cycle reward and penalty formulas:
// a baseRewardQuotient/baseReward/inactivityPenalty trio, plus one FFG
// reward/penalty pass over a single attester set, operating on *types.BeaconState with
// a plain-sum TotalBalance helper rather than a per-epoch balance cache.
package balances

import (
	"github.com/coldstake/beacon-core/beacon-chain/core/types"
	"github.com/coldstake/beacon-core/shared/mathutil"
	"github.com/coldstake/beacon-core/shared/params"
)

// TotalBalance sums the effective balance of every validator index given.
func TotalBalance(state *types.BeaconState, indices []uint64, cfg *params.BeaconConfig) uint64 {
	var total uint64
	for _, idx := range indices {
		total += types.EffectiveBalance(state.ValidatorBalances[idx], cfg)
	}
	return total
}

// BaseRewardQuotient computes BASE_REWARD_QUOTIENT * integer_squareroot(total_balance / GWEI_PER_ETH).
func BaseRewardQuotient(totalBalance uint64, cfg *params.BeaconConfig) uint64 {
	return cfg.BaseRewardQuotient * mathutil.IntegerSquareRoot(totalBalance/cfg.GweiPerEth)
}

// BaseReward is effective_balance(index) / base_reward_quotient / 5.
func BaseReward(state *types.BeaconState, index uint64, baseRewardQuotient uint64, cfg *params.BeaconConfig) uint64 {
	if baseRewardQuotient == 0 {
		return 0
	}
	return types.EffectiveBalance(state.ValidatorBalances[index], cfg) / baseRewardQuotient / 5
}

// InactivityPenalty is base_reward(index) + effective_balance(index) *
// epochsSinceFinality / INACTIVITY_PENALTY_QUOTIENT / 2.
func InactivityPenalty(state *types.BeaconState, index uint64, baseRewardQuotient, epochsSinceFinality uint64, cfg *params.BeaconConfig) uint64 {
	base := BaseReward(state, index, baseRewardQuotient, cfg)
	effective := types.EffectiveBalance(state.ValidatorBalances[index], cfg)
	return base + effective*epochsSinceFinality/cfg.InactivityPenaltyQuotient/2
}

// ApplyFFGRewardsPenalties credits attestingIndices with
// base_reward(index)*attestingBalance/totalBalance and debits every other
// active validator base_reward(index) — the shared shape behind the FFG
// source, FFG target, and chain-head reward/penalty passes, folded into
// one function parameterized by which attester set is passed in.
func ApplyFFGRewardsPenalties(state *types.BeaconState, activeIndices, attestingIndices []uint64, attestingBalance, totalBalance uint64, cfg *params.BeaconConfig) {
	brq := BaseRewardQuotient(totalBalance, cfg)
	attesting := make(map[uint64]bool, len(attestingIndices))
	for _, idx := range attestingIndices {
		attesting[idx] = true
		reward := BaseReward(state, idx, brq, cfg) * attestingBalance / totalBalance
		state.ValidatorBalances[idx] += reward
	}
	for _, idx := range activeIndices {
		if attesting[idx] {
			continue
		}
		penalty := BaseReward(state, idx, brq, cfg)
		if state.ValidatorBalances[idx] > penalty {
			state.ValidatorBalances[idx] -= penalty
		} else {
			state.ValidatorBalances[idx] = 0
		}
	}
}

// ApplyInactivityPenalties debits every active non-attesting validator
// InactivityPenalty instead of the plain BaseReward, for use once
// epochsSinceFinality has crossed MIN_VALIDATOR_REGISTRY_CHANGE_INTERVAL,
// the long-inactivity-leak gate.
func ApplyInactivityPenalties(state *types.BeaconState, activeIndices, attestingIndices []uint64, epochsSinceFinality uint64, cfg *params.BeaconConfig) {
	total := TotalBalance(state, activeIndices, cfg)
	brq := BaseRewardQuotient(total, cfg)
	attesting := make(map[uint64]bool, len(attestingIndices))
	for _, idx := range attestingIndices {
		attesting[idx] = true
	}
	for _, idx := range activeIndices {
		if attesting[idx] {
			continue
		}
		penalty := InactivityPenalty(state, idx, brq, epochsSinceFinality, cfg)
		if state.ValidatorBalances[idx] > penalty {
			state.ValidatorBalances[idx] -= penalty
		} else {
			state.ValidatorBalances[idx] = 0
		}
	}
}

// ApplyInclusionRewards credits the proposer that included each
// attestation with base_reward(index)*MIN_ATTESTATION_INCLUSION_DELAY/inclusionDistance.
func ApplyInclusionRewards(state *types.BeaconState, totalBalance uint64, attesterIdx, proposerIdx, inclusionDistance uint64, cfg *params.BeaconConfig) {
	if inclusionDistance == 0 {
		return
	}
	brq := BaseRewardQuotient(totalBalance, cfg)
	reward := BaseReward(state, attesterIdx, brq, cfg) * cfg.MinAttestationInclusionDelay / inclusionDistance
	state.ValidatorBalances[proposerIdx] += reward
}
