// Package genesis deterministically constructs the initial beacon state
// from a deposit list. Ring-buffer initialization is supplemented from
// original_source/eth/beacon/genesis_helpers.py: every ring buffer is
// allocated at its configured length and zero-filled from slot zero,
// rather than left nil until first write, so invariant I5 holds
// immediately.
package genesis

import (
	"github.com/pkg/errors"

	"github.com/coldstake/beacon-core/beacon-chain/core/committee"
	"github.com/coldstake/beacon-core/beacon-chain/core/types"
	"github.com/coldstake/beacon-core/beacon-chain/core/validators"
	"github.com/coldstake/beacon-core/shared/bls"
	"github.com/coldstake/beacon-core/shared/params"
)

// BuildGenesisState applies every deposit in order to an empty state,
// activates every validator that deposited the full MAX_DEPOSIT amount
// with a genesis activation slot, and seeds the 2-cycle-deep committee
// schedule by concatenating one shuffling with itself.
func BuildGenesisState(
	deposits []*types.Deposit,
	genesisTime uint64,
	processedPowReceiptRoot [32]byte,
	cfg *params.BeaconConfig,
	engine *committee.Engine,
) (*types.BeaconState, error) {
	state := emptyGenesisState(genesisTime, processedPowReceiptRoot, cfg)

	for i, d := range deposits {
		next, err := validators.ProcessDeposit(state, d)
		if err != nil {
			return nil, errors.Wrapf(err, "could not process genesis deposit %d", i)
		}
		state = next
	}

	for idx := range state.ValidatorRegistry {
		if types.EffectiveBalance(state.ValidatorBalances[idx], cfg) == cfg.MaxDeposit {
			state = validators.ActivateValidator(state, uint64(idx), true, cfg)
		}
	}

	var zeroSeed [32]byte
	shuffling, err := engine.GetShuffling(zeroSeed, state.ValidatorRegistry, 0, cfg.GenesisSlot, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "could not compute genesis shuffling")
	}
	state.ShardCommitteesAtSlots = append(append([][]types.ShardCommittee{}, shuffling...), shuffling...)

	return state, nil
}

func emptyGenesisState(genesisTime uint64, processedPowReceiptRoot [32]byte, cfg *params.BeaconConfig) *types.BeaconState {
	state := &types.BeaconState{
		Slot:        cfg.GenesisSlot,
		GenesisTime: genesisTime,
		Fork: bls.Fork{
			PreForkVersion:  cfg.GenesisForkVersion,
			PostForkVersion: cfg.GenesisForkVersion,
			ForkSlot:        cfg.GenesisSlot,
		},
		LastStateRecalc:         cfg.GenesisSlot,
		DynastyStart:            cfg.GenesisSlot,
		CrosslinkingStartShard:  0,
		PreviousJustifiedSlot:   cfg.GenesisSlot,
		JustifiedSlot:           cfg.GenesisSlot,
		FinalizedSlot:           cfg.GenesisSlot,
		ProcessedPowReceiptRoot: processedPowReceiptRoot,
	}

	state.LatestRandaoMixes = make([][32]byte, cfg.LatestRandaoMixesLength)
	state.LatestVdfOutputs = make([][32]byte, cfg.LatestRandaoMixesLength)
	state.LatestBlockRoots = make([][32]byte, cfg.LatestBlockRootsLength)
	state.LatestPenalizedExitBalances = make([]uint64, cfg.LatestPenalizedExitLength)
	state.LatestCrosslinks = make([]types.Crosslink, cfg.ShardCount)

	return state
}
