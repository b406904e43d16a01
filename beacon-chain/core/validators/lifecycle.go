// Package validators implements the validator lifecycle: deposit
// processing, activation, voluntary exit, penalization, and withdrawal
// preparation, grounded on beacon-chain/core/validators/validator.go's
// ProcessDeposit/ActivateValidator/InitiateValidatorExit/ExitValidator/
// SlashValidator. Unlike that file, there is no package-level VStore
// singleton here: ambient mutable global state is ruled out for exactly
// this kind of registry bookkeeping, so every function below takes and
// returns an explicit *types.BeaconState.
package validators

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/coldstake/beacon-core/beacon-chain/core/coreerr"
	"github.com/coldstake/beacon-core/beacon-chain/core/state/stateutils"
	"github.com/coldstake/beacon-core/beacon-chain/core/types"
	"github.com/coldstake/beacon-core/shared/bls"
	"github.com/coldstake/beacon-core/shared/params"
)

var log = logrus.WithField("prefix", "validators")

// ProcessDeposit verifies the proof of possession and either tops up an
// existing validator's balance or appends a new pending validator.
func ProcessDeposit(state *types.BeaconState, deposit *types.Deposit) (*types.BeaconState, error) {
	input := deposit.Data.Input

	pub, err := bls.PublicKeyFromBytes(input.Pubkey[:])
	if err != nil {
		return nil, errors.Wrap(err, "could not parse deposit public key")
	}
	sig, err := bls.SignatureFromBytes(input.ProofOfPossession[:])
	if err != nil {
		return nil, errors.Wrap(err, "could not parse proof of possession")
	}
	domain := bls.Domain(state.Fork, state.Slot, bls.DomainDeposit)
	root := input.RootForSigning()
	if !sig.Verify(pub, bls.PrependDomain(domain, root[:])) {
		return nil, coreerr.ErrProofOfPossessionFailed
	}

	state = state.Copy()

	existingIdx := -1
	if idx, ok := stateutils.ValidatorIndexMap(state)[input.Pubkey]; ok {
		existingIdx = idx
	}

	if existingIdx == -1 {
		state.ValidatorRegistry = append(state.ValidatorRegistry,
			types.NewPendingValidator(input.Pubkey, input.WithdrawalCredentials, input.RandaoCommitment))
		state.ValidatorBalances = append(state.ValidatorBalances, deposit.Data.Amount)
	} else {
		if state.ValidatorRegistry[existingIdx].WithdrawalCredentials != input.WithdrawalCredentials {
			return nil, errors.New("withdrawal credentials do not match existing validator")
		}
		state.ValidatorBalances[existingIdx] += deposit.Data.Amount
	}

	return state, nil
}

// ActivateValidator sets the validator's activation slot: genesis
// activations use the genesis slot directly, later ones use
// state.slot + ENTRY_EXIT_DELAY.
func ActivateValidator(state *types.BeaconState, idx uint64, genesis bool, cfg *params.BeaconConfig) *types.BeaconState {
	state = state.Copy()
	v := state.ValidatorRegistry[idx]
	if genesis {
		v.ActivationSlot = cfg.GenesisSlot
	} else {
		v.ActivationSlot = state.Slot + cfg.EntryExitDelay
	}
	state.ValidatorRegistryDeltaChainTip = types.AppendRegistryDelta(
		state.ValidatorRegistryDeltaChainTip, idx, v.Pubkey, v.ActivationSlot, types.RegistryDeltaActivation)

	log.WithFields(logrus.Fields{"index": idx, "activationSlot": v.ActivationSlot}).Info("validator activated")
	return state
}

// InitiateExit sets the INITIATED_EXIT flag with no slot changes.
func InitiateExit(state *types.BeaconState, idx uint64) *types.BeaconState {
	state = state.Copy()
	state.ValidatorRegistry[idx].StatusFlags |= types.StatusFlagInitiatedExit
	return state
}

// exitChurnLimit bounds how many validators may cross the exit boundary
// within one ENTRY_EXIT_DELAY window, grounded on
// beacon-chain/core/helpers/validators.go's ValidatorChurnLimit and
// supplemented from original_source/eth/beacon/validator_status_helpers.py
// (an exit-queue churn limit absent from the distilled description).
func exitChurnLimit(totalActiveBalance uint64, cfg *params.BeaconConfig) uint64 {
	limit := totalActiveBalance / cfg.MaxBalanceChurnQuotient / cfg.MaxDeposit
	if limit < 1 {
		return 1
	}
	return limit
}

// Exit stamps the validator's exit slot at state.slot + ENTRY_EXIT_DELAY,
// or one slot later when that slot already holds churn-limit exits. It is
// a no-op if the validator's exit slot is already at or before
// state.slot + ENTRY_EXIT_DELAY.
func Exit(state *types.BeaconState, idx uint64, totalActiveBalance uint64, cfg *params.BeaconConfig) *types.BeaconState {
	v := state.ValidatorRegistry[idx]
	if v.ExitSlot <= state.Slot+cfg.EntryExitDelay {
		return state
	}

	churnThisWindow := uint64(0)
	for _, other := range state.ValidatorRegistry {
		if other.ExitSlot == state.Slot+cfg.EntryExitDelay {
			churnThisWindow++
		}
	}
	exitSlot := state.Slot + cfg.EntryExitDelay
	if churnThisWindow >= exitChurnLimit(totalActiveBalance, cfg) {
		exitSlot++
	}

	state = state.Copy()
	state.ValidatorRegistryExitCount++
	v = state.ValidatorRegistry[idx]
	v.ExitSlot = exitSlot
	v.ExitCount = state.ValidatorRegistryExitCount
	state.ValidatorRegistryDeltaChainTip = types.AppendRegistryDelta(
		state.ValidatorRegistryDeltaChainTip, idx, v.Pubkey, v.ExitSlot, types.RegistryDeltaExit)
	return state
}

// Penalize exits the validator, folds its effective balance into the
// current epoch's penalized-exit ring buffer, credits the whistleblower
// reward to proposerIdx, and stamps PenalizedSlot.
func Penalize(state *types.BeaconState, idx, proposerIdx, totalActiveBalance uint64, cfg *params.BeaconConfig) *types.BeaconState {
	state = Exit(state, idx, totalActiveBalance, cfg)
	state = state.Copy()

	v := state.ValidatorRegistry[idx]
	effective := types.EffectiveBalance(state.ValidatorBalances[idx], cfg)

	bucket := (state.Slot / cfg.EpochLength) % cfg.LatestPenalizedExitLength
	state.LatestPenalizedExitBalances[bucket] += effective

	reward := effective / cfg.WhistleblowerRewardQuotient
	state.ValidatorBalances[proposerIdx] += reward
	if state.ValidatorBalances[idx] > reward {
		state.ValidatorBalances[idx] -= reward
	} else {
		state.ValidatorBalances[idx] = 0
	}

	v.PenalizedSlot = state.Slot
	return state
}

// PrepareForWithdrawal sets the WITHDRAWABLE flag.
func PrepareForWithdrawal(state *types.BeaconState, idx uint64) *types.BeaconState {
	state = state.Copy()
	state.ValidatorRegistry[idx].StatusFlags |= types.StatusFlagWithdrawable
	return state
}
