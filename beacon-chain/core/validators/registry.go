package validators

import (
	"github.com/coldstake/beacon-core/beacon-chain/core/types"
	"github.com/coldstake/beacon-core/shared/params"
)

// RegistryUpdateDue reports whether the validator registry should be
// rotated this cycle: enough slots have passed since the last change and
// finality has advanced beyond it, so the pending activation and exit
// queues can be drained without risking a long-range reorg of the
// registry-delta chain.
func RegistryUpdateDue(state *types.BeaconState, cfg *params.BeaconConfig) bool {
	return state.Slot-state.ValidatorRegistryLatestChangeSlot >= cfg.MinValidatorRegistryChangeInterval &&
		state.FinalizedSlot > state.ValidatorRegistryLatestChangeSlot
}

// UpdateRegistry rotates validators in and out of the active set:
// fully-funded pending validators are activated and flagged exits are
// finalized, each up to the balance churn limit; active validators whose
// balance has fallen to the ejection threshold are pushed into the exit
// queue; and validators that exited long enough ago are marked
// withdrawable. The latest-change slot is stamped last.
func UpdateRegistry(state *types.BeaconState, cfg *params.BeaconConfig) *types.BeaconState {
	state = state.Copy()
	totalActiveBalance := uint64(0)
	for i, v := range state.ValidatorRegistry {
		if v.IsActiveAt(state.Slot) {
			totalActiveBalance += types.EffectiveBalance(state.ValidatorBalances[i], cfg)
		}
	}
	churn := exitChurnLimit(totalActiveBalance, cfg)

	activated := uint64(0)
	for idx, v := range state.ValidatorRegistry {
		if activated >= churn {
			break
		}
		if v.ActivationSlot == cfg.FarFutureSlot && types.EffectiveBalance(state.ValidatorBalances[idx], cfg) >= cfg.MaxDeposit {
			state = ActivateValidator(state, uint64(idx), false, cfg)
			activated++
		}
	}

	for idx, v := range state.ValidatorRegistry {
		if v.IsActiveAt(state.Slot) && !v.HasInitiatedExit() &&
			state.ValidatorBalances[idx] <= cfg.EjectionBalance {
			state = InitiateExit(state, uint64(idx))
		}
	}

	exited := uint64(0)
	for idx, v := range state.ValidatorRegistry {
		if exited >= churn {
			break
		}
		if v.HasInitiatedExit() && v.ExitSlot == cfg.FarFutureSlot {
			state = Exit(state, uint64(idx), totalActiveBalance, cfg)
			exited++
		}
	}

	for idx, v := range state.ValidatorRegistry {
		if v.ExitSlot == cfg.FarFutureSlot || v.IsWithdrawable() {
			continue
		}
		if state.Slot >= v.ExitSlot+cfg.MinValidatorWithdrawalTime {
			state = PrepareForWithdrawal(state, uint64(idx))
			state.ValidatorRegistry[idx].WithdrawalSlot = state.Slot
		}
	}

	state.ValidatorRegistryLatestChangeSlot = state.Slot
	return state
}
