// Package epoch implements the per-cycle transition: justification and
// finality streak tracking, crosslink
// updates, rewards and penalties, pending-attestation pruning, schedule
// rotation, and dynasty transitions. Grounded on
// beacon-chain/core/epoch/epoch_operations.go's attestation-window
// helpers (Attestations/BoundaryAttestations/winningRoot), adapted from
// pb.BeaconState/helpers.* free functions to *types.BeaconState plus the
// committee engine and vote cache collaborators, and on
// beacon-chain/types/crystallized_state.go's isDynastyTransition/
// newDynastyRecalculations for the dynasty-eligibility and reshuffle
// logic, which that Altair-era file's unified-state model does not
// carry at all.
package epoch

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/coldstake/beacon-core/beacon-chain/core/balances"
	"github.com/coldstake/beacon-core/beacon-chain/core/cache"
	"github.com/coldstake/beacon-core/beacon-chain/core/committee"
	"github.com/coldstake/beacon-core/beacon-chain/core/helpers"
	"github.com/coldstake/beacon-core/beacon-chain/core/types"
	"github.com/coldstake/beacon-core/beacon-chain/core/validators"
	"github.com/coldstake/beacon-core/beacon-chain/metrics"
	"github.com/coldstake/beacon-core/shared/bitutil"
	"github.com/coldstake/beacon-core/shared/hashutil"
	"github.com/coldstake/beacon-core/shared/params"
)

var log = logrus.WithField("prefix", "epoch")

// ProcessCycleTransitions runs zero or more cycle transitions — one per
// EPOCH_LENGTH slots that candidateSlot has advanced past
// state.LastStateRecalc — folding justification, crosslinks, rewards and
// penalties, and dynasty transitions into the returned state.
func ProcessCycleTransitions(
	ctx context.Context,
	engine *committee.Engine,
	votes *cache.VoteCache,
	prior *types.BeaconState,
	blockHash [32]byte,
	candidateSlot uint64,
	cfg *params.BeaconConfig,
) (*types.BeaconState, error) {
	_, span := trace.StartSpan(ctx, "core.epoch.ProcessCycleTransitions")
	defer span.End()

	state := prior.Copy()

	for candidateSlot >= state.LastStateRecalc+cfg.EpochLength {
		next, err := processOneCycle(engine, votes, state, blockHash, cfg)
		if err != nil {
			return nil, err
		}
		state = next
		metrics.CycleTransitionsRun.Inc()
	}
	metrics.FinalizedSlot.Set(float64(state.FinalizedSlot))
	return state, nil
}

func processOneCycle(
	engine *committee.Engine,
	votes *cache.VoteCache,
	state *types.BeaconState,
	blockHash [32]byte,
	cfg *params.BeaconConfig,
) (*types.BeaconState, error) {
	state = state.Copy()

	activeIndices := committee.ActiveValidatorIndices(state.ValidatorRegistry, state.Slot)
	totalBalance := balances.TotalBalance(state, activeIndices, cfg)

	base := cycleBase(state, cfg)
	applyJustificationAndFinality(state, votes, blockHash, base, totalBalance, cfg)

	applyCrosslinkUpdates(state, base, cfg)

	attesting := attestationParticipants(state, base, cfg)
	attestingIndices := make([]uint64, 0, len(attesting))
	for idx := range attesting {
		attestingIndices = append(attestingIndices, idx)
	}
	epochsSinceFinality := (state.Slot - state.FinalizedSlot) / cfg.EpochLength
	applyRewardsAndPenalties(state, activeIndices, attestingIndices, totalBalance, epochsSinceFinality, cfg)
	applyInclusionRewards(state, attesting, totalBalance, base, cfg)

	prunePendingAttestations(state)
	rotateSchedule(state, cfg)

	if validators.RegistryUpdateDue(state, cfg) {
		state = validators.UpdateRegistry(state, cfg)
	}
	processPowReceiptRoots(state, cfg)

	if dynastyTransitionEligible(state, cfg) {
		if err := applyDynastyTransition(engine, state, cfg); err != nil {
			return nil, err
		}
		metrics.DynastyTransitionsTriggered.Inc()
	}

	return state, nil
}

// cycleBase returns the starting slot of the schedule row currently
// active, mirroring block.go's scheduleStartSlot.
func cycleBase(state *types.BeaconState, cfg *params.BeaconConfig) uint64 {
	if state.LastStateRecalc >= cfg.EpochLength {
		return state.LastStateRecalc - cfg.EpochLength
	}
	return 0
}

// applyJustificationAndFinality walks the EPOCH_LENGTH slots preceding
// state.LastStateRecalc, reading each slot's recorded voter balance
// (keyed by the transitioning block's hash and that slot's recent block
// hash, rather than reusing block hash for both keys) and updating the
// justified/finalized slots and streak.
func applyJustificationAndFinality(state *types.BeaconState, votes *cache.VoteCache, blockHash [32]byte, base, totalBalance uint64, cfg *params.BeaconConfig) {
	state.PreviousJustifiedSlot = state.JustifiedSlot

	streak := uint64(0)
	rootsLen := cfg.LatestBlockRootsLength

	for i := uint64(0); i < cfg.EpochLength; i++ {
		slot := base + i
		recentHash := state.LatestBlockRoots[slot%rootsLen]

		voterBalance := votes.VoterBalance(blockHash, recentHash)
		state.JustificationBitfield <<= 1
		if totalBalance > 0 && 3*voterBalance >= 2*totalBalance {
			state.JustificationBitfield |= 1
			if slot > state.JustifiedSlot {
				state.JustifiedSlot = slot
			}
			streak++
		} else {
			streak = 0
		}

		if streak >= cfg.EpochLength+1 && slot >= cfg.EpochLength+1 {
			finalized := slot - cfg.EpochLength - 1
			if finalized > state.FinalizedSlot {
				state.FinalizedSlot = finalized
			}
		}
	}
}

// applyCrosslinkUpdates tallies the pending-attestation queue by shard
// and attested root, updating LatestCrosslinks for any shard whose
// leading root has crossed 2/3 of its committee's balance, folded into
// one pass that keys participation directly off the attester bitfield
// rather than a separate helper.
func applyCrosslinkUpdates(state *types.BeaconState, base uint64, cfg *params.BeaconConfig) {
	type tally struct {
		balance uint64
		seen    map[uint64]bool
	}
	byShard := make(map[uint64]map[[32]byte]*tally)

	for _, pa := range state.PendingAttestations {
		row, err := committee.CommitteeAt(state.ShardCommitteesAtSlots, base, pa.Data.Slot)
		if err != nil {
			continue
		}
		seated := committeeForShard(row, pa.Data.Shard)
		if seated == nil {
			continue
		}

		byRoot, ok := byShard[pa.Data.Shard]
		if !ok {
			byRoot = make(map[[32]byte]*tally)
			byShard[pa.Data.Shard] = byRoot
		}
		t, ok := byRoot[pa.Data.ShardBlockHash]
		if !ok {
			t = &tally{seen: make(map[uint64]bool)}
			byRoot[pa.Data.ShardBlockHash] = t
		}
		for seat, idx := range seated {
			if !bitutil.BitSet(pa.ParticipationBitfield, seat) || t.seen[idx] {
				continue
			}
			t.seen[idx] = true
			t.balance += types.EffectiveBalance(state.ValidatorBalances[idx], cfg)
		}
	}

	for shard, byRoot := range byShard {
		committeeBalance := committeeBalanceForShard(state, shard, cfg)
		if committeeBalance == 0 {
			continue
		}
		for root, t := range byRoot {
			if 3*t.balance >= 2*committeeBalance {
				state.LatestCrosslinks[shard] = types.Crosslink{Slot: state.LastStateRecalc, ShardBlockHash: root}
				break
			}
		}
	}
}

func committeeForShard(row []types.ShardCommittee, shard uint64) []uint64 {
	for _, sc := range row {
		if sc.ShardID == shard {
			return sc.Committee
		}
	}
	return nil
}

func committeeBalanceForShard(state *types.BeaconState, shard uint64, cfg *params.BeaconConfig) uint64 {
	for _, row := range state.ShardCommitteesAtSlots {
		if seated := committeeForShard(row, shard); seated != nil {
			return balances.TotalBalance(state, seated, cfg)
		}
	}
	return 0
}

// attestationParticipants returns, per validator index, the
// pending attestation with the lowest SlotIncluded it contributed to
// this cycle, folded into a single map since both the attester set and
// the inclusion-reward pass need the same "earliest inclusion" record.
func attestationParticipants(state *types.BeaconState, base uint64, cfg *params.BeaconConfig) map[uint64]*types.PendingAttestation {
	earliest := make(map[uint64]*types.PendingAttestation)

	for _, pa := range state.PendingAttestations {
		row, err := committee.CommitteeAt(state.ShardCommitteesAtSlots, base, pa.Data.Slot)
		if err != nil {
			continue
		}
		seated := committeeForShard(row, pa.Data.Shard)
		if seated == nil {
			continue
		}
		for seat, idx := range seated {
			if !bitutil.BitSet(pa.ParticipationBitfield, seat) {
				continue
			}
			if cur, ok := earliest[idx]; !ok || pa.SlotIncluded < cur.SlotIncluded {
				earliest[idx] = pa
			}
		}
	}
	return earliest
}

// applyRewardsAndPenalties runs the FFG reward/penalty pass while
// finality is recent and switches to the inactivity leak once
// epochsSinceFinality crosses the registry-change interval; during the
// leak no attester is credited, only non-attesters bleed.
func applyRewardsAndPenalties(state *types.BeaconState, activeIndices, attestingIndices []uint64, totalBalance, epochsSinceFinality uint64, cfg *params.BeaconConfig) {
	if totalBalance == 0 {
		return
	}
	if epochsSinceFinality > cfg.MinValidatorRegistryChangeInterval {
		balances.ApplyInactivityPenalties(state, activeIndices, attestingIndices, epochsSinceFinality, cfg)
		return
	}
	attestingBalance := balances.TotalBalance(state, attestingIndices, cfg)
	balances.ApplyFFGRewardsPenalties(state, activeIndices, attestingIndices, attestingBalance, totalBalance, cfg)
}

func applyInclusionRewards(state *types.BeaconState, earliest map[uint64]*types.PendingAttestation, totalBalance, base uint64, cfg *params.BeaconConfig) {
	for idx, pa := range earliest {
		if pa.SlotIncluded < pa.Data.Slot {
			continue
		}
		distance := pa.SlotIncluded - pa.Data.Slot
		row, err := committee.CommitteeAt(state.ShardCommitteesAtSlots, base, pa.SlotIncluded)
		if err != nil {
			continue
		}
		proposerIdx, err := committee.ProposerIndex(row, pa.SlotIncluded)
		if err != nil {
			continue
		}
		balances.ApplyInclusionRewards(state, totalBalance, idx, proposerIdx, distance, cfg)
	}
}

// prunePendingAttestations drops attestations whose slot has fallen
// behind the (not yet advanced) last_state_recalc.
func prunePendingAttestations(state *types.BeaconState) {
	kept := state.PendingAttestations[:0]
	for _, pa := range state.PendingAttestations {
		if pa.Data.Slot >= state.LastStateRecalc {
			kept = append(kept, pa)
		}
	}
	state.PendingAttestations = kept
}

// rotateSchedule advances last_state_recalc by one cycle and rotates
// shard_committees_at_slots: the back half (already-computed next
// cycle) becomes the front, and a duplicate of it fills the new back
// half as a default — overwritten by applyDynastyTransition when
// eligible.
func rotateSchedule(state *types.BeaconState, cfg *params.BeaconConfig) {
	epochLen := cfg.EpochLength
	next := make([][]types.ShardCommittee, 2*epochLen)
	copy(next[:epochLen], state.ShardCommitteesAtSlots[epochLen:])
	copy(next[epochLen:], state.ShardCommitteesAtSlots[epochLen:])
	state.ShardCommitteesAtSlots = next
	state.LastStateRecalc += epochLen
}

// processPowReceiptRoots resolves the PoW receipt-root vote at each
// voting-period boundary: a candidate backed by more than half the
// period's blocks becomes the processed root, and the candidate list is
// cleared either way so the next period starts fresh.
func processPowReceiptRoots(state *types.BeaconState, cfg *params.BeaconConfig) {
	if state.LastStateRecalc == 0 || state.LastStateRecalc%cfg.PowReceiptRootVotingPeriod != 0 {
		return
	}
	for _, c := range state.CandidatePowReceiptRoots {
		if 2*c.Votes > cfg.PowReceiptRootVotingPeriod {
			state.ProcessedPowReceiptRoot = c.ReceiptRoot
			break
		}
	}
	state.CandidatePowReceiptRoots = state.CandidatePowReceiptRoots[:0]
}

// dynastyTransitionEligible implements crystallized_state.go's
// isDynastyTransition: the dynasty must have run for at least
// MIN_DYNASTY_LENGTH slots, finality must have advanced past the
// dynasty's start, and every shard in the current schedule must carry a
// crosslink newer than the dynasty's start.
func dynastyTransitionEligible(state *types.BeaconState, cfg *params.BeaconConfig) bool {
	if state.Slot-state.DynastyStart < cfg.MinDynastyLength {
		return false
	}
	if state.FinalizedSlot <= state.DynastyStart {
		return false
	}
	for _, row := range state.ShardCommitteesAtSlots {
		for _, sc := range row {
			if state.LatestCrosslinks[sc.ShardID].Slot <= state.DynastyStart {
				return false
			}
		}
	}
	return true
}

// applyDynastyTransition implements crystallized_state.go's
// newDynastyRecalculations: it derives a fresh seed from the current
// RANDAO mix, reshuffles the active validator set, and overwrites the
// back half of the schedule with the new shuffling.
func applyDynastyTransition(engine *committee.Engine, state *types.BeaconState, cfg *params.BeaconConfig) error {
	state.CurrentDynasty++

	mix := helpers.RandaoMixAt(state, state.Slot, cfg)
	seed := hashutil.Hash(append(append([]byte{}, mix[:]...), byteEncode(state.CurrentDynasty)...))

	epochLen := cfg.EpochLength
	shuffling, err := engine.GetShuffling(seed, state.ValidatorRegistry, state.CrosslinkingStartShard, state.Slot, cfg)
	if err != nil {
		return err
	}
	copy(state.ShardCommitteesAtSlots[epochLen:], shuffling)
	state.CrosslinkingStartShard = (state.CrosslinkingStartShard + cfg.ShardCount/epochLen) % cfg.ShardCount
	state.DynastyStart = state.Slot

	log.WithFields(logrus.Fields{
		"dynasty": state.CurrentDynasty,
		"slot":    state.Slot,
	}).Info("dynasty transition")
	return nil
}

func byteEncode(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}
