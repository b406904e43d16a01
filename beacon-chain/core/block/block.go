// Package block implements the per-block state transition, built on a
// BlockRoot/ProcessBlockRoots ring-buffer shift (adapted to
// *types.BeaconState plus the chaindb.Database collaborator) and on a
// Casper proposer-selection rule.
package block

import (
	"context"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/coldstake/beacon-core/beacon-chain/chaindb"
	"github.com/coldstake/beacon-core/beacon-chain/core/cache"
	"github.com/coldstake/beacon-core/beacon-chain/core/coreerr"
	"github.com/coldstake/beacon-core/beacon-chain/core/committee"
	"github.com/coldstake/beacon-core/beacon-chain/core/helpers"
	"github.com/coldstake/beacon-core/beacon-chain/core/types"
	"github.com/coldstake/beacon-core/beacon-chain/core/validators"
	"github.com/coldstake/beacon-core/beacon-chain/metrics"
	"github.com/coldstake/beacon-core/shared/bitutil"
	"github.com/coldstake/beacon-core/shared/bls"
	"github.com/coldstake/beacon-core/shared/hashutil"
	"github.com/coldstake/beacon-core/shared/mathutil"
	"github.com/coldstake/beacon-core/shared/params"
	"github.com/coldstake/beacon-core/shared/sliceutil"
)

// ProcessBlock runs the per-block transition steps against prior and
// candidate, consulting db for the parent block and votes to fold
// attestations into the process-wide vote cache.
func ProcessBlock(
	ctx context.Context,
	db chaindb.Database,
	votes *cache.VoteCache,
	engine *committee.Engine,
	prior *types.BeaconState,
	candidate *types.Block,
	cfg *params.BeaconConfig,
) (*types.BeaconState, error) {
	ctx, span := trace.StartSpan(ctx, "core.block.ProcessBlock")
	defer span.End()

	parent, err := db.BlockByHash(ctx, candidate.ParentRootHash)
	if err != nil {
		return nil, errors.Wrap(coreerr.ErrInvalidParent, err.Error())
	}
	if candidate.Slot <= parent.Slot {
		return nil, coreerr.ErrSlotOutOfOrder
	}
	if err := validateBodyCaps(candidate.Body, cfg); err != nil {
		return nil, err
	}
	body := candidate.Body
	if body == nil {
		body = &types.BlockBody{}
	}

	state := prior.Copy()
	state.Slot = candidate.Slot
	shiftBlockRoots(state, parent, candidate, cfg)
	accumulateBatchedRoots(state, cfg)

	if parent.Slot != cfg.GenesisSlot {
		if err := verifyParentProposerSignature(state, parent, cfg); err != nil {
			return nil, err
		}
	}

	if err := verifyAndApplyRandao(state, candidate, cfg); err != nil {
		return nil, err
	}

	blockHash := candidate.Root()
	for _, att := range body.Attestations {
		if err := foldAttestation(state, votes, blockHash, att, cfg); err != nil {
			return nil, err
		}
	}

	for _, ps := range body.ProposerSlashings {
		if err := applyProposerSlashing(state, candidate, ps, cfg); err != nil {
			return nil, err
		}
	}

	for _, cs := range body.CasperSlashings {
		applyCasperSlashing(state, candidate, cs, cfg)
	}

	for _, d := range body.Deposits {
		next, err := validators.ProcessDeposit(state, d)
		if err != nil {
			return nil, err
		}
		state = next
	}

	for _, x := range body.Exits {
		if err := applyExit(state, x, cfg); err != nil {
			return nil, err
		}
	}

	tallyPowReceiptRoot(state, candidate.CandidatePowReceiptRoot)

	state.PendingAttestations = append(state.PendingAttestations, pendingAttestations(body, candidate.Slot)...)

	metrics.BlocksProcessed.Inc()
	metrics.CurrentSlot.Set(float64(state.Slot))
	return state, nil
}

// validateBodyCaps rejects a block whose body exceeds any per-operation
// cap; an honest proposer can never produce one.
func validateBodyCaps(body *types.BlockBody, cfg *params.BeaconConfig) error {
	if body == nil {
		return nil
	}
	switch {
	case uint64(len(body.ProposerSlashings)) > cfg.MaxProposerSlashings:
		return errors.Wrap(coreerr.ErrImpossibleLength, "too many proposer slashings")
	case uint64(len(body.CasperSlashings)) > cfg.MaxCasperSlashings:
		return errors.Wrap(coreerr.ErrImpossibleLength, "too many casper slashings")
	case uint64(len(body.Attestations)) > cfg.MaxAttestations:
		return errors.Wrap(coreerr.ErrImpossibleLength, "too many attestations")
	case uint64(len(body.Deposits)) > cfg.MaxDeposits:
		return errors.Wrap(coreerr.ErrImpossibleLength, "too many deposits")
	case uint64(len(body.Exits)) > cfg.MaxExits:
		return errors.Wrap(coreerr.ErrImpossibleLength, "too many exits")
	}
	return nil
}

func shiftBlockRoots(state *types.BeaconState, parent, candidate *types.Block, cfg *params.BeaconConfig) {
	length := cfg.LatestBlockRootsLength
	delta := candidate.Slot - parent.Slot
	if delta == 0 {
		return
	}
	if delta > length {
		delta = length
	}
	for i := uint64(0); i < delta; i++ {
		slot := parent.Slot + i + 1
		bucket := slot % length
		if slot == candidate.Slot {
			state.LatestBlockRoots[bucket] = candidate.ParentRootHash
		} else {
			state.LatestBlockRoots[bucket] = state.LatestBlockRoots[(slot-1)%length]
		}
	}
}

func verifyParentProposerSignature(state *types.BeaconState, parent *types.Block, cfg *params.BeaconConfig) error {
	row, err := committee.CommitteeAt(state.ShardCommitteesAtSlots, scheduleStartSlot(state, cfg), parent.Slot)
	if err != nil {
		return errors.Wrap(coreerr.ErrCommitteeMembershipMismatch, err.Error())
	}
	proposerIdx, err := committee.ProposerIndex(row, parent.Slot)
	if err != nil {
		return errors.Wrap(coreerr.ErrCommitteeMembershipMismatch, err.Error())
	}
	proposer := state.ValidatorRegistry[proposerIdx]

	pub, err := bls.PublicKeyFromBytes(proposer.Pubkey[:])
	if err != nil {
		return errors.Wrap(coreerr.ErrBLSVerificationFailed, err.Error())
	}
	sig, err := bls.SignatureFromBytes(parent.Signature[:])
	if err != nil {
		return errors.Wrap(coreerr.ErrBLSVerificationFailed, err.Error())
	}
	domain := bls.Domain(state.Fork, parent.Slot, bls.DomainProposal)
	unsigned := *parent
	unsigned.Signature = [96]byte{}
	root := unsigned.Root()
	if !sig.Verify(pub, bls.PrependDomain(domain, root[:])) {
		return coreerr.ErrBLSVerificationFailed
	}
	return nil
}

func verifyAndApplyRandao(state *types.BeaconState, candidate *types.Block, cfg *params.BeaconConfig) error {
	row, err := committee.CommitteeAt(state.ShardCommitteesAtSlots, scheduleStartSlot(state, cfg), candidate.Slot)
	if err != nil {
		return errors.Wrap(coreerr.ErrCommitteeMembershipMismatch, err.Error())
	}
	proposerIdx, err := committee.ProposerIndex(row, candidate.Slot)
	if err != nil {
		return errors.Wrap(coreerr.ErrCommitteeMembershipMismatch, err.Error())
	}
	proposer := state.ValidatorRegistry[proposerIdx]

	if err := helpers.VerifyRandaoReveal(proposer, candidate.RandaoReveal); err != nil {
		return errors.Wrap(coreerr.ErrRandaoMismatch, err.Error())
	}
	state.ValidatorRegistry[proposerIdx] = helpers.PeelRandaoLayer(proposer, candidate.RandaoReveal)
	helpers.MixInRandao(state, candidate.Slot, candidate.RandaoReveal, cfg)
	return nil
}

func scheduleStartSlot(state *types.BeaconState, cfg *params.BeaconConfig) uint64 {
	if state.LastStateRecalc >= cfg.EpochLength {
		return state.LastStateRecalc - cfg.EpochLength
	}
	return 0
}

func foldAttestation(state *types.BeaconState, votes *cache.VoteCache, blockHash [32]byte, att *types.Attestation, cfg *params.BeaconConfig) error {
	row, err := committee.CommitteeAt(state.ShardCommitteesAtSlots, scheduleStartSlot(state, cfg), att.Data.Slot)
	if err != nil {
		return errors.Wrap(coreerr.ErrCommitteeMembershipMismatch, err.Error())
	}

	var seated []uint64
	for _, sc := range row {
		if sc.ShardID == att.Data.Shard {
			seated = sc.Committee
			break
		}
	}
	if seated == nil {
		return errors.Wrap(coreerr.ErrCommitteeMembershipMismatch, "no committee assigned to attested shard")
	}
	if len(att.ParticipationBitfield) > mathutil.CeilDiv8(len(seated)) {
		return coreerr.ErrBitfieldTooLong
	}

	if att.Data.JustifiedSlot <= state.Slot {
		bucket := att.Data.JustifiedSlot % cfg.LatestBlockRootsLength
		if state.Slot-att.Data.JustifiedSlot < cfg.LatestBlockRootsLength && state.LatestBlockRoots[bucket] != att.Data.JustifiedBlockHash {
			return coreerr.ErrUnknownJustifiedHash
		}
	}

	if err := verifyAttestationSignature(state, seated, att, cfg); err != nil {
		return err
	}

	parentHashes := signedParentHashes(state, att, cfg)
	for seat, idx := range seated {
		if !bitutil.BitSet(att.ParticipationBitfield, seat) {
			continue
		}
		balance := types.EffectiveBalance(state.ValidatorBalances[idx], cfg)
		for _, parentHash := range parentHashes {
			votes.RecordVote(blockHash, parentHash, idx, balance)
		}
	}
	return nil
}

// signedParentHashes returns the ancestor hashes an attestation's
// signature covers: the recent block root of every slot in the
// cycle-length window ending at the attested slot, with the trailing
// slots replaced by the attestation's oblique parent hashes.
func signedParentHashes(state *types.BeaconState, att *types.Attestation, cfg *params.BeaconConfig) [][32]byte {
	cycleLength := cfg.EpochLength
	oblique := att.Data.ParentHashes

	start := uint64(0)
	if att.Data.Slot+1 > cycleLength {
		start = att.Data.Slot + 1 - cycleLength
	}
	fromBuffer := att.Data.Slot + 1 - start
	if uint64(len(oblique)) < fromBuffer {
		fromBuffer -= uint64(len(oblique))
	} else {
		fromBuffer = 0
	}

	hashes := make([][32]byte, 0, fromBuffer+uint64(len(oblique)))
	for slot := start; slot < start+fromBuffer; slot++ {
		hashes = append(hashes, state.LatestBlockRoots[slot%cfg.LatestBlockRootsLength])
	}
	hashes = append(hashes, oblique...)
	return hashes
}

// verifyAttestationSignature aggregates the public keys of every seated
// committee member whose bitfield bit is set and checks the attestation's
// aggregate signature against the resulting key, domain-separated with
// DomainAttestation.
func verifyAttestationSignature(state *types.BeaconState, seated []uint64, att *types.Attestation, cfg *params.BeaconConfig) error {
	var pubs []*bls.PublicKey
	for seat, idx := range seated {
		if !bitutil.BitSet(att.ParticipationBitfield, seat) {
			continue
		}
		pub, err := bls.PublicKeyFromBytes(state.ValidatorRegistry[idx].Pubkey[:])
		if err != nil {
			return errors.Wrap(coreerr.ErrBLSVerificationFailed, err.Error())
		}
		pubs = append(pubs, pub)
	}
	if len(pubs) == 0 {
		return nil
	}
	aggPub, err := bls.AggregatePublicKeys(pubs)
	if err != nil {
		return errors.Wrap(coreerr.ErrBLSVerificationFailed, err.Error())
	}
	sig, err := bls.SignatureFromBytes(att.AggregateSignature[:])
	if err != nil {
		return errors.Wrap(coreerr.ErrBLSVerificationFailed, err.Error())
	}
	domain := bls.Domain(state.Fork, att.Data.Slot, bls.DomainAttestation)
	root := att.Data.Root()
	if !sig.Verify(aggPub, bls.PrependDomain(domain, root[:])) {
		return coreerr.ErrBLSVerificationFailed
	}
	return nil
}

func applyCasperSlashing(state *types.BeaconState, candidate *types.Block, cs *types.CasperSlashing, cfg *params.BeaconConfig) {
	if !sliceutil.IsUint64Sorted(cs.Votes1.ValidatorIndices) || !sliceutil.IsUint64Sorted(cs.Votes2.ValidatorIndices) {
		return
	}
	slotToEpoch := func(slot uint64) uint64 { return helpers.SlotToEpoch(slot, cfg) }
	double := types.IsDoubleVote(&cs.Votes1.Data, &cs.Votes2.Data, slotToEpoch)
	surround := types.IsSurroundVote(&cs.Votes1.Data, &cs.Votes2.Data, slotToEpoch)
	if !double && !surround {
		return
	}

	proposerRow, err := committee.CommitteeAt(state.ShardCommitteesAtSlots, scheduleStartSlot(state, cfg), candidate.Slot)
	if err != nil {
		return
	}
	proposerIdx, err := committee.ProposerIndex(proposerRow, candidate.Slot)
	if err != nil {
		return
	}

	totalActiveBalance := activeBalance(state, cfg)
	doubleVoters := sliceutil.IntersectionUint64(cs.Votes1.ValidatorIndices, cs.Votes2.ValidatorIndices)
	for _, idx := range doubleVoters {
		*state = *validators.Penalize(state, idx, proposerIdx, totalActiveBalance, cfg)
	}
}

// applyProposerSlashing penalizes a proposer proven to have signed two
// differently rooted blocks for the same slot. Both signatures must
// verify; a slashing carrying an unverifiable signature rejects the
// whole block, since the proposer that included it should have checked.
func applyProposerSlashing(state *types.BeaconState, candidate *types.Block, ps *types.ProposerSlashing, cfg *params.BeaconConfig) error {
	if ps.ProposerIndex >= uint64(len(state.ValidatorRegistry)) {
		return errors.Wrap(coreerr.ErrImpossibleLength, "proposer slashing names an unknown validator")
	}
	if ps.Slot1 != ps.Slot2 || ps.BlockRoot1 == ps.BlockRoot2 {
		return errors.Wrap(coreerr.ErrImpossibleLength, "proposer slashing does not prove a double proposal")
	}

	accused := state.ValidatorRegistry[ps.ProposerIndex]
	pub, err := bls.PublicKeyFromBytes(accused.Pubkey[:])
	if err != nil {
		return errors.Wrap(coreerr.ErrBLSVerificationFailed, err.Error())
	}
	for _, proof := range []struct {
		slot uint64
		root [32]byte
		sig  [96]byte
	}{
		{ps.Slot1, ps.BlockRoot1, ps.Signature1},
		{ps.Slot2, ps.BlockRoot2, ps.Signature2},
	} {
		sig, err := bls.SignatureFromBytes(proof.sig[:])
		if err != nil {
			return errors.Wrap(coreerr.ErrBLSVerificationFailed, err.Error())
		}
		domain := bls.Domain(state.Fork, proof.slot, bls.DomainProposal)
		if !sig.Verify(pub, bls.PrependDomain(domain, proof.root[:])) {
			return coreerr.ErrBLSVerificationFailed
		}
	}

	row, err := committee.CommitteeAt(state.ShardCommitteesAtSlots, scheduleStartSlot(state, cfg), candidate.Slot)
	if err != nil {
		return errors.Wrap(coreerr.ErrCommitteeMembershipMismatch, err.Error())
	}
	whistleblowerIdx, err := committee.ProposerIndex(row, candidate.Slot)
	if err != nil {
		return errors.Wrap(coreerr.ErrCommitteeMembershipMismatch, err.Error())
	}
	*state = *validators.Penalize(state, ps.ProposerIndex, whistleblowerIdx, activeBalance(state, cfg), cfg)
	return nil
}

// applyExit verifies a voluntary exit's signature and flags the
// validator; the exit slot itself is stamped by the next validator
// registry update, subject to the churn limit.
func applyExit(state *types.BeaconState, x *types.Exit, cfg *params.BeaconConfig) error {
	if x.ValidatorIndex >= uint64(len(state.ValidatorRegistry)) {
		return errors.Wrap(coreerr.ErrImpossibleLength, "exit names an unknown validator")
	}
	if x.Slot > state.Slot {
		return coreerr.ErrSlotOutOfOrder
	}
	v := state.ValidatorRegistry[x.ValidatorIndex]
	if !v.IsActiveAt(state.Slot) || v.HasInitiatedExit() {
		return errors.Wrap(coreerr.ErrImpossibleLength, "exit for a validator that is not active")
	}

	pub, err := bls.PublicKeyFromBytes(v.Pubkey[:])
	if err != nil {
		return errors.Wrap(coreerr.ErrBLSVerificationFailed, err.Error())
	}
	sig, err := bls.SignatureFromBytes(x.Signature[:])
	if err != nil {
		return errors.Wrap(coreerr.ErrBLSVerificationFailed, err.Error())
	}
	domain := bls.Domain(state.Fork, x.Slot, bls.DomainExit)
	root := x.RootForSigning()
	if !sig.Verify(pub, bls.PrependDomain(domain, root[:])) {
		return coreerr.ErrBLSVerificationFailed
	}

	*state = *validators.InitiateExit(state, x.ValidatorIndex)
	return nil
}

// tallyPowReceiptRoot counts the block's PoW receipt-root vote, appending
// a fresh candidate on first sight. Candidates are resolved by the
// per-cycle transition at each voting-period boundary.
func tallyPowReceiptRoot(state *types.BeaconState, root [32]byte) {
	for i := range state.CandidatePowReceiptRoots {
		if state.CandidatePowReceiptRoots[i].ReceiptRoot == root {
			state.CandidatePowReceiptRoots[i].Votes++
			return
		}
	}
	state.CandidatePowReceiptRoots = append(state.CandidatePowReceiptRoots,
		types.CandidateReceiptRoot{ReceiptRoot: root, Votes: 1})
}

// accumulateBatchedRoots folds the full block-roots ring into the
// batched accumulator each time the slot clock laps the ring.
func accumulateBatchedRoots(state *types.BeaconState, cfg *params.BeaconConfig) {
	if state.Slot%cfg.LatestBlockRootsLength != 0 {
		return
	}
	flat := make([]byte, 0, len(state.LatestBlockRoots)*32)
	for _, r := range state.LatestBlockRoots {
		flat = append(flat, r[:]...)
	}
	state.BatchedBlockRootsAccumulator = append(state.BatchedBlockRootsAccumulator, hashutil.Hash(flat))
}

func activeBalance(state *types.BeaconState, cfg *params.BeaconConfig) uint64 {
	var total uint64
	for i, v := range state.ValidatorRegistry {
		if v.IsActiveAt(state.Slot) {
			total += types.EffectiveBalance(state.ValidatorBalances[i], cfg)
		}
	}
	return total
}

func pendingAttestations(body *types.BlockBody, slotIncluded uint64) []*types.PendingAttestation {
	out := make([]*types.PendingAttestation, len(body.Attestations))
	for i, a := range body.Attestations {
		out[i] = &types.PendingAttestation{
			Data:                  a.Data,
			ParticipationBitfield: a.ParticipationBitfield,
			SlotIncluded:          slotIncluded,
		}
	}
	return out
}
