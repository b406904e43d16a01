// Package proposer assembles a proposable block: it fills in the state
// root the rest of the network will recompute, seals the block with the
// proposer's signature, and produces the proposer's self-attestation at
// its own committee seat.
package proposer

import (
	"context"

	"github.com/pkg/errors"

	"github.com/coldstake/beacon-core/beacon-chain/core/committee"
	"github.com/coldstake/beacon-core/beacon-chain/core/types"
	"github.com/coldstake/beacon-core/shared/bitutil"
	"github.com/coldstake/beacon-core/shared/bls"
	"github.com/coldstake/beacon-core/shared/mathutil"
	"github.com/coldstake/beacon-core/shared/params"
)

// TransitionRunner runs a full block transition; transition.Machine
// satisfies it. The proposer package takes the narrow interface rather
// than the machine so tests can substitute a canned transition.
type TransitionRunner interface {
	ProcessBlock(ctx context.Context, prior *types.BeaconState, candidate *types.Block) (*types.BeaconState, error)
}

// ProposeBlock completes a partially built block: it runs the transition
// the proposal induces, commits the resulting state root into the block,
// signs the block under the proposal domain, and returns it alongside
// the proposer's one-bit self-attestation for its committee seat.
//
// The proposal must carry everything but the state root and signature:
// slot, parent root, RANDAO reveal, PoW receipt root, and body.
func ProposeBlock(
	ctx context.Context,
	runner TransitionRunner,
	state *types.BeaconState,
	proposal *types.Block,
	sk *bls.SecretKey,
	cfg *params.BeaconConfig,
) (*types.Block, *types.Attestation, error) {
	blk := *proposal
	blk.StateRootHash = [32]byte{}
	blk.Signature = [96]byte{}

	row, err := committee.CommitteeAt(state.ShardCommitteesAtSlots, scheduleStartSlot(state, cfg), blk.Slot)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not resolve the proposal slot's committee")
	}
	proposerIdx, err := committee.ProposerIndex(row, blk.Slot)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not resolve the proposal slot's proposer")
	}
	var pub [48]byte
	copy(pub[:], sk.PublicKey().Marshal())
	if state.ValidatorRegistry[proposerIdx].Pubkey != pub {
		return nil, nil, errors.Errorf("validator %d is the assigned proposer for slot %d, not the given key", proposerIdx, blk.Slot)
	}

	post, err := runner.ProcessBlock(ctx, state, &blk)
	if err != nil {
		return nil, nil, errors.Wrap(err, "proposal does not survive its own transition")
	}
	blk.StateRootHash = post.Root()

	domain := bls.Domain(state.Fork, blk.Slot, bls.DomainProposal)
	root := blk.Root()
	sig := sk.Sign(bls.PrependDomain(domain, root[:]))
	copy(blk.Signature[:], sig.Marshal())

	att, err := selfAttestation(state, &blk, row, proposerIdx, sk, cfg)
	if err != nil {
		return nil, nil, err
	}
	return &blk, att, nil
}

// selfAttestation builds the proposer's own vote: a bitfield with the
// single bit at the proposer's seat, over the current justified slot and
// its recorded block root.
func selfAttestation(
	state *types.BeaconState,
	blk *types.Block,
	row []types.ShardCommittee,
	proposerIdx uint64,
	sk *bls.SecretKey,
	cfg *params.BeaconConfig,
) (*types.Attestation, error) {
	seated := row[0].Committee
	seat := -1
	for i, idx := range seated {
		if idx == proposerIdx {
			seat = i
			break
		}
	}
	if seat < 0 {
		return nil, errors.New("proposer is missing from its own committee")
	}

	data := types.AttestationData{
		Slot:               blk.Slot,
		Shard:              row[0].ShardID,
		ShardBlockHash:     [32]byte{},
		JustifiedSlot:      state.JustifiedSlot,
		JustifiedBlockHash: state.LatestBlockRoots[state.JustifiedSlot%cfg.LatestBlockRootsLength],
	}

	bitfield := make([]byte, mathutil.CeilDiv8(len(seated)))
	bitutil.SetBit(bitfield, seat)

	domain := bls.Domain(state.Fork, data.Slot, bls.DomainAttestation)
	root := data.Root()
	sig := sk.Sign(bls.PrependDomain(domain, root[:]))

	att := &types.Attestation{Data: data, ParticipationBitfield: bitfield}
	copy(att.AggregateSignature[:], sig.Marshal())
	return att, nil
}

func scheduleStartSlot(state *types.BeaconState, cfg *params.BeaconConfig) uint64 {
	if state.LastStateRecalc >= cfg.EpochLength {
		return state.LastStateRecalc - cfg.EpochLength
	}
	return 0
}
