package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleAttestation() *Attestation {
	att := &Attestation{
		Data: AttestationData{
			Slot:               7,
			Shard:              3,
			ParentHashes:       [][32]byte{{0x01}, {0x02}},
			ShardBlockHash:     [32]byte{0xaa},
			JustifiedSlot:      5,
			JustifiedBlockHash: [32]byte{0xbb},
		},
		ParticipationBitfield: []byte{0b10100000},
	}
	att.AggregateSignature[0] = 0x99
	return att
}

func TestAttestationRoundTrip(t *testing.T) {
	att := sampleAttestation()
	decoded, err := DeserializeAttestation(att.Serialize())
	require.NoError(t, err)
	require.Equal(t, att.Serialize(), decoded.Serialize())
	require.Equal(t, att.Root(), decoded.Root())
}

func TestValidatorRoundTrip(t *testing.T) {
	v := &Validator{
		RandaoLayers:   12,
		ActivationSlot: 3,
		ExitSlot:       900,
		WithdrawalSlot: 1200,
		PenalizedSlot:  880,
		ExitCount:      4,
		StatusFlags:    StatusFlagInitiatedExit,
	}
	v.Pubkey[0] = 0x42
	v.WithdrawalCredentials[31] = 0x07
	v.RandaoCommitment[0] = 0xee

	decoded, err := DeserializeValidator(v.Serialize())
	require.NoError(t, err)
	require.Equal(t, v, decoded)
}

func TestBlockRoundTrip(t *testing.T) {
	blk := &Block{
		Slot:                    64,
		ParentRootHash:          [32]byte{0x01},
		StateRootHash:           [32]byte{0x02},
		RandaoReveal:            [32]byte{0x03},
		CandidatePowReceiptRoot: [32]byte{0x04},
		Body: &BlockBody{
			ProposerSlashings: []*ProposerSlashing{{
				ProposerIndex: 9,
				Slot1:         60,
				Slot2:         60,
				BlockRoot1:    [32]byte{0x05},
				BlockRoot2:    [32]byte{0x06},
			}},
			CasperSlashings: []*CasperSlashing{{
				Votes1: SlashableVoteData{Data: sampleAttestation().Data, ValidatorIndices: []uint64{1, 2}},
				Votes2: SlashableVoteData{Data: sampleAttestation().Data, ValidatorIndices: []uint64{2, 3}},
			}},
			Attestations: []*Attestation{sampleAttestation()},
			Deposits: []*Deposit{{
				Data: DepositData{
					Input:     DepositInput{Pubkey: [48]byte{0x10}, RandaoCommitment: [32]byte{0x11}},
					Amount:    32 * 1e9,
					Timestamp: 1,
				},
				MerkleBranch:    [][32]byte{{0x12}},
				MerkleTreeIndex: 2,
			}},
			Exits: []*Exit{{Slot: 63, ValidatorIndex: 5}},
		},
	}
	blk.Signature[0] = 0x77

	decoded, err := DeserializeBlock(blk.Serialize())
	require.NoError(t, err)
	require.Equal(t, blk.Serialize(), decoded.Serialize())
	require.Equal(t, blk.Root(), decoded.Root())
}

func TestBlockWithoutBodyRoundTrip(t *testing.T) {
	blk := &Block{Slot: 1, ParentRootHash: [32]byte{0xff}}
	decoded, err := DeserializeBlock(blk.Serialize())
	require.NoError(t, err)
	require.Nil(t, decoded.Body)
	require.Equal(t, blk.Root(), decoded.Root())
}

func TestStateRoundTrip(t *testing.T) {
	s := &BeaconState{
		Slot:                              128,
		GenesisTime:                       1606824000,
		ValidatorRegistry:                 []*Validator{{ActivationSlot: 0, ExitSlot: 1 << 62, WithdrawalSlot: 1 << 62, PenalizedSlot: 1 << 62}},
		ValidatorBalances:                 []uint64{32 * 1e9},
		ValidatorRegistryLatestChangeSlot: 64,
		ValidatorRegistryExitCount:        1,
		ValidatorRegistryDeltaChainTip:    [32]byte{0x01},
		LatestRandaoMixes:                 [][32]byte{{0x02}, {0x03}},
		LatestVdfOutputs:                  [][32]byte{{0x04}},
		ShardCommitteesAtSlots: [][]ShardCommittee{
			{{ShardID: 0, Committee: []uint64{0}}},
			{{ShardID: 1, Committee: []uint64{0}}},
		},
		LastStateRecalc:              64,
		CurrentDynasty:               2,
		DynastyStart:                 64,
		CrosslinkingStartShard:       1,
		PreviousJustifiedSlot:        62,
		JustifiedSlot:                63,
		JustificationBitfield:        0b11,
		FinalizedSlot:                60,
		LatestCrosslinks:             []Crosslink{{Slot: 64, ShardBlockHash: [32]byte{0x05}}},
		LatestBlockRoots:             [][32]byte{{0x06}, {0x07}},
		LatestPenalizedExitBalances:  []uint64{0, 5},
		PendingAttestations:          []*PendingAttestation{{Data: sampleAttestation().Data, ParticipationBitfield: []byte{0x80}, SlotIncluded: 70}},
		BatchedBlockRootsAccumulator: [][32]byte{{0x08}},
		ProcessedPowReceiptRoot:      [32]byte{0x09},
		CandidatePowReceiptRoots:     []CandidateReceiptRoot{{ReceiptRoot: [32]byte{0x0a}, Votes: 3}},
	}

	decoded, err := DeserializeState(s.Serialize())
	require.NoError(t, err)
	require.Equal(t, s.Serialize(), decoded.Serialize())
	require.Equal(t, s.Root(), decoded.Root())
}

func TestDeserializeRejectsTruncatedInput(t *testing.T) {
	att := sampleAttestation()
	enc := att.Serialize()
	if _, err := DeserializeAttestation(enc[:len(enc)-1]); err == nil {
		t.Fatal("expected truncated attestation encoding to be rejected")
	}
	if _, err := DeserializeBlock([]byte{0x01, 0x02}); err == nil {
		t.Fatal("expected truncated block encoding to be rejected")
	}
}

func TestDeserializeRejectsImpossibleLength(t *testing.T) {
	// A claimed parent-hash count far larger than the remaining bytes.
	enc := (&encbuf{})
	enc.u64(1)
	enc.u64(2)
	enc.u32(1 << 30)
	if _, err := DeserializeAttestation(enc.bytes()); err == nil {
		t.Fatal("expected an impossible sequence length to be rejected")
	}
}
