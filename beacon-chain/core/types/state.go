package types

import (
	"github.com/coldstake/beacon-core/shared/bls"
	"github.com/coldstake/beacon-core/shared/hashutil"
)

// Crosslink is a shard committee's commitment to a shard block root,
// folded into beacon state at cycle boundaries.
type Crosslink struct {
	Slot           uint64
	ShardBlockHash [32]byte
}

// ShardCommittee is one committee's assignment: the shard it attests to
// and the ordered validator indices responsible for it.
type ShardCommittee struct {
	ShardID   uint64
	Committee []uint64
}

// CandidateReceiptRoot tracks a PoW receipt root candidate and the
// number of votes it has received while awaiting processing.
type CandidateReceiptRoot struct {
	ReceiptRoot [32]byte
	Votes       uint64
}

// BeaconState is the single authoritative root. Ring buffers are always
// allocated at their configured length (invariant I5) and addressed by
// `slot mod length`.
type BeaconState struct {
	// Misc.
	Slot        uint64
	GenesisTime uint64
	Fork        bls.Fork

	// Validator registry.
	ValidatorRegistry                 []*Validator
	ValidatorBalances                 []uint64
	ValidatorRegistryLatestChangeSlot uint64
	ValidatorRegistryExitCount        uint64
	ValidatorRegistryDeltaChainTip    [32]byte

	// Randomness & committees.
	LatestRandaoMixes      [][32]byte
	LatestVdfOutputs       [][32]byte
	ShardCommitteesAtSlots [][]ShardCommittee // length 2*EpochLength

	// Dynasty / cycle bookkeeping.
	LastStateRecalc        uint64
	CurrentDynasty         uint64
	DynastyStart           uint64
	CrosslinkingStartShard uint64

	// Finality.
	PreviousJustifiedSlot uint64
	JustifiedSlot         uint64
	JustificationBitfield uint64
	FinalizedSlot         uint64

	// Recent.
	LatestCrosslinks             []Crosslink // one per shard
	LatestBlockRoots             [][32]byte  // ring buffer
	LatestPenalizedExitBalances  []uint64    // ring buffer
	PendingAttestations          []*PendingAttestation
	BatchedBlockRootsAccumulator [][32]byte

	// PoW anchoring.
	ProcessedPowReceiptRoot  [32]byte
	CandidatePowReceiptRoots []CandidateReceiptRoot
}

// Copy returns a deep copy of the state: every mutation in this module
// returns a new BeaconState rather than mutating the caller's copy
// .
func (s *BeaconState) Copy() *BeaconState {
	cp := *s

	cp.ValidatorRegistry = make([]*Validator, len(s.ValidatorRegistry))
	for i, v := range s.ValidatorRegistry {
		cp.ValidatorRegistry[i] = v.Copy()
	}
	cp.ValidatorBalances = append([]uint64{}, s.ValidatorBalances...)

	cp.LatestRandaoMixes = append([][32]byte{}, s.LatestRandaoMixes...)
	cp.LatestVdfOutputs = append([][32]byte{}, s.LatestVdfOutputs...)

	cp.ShardCommitteesAtSlots = make([][]ShardCommittee, len(s.ShardCommitteesAtSlots))
	for i, row := range s.ShardCommitteesAtSlots {
		cp.ShardCommitteesAtSlots[i] = append([]ShardCommittee{}, row...)
	}

	cp.LatestCrosslinks = append([]Crosslink{}, s.LatestCrosslinks...)
	cp.LatestBlockRoots = append([][32]byte{}, s.LatestBlockRoots...)
	cp.LatestPenalizedExitBalances = append([]uint64{}, s.LatestPenalizedExitBalances...)
	cp.PendingAttestations = append([]*PendingAttestation{}, s.PendingAttestations...)
	cp.BatchedBlockRootsAccumulator = append([][32]byte{}, s.BatchedBlockRootsAccumulator...)
	cp.CandidatePowReceiptRoots = append([]CandidateReceiptRoot{}, s.CandidatePowReceiptRoots...)

	return &cp
}

// Serialize returns the canonical encoding of the entire state. This is
// a flat concatenation, not an SSZ Merkle
// hash-tree-root: computing it is O(state size), acceptable since the
// spec prioritizes byte-determinism over incremental hashing.
func (s *BeaconState) Serialize() []byte {
	e := &encbuf{}
	e.u64(s.Slot)
	e.u64(s.GenesisTime)
	e.u64(s.Fork.PreForkVersion)
	e.u64(s.Fork.PostForkVersion)
	e.u64(s.Fork.ForkSlot)

	e.u32(uint32(len(s.ValidatorRegistry)))
	for _, v := range s.ValidatorRegistry {
		e.fixed(v.Serialize())
	}
	e.u32(uint32(len(s.ValidatorBalances)))
	for _, b := range s.ValidatorBalances {
		e.u64(b)
	}
	e.u64(s.ValidatorRegistryLatestChangeSlot)
	e.u64(s.ValidatorRegistryExitCount)
	e.fixed(s.ValidatorRegistryDeltaChainTip[:])

	e.u32(uint32(len(s.LatestRandaoMixes)))
	for _, m := range s.LatestRandaoMixes {
		e.fixed(m[:])
	}
	e.u32(uint32(len(s.LatestVdfOutputs)))
	for _, m := range s.LatestVdfOutputs {
		e.fixed(m[:])
	}
	e.u32(uint32(len(s.ShardCommitteesAtSlots)))
	for _, row := range s.ShardCommitteesAtSlots {
		e.u32(uint32(len(row)))
		for _, c := range row {
			e.u64(c.ShardID)
			e.u32(uint32(len(c.Committee)))
			for _, idx := range c.Committee {
				e.u64(idx)
			}
		}
	}

	e.u64(s.LastStateRecalc)
	e.u64(s.CurrentDynasty)
	e.u64(s.DynastyStart)
	e.u64(s.CrosslinkingStartShard)

	e.u64(s.PreviousJustifiedSlot)
	e.u64(s.JustifiedSlot)
	e.u64(s.JustificationBitfield)
	e.u64(s.FinalizedSlot)

	e.u32(uint32(len(s.LatestCrosslinks)))
	for _, c := range s.LatestCrosslinks {
		e.u64(c.Slot)
		e.fixed(c.ShardBlockHash[:])
	}
	e.u32(uint32(len(s.LatestBlockRoots)))
	for _, r := range s.LatestBlockRoots {
		e.fixed(r[:])
	}
	e.u32(uint32(len(s.LatestPenalizedExitBalances)))
	for _, b := range s.LatestPenalizedExitBalances {
		e.u64(b)
	}
	e.u32(uint32(len(s.PendingAttestations)))
	for _, pa := range s.PendingAttestations {
		e.fixed(pa.Data.Serialize())
		e.variable(pa.ParticipationBitfield)
		e.u64(pa.SlotIncluded)
	}
	e.u32(uint32(len(s.BatchedBlockRootsAccumulator)))
	for _, r := range s.BatchedBlockRootsAccumulator {
		e.fixed(r[:])
	}

	e.fixed(s.ProcessedPowReceiptRoot[:])
	e.u32(uint32(len(s.CandidatePowReceiptRoots)))
	for _, c := range s.CandidatePowReceiptRoots {
		e.fixed(c.ReceiptRoot[:])
		e.u64(c.Votes)
	}

	return e.bytes()
}

// Root is the 32-byte hash of the canonical serialization: equality of
// roots implies structural equality .
func (s *BeaconState) Root() [32]byte {
	return hashutil.Hash(s.Serialize())
}

// The methods below give *BeaconState the shape invariant.CheckAll
// expects, without core/types importing core/invariant.

// NumValidators returns len(ValidatorRegistry), for invariant I1.
func (s *BeaconState) NumValidators() int { return len(s.ValidatorRegistry) }

// NumBalances returns len(ValidatorBalances), for invariant I1.
func (s *BeaconState) NumBalances() int { return len(s.ValidatorBalances) }

// CommitteeRowCount returns len(ShardCommitteesAtSlots), for invariant I2.
func (s *BeaconState) CommitteeRowCount() int { return len(s.ShardCommitteesAtSlots) }

// ValidatorSlots returns validator i's activation/exit/withdrawal slots,
// for invariant I3.
func (s *BeaconState) ValidatorSlots(i int) (activation, exit, withdrawal uint64) {
	v := s.ValidatorRegistry[i]
	return v.ActivationSlot, v.ExitSlot, v.WithdrawalSlot
}

// CommitteeIndices returns every committee's validator-index list across
// the full schedule, for invariant I2's range check.
func (s *BeaconState) CommitteeIndices() [][]uint64 {
	out := make([][]uint64, 0, len(s.ShardCommitteesAtSlots))
	for _, row := range s.ShardCommitteesAtSlots {
		for _, sc := range row {
			out = append(out, sc.Committee)
		}
	}
	return out
}

// CurrentSlot returns Slot, for invariant I4.
func (s *BeaconState) CurrentSlot() uint64 { return s.Slot }

// Finalized returns FinalizedSlot, for invariant I4.
func (s *BeaconState) Finalized() uint64 { return s.FinalizedSlot }

// PreviouslyJustified returns PreviousJustifiedSlot, for invariant I4.
func (s *BeaconState) PreviouslyJustified() uint64 { return s.PreviousJustifiedSlot }

// Justified returns JustifiedSlot, for invariant I4.
func (s *BeaconState) Justified() uint64 { return s.JustifiedSlot }
