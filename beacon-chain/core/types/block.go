package types

import "github.com/coldstake/beacon-core/shared/hashutil"

// BlockBody carries every operation a proposer bundles into a block.
type BlockBody struct {
	ProposerSlashings []*ProposerSlashing
	CasperSlashings   []*CasperSlashing
	Attestations      []*Attestation
	Deposits          []*Deposit
	Exits             []*Exit
}

// Block is a single beacon chain block.
type Block struct {
	Slot                    uint64
	ParentRootHash          [32]byte
	StateRootHash           [32]byte
	RandaoReveal            [32]byte
	CandidatePowReceiptRoot [32]byte
	Signature               [96]byte
	Body                    *BlockBody
}

func (b *BlockBody) serialize(e *encbuf) {
	e.u32(uint32(len(b.ProposerSlashings)))
	for _, ps := range b.ProposerSlashings {
		e.u64(ps.ProposerIndex)
		e.u64(ps.Slot1)
		e.u64(ps.Slot2)
		e.fixed(ps.BlockRoot1[:])
		e.fixed(ps.BlockRoot2[:])
		e.fixed(ps.Signature1[:])
		e.fixed(ps.Signature2[:])
	}
	e.u32(uint32(len(b.CasperSlashings)))
	for _, cs := range b.CasperSlashings {
		serializeVote(e, &cs.Votes1)
		serializeVote(e, &cs.Votes2)
	}
	e.u32(uint32(len(b.Attestations)))
	for _, a := range b.Attestations {
		e.fixed(a.Serialize())
	}
	e.u32(uint32(len(b.Deposits)))
	for _, d := range b.Deposits {
		e.fixed(d.Serialize())
	}
	e.u32(uint32(len(b.Exits)))
	for _, x := range b.Exits {
		e.u64(x.Slot)
		e.u64(x.ValidatorIndex)
		e.fixed(x.Signature[:])
	}
}

func serializeVote(e *encbuf, v *SlashableVoteData) {
	e.fixed(v.Data.Serialize())
	e.u32(uint32(len(v.ValidatorIndices)))
	for _, idx := range v.ValidatorIndices {
		e.u64(idx)
	}
	e.fixed(v.AggregateSignature[:])
}

// Serialize returns the canonical encoding of the block, including its
// own signature (roots over a block always commit to the signature that
// sealed it).
func (b *Block) Serialize() []byte {
	e := &encbuf{}
	e.u64(b.Slot)
	e.fixed(b.ParentRootHash[:])
	e.fixed(b.StateRootHash[:])
	e.fixed(b.RandaoReveal[:])
	e.fixed(b.CandidatePowReceiptRoot[:])
	e.fixed(b.Signature[:])
	if b.Body != nil {
		b.Body.serialize(e)
	}
	return e.bytes()
}

// Root is the 32-byte hash of the canonical serialization.
func (b *Block) Root() [32]byte {
	return hashutil.Hash(b.Serialize())
}
