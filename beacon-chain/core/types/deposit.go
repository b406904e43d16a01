package types

import "github.com/coldstake/beacon-core/shared/hashutil"

// DepositInput is the portion of a deposit signed under the DEPOSIT
// domain as a proof of possession of the claimed private key.
type DepositInput struct {
	Pubkey                [48]byte
	WithdrawalCredentials [32]byte
	ProofOfPossession     [96]byte
	RandaoCommitment      [32]byte
}

// SerializeForSigning returns the canonical encoding, excluding ProofOfPossession:
// the proof signs the root of everything else, so it cannot include
// itself.
func (d *DepositInput) SerializeForSigning() []byte {
	e := &encbuf{}
	e.fixed(d.Pubkey[:])
	e.fixed(d.WithdrawalCredentials[:])
	e.fixed(d.RandaoCommitment[:])
	return e.bytes()
}

// RootForSigning is the root the proof of possession is computed over.
func (d *DepositInput) RootForSigning() [32]byte {
	return hashutil.Hash(d.SerializeForSigning())
}

// DepositData wraps a DepositInput with the amount and wall-clock time
// of the deposit.
type DepositData struct {
	Input     DepositInput
	Amount    uint64
	Timestamp uint64
}

// Deposit is a single leaf of the deposit contract's Merkle tree as
// observed by the beacon chain.
type Deposit struct {
	Data            DepositData
	MerkleBranch    [][32]byte
	MerkleTreeIndex uint64
}

// Serialize returns the canonical encoding of the full deposit,
// including the proof of possession and the Merkle branch.
func (d *Deposit) Serialize() []byte {
	e := &encbuf{}
	e.fixed(d.Data.Input.Pubkey[:])
	e.fixed(d.Data.Input.WithdrawalCredentials[:])
	e.fixed(d.Data.Input.ProofOfPossession[:])
	e.fixed(d.Data.Input.RandaoCommitment[:])
	e.u64(d.Data.Amount)
	e.u64(d.Data.Timestamp)
	e.u32(uint32(len(d.MerkleBranch)))
	for _, h := range d.MerkleBranch {
		e.fixed(h[:])
	}
	e.u64(d.MerkleTreeIndex)
	return e.bytes()
}

// Exit requests termination of a validator's active duties.
type Exit struct {
	Slot           uint64
	ValidatorIndex uint64
	Signature      [96]byte
}

// SerializeForSigning returns the canonical encoding of everything the
// exit's signature covers: the slot and validator index.
func (x *Exit) SerializeForSigning() []byte {
	e := &encbuf{}
	e.u64(x.Slot)
	e.u64(x.ValidatorIndex)
	return e.bytes()
}

// RootForSigning is the root the exit signature is computed over.
func (x *Exit) RootForSigning() [32]byte {
	return hashutil.Hash(x.SerializeForSigning())
}

// ProposerSlashing proves a validator double-proposed: two differently
// rooted blocks signed for the same slot.
type ProposerSlashing struct {
	ProposerIndex uint64
	Slot1         uint64
	Slot2         uint64
	BlockRoot1    [32]byte
	BlockRoot2    [32]byte
	Signature1    [96]byte
	Signature2    [96]byte
}

// SlashableVoteData is one side of a CasperSlashing: an attestation and
// the validator indices that signed it.
type SlashableVoteData struct {
	Data               AttestationData
	ValidatorIndices   []uint64
	AggregateSignature [96]byte
}

// CasperSlashing proves a double-vote or surround-vote between two
// attestations.
type CasperSlashing struct {
	Votes1 SlashableVoteData
	Votes2 SlashableVoteData
}
