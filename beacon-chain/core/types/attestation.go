package types

import "github.com/coldstake/beacon-core/shared/hashutil"

// AttestationData is the signed content of an attestation: everything
// except the bitfield and aggregate signature.
type AttestationData struct {
	Slot               uint64
	Shard              uint64
	ParentHashes       [][32]byte // oblique parent hashes
	ShardBlockHash     [32]byte
	JustifiedSlot      uint64
	JustifiedBlockHash [32]byte
}

// Serialize returns the canonical encoding of the attestation data.
func (a *AttestationData) Serialize() []byte {
	e := &encbuf{}
	e.u64(a.Slot)
	e.u64(a.Shard)
	e.u32(uint32(len(a.ParentHashes)))
	for _, h := range a.ParentHashes {
		e.fixed(h[:])
	}
	e.fixed(a.ShardBlockHash[:])
	e.u64(a.JustifiedSlot)
	e.fixed(a.JustifiedBlockHash[:])
	return e.bytes()
}

// Root is the 32-byte hash of the canonical serialization.
func (a *AttestationData) Root() [32]byte {
	return hashutil.Hash(a.Serialize())
}

// Attestation is a signed vote for AttestationData by a committee subset.
type Attestation struct {
	Data                AttestationData
	ParticipationBitfield []byte // one bit per committee seat
	AggregateSignature  [96]byte
}

// Serialize returns the canonical encoding of the attestation.
func (a *Attestation) Serialize() []byte {
	e := &encbuf{}
	e.fixed(a.Data.Serialize())
	e.variable(a.ParticipationBitfield)
	e.fixed(a.AggregateSignature[:])
	return e.bytes()
}

// Root is the 32-byte hash of the canonical serialization.
func (a *Attestation) Root() [32]byte {
	return hashutil.Hash(a.Serialize())
}

// PendingAttestation is an attestation queued in beacon state awaiting
// per-cycle processing; SlotIncluded records the slot of the block that
// carried it, used by the inclusion-distance reward .
type PendingAttestation struct {
	Data                  AttestationData
	ParticipationBitfield []byte
	SlotIncluded          uint64
}

// IsDoubleVote reports whether a and b attest to the same target epoch,
// grounded on beacon-chain/core/attestations/attestation.go's
// IsDoubleVote.
func IsDoubleVote(a, b *AttestationData, slotToEpoch func(uint64) uint64) bool {
	return slotToEpoch(a.Slot) == slotToEpoch(b.Slot)
}

// IsSurroundVote reports whether a surrounds b: a's source is older and
// a's target is newer than b's, the Casper slashing condition, grounded
// on the same file's IsSurroundVote.
func IsSurroundVote(a, b *AttestationData, slotToEpoch func(uint64) uint64) bool {
	sourceA := a.JustifiedSlot
	sourceB := b.JustifiedSlot
	targetA := slotToEpoch(a.Slot)
	targetB := slotToEpoch(b.Slot)
	return sourceA < sourceB && targetB < targetA
}
