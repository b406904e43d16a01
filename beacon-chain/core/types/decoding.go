package types

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/coldstake/beacon-core/beacon-chain/core/coreerr"
)

// decbuf walks a canonical serialization front to back, mirroring encbuf.
// The first failed read poisons the buffer; callers check err once at the
// end of a decode rather than after every field.
type decbuf struct {
	buf []byte
	off int
	err error
}

func (d *decbuf) u64() uint64 {
	if d.err != nil {
		return 0
	}
	if d.off+8 > len(d.buf) {
		d.err = coreerr.ErrBadSerialization
		return 0
	}
	v := binary.BigEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v
}

func (d *decbuf) u32() uint32 {
	if d.err != nil {
		return 0
	}
	if d.off+4 > len(d.buf) {
		d.err = coreerr.ErrBadSerialization
		return 0
	}
	v := binary.BigEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v
}

func (d *decbuf) fixed(out []byte) {
	if d.err != nil {
		return
	}
	if d.off+len(out) > len(d.buf) {
		d.err = coreerr.ErrBadSerialization
		return
	}
	copy(out, d.buf[d.off:])
	d.off += len(out)
}

func (d *decbuf) hash() [32]byte {
	var h [32]byte
	d.fixed(h[:])
	return h
}

// count reads a 32-bit length prefix and rejects values whose minimum
// encoded size cannot fit in the remaining bytes.
func (d *decbuf) count(elemSize int) int {
	n := int(d.u32())
	if d.err != nil {
		return 0
	}
	if elemSize > 0 && n*elemSize > len(d.buf)-d.off {
		d.err = coreerr.ErrImpossibleLength
		return 0
	}
	return n
}

// variable reads a length-prefixed byte string.
func (d *decbuf) variable() []byte {
	n := d.count(1)
	if d.err != nil {
		return nil
	}
	out := make([]byte, n)
	d.fixed(out)
	return out
}

// done rejects trailing garbage: a canonical encoding decodes exactly.
func (d *decbuf) done() error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.buf) {
		return errors.Wrap(coreerr.ErrBadSerialization, "trailing bytes after canonical encoding")
	}
	return nil
}

func decodeAttestationData(d *decbuf) AttestationData {
	var a AttestationData
	a.Slot = d.u64()
	a.Shard = d.u64()
	n := d.count(32)
	a.ParentHashes = make([][32]byte, n)
	for i := 0; i < n; i++ {
		a.ParentHashes[i] = d.hash()
	}
	a.ShardBlockHash = d.hash()
	a.JustifiedSlot = d.u64()
	a.JustifiedBlockHash = d.hash()
	return a
}

func decodeAttestation(d *decbuf) *Attestation {
	a := &Attestation{}
	a.Data = decodeAttestationData(d)
	a.ParticipationBitfield = d.variable()
	d.fixed(a.AggregateSignature[:])
	return a
}

// DeserializeAttestation decodes a canonical attestation encoding.
func DeserializeAttestation(b []byte) (*Attestation, error) {
	d := &decbuf{buf: b}
	a := decodeAttestation(d)
	if err := d.done(); err != nil {
		return nil, err
	}
	return a, nil
}

// DeserializeValidator decodes a canonical validator encoding.
func DeserializeValidator(b []byte) (*Validator, error) {
	d := &decbuf{buf: b}
	v := decodeValidator(d)
	if err := d.done(); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeValidator(d *decbuf) *Validator {
	v := &Validator{}
	d.fixed(v.Pubkey[:])
	d.fixed(v.WithdrawalCredentials[:])
	d.fixed(v.RandaoCommitment[:])
	v.RandaoLayers = d.u64()
	v.ActivationSlot = d.u64()
	v.ExitSlot = d.u64()
	v.WithdrawalSlot = d.u64()
	v.PenalizedSlot = d.u64()
	v.ExitCount = d.u64()
	v.StatusFlags = d.u64()
	return v
}

func decodeVote(d *decbuf) SlashableVoteData {
	var v SlashableVoteData
	v.Data = decodeAttestationData(d)
	n := d.count(8)
	v.ValidatorIndices = make([]uint64, n)
	for i := 0; i < n; i++ {
		v.ValidatorIndices[i] = d.u64()
	}
	d.fixed(v.AggregateSignature[:])
	return v
}

func decodeDeposit(d *decbuf) *Deposit {
	dep := &Deposit{}
	d.fixed(dep.Data.Input.Pubkey[:])
	d.fixed(dep.Data.Input.WithdrawalCredentials[:])
	d.fixed(dep.Data.Input.ProofOfPossession[:])
	d.fixed(dep.Data.Input.RandaoCommitment[:])
	dep.Data.Amount = d.u64()
	dep.Data.Timestamp = d.u64()
	n := d.count(32)
	dep.MerkleBranch = make([][32]byte, n)
	for i := 0; i < n; i++ {
		dep.MerkleBranch[i] = d.hash()
	}
	dep.MerkleTreeIndex = d.u64()
	return dep
}

func decodeBody(d *decbuf) *BlockBody {
	body := &BlockBody{}

	n := d.count(8)
	body.ProposerSlashings = make([]*ProposerSlashing, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		ps := &ProposerSlashing{}
		ps.ProposerIndex = d.u64()
		ps.Slot1 = d.u64()
		ps.Slot2 = d.u64()
		ps.BlockRoot1 = d.hash()
		ps.BlockRoot2 = d.hash()
		d.fixed(ps.Signature1[:])
		d.fixed(ps.Signature2[:])
		body.ProposerSlashings = append(body.ProposerSlashings, ps)
	}

	n = d.count(8)
	body.CasperSlashings = make([]*CasperSlashing, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		cs := &CasperSlashing{}
		cs.Votes1 = decodeVote(d)
		cs.Votes2 = decodeVote(d)
		body.CasperSlashings = append(body.CasperSlashings, cs)
	}

	n = d.count(8)
	body.Attestations = make([]*Attestation, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		body.Attestations = append(body.Attestations, decodeAttestation(d))
	}

	n = d.count(8)
	body.Deposits = make([]*Deposit, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		body.Deposits = append(body.Deposits, decodeDeposit(d))
	}

	n = d.count(8)
	body.Exits = make([]*Exit, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		x := &Exit{}
		x.Slot = d.u64()
		x.ValidatorIndex = d.u64()
		d.fixed(x.Signature[:])
		body.Exits = append(body.Exits, x)
	}

	return body
}

// DeserializeBlock decodes a canonical block encoding. A block encoded
// without a body decodes with Body == nil.
func DeserializeBlock(b []byte) (*Block, error) {
	d := &decbuf{buf: b}
	blk := &Block{}
	blk.Slot = d.u64()
	blk.ParentRootHash = d.hash()
	blk.StateRootHash = d.hash()
	blk.RandaoReveal = d.hash()
	blk.CandidatePowReceiptRoot = d.hash()
	d.fixed(blk.Signature[:])
	if d.err == nil && d.off < len(d.buf) {
		blk.Body = decodeBody(d)
	}
	if err := d.done(); err != nil {
		return nil, err
	}
	return blk, nil
}

// DeserializeState decodes a canonical beacon-state encoding.
func DeserializeState(b []byte) (*BeaconState, error) {
	d := &decbuf{buf: b}
	s := &BeaconState{}

	s.Slot = d.u64()
	s.GenesisTime = d.u64()
	s.Fork.PreForkVersion = d.u64()
	s.Fork.PostForkVersion = d.u64()
	s.Fork.ForkSlot = d.u64()

	n := d.count(8)
	s.ValidatorRegistry = make([]*Validator, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		s.ValidatorRegistry = append(s.ValidatorRegistry, decodeValidator(d))
	}
	n = d.count(8)
	s.ValidatorBalances = make([]uint64, n)
	for i := 0; i < n; i++ {
		s.ValidatorBalances[i] = d.u64()
	}
	s.ValidatorRegistryLatestChangeSlot = d.u64()
	s.ValidatorRegistryExitCount = d.u64()
	s.ValidatorRegistryDeltaChainTip = d.hash()

	n = d.count(32)
	s.LatestRandaoMixes = make([][32]byte, n)
	for i := 0; i < n; i++ {
		s.LatestRandaoMixes[i] = d.hash()
	}
	n = d.count(32)
	s.LatestVdfOutputs = make([][32]byte, n)
	for i := 0; i < n; i++ {
		s.LatestVdfOutputs[i] = d.hash()
	}
	n = d.count(4)
	s.ShardCommitteesAtSlots = make([][]ShardCommittee, n)
	for i := 0; i < n && d.err == nil; i++ {
		rowLen := d.count(8)
		row := make([]ShardCommittee, 0, rowLen)
		for j := 0; j < rowLen && d.err == nil; j++ {
			sc := ShardCommittee{ShardID: d.u64()}
			seats := d.count(8)
			sc.Committee = make([]uint64, seats)
			for k := 0; k < seats; k++ {
				sc.Committee[k] = d.u64()
			}
			row = append(row, sc)
		}
		s.ShardCommitteesAtSlots[i] = row
	}

	s.LastStateRecalc = d.u64()
	s.CurrentDynasty = d.u64()
	s.DynastyStart = d.u64()
	s.CrosslinkingStartShard = d.u64()

	s.PreviousJustifiedSlot = d.u64()
	s.JustifiedSlot = d.u64()
	s.JustificationBitfield = d.u64()
	s.FinalizedSlot = d.u64()

	n = d.count(40)
	s.LatestCrosslinks = make([]Crosslink, n)
	for i := 0; i < n; i++ {
		s.LatestCrosslinks[i] = Crosslink{Slot: d.u64(), ShardBlockHash: d.hash()}
	}
	n = d.count(32)
	s.LatestBlockRoots = make([][32]byte, n)
	for i := 0; i < n; i++ {
		s.LatestBlockRoots[i] = d.hash()
	}
	n = d.count(8)
	s.LatestPenalizedExitBalances = make([]uint64, n)
	for i := 0; i < n; i++ {
		s.LatestPenalizedExitBalances[i] = d.u64()
	}
	n = d.count(8)
	s.PendingAttestations = make([]*PendingAttestation, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		pa := &PendingAttestation{}
		pa.Data = decodeAttestationData(d)
		pa.ParticipationBitfield = d.variable()
		pa.SlotIncluded = d.u64()
		s.PendingAttestations = append(s.PendingAttestations, pa)
	}
	n = d.count(32)
	s.BatchedBlockRootsAccumulator = make([][32]byte, n)
	for i := 0; i < n; i++ {
		s.BatchedBlockRootsAccumulator[i] = d.hash()
	}

	s.ProcessedPowReceiptRoot = d.hash()
	n = d.count(40)
	s.CandidatePowReceiptRoots = make([]CandidateReceiptRoot, n)
	for i := 0; i < n; i++ {
		s.CandidatePowReceiptRoots[i] = CandidateReceiptRoot{ReceiptRoot: d.hash(), Votes: d.u64()}
	}

	if err := d.done(); err != nil {
		return nil, err
	}
	return s, nil
}
