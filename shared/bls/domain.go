package bls

import "encoding/binary"

// DomainType tags the purpose a signature was produced for, so that a
// signature valid for one purpose (e.g. a deposit) can never be replayed
// as another (e.g. a proposal).
type DomainType uint64

// Domain kinds.
const (
	DomainDeposit DomainType = iota
	DomainAttestation
	DomainProposal
	DomainExit
	DomainRandao
)

// Fork carries the two fork-version tags and the slot at which the
// version changed, matching the beacon state's fork-data section.
type Fork struct {
	PreForkVersion  uint64
	PostForkVersion uint64
	ForkSlot        uint64
}

// Domain computes get_domain(fork_data, slot, kind): it picks the
// pre- or post-fork version depending on whether slot is before the
// fork, then places the version in the high 32 bits and the domain kind
// in the low 32 bits.
func Domain(fork Fork, slot uint64, kind DomainType) uint64 {
	version := fork.PreForkVersion
	if slot >= fork.ForkSlot {
		version = fork.PostForkVersion
	}
	return version<<32 | uint64(kind)
}

// PrependDomain returns domain (as an 8-byte big-endian prefix) followed
// by msg: hash the message with an 8-byte big-endian domain prefix to a
// G2 point.
func PrependDomain(domain uint64, msg []byte) []byte {
	out := make([]byte, 8+len(msg))
	binary.BigEndian.PutUint64(out[:8], domain)
	copy(out[8:], msg)
	return out
}
