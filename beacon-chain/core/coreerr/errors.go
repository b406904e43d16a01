// Package coreerr defines the sentinel errors for the block-validation
// taxonomy: structural, referential, cryptographic, and consensus
// failures, all of which reject the offending block without mutating the
// state passed in. Invariant violations are not part of this taxonomy;
// see the invariant package.
package coreerr

import "github.com/pkg/errors"

var (
	// Structural.
	ErrBadSerialization = errors.New("malformed serialization")
	ErrImpossibleLength = errors.New("impossible sequence length")

	// Referential.
	ErrInvalidParent  = errors.New("parent block not found")
	ErrSlotOutOfOrder = errors.New("block slot precedes parent slot")

	// Cryptographic.
	ErrBLSVerificationFailed   = errors.New("BLS signature verification failed")
	ErrProofOfPossessionFailed = errors.New("deposit proof of possession failed")
	ErrRandaoMismatch          = errors.New("RANDAO reveal does not match commitment")

	// Consensus.
	ErrStateRootMismatch           = errors.New("computed state root does not match block's claimed root")
	ErrCommitteeMembershipMismatch = errors.New("attester is not a member of the assigned committee")
	ErrUnknownJustifiedHash        = errors.New("attestation justifies an unknown block hash")
	ErrBitfieldTooLong             = errors.New("attestation bitfield longer than its committee")
)
