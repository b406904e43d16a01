// Package types defines the beacon chain's canonical data model: typed,
// immutable records and the flat big-endian serialization used both for
// hashing (root) and for inter-node transport.
// Mutation is by copy: BeaconState.Copy and Validator.Copy return the new
// value that a transition modifies.
package types

import (
	"github.com/coldstake/beacon-core/shared/hashutil"
	"github.com/coldstake/beacon-core/shared/params"
)

// Validator status flags, folded into a single bitfield.
const (
	StatusFlagInitial       uint64 = 0
	StatusFlagInitiatedExit uint64 = 1 << 0
	StatusFlagWithdrawable  uint64 = 1 << 1
)

// Validator is a single registry entry. All slot fields use
// params.FarFutureSlot as their "not yet scheduled" sentinel.
type Validator struct {
	Pubkey                [48]byte
	WithdrawalCredentials [32]byte
	RandaoCommitment      [32]byte
	RandaoLayers          uint64
	ActivationSlot        uint64
	ExitSlot              uint64
	WithdrawalSlot        uint64
	PenalizedSlot         uint64
	ExitCount             uint64
	StatusFlags           uint64
}

// NewPendingValidator builds a validator entry as it looks immediately
// after deposit processing: all lifecycle slots unscheduled.
func NewPendingValidator(pubkey [48]byte, withdrawalCredentials, randaoCommitment [32]byte) *Validator {
	far := params.FarFutureSlot
	return &Validator{
		Pubkey:                pubkey,
		WithdrawalCredentials: withdrawalCredentials,
		RandaoCommitment:      randaoCommitment,
		ActivationSlot:        far,
		ExitSlot:              far,
		WithdrawalSlot:        far,
		PenalizedSlot:         far,
		StatusFlags:           StatusFlagInitial,
	}
}

// Copy returns a shallow copy; Validator has no reference fields besides
// fixed-size arrays, so a shallow copy is a deep copy.
func (v *Validator) Copy() *Validator {
	cp := *v
	return &cp
}

// IsActiveAt reports whether the validator is active at slot: spec
// definition "activation_slot <= s < exit_slot".
func (v *Validator) IsActiveAt(slot uint64) bool {
	return v.ActivationSlot <= slot && slot < v.ExitSlot
}

// HasInitiatedExit reports the INITIATED_EXIT flag.
func (v *Validator) HasInitiatedExit() bool {
	return v.StatusFlags&StatusFlagInitiatedExit != 0
}

// IsWithdrawable reports the WITHDRAWABLE flag.
func (v *Validator) IsWithdrawable() bool {
	return v.StatusFlags&StatusFlagWithdrawable != 0
}

// EffectiveBalance is min(balance, MAX_DEPOSIT gwei), the quantity every
// reward/penalty and churn computation is based on.
func EffectiveBalance(balance uint64, cfg *params.BeaconConfig) uint64 {
	if balance > cfg.MaxDeposit {
		return cfg.MaxDeposit
	}
	return balance
}

// Serialize returns the canonical field-order encoding.
func (v *Validator) Serialize() []byte {
	e := &encbuf{}
	e.fixed(v.Pubkey[:])
	e.fixed(v.WithdrawalCredentials[:])
	e.fixed(v.RandaoCommitment[:])
	e.u64(v.RandaoLayers)
	e.u64(v.ActivationSlot)
	e.u64(v.ExitSlot)
	e.u64(v.WithdrawalSlot)
	e.u64(v.PenalizedSlot)
	e.u64(v.ExitCount)
	e.u64(v.StatusFlags)
	return e.bytes()
}

// Root is the 32-byte Keccak-256 hash of the canonical serialization.
func (v *Validator) Root() [32]byte {
	return hashutil.Hash(v.Serialize())
}
