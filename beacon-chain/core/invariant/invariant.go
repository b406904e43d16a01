// Package invariant enforces the beacon state invariants (I1)-(I4). A
// violation here means an implementation bug, not a bad block, so it is
// never returned as an error: it is fatal and aborts the process rather
// than risk corrupting state.
package invariant

import "fmt"

// Check panics with msg if cond is false. Call sites name which
// invariant failed so the panic message is actionable.
func Check(cond bool, msg string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("invariant violation: "+msg, args...))
	}
}

// state is the narrow slice of *types.BeaconState this package reads.
// Declared locally rather than importing core/types to avoid a cyclic
// dependency (types has no reason to depend on invariant, but several
// lower packages that types depends on would end up behind it).
type state interface {
	NumValidators() int
	NumBalances() int
	CommitteeRowCount() int
	ValidatorSlots(i int) (activation, exit, withdrawal uint64)
	CommitteeIndices() [][]uint64
	Finalized() uint64
	PreviouslyJustified() uint64
	Justified() uint64
	CurrentSlot() uint64
}

// CheckAll runs invariants (I1)-(I4) against s. (I5), the ring-buffer
// lengths, and (I6), the registry-delta chain tip, are not checked here.
// epochLength is the configured EPOCH_LENGTH, needed
// for I2 since state itself carries no configuration.
func CheckAll(s state, epochLength uint64) {
	Check(s.NumValidators() == s.NumBalances(),
		"I1: validator registry has %d entries but balances has %d", s.NumValidators(), s.NumBalances())

	Check(uint64(s.CommitteeRowCount()) == 2*epochLength,
		"I2: shard_committees_at_slots has %d rows, want %d", s.CommitteeRowCount(), 2*epochLength)
	for _, committee := range s.CommitteeIndices() {
		for _, idx := range committee {
			Check(int(idx) < s.NumValidators(),
				"I2: committee references validator index %d, registry has %d entries", idx, s.NumValidators())
		}
	}

	for i := 0; i < s.NumValidators(); i++ {
		activation, exit, withdrawal := s.ValidatorSlots(i)
		Check(activation <= exit && exit <= withdrawal,
			"I3: validator %d has activation=%d exit=%d withdrawal=%d out of order", i, activation, exit, withdrawal)
	}

	Check(s.Finalized() <= s.PreviouslyJustified() &&
		s.PreviouslyJustified() <= s.Justified() &&
		s.Justified() <= s.CurrentSlot(),
		"I4: finalized=%d previous_justified=%d justified=%d current=%d out of order",
		s.Finalized(), s.PreviouslyJustified(), s.Justified(), s.CurrentSlot())
}
