// Package helpers collects small pure functions shared across the block
// and cycle transition packages: slot/epoch arithmetic and RANDAO
// mixing. Generalized from an Altair-era slots-per-epoch model back to
// an EPOCH_LENGTH-based cycle model operating on *types.BeaconState.
package helpers

import "github.com/coldstake/beacon-core/shared/params"

// SlotToEpoch returns the epoch number of the input slot.
func SlotToEpoch(slot uint64, cfg *params.BeaconConfig) uint64 {
	return slot / cfg.EpochLength
}
