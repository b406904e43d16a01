// Package stateutils holds small lookups over BeaconState that are
// expensive to recompute on every call site, starting with the
// pubkey->index map deposit processing needs to detect a re-deposit
// against an already-registered validator.
package stateutils

import "github.com/coldstake/beacon-core/beacon-chain/core/types"

// ValidatorIndexMap builds a lookup map for quickly determining the
// registry index of a validator by its public key.
func ValidatorIndexMap(state *types.BeaconState) map[[48]byte]int {
	m := make(map[[48]byte]int, len(state.ValidatorRegistry))
	for idx, v := range state.ValidatorRegistry {
		m[v.Pubkey] = idx
	}
	return m
}
