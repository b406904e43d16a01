package helpers

import (
	"github.com/pkg/errors"

	"github.com/coldstake/beacon-core/beacon-chain/core/types"
	"github.com/coldstake/beacon-core/shared/hashutil"
	"github.com/coldstake/beacon-core/shared/params"
)

// VerifyRandaoReveal checks that hashing reveal once yields the
// proposer's current commitment: H^1(reveal) == commitment, the
// single-layer-peel check, built on shared/hashutil/hash.go's RepeatHash.
// Each accepted reveal becomes the new commitment (see PeelRandaoLayer),
// so layer N of a preimage chain is verified against layer N-1's
// commitment one slot at a time, rather than re-hashing the original
// reveal RandaoLayers times against a commitment fixed at registration;
// RandaoLayers is carried as the remaining-layers counter that bookkeeping
// decrements but this check does not otherwise consult.
func VerifyRandaoReveal(v *types.Validator, reveal [32]byte) error {
	if hashutil.RepeatHash(reveal, 1) != v.RandaoCommitment {
		return errors.New("randao reveal does not hash to the proposer's commitment")
	}
	return nil
}

// PeelRandaoLayer replaces the proposer's stored commitment with the
// just-verified reveal and decrements its layer counter, so the next
// proposal must reveal one layer deeper.
func PeelRandaoLayer(v *types.Validator, reveal [32]byte) *types.Validator {
	cp := v.Copy()
	cp.RandaoCommitment = reveal
	if cp.RandaoLayers > 0 {
		cp.RandaoLayers--
	}
	return cp
}

// MixInRandao folds reveal into the randao-mixes ring buffer at slot's
// bucket, XORing it with the mix currently recorded there.
func MixInRandao(state *types.BeaconState, slot uint64, reveal [32]byte, cfg *params.BeaconConfig) {
	bucket := slot % cfg.LatestRandaoMixesLength
	prev := state.LatestRandaoMixes[bucket]
	var mixed [32]byte
	for i := range mixed {
		mixed[i] = prev[i] ^ reveal[i]
	}
	state.LatestRandaoMixes[bucket] = mixed
}

// RandaoMixAt returns the randao mix recorded for slot's ring-buffer
// bucket, used to derive dynasty-transition seeds.
func RandaoMixAt(state *types.BeaconState, slot uint64, cfg *params.BeaconConfig) [32]byte {
	return state.LatestRandaoMixes[slot%cfg.LatestRandaoMixesLength]
}
