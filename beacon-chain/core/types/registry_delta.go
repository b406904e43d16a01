package types

import "github.com/coldstake/beacon-core/shared/hashutil"

// RegistryDeltaFlag tags why a validator entered the registry-delta
// chain: activation or exit (invariant I6).
type RegistryDeltaFlag uint64

const (
	RegistryDeltaActivation RegistryDeltaFlag = iota
	RegistryDeltaExit
)

// AppendRegistryDelta extends the registry-delta chain tip with one more
// (prev_tip, index, pubkey, slot, flag) link. The tip is a function only
// of the ordered sequence of activation/exit events since genesis
// (invariant I6): it never depends on anything else in state.
func AppendRegistryDelta(prevTip [32]byte, index uint64, pubkey [48]byte, slot uint64, flag RegistryDeltaFlag) [32]byte {
	e := &encbuf{}
	e.fixed(prevTip[:])
	e.u64(index)
	e.fixed(pubkey[:])
	e.u64(slot)
	e.u64(uint64(flag))
	return hashutil.Hash(e.bytes())
}
