package genesis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coldstake/beacon-core/beacon-chain/core/committee"
	"github.com/coldstake/beacon-core/beacon-chain/core/types"
	"github.com/coldstake/beacon-core/shared/bls"
	"github.com/coldstake/beacon-core/shared/params"
)

func testConfig() *params.BeaconConfig {
	cfg := params.MainnetConfig()
	cfg.ShardCount = 1024
	cfg.TargetCommitteeSize = 4
	cfg.EpochLength = 8
	return cfg
}

func maxDeposit(t *testing.T, cfg *params.BeaconConfig) *types.Deposit {
	t.Helper()
	sk, err := bls.RandKey()
	require.NoError(t, err)
	input := types.DepositInput{}
	copy(input.Pubkey[:], sk.PublicKey().Marshal())

	domain := bls.Domain(bls.Fork{}, cfg.GenesisSlot, bls.DomainDeposit)
	root := input.RootForSigning()
	sig := sk.Sign(bls.PrependDomain(domain, root[:]))
	copy(input.ProofOfPossession[:], sig.Marshal())

	return &types.Deposit{
		Data: types.DepositData{
			Input:  input,
			Amount: cfg.MaxDeposit,
		},
	}
}

func TestBuildGenesisState_ActivatesAllMaxDepositValidators(t *testing.T) {
	cfg := testConfig()

	deposits := make([]*types.Deposit, 10)
	for i := range deposits {
		deposits[i] = maxDeposit(t, cfg)
	}

	engine := committee.NewEngine()
	state, err := BuildGenesisState(deposits, 1600000000, [32]byte{}, cfg, engine)
	require.NoError(t, err)

	if len(state.ValidatorRegistry) != 10 {
		t.Fatalf("expected 10 validators, got %d", len(state.ValidatorRegistry))
	}
	for i, v := range state.ValidatorRegistry {
		if v.ActivationSlot != cfg.GenesisSlot {
			t.Fatalf("validator %d not activated at genesis: activation slot %d", i, v.ActivationSlot)
		}
	}

	if len(state.ShardCommitteesAtSlots) != int(2*cfg.EpochLength) {
		t.Fatalf("expected a 2-cycle-deep schedule of length %d, got %d",
			2*cfg.EpochLength, len(state.ShardCommitteesAtSlots))
	}
	for i := uint64(0); i < cfg.EpochLength; i++ {
		first := state.ShardCommitteesAtSlots[i]
		second := state.ShardCommitteesAtSlots[i+cfg.EpochLength]
		if len(first) != len(second) {
			t.Fatalf("expected both halves of the schedule to match at row %d", i)
		}
	}

	if len(state.LatestBlockRoots) != int(cfg.LatestBlockRootsLength) {
		t.Fatalf("expected LatestBlockRoots ring buffer of length %d, got %d",
			cfg.LatestBlockRootsLength, len(state.LatestBlockRoots))
	}
	if len(state.LatestCrosslinks) != int(cfg.ShardCount) {
		t.Fatalf("expected one crosslink slot per shard")
	}
}

func TestBuildGenesisState_RejectsBadProofOfPossession(t *testing.T) {
	cfg := testConfig()

	d := maxDeposit(t, cfg)
	d.Data.Input.ProofOfPossession[0] ^= 0xff

	engine := committee.NewEngine()
	if _, err := BuildGenesisState([]*types.Deposit{d}, 0, [32]byte{}, cfg, engine); err == nil {
		t.Fatal("expected an error for a tampered proof of possession")
	}
}
