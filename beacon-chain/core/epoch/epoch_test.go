package epoch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coldstake/beacon-core/beacon-chain/core/cache"
	"github.com/coldstake/beacon-core/beacon-chain/core/committee"
	"github.com/coldstake/beacon-core/beacon-chain/core/types"
	"github.com/coldstake/beacon-core/shared/params"
)

func testConfig() *params.BeaconConfig {
	cfg := params.MainnetConfig()
	cfg.ShardCount = 8
	cfg.TargetCommitteeSize = 2
	cfg.EpochLength = 4
	cfg.LatestBlockRootsLength = 16
	cfg.LatestRandaoMixesLength = 16
	cfg.MinDynastyLength = 4
	return cfg
}

func buildState(cfg *params.BeaconConfig) (*types.BeaconState, *committee.Engine) {
	n := 8
	registry := make([]*types.Validator, n)
	validatorBalances := make([]uint64, n)
	for i := 0; i < n; i++ {
		v := types.NewPendingValidator([48]byte{byte(i)}, [32]byte{}, [32]byte{})
		v.ActivationSlot = 0
		v.ExitSlot = params.FarFutureSlot
		registry[i] = v
		validatorBalances[i] = cfg.MaxDeposit
	}

	engine := committee.NewEngine()
	var seed [32]byte
	shuffling, err := engine.GetShuffling(seed, registry, 0, 0, cfg)
	if err != nil {
		panic(err)
	}

	state := &types.BeaconState{
		Slot:                   cfg.EpochLength,
		ValidatorRegistry:      registry,
		ValidatorBalances:      validatorBalances,
		ShardCommitteesAtSlots: append(append([][]types.ShardCommittee{}, shuffling...), shuffling...),
		LastStateRecalc:        0,
		DynastyStart:           0,
		FinalizedSlot:          0,
	}
	state.LatestRandaoMixes = make([][32]byte, cfg.LatestRandaoMixesLength)
	state.LatestBlockRoots = make([][32]byte, cfg.LatestBlockRootsLength)
	state.LatestPenalizedExitBalances = make([]uint64, cfg.LatestPenalizedExitLength)
	state.LatestCrosslinks = make([]types.Crosslink, cfg.ShardCount)

	return state, engine
}

func TestProcessCycleTransitions_AdvancesLastStateRecalc(t *testing.T) {
	cfg := testConfig()

	state, engine := buildState(cfg)
	votes, err := cache.NewVoteCache(cache.DefaultVoteCacheSize)
	require.NoError(t, err)

	next, err := ProcessCycleTransitions(context.Background(), engine, votes, state, [32]byte{0xaa}, cfg.EpochLength, cfg)
	require.NoError(t, err)
	if next.LastStateRecalc != cfg.EpochLength {
		t.Fatalf("expected last_state_recalc to advance to %d, got %d", cfg.EpochLength, next.LastStateRecalc)
	}
	if len(next.ShardCommitteesAtSlots) != int(2*cfg.EpochLength) {
		t.Fatalf("expected schedule to remain 2*EpochLength rows, got %d", len(next.ShardCommitteesAtSlots))
	}
}

func TestProcessCycleTransitions_SuperMajorityJustifies(t *testing.T) {
	cfg := testConfig()

	state, engine := buildState(cfg)
	votes, err := cache.NewVoteCache(cache.DefaultVoteCacheSize)
	require.NoError(t, err)

	blockHash := [32]byte{0xbb}
	for i := uint64(0); i < cfg.EpochLength; i++ {
		recentHash := state.LatestBlockRoots[i%cfg.LatestBlockRootsLength]
		for idx := range state.ValidatorRegistry {
			votes.RecordVote(blockHash, recentHash, uint64(idx), cfg.MaxDeposit)
		}
	}

	next, err := ProcessCycleTransitions(context.Background(), engine, votes, state, blockHash, cfg.EpochLength, cfg)
	require.NoError(t, err)
	if next.JustifiedSlot != cfg.EpochLength-1 {
		t.Fatalf("expected justified slot %d, got %d", cfg.EpochLength-1, next.JustifiedSlot)
	}
}

func TestProcessCycleTransitions_SetsJustificationBitfield(t *testing.T) {
	cfg := testConfig()

	state, engine := buildState(cfg)
	votes, err := cache.NewVoteCache(cache.DefaultVoteCacheSize)
	require.NoError(t, err)

	blockHash := [32]byte{0xdd}
	for i := uint64(0); i < cfg.EpochLength; i++ {
		recentHash := state.LatestBlockRoots[i%cfg.LatestBlockRootsLength]
		for idx := range state.ValidatorRegistry {
			votes.RecordVote(blockHash, recentHash, uint64(idx), cfg.MaxDeposit)
		}
	}

	next, err := ProcessCycleTransitions(context.Background(), engine, votes, state, blockHash, cfg.EpochLength, cfg)
	require.NoError(t, err)

	wantBits := uint64(1)<<cfg.EpochLength - 1
	if next.JustificationBitfield != wantBits {
		t.Fatalf("expected every slot of the cycle justified in the bitfield, got %b", next.JustificationBitfield)
	}
}

func TestProcessCycleTransitions_RunsDueRegistryUpdate(t *testing.T) {
	cfg := testConfig()
	cfg.MinValidatorRegistryChangeInterval = 4
	cfg.EntryExitDelay = 8

	state, engine := buildState(cfg)
	state.FinalizedSlot = 1
	state.PreviousJustifiedSlot = 1
	state.JustifiedSlot = 1

	// A fully funded validator still awaiting activation.
	pending := types.NewPendingValidator([48]byte{0xff}, [32]byte{}, [32]byte{})
	state.ValidatorRegistry = append(state.ValidatorRegistry, pending)
	state.ValidatorBalances = append(state.ValidatorBalances, cfg.MaxDeposit)

	votes, err := cache.NewVoteCache(cache.DefaultVoteCacheSize)
	require.NoError(t, err)

	next, err := ProcessCycleTransitions(context.Background(), engine, votes, state, [32]byte{0xee}, cfg.EpochLength, cfg)
	require.NoError(t, err)

	pendingIdx := len(next.ValidatorRegistry) - 1
	if next.ValidatorRegistry[pendingIdx].ActivationSlot == cfg.FarFutureSlot {
		t.Fatal("expected the due registry update to schedule the pending validator's activation")
	}
	require.Equal(t, next.Slot, next.ValidatorRegistryLatestChangeSlot)
}

func TestProcessPowReceiptRoots_ResolvesMajorityCandidate(t *testing.T) {
	cfg := testConfig()
	cfg.PowReceiptRootVotingPeriod = 8

	state, _ := buildState(cfg)
	state.LastStateRecalc = cfg.PowReceiptRootVotingPeriod
	winner := [32]byte{0x11}
	state.CandidatePowReceiptRoots = []types.CandidateReceiptRoot{
		{ReceiptRoot: [32]byte{0x22}, Votes: 1},
		{ReceiptRoot: winner, Votes: cfg.PowReceiptRootVotingPeriod/2 + 1},
	}

	processPowReceiptRoots(state, cfg)

	require.Equal(t, winner, state.ProcessedPowReceiptRoot)
	require.Empty(t, state.CandidatePowReceiptRoots)
}

func TestProcessCycleTransitions_PrunesOldPendingAttestations(t *testing.T) {
	cfg := testConfig()

	state, engine := buildState(cfg)
	state.PendingAttestations = []*types.PendingAttestation{
		{Data: types.AttestationData{Slot: 0, Shard: 0}, SlotIncluded: 1},
		{Data: types.AttestationData{Slot: cfg.EpochLength, Shard: 0}, SlotIncluded: cfg.EpochLength + 1},
	}
	votes, err := cache.NewVoteCache(cache.DefaultVoteCacheSize)
	require.NoError(t, err)

	// Run a second cycle so last_state_recalc advances past EpochLength,
	// at which point the slot-0 attestation falls behind the cutoff.
	next, err := ProcessCycleTransitions(context.Background(), engine, votes, state, [32]byte{0xcc}, 2*cfg.EpochLength, cfg)
	require.NoError(t, err)
	for _, pa := range next.PendingAttestations {
		if pa.Data.Slot == 0 {
			t.Fatal("expected the slot-0 attestation to be pruned after two cycle transitions")
		}
	}
}
