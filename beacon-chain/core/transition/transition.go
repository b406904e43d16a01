// Package transition wires the per-block and per-cycle transitions
// together into the two public entry points an external driver (a
// future networking/sync layer, or a test harness) calls, sequencing
// block processing followed by epoch-boundary processing behind a
// single traced entry point.
package transition

import (
	"context"

	"go.opencensus.io/trace"

	"github.com/coldstake/beacon-core/beacon-chain/chaindb"
	"github.com/coldstake/beacon-core/beacon-chain/core/block"
	"github.com/coldstake/beacon-core/beacon-chain/core/cache"
	"github.com/coldstake/beacon-core/beacon-chain/core/committee"
	"github.com/coldstake/beacon-core/beacon-chain/core/coreerr"
	"github.com/coldstake/beacon-core/beacon-chain/core/epoch"
	"github.com/coldstake/beacon-core/beacon-chain/core/invariant"
	"github.com/coldstake/beacon-core/beacon-chain/core/types"
	"github.com/coldstake/beacon-core/shared/params"
)

// Machine bundles the collaborators every transition needs: the chain
// database, the committee engine, and the process-wide vote cache.
// Constructing one per beacon-chain instance (not per call) lets the
// committee memo and vote cache actually pay for themselves across many
// transitions.
type Machine struct {
	DB     chaindb.Database
	Engine *committee.Engine
	Votes  *cache.VoteCache
	Config *params.BeaconConfig
}

// NewMachine constructs a transition machine with a fresh committee
// engine and a default-sized vote cache.
func NewMachine(db chaindb.Database, cfg *params.BeaconConfig) (*Machine, error) {
	votes, err := cache.NewVoteCache(cache.DefaultVoteCacheSize)
	if err != nil {
		return nil, err
	}
	return &Machine{
		DB:     db,
		Engine: committee.NewEngine(),
		Votes:  votes,
		Config: cfg,
	}, nil
}

// ProcessBlock runs the per-block transition followed by zero or more
// per-cycle transitions triggered by the candidate block's slot,
// returning the resulting state.
func (m *Machine) ProcessBlock(ctx context.Context, prior *types.BeaconState, candidate *types.Block) (*types.BeaconState, error) {
	ctx, span := trace.StartSpan(ctx, "core.transition.ProcessBlock")
	defer span.End()

	next, err := block.ProcessBlock(ctx, m.DB, m.Votes, m.Engine, prior, candidate, m.Config)
	if err != nil {
		return nil, err
	}

	blockHash := candidate.Root()
	next, err = epoch.ProcessCycleTransitions(ctx, m.Engine, m.Votes, next, blockHash, candidate.Slot, m.Config)
	if err != nil {
		return nil, err
	}

	// A zero claimed root means the block carries no state commitment
	// (genesis and test fixtures); anything else must match exactly.
	var zeroRoot [32]byte
	if candidate.StateRootHash != zeroRoot && next.Root() != candidate.StateRootHash {
		return nil, coreerr.ErrStateRootMismatch
	}

	invariant.CheckAll(next, m.Config.EpochLength)
	return next, nil
}
