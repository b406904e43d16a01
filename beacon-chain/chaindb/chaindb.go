// Package chaindb narrows a bolt-backed key/value store's surface down
// to the handful of methods the state-transition core actually
// consumes. The bolt-backed persistence engine itself is out of scope:
// this package defines the interface plus a deterministic in-memory
// reference implementation for tests, with a bucket-keyed shape (blocks
// by root, states by root, a canonical-head pointer) and no storage
// engine underneath.
package chaindb

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/coldstake/beacon-core/beacon-chain/core/types"
)

// ErrNotFound is returned by lookups that find nothing under the given
// key.
var ErrNotFound = errors.New("chaindb: not found")

// Database is the narrow contract the core transition logic consumes.
// All reads must be repeatable: a successful read of a key previously
// persisted must always return the same value.
type Database interface {
	BlockByHash(ctx context.Context, hash [32]byte) (*types.Block, error)
	CanonicalHead(ctx context.Context) (*types.Block, error)
	CanonicalBlockHashBySlot(ctx context.Context, slot uint64) ([32]byte, error)
	StateByRoot(ctx context.Context, root [32]byte) (*types.BeaconState, error)
	PersistBlock(ctx context.Context, block *types.Block) error
	PersistState(ctx context.Context, state *types.BeaconState) error
	SetCanonicalHead(ctx context.Context, hash [32]byte, slot uint64) error
}

// MemStore is a mutex-guarded in-memory Database, deterministic and
// dependency-free, suitable for tests and for driving the transition
// functions without a real storage engine.
type MemStore struct {
	mu               sync.RWMutex
	blocksByHash     map[[32]byte]*types.Block
	statesByRoot     map[[32]byte]*types.BeaconState
	hashBySlot       map[uint64][32]byte
	canonicalHead    [32]byte
	canonicalIsSet   bool
}

// NewMemStore constructs an empty in-memory database.
func NewMemStore() *MemStore {
	return &MemStore{
		blocksByHash: make(map[[32]byte]*types.Block),
		statesByRoot: make(map[[32]byte]*types.BeaconState),
		hashBySlot:   make(map[uint64][32]byte),
	}
}

func (m *MemStore) BlockByHash(_ context.Context, hash [32]byte) (*types.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blocksByHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (m *MemStore) CanonicalHead(ctx context.Context) (*types.Block, error) {
	m.mu.RLock()
	if !m.canonicalIsSet {
		m.mu.RUnlock()
		return nil, ErrNotFound
	}
	head := m.canonicalHead
	m.mu.RUnlock()
	return m.BlockByHash(ctx, head)
}

func (m *MemStore) CanonicalBlockHashBySlot(_ context.Context, slot uint64) ([32]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.hashBySlot[slot]
	if !ok {
		return [32]byte{}, ErrNotFound
	}
	return h, nil
}

func (m *MemStore) StateByRoot(_ context.Context, root [32]byte) (*types.BeaconState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.statesByRoot[root]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *MemStore) PersistBlock(_ context.Context, block *types.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	root := block.Root()
	m.blocksByHash[root] = block
	m.hashBySlot[block.Slot] = root
	return nil
}

func (m *MemStore) PersistState(_ context.Context, state *types.BeaconState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statesByRoot[state.Root()] = state
	return nil
}

func (m *MemStore) SetCanonicalHead(_ context.Context, hash [32]byte, slot uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.canonicalHead = hash
	m.canonicalIsSet = true
	m.hashBySlot[slot] = hash
	return nil
}
