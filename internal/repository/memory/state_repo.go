// Package memory keeps ledger documents in process memory. It backs tests and
// deployments started without a database.
package memory

import (
	"context"
	"sync"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
)

// StateRepository implements domain.StateRepository and
// domain.SnapshotRepository with deep copies
type StateRepository struct {
	mu    sync.RWMutex
	state *domain.State
	slots *domain.UpgradeSlots
	saves int
}

// NewStateRepository creates an empty in-memory store
func NewStateRepository() *StateRepository {
	return &StateRepository{}
}

// Load returns a copy of the stored state
func (r *StateRepository) Load(ctx context.Context) (*domain.State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state == nil {
		return nil, domain.ErrStateNotFound
	}
	return r.state.Clone(), nil
}

// Save stores a copy of state
func (r *StateRepository) Save(ctx context.Context, state *domain.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state.Clone()
	r.saves++
	return nil
}

// SaveCount returns how many times Save has been called
func (r *StateRepository) SaveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}

// SaveSlots replaces the upgrade slots
func (r *StateRepository) SaveSlots(ctx context.Context, slots *domain.UpgradeSlots) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots = cloneSlots(slots)
	return nil
}

// LoadSlots returns the upgrade slots, empty when none were saved
func (r *StateRepository) LoadSlots(ctx context.Context) (*domain.UpgradeSlots, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.slots == nil {
		return &domain.UpgradeSlots{}, nil
	}
	return cloneSlots(r.slots), nil
}

// ClearSlots discards the upgrade slots
func (r *StateRepository) ClearSlots(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots = nil
	return nil
}

// cloneSlots copies the live-shaped slot deeply; older shapes are never
// mutated after staging so they are shared
func cloneSlots(slots *domain.UpgradeSlots) *domain.UpgradeSlots {
	if slots == nil {
		return nil
	}
	c := *slots
	if slots.V3 != nil {
		c.V3 = slots.V3.Clone()
	}
	return &c
}

var (
	_ domain.StateRepository    = (*StateRepository)(nil)
	_ domain.SnapshotRepository = (*StateRepository)(nil)
)
