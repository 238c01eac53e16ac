// Package migration carries ledger state across breaking schema changes.
//
// An upgrade captures the live state into a generation-tagged slot. On
// completion the oldest populated slot is replayed through a linear chain of
// pure steps until it reaches the live shape. Steps only add or rename fields
// with fixed defaults; they never change monetary values.
package migration

import (
	"errors"
	"fmt"
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrNoSnapshot        = errors.New("no upgrade snapshot present")
	ErrValueNotConserved = fmt.Errorf("%w: monetary total changed during upgrade", domain.ErrInternalError)
)

// step upgrades the slot for generation from into generation from+1
type step struct {
	from domain.Generation
	run  func(slots *domain.UpgradeSlots)
}

// chain is ordered oldest first
var chain = []step{
	{from: domain.GenerationV1, run: upgradeV1},
	{from: domain.GenerationV2, run: upgradeV2},
}

// Capture tags a copy of the live state with the current generation
func Capture(state *domain.State, now time.Time) *domain.UpgradeSlots {
	return &domain.UpgradeSlots{
		CapturedAt: now.UTC(),
		V3:         state.Clone(),
	}
}

// Restore replays the chain from the oldest populated slot and returns the
// live-shaped state. The input slots are not modified.
func Restore(slots *domain.UpgradeSlots) (*domain.State, error) {
	gen, ok := slots.Oldest()
	if !ok {
		return nil, ErrNoSnapshot
	}

	before := MonetaryTotal(slots, gen)

	work := *slots
	for _, st := range chain {
		if st.from < gen {
			continue
		}
		st.run(&work)
	}
	if work.V3 == nil {
		return nil, fmt.Errorf("%w: upgrade chain did not reach generation %d", domain.ErrInternalError, domain.CurrentGeneration)
	}

	state := work.V3.Clone()
	state.EnsureInitialized()

	after := state.MonetaryTotal()
	if !before.Equal(after) {
		return nil, fmt.Errorf("%w: before %s, after %s", ErrValueNotConserved, before, after)
	}
	return state, nil
}

// MonetaryTotal sums the value held by the slot for gen: balances, pending
// interest, goal buckets, archived amounts and the Delta balance in main
// currency
func MonetaryTotal(slots *domain.UpgradeSlots, gen domain.Generation) decimal.Decimal {
	switch gen {
	case domain.GenerationV1:
		if slots.V1 == nil {
			return decimal.Zero
		}
		return totalV1(slots.V1)
	case domain.GenerationV2:
		if slots.V2 == nil {
			return decimal.Zero
		}
		return totalV2(slots.V2)
	case domain.GenerationV3:
		if slots.V3 == nil {
			return decimal.Zero
		}
		return slots.V3.MonetaryTotal()
	default:
		return decimal.Zero
	}
}

func totalV1(s *domain.StateV1) decimal.Decimal {
	total := s.Ledger.Balance.Add(s.Ledger.PendingInterest)
	for _, g := range s.Goals {
		total = total.Add(g.CurrentAmount).Add(g.PendingInterest)
	}
	for _, c := range s.CompletedGoals {
		total = total.Add(c.Amount)
	}
	return total
}

func totalV2(s *domain.StateV2) decimal.Decimal {
	total := s.Ledger.Balance.Add(s.Ledger.PendingInterest)
	for _, g := range s.Goals {
		total = total.Add(g.CurrentAmount).Add(g.PendingInterest)
	}
	for _, c := range s.CompletedGoals {
		total = total.Add(c.Amount)
	}
	return total.Add(domain.DeltaToMain(s.Wallet.DeltaBalance))
}
