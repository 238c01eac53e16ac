package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/dafibh/fortuna/vault-backend/internal/migration"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MigrationService moves persisted state across an upgrade boundary
type MigrationService struct {
	stateRepo    domain.StateRepository
	snapshotRepo domain.SnapshotRepository
	archive      domain.SnapshotArchive
	clock        Clock
	logger       zerolog.Logger
}

// NewMigrationService creates a new MigrationService. archive may be nil.
func NewMigrationService(
	stateRepo domain.StateRepository,
	snapshotRepo domain.SnapshotRepository,
	archive domain.SnapshotArchive,
	clock Clock,
	logger zerolog.Logger,
) *MigrationService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &MigrationService{
		stateRepo:    stateRepo,
		snapshotRepo: snapshotRepo,
		archive:      archive,
		clock:        clock,
		logger:       logger.With().Str("component", "migration").Logger(),
	}
}

// UpgradeReceipt describes a captured snapshot
type UpgradeReceipt struct {
	Generation domain.Generation    `json:"generation"`
	ArchiveKey string               `json:"archiveKey,omitempty"`
	Slots      *domain.UpgradeSlots `json:"-"`
}

// BeginUpgrade captures the persisted state into the current-generation slot
// and, when an archive is configured, uploads a copy
func (s *MigrationService) BeginUpgrade(ctx context.Context) (*UpgradeReceipt, error) {
	state, err := s.stateRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state for upgrade: %w", err)
	}
	return s.CaptureState(ctx, state)
}

// CaptureState snapshots the given state, e.g. the running ledger's
func (s *MigrationService) CaptureState(ctx context.Context, state *domain.State) (*UpgradeReceipt, error) {
	now := s.clock.Now()
	slots := migration.Capture(state, now)
	if err := s.snapshotRepo.SaveSlots(ctx, slots); err != nil {
		return nil, fmt.Errorf("save upgrade snapshot: %w", err)
	}

	receipt := &UpgradeReceipt{Generation: domain.CurrentGeneration, Slots: slots}
	if s.archive != nil {
		data, err := json.Marshal(slots)
		if err != nil {
			return nil, fmt.Errorf("encode upgrade snapshot: %w", err)
		}
		key := fmt.Sprintf("snapshots/v%d/%s-%s.json", domain.CurrentGeneration, now.Format("20060102T150405Z"), uuid.New().String())
		archived, err := s.archive.Archive(ctx, key, data)
		if err != nil {
			// The local slot is authoritative; the archive is a copy
			s.logger.Warn().Err(err).Str("key", key).Msg("Failed to archive upgrade snapshot")
		} else {
			receipt.ArchiveKey = archived
		}
	}

	s.logger.Info().
		Int("generation", int(domain.CurrentGeneration)).
		Str("archive_key", receipt.ArchiveKey).
		Msg("Captured upgrade snapshot")
	return receipt, nil
}

// StageLegacy places a document of an older generation into its slot
func (s *MigrationService) StageLegacy(ctx context.Context, gen domain.Generation, data []byte) error {
	slots := &domain.UpgradeSlots{CapturedAt: s.clock.Now()}
	var err error
	switch gen {
	case domain.GenerationV1:
		slots.V1 = &domain.StateV1{}
		err = json.Unmarshal(data, slots.V1)
	case domain.GenerationV2:
		slots.V2 = &domain.StateV2{}
		err = json.Unmarshal(data, slots.V2)
	case domain.GenerationV3:
		slots.V3 = &domain.State{}
		err = json.Unmarshal(data, slots.V3)
	default:
		return fmt.Errorf("%w: unknown generation %d", domain.ErrInvalidInput, gen)
	}
	if err != nil {
		return fmt.Errorf("%w: decode generation %d document: %v", domain.ErrInvalidInput, gen, err)
	}
	return s.snapshotRepo.SaveSlots(ctx, slots)
}

// CompleteUpgrade restores the pending snapshot into the live shape, persists
// it and clears the slots. The slots are kept if the restore fails.
func (s *MigrationService) CompleteUpgrade(ctx context.Context) (*domain.State, error) {
	slots, err := s.snapshotRepo.LoadSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("load upgrade snapshot: %w", err)
	}
	gen, ok := slots.Oldest()
	if !ok {
		return nil, migration.ErrNoSnapshot
	}

	state, err := migration.Restore(slots)
	if err != nil {
		return nil, err
	}
	if err := s.stateRepo.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("save restored state: %w", err)
	}
	if err := s.snapshotRepo.ClearSlots(ctx); err != nil {
		return nil, fmt.Errorf("clear upgrade snapshot: %w", err)
	}

	s.logger.Info().
		Int("from_generation", int(gen)).
		Int("to_generation", int(domain.CurrentGeneration)).
		Str("monetary_total", state.MonetaryTotal().String()).
		Msg("Completed upgrade")
	return state, nil
}

// LoadOrInit returns the state to run with: a pending upgrade is completed
// first, an empty store yields a fresh ledger
func (s *MigrationService) LoadOrInit(ctx context.Context) (*domain.State, error) {
	slots, err := s.snapshotRepo.LoadSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("load upgrade snapshot: %w", err)
	}
	if !slots.Empty() {
		return s.CompleteUpgrade(ctx)
	}

	state, err := s.stateRepo.Load(ctx)
	if errors.Is(err, domain.ErrStateNotFound) {
		s.logger.Info().Msg("No ledger state found, starting fresh")
		state = domain.NewState(s.clock.Now())
		if err := s.stateRepo.Save(ctx, state); err != nil {
			return nil, fmt.Errorf("save initial state: %w", err)
		}
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger state: %w", err)
	}
	state.EnsureInitialized()
	return state, nil
}
