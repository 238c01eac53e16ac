package repository

import (
	"context"
	"fmt"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/dafibh/fortuna/vault-backend/internal/repository/memory"
	"github.com/dafibh/fortuna/vault-backend/internal/repository/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Store bundles the ledger and upgrade snapshot repositories
type Store struct {
	State     domain.StateRepository
	Snapshots domain.SnapshotRepository
	Backend   string
	pool      *pgxpool.Pool
}

// Open connects to PostgreSQL when databaseURL is set and falls back to an
// in-memory store otherwise
func Open(ctx context.Context, databaseURL string, logger zerolog.Logger) (*Store, error) {
	if databaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, ledger state will not survive a restart")
		repo := memory.NewStateRepository()
		return &Store{State: repo, Snapshots: repo, Backend: "memory"}, nil
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := postgres.NewStateRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info().Msg("Connected to database")
	return &Store{State: repo, Snapshots: repo, Backend: "postgres", pool: pool}, nil
}

// Close releases the database pool, if any
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
