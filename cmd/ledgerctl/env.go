package main

import (
	"context"

	"github.com/dafibh/fortuna/vault-backend/internal/config"
	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/dafibh/fortuna/vault-backend/internal/repository"
	"github.com/dafibh/fortuna/vault-backend/internal/repository/storage"
	"github.com/dafibh/fortuna/vault-backend/internal/service"
	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
)

var commands = []subcommands.Command{
	&upgradeStartCmd{},
	&upgradeCompleteCmd{},
	&importCmd{},
	&exportCmd{},
	&statusCmd{},
}

// env is the wiring shared by every command
type env struct {
	cfg       *config.Config
	store     *repository.Store
	archive   *storage.S3SnapshotArchive
	migration *service.MigrationService
}

func openEnv(ctx context.Context, withArchive bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	store, err := repository.Open(ctx, cfg.DatabaseURL, log.Logger)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, store: store}
	var archive domain.SnapshotArchive
	if withArchive && cfg.S3.Enabled() {
		e.archive, err = storage.NewS3SnapshotArchive(ctx, cfg.S3)
		if err != nil {
			store.Close()
			return nil, err
		}
		archive = e.archive
	}
	e.migration = service.NewMigrationService(store.State, store.Snapshots, archive, service.SystemClock{}, log.Logger)
	return e, nil
}

func (e *env) Close() {
	e.store.Close()
}

// readOnlyLedger wraps the stored state in a ledger that never writes back
func (e *env) readOnlyLedger(ctx context.Context) (*service.LedgerService, error) {
	state, err := e.store.State.Load(ctx)
	if err != nil {
		return nil, err
	}
	return service.NewLedgerService(state, nil, service.SystemClock{}, log.Logger, service.LedgerConfig{
		CompoundInterval:          e.cfg.CompoundInterval,
		HeartbeatCompoundInterval: e.cfg.HeartbeatCompoundInterval,
	}), nil
}
