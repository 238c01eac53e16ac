package testutil

import (
	"context"
	"errors"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
)

// ErrRepositoryUnavailable is returned by FailingStateRepository
var ErrRepositoryUnavailable = errors.New("repository unavailable")

// FailingStateRepository fails every call
type FailingStateRepository struct {
	SaveCalls int
}

// Load implements domain.StateRepository
func (r *FailingStateRepository) Load(ctx context.Context) (*domain.State, error) {
	return nil, ErrRepositoryUnavailable
}

// Save implements domain.StateRepository
func (r *FailingStateRepository) Save(ctx context.Context, state *domain.State) error {
	r.SaveCalls++
	return ErrRepositoryUnavailable
}

// FailingArchive fails every upload
type FailingArchive struct{}

// Archive implements domain.SnapshotArchive
func (FailingArchive) Archive(ctx context.Context, key string, data []byte) (string, error) {
	return "", ErrRepositoryUnavailable
}

// RecordingArchive keeps uploaded snapshots in memory
type RecordingArchive struct {
	Objects map[string][]byte
}

// NewRecordingArchive creates an empty RecordingArchive
func NewRecordingArchive() *RecordingArchive {
	return &RecordingArchive{Objects: make(map[string][]byte)}
}

// Archive implements domain.SnapshotArchive
func (a *RecordingArchive) Archive(ctx context.Context, key string, data []byte) (string, error) {
	a.Objects[key] = data
	return key, nil
}

var (
	_ domain.StateRepository = (*FailingStateRepository)(nil)
	_ domain.SnapshotArchive = FailingArchive{}
	_ domain.SnapshotArchive = (*RecordingArchive)(nil)
)
