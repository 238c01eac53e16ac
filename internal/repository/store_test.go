package repository

import (
	"context"
	"testing"

	"github.com/dafibh/fortuna/vault-backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_InMemoryWithoutDatabaseURL(t *testing.T) {
	store, err := Open(context.Background(), "", zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, "memory", store.Backend)
	_, err = store.State.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrStateNotFound)

	slots, err := store.Snapshots.LoadSlots(context.Background())
	require.NoError(t, err)
	assert.True(t, slots.Empty())
}
