package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/client/storage"
)

func TestStorage_Mappings(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx := context.Background()
	recordedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, store.SaveMapping(ctx, storage.Mapping{TempID: "a", ServerID: "42", RecordedAt: recordedAt}))
	require.NoError(t, store.SaveMapping(ctx, storage.Mapping{TempID: "b", ServerID: "43", RecordedAt: recordedAt}))

	m, err := store.GetMapping(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "42", m.ServerID)
	assert.True(t, recordedAt.Equal(m.RecordedAt))

	all, err := store.ListMappings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].TempID)
	assert.Equal(t, "b", all[1].TempID)

	require.NoError(t, store.DeleteMapping(ctx, "a"))
	_, err = store.GetMapping(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrMappingNotFound)

	// Удаление отсутствующего ключа не ошибка
	assert.NoError(t, store.DeleteMapping(ctx, "missing"))
}

func TestStorage_ListMappings_Empty(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	all, err := store.ListMappings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}
