package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaffar451/site-justice-mobile-sub001/internal/models"
	"github.com/Jaffar451/site-justice-mobile-sub001/internal/server/storage"
)

func setupTestStorage(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	// Используем in-memory database для тестов
	s, err := New(ctx, ":memory:")
	require.NoError(t, err)

	cleanup := func() {
		_ = s.Close()
	}

	return s, cleanup
}

func newComplaint(title string) storage.NewComplaint {
	return storage.NewComplaint{
		IdempotencyKey: uuid.NewString(),
		Title:          title,
		Description:    "details",
		Category:       "theft",
		Location:       "Dakar",
		CreatedAt:      time.Unix(1_700_000_000, 0),
	}
}

func strPtr(s string) *string { return &s }

func TestComplaintStorage_Create(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	input := newComplaint("Vol de moto")
	input.Attachments = []string{"file-1"}

	c, created, err := s.CreateComplaint(ctx, input)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "1", c.ID)
	assert.Equal(t, "Vol de moto", c.Title)
	assert.Equal(t, "theft", c.Category)
	assert.Equal(t, input.IdempotencyKey, c.ClientRef)
	assert.Equal(t, models.ComplaintStatusReceived, c.Status)
	assert.Equal(t, input.CreatedAt.Unix(), c.CreatedAt.Unix())

	second, created, err := s.CreateComplaint(ctx, newComplaint("Cambriolage"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "2", second.ID)
}

func TestComplaintStorage_CreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	input := newComplaint("Vol de moto")
	first, created, err := s.CreateComplaint(ctx, input)
	require.NoError(t, err)
	require.True(t, created)

	// Повтор с другим содержимым, но тем же ключом возвращает исходную запись
	input.Title = "changed"
	replay, created, err := s.CreateComplaint(ctx, input)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, replay.ID)
	assert.Equal(t, "Vol de moto", replay.Title)

	list, err := s.ListComplaints(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// Повторы не расходуют идентификаторы
	for range 3 {
		_, created, err = s.CreateComplaint(ctx, input)
		require.NoError(t, err)
		require.False(t, created)
	}
	next, created, err := s.CreateComplaint(ctx, newComplaint("Cambriolage"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "2", next.ID)
}

func TestComplaintStorage_Get(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	created, _, err := s.CreateComplaint(ctx, newComplaint("Vol de moto"))
	require.NoError(t, err)

	tests := []struct {
		wantErr error
		name    string
		id      string
	}{
		{name: "existing", id: created.ID},
		{name: "unknown", id: "999", wantErr: storage.ErrComplaintNotFound},
		{name: "not a number", id: "abc", wantErr: storage.ErrComplaintNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := s.GetComplaint(ctx, tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, created, c)
		})
	}
}

func TestComplaintStorage_Update(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	created, _, err := s.CreateComplaint(ctx, newComplaint("Vol de moto"))
	require.NoError(t, err)

	at := time.Unix(1_700_000_600, 0)
	updated, err := s.UpdateComplaint(ctx, created.ID, models.ComplaintUpdate{Location: strPtr("Thies")}, at)
	require.NoError(t, err)
	assert.Equal(t, "Thies", updated.Location)
	assert.Equal(t, "Vol de moto", updated.Title)
	assert.Equal(t, at.Unix(), updated.UpdatedAt.Unix())

	got, err := s.GetComplaint(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Thies", got.Location)
	assert.Equal(t, "details", got.Description)

	_, err = s.UpdateComplaint(ctx, "999", models.ComplaintUpdate{Title: strPtr("x")}, at)
	assert.ErrorIs(t, err, storage.ErrComplaintNotFound)
}

func TestComplaintStorage_Delete(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	keep, _, err := s.CreateComplaint(ctx, newComplaint("keep"))
	require.NoError(t, err)
	drop, _, err := s.CreateComplaint(ctx, newComplaint("drop"))
	require.NoError(t, err)

	at := time.Unix(1_700_000_900, 0)
	require.NoError(t, s.DeleteComplaint(ctx, drop.ID, "duplicate", at))
	// Повторный отзыв не ошибка
	require.NoError(t, s.DeleteComplaint(ctx, drop.ID, "duplicate", at))

	_, err = s.GetComplaint(ctx, drop.ID)
	assert.ErrorIs(t, err, storage.ErrComplaintDeleted)

	_, err = s.UpdateComplaint(ctx, drop.ID, models.ComplaintUpdate{Title: strPtr("x")}, at)
	assert.ErrorIs(t, err, storage.ErrComplaintDeleted)

	list, err := s.ListComplaints(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)

	assert.ErrorIs(t, s.DeleteComplaint(ctx, "999", "", at), storage.ErrComplaintNotFound)
}

func TestComplaintStorage_ListEmpty(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	list, err := s.ListComplaints(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestComplaintStorage_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "server.db")

	s, err := New(ctx, path)
	require.NoError(t, err)
	input := newComplaint("Vol de moto")
	created, _, err := s.CreateComplaint(ctx, input)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(ctx, path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	replay, isNew, err := s.CreateComplaint(ctx, input)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.ID, replay.ID)
}

func TestNew_AppliesMigrationsOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "server.db")

	for range 2 {
		s, err := New(ctx, path)
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}

	s, err := New(ctx, path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	var applied int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM goose_db_version WHERE version_id = 1 AND is_applied = 1`).Scan(&applied)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New(context.Background(), filepath.Join(t.TempDir(), "missing", "server.db"))
	require.Error(t, err)
}
