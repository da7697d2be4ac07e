package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/evep-health/evep/internal/entity"
	"github.com/evep-health/evep/internal/repository"
)

func setupSessionHashRepo(t *testing.T) (*repository.SessionHashRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return repository.NewSessionHashRepository(rdb), mr
}

func TestSessionHashRepository_SaveAndVerify(t *testing.T) {
	t.Parallel()

	repo, _ := setupSessionHashRepo(t)

	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())

	require.NoError(t, repo.Save(ctx, userID, "hash-1", time.Hour))
	require.NoError(t, repo.Verify(ctx, userID, "hash-1"))
}

func TestSessionHashRepository_VerifyMismatch(t *testing.T) {
	t.Parallel()

	repo, _ := setupSessionHashRepo(t)

	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())

	require.NoError(t, repo.Save(ctx, userID, "hash-1", time.Hour))

	err := repo.Verify(ctx, userID, "hash-2")
	require.ErrorIs(t, err, entity.ErrInvalidSessionHash)
}

func TestSessionHashRepository_VerifyUnknownUser(t *testing.T) {
	t.Parallel()

	repo, _ := setupSessionHashRepo(t)

	err := repo.Verify(context.Background(), uuid.Must(uuid.NewV4()), "hash-1")
	require.ErrorIs(t, err, entity.ErrNotFound)
}

func TestSessionHashRepository_NewLoginReplacesHash(t *testing.T) {
	t.Parallel()

	repo, _ := setupSessionHashRepo(t)

	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())

	require.NoError(t, repo.Save(ctx, userID, "hash-1", time.Hour))
	require.NoError(t, repo.Save(ctx, userID, "hash-2", time.Hour))

	require.ErrorIs(t, repo.Verify(ctx, userID, "hash-1"), entity.ErrInvalidSessionHash)
	require.NoError(t, repo.Verify(ctx, userID, "hash-2"))
}

func TestSessionHashRepository_Delete(t *testing.T) {
	t.Parallel()

	repo, _ := setupSessionHashRepo(t)

	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())

	require.NoError(t, repo.Save(ctx, userID, "hash-1", time.Hour))
	require.NoError(t, repo.Delete(ctx, userID))

	require.ErrorIs(t, repo.Verify(ctx, userID, "hash-1"), entity.ErrNotFound)

	// Deleting an absent hash is not an error.
	require.NoError(t, repo.Delete(ctx, userID))
}

func TestSessionHashRepository_HashExpires(t *testing.T) {
	t.Parallel()

	repo, mr := setupSessionHashRepo(t)

	ctx := context.Background()
	userID := uuid.Must(uuid.NewV4())

	require.NoError(t, repo.Save(ctx, userID, "hash-1", time.Minute))

	mr.FastForward(2 * time.Minute)

	require.ErrorIs(t, repo.Verify(ctx, userID, "hash-1"), entity.ErrNotFound)
}
