package repository

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofrs/uuid/v5"

	"github.com/evep-health/evep/internal/entity"
)

// SessionHashRepository keeps the auxiliary per-user session hash in Redis,
// expiring alongside the refresh token.
type SessionHashRepository struct {
	rdb *redis.Client
}

func NewSessionHashRepository(rdb *redis.Client) *SessionHashRepository {
	return &SessionHashRepository{rdb: rdb}
}

func sessionHashKey(userID uuid.UUID) string {
	return "session_hash:" + userID.String()
}

func (r *SessionHashRepository) Save(ctx context.Context, userID uuid.UUID, hash string, ttl time.Duration) error {
	return r.rdb.Set(ctx, sessionHashKey(userID), hash, ttl).Err()
}

func (r *SessionHashRepository) Verify(ctx context.Context, userID uuid.UUID, hash string) error {
	stored, err := r.rdb.Get(ctx, sessionHashKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entity.ErrNotFound
		}

		return err
	}

	if stored != hash {
		return entity.ErrInvalidSessionHash
	}

	return nil
}

func (r *SessionHashRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	return r.rdb.Del(ctx, sessionHashKey(userID)).Err()
}
