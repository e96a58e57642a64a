package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/avolkov/sonet/internal/cache"
	"github.com/avolkov/sonet/internal/models"
)

// redisSessionStorage keeps sessions in the in-memory store as JSON blobs
// under session:{id}.
type redisSessionStorage struct {
	cache cache.Service
}

// NewRedisSessionStorage creates an in-memory session storage
func NewRedisSessionStorage(cacheService cache.Service) SessionStorage {
	return &redisSessionStorage{cache: cacheService}
}

func (s *redisSessionStorage) Create(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, cache.SessionKey(session.ID), string(data))
}

func (s *redisSessionStorage) FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	raw, err := s.cache.Get(ctx, cache.SessionKey(id))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}

	var session models.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *redisSessionStorage) Delete(ctx context.Context, id uuid.UUID) error {
	return s.cache.Delete(ctx, cache.SessionKey(id))
}
