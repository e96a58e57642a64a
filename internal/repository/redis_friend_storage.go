package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/avolkov/sonet/internal/cache"
	"github.com/avolkov/sonet/internal/models"
)

// redisFriendStorage keeps the friendship graph in the in-memory store as two
// sets per user: friends:{u} (forward edges) and followers:{f} (reverse
// edges). Both are written on every mutation so the reverse lookup stays as
// cheap as the forward one.
type redisFriendStorage struct {
	cache cache.Service
}

// NewRedisFriendStorage creates an in-memory friend storage
func NewRedisFriendStorage(cacheService cache.Service) FriendStorage {
	return &redisFriendStorage{cache: cacheService}
}

func (s *redisFriendStorage) FriendsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.members(ctx, cache.FriendsKey(userID))
}

func (s *redisFriendStorage) FollowersOf(ctx context.Context, friendID uuid.UUID) ([]uuid.UUID, error) {
	return s.members(ctx, cache.FollowersKey(friendID))
}

func (s *redisFriendStorage) members(ctx context.Context, key string) ([]uuid.UUID, error) {
	raw, err := s.cache.SMembers(ctx, key)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, member := range raw {
		id, err := uuid.Parse(member)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *redisFriendStorage) EdgeExists(ctx context.Context, userID, friendID uuid.UUID) (bool, error) {
	return s.cache.SIsMember(ctx, cache.FriendsKey(userID), friendID.String())
}

func (s *redisFriendStorage) Create(ctx context.Context, friend *models.Friend) error {
	if err := s.cache.SAdd(ctx, cache.FriendsKey(friend.UserID), friend.FriendID.String()); err != nil {
		return err
	}
	return s.cache.SAdd(ctx, cache.FollowersKey(friend.FriendID), friend.UserID.String())
}

func (s *redisFriendStorage) Delete(ctx context.Context, userID, friendID uuid.UUID) error {
	if err := s.cache.SRem(ctx, cache.FriendsKey(userID), friendID.String()); err != nil {
		return err
	}
	return s.cache.SRem(ctx, cache.FollowersKey(friendID), userID.String())
}
