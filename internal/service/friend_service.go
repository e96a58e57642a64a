package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avolkov/sonet/internal/cache"
	appLogger "github.com/avolkov/sonet/internal/logger"
	"github.com/avolkov/sonet/internal/models"
	"github.com/avolkov/sonet/internal/repository"
)

// FriendService mutates the friendship graph and synchronously invalidates
// the affected feed keys. The invalidation is coarse: both parties' keys are
// dropped and the next reader rebuilds.
type FriendService interface {
	SetFriend(ctx context.Context, userID, friendID uuid.UUID) error
	DeleteFriend(ctx context.Context, userID, friendID uuid.UUID) error
}

// friendService implements FriendService
type friendService struct {
	friends repository.FriendStorage
	users   repository.UserRepository
	cache   cache.Service
}

// NewFriendService creates a new friend service
func NewFriendService(
	friendStorage repository.FriendStorage,
	userRepo repository.UserRepository,
	cacheService cache.Service,
) FriendService {
	return &friendService{
		friends: friendStorage,
		users:   userRepo,
		cache:   cacheService,
	}
}

// SetFriend creates the follow edge (userID, friendID)
func (s *friendService) SetFriend(ctx context.Context, userID, friendID uuid.UUID) error {
	target, err := s.users.FindByID(ctx, friendID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if target == nil {
		return ErrNotFound
	}

	friend := &models.Friend{
		ID:       uuid.New(),
		UserID:   userID,
		FriendID: friendID,
	}
	if err := s.friends.Create(ctx, friend); err != nil {
		return fmt.Errorf("failed to create friend edge: %w", err)
	}

	s.invalidate(ctx, userID, friendID)
	return nil
}

// DeleteFriend destroys the follow edge (userID, friendID)
func (s *friendService) DeleteFriend(ctx context.Context, userID, friendID uuid.UUID) error {
	if err := s.friends.Delete(ctx, userID, friendID); err != nil {
		return fmt.Errorf("failed to delete friend edge: %w", err)
	}

	s.invalidate(ctx, userID, friendID)
	return nil
}

// invalidate drops both parties' feed keys. A cache failure is logged, not
// surfaced. Feed keys carry no expiry, so a key that failed to drop keeps
// serving its old entries until a later drop of that key.
func (s *friendService) invalidate(ctx context.Context, userID, friendID uuid.UUID) {
	if err := s.cache.Delete(ctx, cache.FeedKey(userID), cache.FeedKey(friendID)); err != nil {
		appLogger.Warn("Failed to invalidate feed keys after friend mutation",
			zap.String("user_id", userID.String()),
			zap.String("friend_id", friendID.String()),
			zap.Error(err))
	}
}
