package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/avolkov/sonet/internal/models"
)

// gormFriendStorage backs the friendship graph with the authoritative store
type gormFriendStorage struct {
	db *gorm.DB
}

// NewGormFriendStorage creates a relational friend storage
func NewGormFriendStorage(db *gorm.DB) FriendStorage {
	return &gormFriendStorage{db: db}
}

func (s *gormFriendStorage) FriendsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var friendIDs []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&models.Friend{}).
		Where("user_id = ?", userID).
		Pluck("friend_id", &friendIDs).Error
	return friendIDs, err
}

func (s *gormFriendStorage) FollowersOf(ctx context.Context, friendID uuid.UUID) ([]uuid.UUID, error) {
	var userIDs []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&models.Friend{}).
		Where("friend_id = ?", friendID).
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}

func (s *gormFriendStorage) EdgeExists(ctx context.Context, userID, friendID uuid.UUID) (bool, error) {
	var friend models.Friend
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND friend_id = ?", userID, friendID).
		First(&friend).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *gormFriendStorage) Create(ctx context.Context, friend *models.Friend) error {
	// At most one edge per ordered pair; re-setting an existing friendship is
	// a no-op rather than an error.
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "friend_id"}},
			DoNothing: true,
		}).
		Create(friend).Error
}

func (s *gormFriendStorage) Delete(ctx context.Context, userID, friendID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND friend_id = ?", userID, friendID).
		Delete(&models.Friend{}).Error
}
