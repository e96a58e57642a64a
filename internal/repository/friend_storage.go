package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/avolkov/sonet/internal/models"
)

// FriendStorage abstracts the friendship graph so it can be backed by either
// the relational store or the replicated in-memory store. The edge (u, f)
// means u follows f; u's feed is built from posts authored by every f the
// forward lookup returns.
type FriendStorage interface {
	// FriendsOf returns the users that userID follows (forward edges).
	FriendsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	// FollowersOf returns the users following friendID (reverse edges). The
	// materializer and the push publisher fan out over this set.
	FollowersOf(ctx context.Context, friendID uuid.UUID) ([]uuid.UUID, error)
	EdgeExists(ctx context.Context, userID, friendID uuid.UUID) (bool, error)
	Create(ctx context.Context, friend *models.Friend) error
	Delete(ctx context.Context, userID, friendID uuid.UUID) error
}
