package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// Key prefixes for the entity families stored in the cache
const (
	PrefixFeed    = "feed"
	PrefixSession = "session"
	PrefixFriends = "friends"
	PrefixFollow  = "followers"
)

// FeedKey generates the cache key holding a user's materialized feed list.
// Format: feed:{user_id}
func FeedKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", PrefixFeed, userID)
}

// SessionKey generates the cache key for a session record.
// Format: session:{session_id}
func SessionKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", PrefixSession, sessionID)
}

// FriendsKey generates the key of the set of users a user follows.
// Format: friends:{user_id}
func FriendsKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", PrefixFriends, userID)
}

// FollowersKey generates the key of the reverse-edge set: users who follow
// the given author. Format: followers:{user_id}
func FollowersKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", PrefixFollow, userID)
}
