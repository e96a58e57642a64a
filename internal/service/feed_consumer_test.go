package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/sonet/internal/cache"
	"github.com/avolkov/sonet/internal/models"
	"github.com/avolkov/sonet/internal/mq"
	"github.com/avolkov/sonet/internal/taskpool"
)

func newTestPool(t *testing.T) *taskpool.Pool {
	t.Helper()
	pool, err := taskpool.New(8, nil)
	require.NoError(t, err)
	t.Cleanup(pool.Release)
	return pool
}

func eventBody(t *testing.T, kind mq.PostEventKind, post *models.Post) []byte {
	t.Helper()
	body, err := json.Marshal(mq.PostEvent{
		Kind:     kind,
		PostID:   post.ID,
		AuthorID: post.AuthorID,
		Post:     *post,
	})
	require.NoError(t, err)
	return body
}

func TestFeedConsumer_CreatedPrependsAndTrims(t *testing.T) {
	authorID := uuid.New()
	followers := []uuid.UUID{uuid.New(), uuid.New()}
	fc := newFakeCache()

	mockFriends := new(MockFriendStorage)
	mockFriends.On("FollowersOf", mock.Anything, authorID).Return(followers, nil)

	consumer := NewFeedConsumer(fc, mockFriends, newTestPool(t), false)

	// Warm one follower's feed with ten entries.
	warmKey := cache.FeedKey(followers[0])
	for _, p := range makePosts(authorID, 10) {
		data, err := json.Marshal(p)
		require.NoError(t, err)
		require.NoError(t, fc.RPush(context.Background(), warmKey, string(data)))
	}

	post := makePosts(authorID, 1)[0]
	require.NoError(t, consumer.Handle(context.Background(), eventBody(t, mq.PostCreated, post)))

	// The new snapshot lands at index 0 of every follower key.
	for _, follower := range followers {
		entries, err := fc.LRange(context.Background(), cache.FeedKey(follower), 0, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)

		var head models.Post
		require.NoError(t, json.Unmarshal([]byte(entries[0]), &head))
		assert.Equal(t, post.ID, head.ID)
	}
	assert.Equal(t, 11, fc.listLen(warmKey))
}

func TestFeedConsumer_RetentionBoundHolds(t *testing.T) {
	authorID := uuid.New()
	follower := uuid.New()
	fc := newFakeCache()

	mockFriends := new(MockFriendStorage)
	mockFriends.On("FollowersOf", mock.Anything, authorID).Return([]uuid.UUID{follower}, nil)

	consumer := NewFeedConsumer(fc, mockFriends, newTestPool(t), false)

	for _, post := range makePosts(authorID, FeedLength+500) {
		require.NoError(t, consumer.Handle(context.Background(), eventBody(t, mq.PostCreated, post)))
	}

	assert.Equal(t, FeedLength, fc.listLen(cache.FeedKey(follower)))
}

func TestFeedConsumer_UpdatedDropsFollowerKeys(t *testing.T) {
	authorID := uuid.New()
	followers := []uuid.UUID{uuid.New(), uuid.New()}
	fc := newFakeCache()

	for _, follower := range followers {
		require.NoError(t, fc.RPush(context.Background(), cache.FeedKey(follower), "entry"))
	}

	mockFriends := new(MockFriendStorage)
	mockFriends.On("FollowersOf", mock.Anything, authorID).Return(followers, nil)

	consumer := NewFeedConsumer(fc, mockFriends, newTestPool(t), false)

	post := makePosts(authorID, 1)[0]
	body := eventBody(t, mq.PostUpdated, post)
	require.NoError(t, consumer.Handle(context.Background(), body))

	for _, follower := range followers {
		assert.False(t, fc.hasKey(cache.FeedKey(follower)))
	}

	// Redelivery produces the same observable state.
	require.NoError(t, consumer.Handle(context.Background(), body))
	for _, follower := range followers {
		assert.False(t, fc.hasKey(cache.FeedKey(follower)))
	}
}

func TestFeedConsumer_DeletedIsIdempotent(t *testing.T) {
	authorID := uuid.New()
	follower := uuid.New()
	fc := newFakeCache()
	require.NoError(t, fc.RPush(context.Background(), cache.FeedKey(follower), "entry"))

	mockFriends := new(MockFriendStorage)
	mockFriends.On("FollowersOf", mock.Anything, authorID).Return([]uuid.UUID{follower}, nil)

	consumer := NewFeedConsumer(fc, mockFriends, newTestPool(t), false)

	post := makePosts(authorID, 1)[0]
	body := eventBody(t, mq.PostDeleted, post)

	require.NoError(t, consumer.Handle(context.Background(), body))
	require.NoError(t, consumer.Handle(context.Background(), body))
	assert.False(t, fc.hasKey(cache.FeedKey(follower)))
}

func TestFeedConsumer_OnePostPerUserDropsOnCreate(t *testing.T) {
	authorID := uuid.New()
	follower := uuid.New()
	fc := newFakeCache()
	require.NoError(t, fc.RPush(context.Background(), cache.FeedKey(follower), "entry"))

	mockFriends := new(MockFriendStorage)
	mockFriends.On("FollowersOf", mock.Anything, authorID).Return([]uuid.UUID{follower}, nil)

	consumer := NewFeedConsumer(fc, mockFriends, newTestPool(t), true)

	post := makePosts(authorID, 1)[0]
	require.NoError(t, consumer.Handle(context.Background(), eventBody(t, mq.PostCreated, post)))

	assert.False(t, fc.hasKey(cache.FeedKey(follower)))
}

func TestFeedConsumer_FollowerLookupFailureNacks(t *testing.T) {
	authorID := uuid.New()
	fc := newFakeCache()

	mockFriends := new(MockFriendStorage)
	mockFriends.On("FollowersOf", mock.Anything, authorID).Return(nil, assert.AnError)

	consumer := NewFeedConsumer(fc, mockFriends, newTestPool(t), false)

	post := makePosts(authorID, 1)[0]
	err := consumer.Handle(context.Background(), eventBody(t, mq.PostCreated, post))
	assert.Error(t, err)
}

func TestFeedConsumer_MalformedEventIsDropped(t *testing.T) {
	consumer := NewFeedConsumer(newFakeCache(), new(MockFriendStorage), newTestPool(t), false)

	// No error: a frame that never parses must not redeliver forever.
	assert.NoError(t, consumer.Handle(context.Background(), []byte("{not json")))
}
