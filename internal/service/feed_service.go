package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/avolkov/sonet/internal/cache"
	appLogger "github.com/avolkov/sonet/internal/logger"
	"github.com/avolkov/sonet/internal/models"
	"github.com/avolkov/sonet/internal/repository"
)

// FeedLength is the retention bound of every cached feed list
const FeedLength = 1000

// FeedService serves paginated feed reads, rebuilding the cache on cold reads
type FeedService interface {
	GetFeed(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.Post, error)
}

// feedService implements FeedService
type feedService struct {
	cache          cache.Service
	posts          repository.PostRepository
	friends        repository.FriendStorage
	onePostPerUser bool
	flights        singleflight.Group
}

// NewFeedService creates a new feed service
func NewFeedService(
	cacheService cache.Service,
	postRepo repository.PostRepository,
	friendStorage repository.FriendStorage,
	onePostPerUser bool,
) FeedService {
	return &feedService{
		cache:          cacheService,
		posts:          postRepo,
		friends:        friendStorage,
		onePostPerUser: onePostPerUser,
	}
}

// GetFeed returns the slice [offset, offset+limit) of the user's feed,
// newest-first by time_updated. A warm key is served straight from the cache;
// a cold key triggers exactly one rebuild per user across the process.
func (s *feedService) GetFeed(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.Post, error) {
	offset = clamp(offset)
	limit = clamp(limit)
	if limit == 0 {
		return []*models.Post{}, nil
	}

	feedKey := cache.FeedKey(userID)

	exists, err := s.cache.Exists(ctx, feedKey)
	if err != nil {
		// Cache unavailable: degrade to the authoritative store, don't fill.
		appLogger.Warn("Feed cache probe failed, serving from store",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		posts, err := s.rebuildFromStore(ctx, userID)
		if err != nil {
			return nil, err
		}
		return slicePosts(posts, offset, limit), nil
	}

	if exists {
		posts, err := s.readCached(ctx, feedKey, offset, limit)
		if err == nil {
			return posts, nil
		}
		appLogger.Warn("Feed cache read failed, serving from store",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		direct, derr := s.rebuildFromStore(ctx, userID)
		if derr != nil {
			return nil, derr
		}
		return slicePosts(direct, offset, limit), nil
	}

	// Cold read: collapse concurrent rebuilds for this user into one flight.
	// DoChan so a waiter can observe its own cancellation without cancelling
	// the flight itself.
	ch := s.flights.DoChan(userID.String(), func() (interface{}, error) {
		return s.fill(context.WithoutCancel(ctx), userID, feedKey)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		posts := res.Val.([]*models.Post)
		return slicePosts(posts, offset, limit), nil
	}
}

// readCached serves a warm key via LRANGE
func (s *feedService) readCached(ctx context.Context, feedKey string, offset, limit int) ([]*models.Post, error) {
	entries, err := s.cache.LRange(ctx, feedKey, int64(offset), int64(offset+limit-1))
	if err != nil {
		return nil, err
	}

	posts := make([]*models.Post, 0, len(entries))
	for _, entry := range entries {
		var post models.Post
		if err := json.Unmarshal([]byte(entry), &post); err != nil {
			return nil, fmt.Errorf("corrupt feed entry: %w", err)
		}
		posts = append(posts, &post)
	}
	return posts, nil
}

// fill rebuilds the full feed from the authoritative store and populates the
// cache key, oldest entry last. It never overwrites a key that appeared while
// the flight was queued: filling is the only cache write the reader may do.
func (s *feedService) fill(ctx context.Context, userID uuid.UUID, feedKey string) ([]*models.Post, error) {
	posts, err := s.rebuildFromStore(ctx, userID)
	if err != nil {
		return nil, err
	}

	exists, err := s.cache.Exists(ctx, feedKey)
	if err != nil || exists {
		// Either the materializer beat us to the key or the cache went away
		// mid-flight; serve what we read without writing.
		return posts, nil
	}

	for _, post := range posts {
		data, err := json.Marshal(post)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal feed entry: %w", err)
		}
		if err := s.cache.RPush(ctx, feedKey, string(data)); err != nil {
			// Partial fill: drop the key so the next cold read starts clean.
			appLogger.Warn("Feed cache fill failed",
				zap.String("key", feedKey),
				zap.Error(err))
			_ = s.cache.Delete(ctx, feedKey)
			return posts, nil
		}
	}

	appLogger.Debug("Feed cache filled",
		zap.String("key", feedKey),
		zap.Int("entries", len(posts)))

	return posts, nil
}

// rebuildFromStore runs the top-N query over the user's friends
func (s *feedService) rebuildFromStore(ctx context.Context, userID uuid.UUID) ([]*models.Post, error) {
	friendIDs, err := s.friends.FriendsOf(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve friends of %s: %w", userID, err)
	}

	posts, err := s.posts.TopPostsByAuthors(ctx, friendIDs, FeedLength)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed posts: %w", err)
	}

	if s.onePostPerUser {
		posts = dedupByAuthor(posts)
	}

	return posts, nil
}

// dedupByAuthor keeps one post per author across the whole list, whether or
// not that author's posts are adjacent. The input is ordered by time_updated
// DESC, so for each author the first (most recent) occurrence wins.
func dedupByAuthor(posts []*models.Post) []*models.Post {
	seen := make(map[uuid.UUID]struct{}, len(posts))
	deduped := posts[:0]
	for _, post := range posts {
		if _, ok := seen[post.AuthorID]; ok {
			continue
		}
		seen[post.AuthorID] = struct{}{}
		deduped = append(deduped, post)
	}
	return deduped
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > FeedLength {
		return FeedLength
	}
	return v
}

func slicePosts(posts []*models.Post, offset, limit int) []*models.Post {
	if offset >= len(posts) {
		return []*models.Post{}
	}
	end := offset + limit
	if end > len(posts) {
		end = len(posts)
	}
	return posts[offset:end]
}
