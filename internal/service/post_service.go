package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appLogger "github.com/avolkov/sonet/internal/logger"
	"github.com/avolkov/sonet/internal/models"
	"github.com/avolkov/sonet/internal/mq"
	"github.com/avolkov/sonet/internal/repository"
)

// PostService is the post writer: it persists lifecycle changes on the master
// and emits the matching post event after the commit.
type PostService interface {
	Create(ctx context.Context, authorID uuid.UUID, content string) (*models.Post, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Update(ctx context.Context, callerID, postID uuid.UUID, content string) (*models.Post, error)
	Delete(ctx context.Context, callerID, postID uuid.UUID) error
}

// postService implements PostService
type postService struct {
	posts     repository.PostRepository
	publisher mq.EventPublisher
}

// NewPostService creates a new post service
func NewPostService(postRepo repository.PostRepository, publisher mq.EventPublisher) PostService {
	return &postService{
		posts:     postRepo,
		publisher: publisher,
	}
}

// Create persists a new post and publishes CREATED
func (s *postService) Create(ctx context.Context, authorID uuid.UUID, content string) (*models.Post, error) {
	now := time.Now().UTC()
	post := &models.Post{
		ID:          uuid.New(),
		Content:     content,
		AuthorID:    authorID,
		TimeCreated: now,
		TimeUpdated: now,
	}

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.publish(ctx, mq.PostCreated, post)
	return post, nil
}

// Get loads a post by id
func (s *postService) Get(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load post: %w", err)
	}
	if post == nil {
		return nil, ErrNotFound
	}
	return post, nil
}

// Update rewrites the post content, bumping time_updated, and publishes
// UPDATED. Ownership is re-verified against the stored row, not the request.
func (s *postService) Update(ctx context.Context, callerID, postID uuid.UUID, content string) (*models.Post, error) {
	post, err := s.posts.FindByIDOnMaster(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load post: %w", err)
	}
	if post == nil {
		return nil, ErrNotFound
	}
	if post.AuthorID != callerID {
		return nil, ErrForbidden
	}

	post.Content = content
	post.TimeUpdated = time.Now().UTC()

	if err := s.posts.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	s.publish(ctx, mq.PostUpdated, post)
	return post, nil
}

// Delete removes the post and publishes DELETED with the last snapshot
func (s *postService) Delete(ctx context.Context, callerID, postID uuid.UUID) error {
	post, err := s.posts.FindByIDOnMaster(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to load post: %w", err)
	}
	if post == nil {
		return ErrNotFound
	}
	if post.AuthorID != callerID {
		return ErrForbidden
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	s.publish(ctx, mq.PostDeleted, post)
	return nil
}

// publish emits the event after the commit. A publish failure is logged and
// never unwinds the commit. Feed keys carry no expiry, so a follower's warm
// feed picks the change up only after that key is dropped and rebuilt by a
// cold read.
func (s *postService) publish(ctx context.Context, kind mq.PostEventKind, post *models.Post) {
	if err := s.publisher.PublishPostEvent(ctx, kind, post); err != nil {
		appLogger.Warn("Failed to publish post event",
			zap.String("kind", string(kind)),
			zap.String("post_id", post.ID.String()),
			zap.Error(err))
	}
}
