package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/avolkov/sonet/internal/models"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	// FindByIDOnMaster pins the read to the master pool. The post writer uses
	// it for ownership re-checks, where replica lag would be a correctness
	// bug rather than a staleness annoyance.
	FindByIDOnMaster(ctx context.Context, id uuid.UUID) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByAuthor(ctx context.Context, authorID uuid.UUID) ([]*models.Post, error)
	// TopPostsByAuthors returns the most recent posts authored by any of the
	// given authors, ordered by time_updated DESC, capped at limit. This is
	// the feed rebuild query.
	TopPostsByAuthors(ctx context.Context, authorIDs []uuid.UUID, limit int) ([]*models.Post, error)
}

// postRepository implements PostRepository interface
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// Create inserts a new post row on the master
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// FindByID finds a post by ID on a replica
func (r *postRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return r.findByID(r.db.WithContext(ctx), id)
}

// FindByIDOnMaster finds a post by ID on the master pool
func (r *postRepository) FindByIDOnMaster(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return r.findByID(r.db.WithContext(ctx).Clauses(dbresolver.Write), id)
}

func (r *postRepository) findByID(tx *gorm.DB, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := tx.Where("id = ?", id).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// Update saves the post's content and timestamps
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

// Delete removes the post row
func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{}).Error
}

// FindByAuthor returns all posts authored by the given user
func (r *postRepository) FindByAuthor(ctx context.Context, authorID uuid.UUID) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("user_id = ?", authorID).
		Order("time_updated DESC").
		Find(&posts).Error
	return posts, err
}

// TopPostsByAuthors runs the feed rebuild query against a replica
func (r *postRepository) TopPostsByAuthors(ctx context.Context, authorIDs []uuid.UUID, limit int) ([]*models.Post, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}

	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", authorIDs).
		Order("time_updated DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}
