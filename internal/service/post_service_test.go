package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/sonet/internal/models"
	"github.com/avolkov/sonet/internal/mq"
)

func TestPostService_Create(t *testing.T) {
	t.Run("persists then publishes CREATED", func(t *testing.T) {
		authorID := uuid.New()

		mockRepo := new(MockPostRepository)
		mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *models.Post) bool {
			return p.AuthorID == authorID && p.Content == "hello" && !p.TimeCreated.IsZero()
		})).Return(nil)

		mockPub := new(MockPublisher)
		mockPub.On("PublishPostEvent", mock.Anything, mq.PostCreated, mock.Anything).Return(nil)

		svc := NewPostService(mockRepo, mockPub)

		post, err := svc.Create(context.Background(), authorID, "hello")
		require.NoError(t, err)
		assert.Equal(t, authorID, post.AuthorID)
		assert.Equal(t, post.TimeCreated, post.TimeUpdated)

		mockRepo.AssertExpectations(t)
		mockPub.AssertExpectations(t)
	})

	t.Run("publish failure keeps the commit", func(t *testing.T) {
		mockRepo := new(MockPostRepository)
		mockRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		mockPub := new(MockPublisher)
		mockPub.On("PublishPostEvent", mock.Anything, mq.PostCreated, mock.Anything).Return(assert.AnError)

		svc := NewPostService(mockRepo, mockPub)

		post, err := svc.Create(context.Background(), uuid.New(), "hello")
		require.NoError(t, err)
		assert.NotNil(t, post)
	})

	t.Run("store failure publishes nothing", func(t *testing.T) {
		mockRepo := new(MockPostRepository)
		mockRepo.On("Create", mock.Anything, mock.Anything).Return(assert.AnError)

		mockPub := new(MockPublisher)

		svc := NewPostService(mockRepo, mockPub)

		_, err := svc.Create(context.Background(), uuid.New(), "hello")
		assert.Error(t, err)
		mockPub.AssertNotCalled(t, "PublishPostEvent", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPostService_Update(t *testing.T) {
	authorID := uuid.New()
	stored := &models.Post{
		ID:          uuid.New(),
		Content:     "before",
		AuthorID:    authorID,
		TimeCreated: time.Now().Add(-time.Hour),
		TimeUpdated: time.Now().Add(-time.Hour),
	}

	t.Run("owner updates and UPDATED is published", func(t *testing.T) {
		mockRepo := new(MockPostRepository)
		mockRepo.On("FindByIDOnMaster", mock.Anything, stored.ID).Return(stored, nil)
		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(p *models.Post) bool {
			return p.Content == "after" && p.TimeUpdated.After(p.TimeCreated)
		})).Return(nil)

		mockPub := new(MockPublisher)
		mockPub.On("PublishPostEvent", mock.Anything, mq.PostUpdated, mock.Anything).Return(nil)

		svc := NewPostService(mockRepo, mockPub)

		post, err := svc.Update(context.Background(), authorID, stored.ID, "after")
		require.NoError(t, err)
		assert.Equal(t, "after", post.Content)

		mockRepo.AssertExpectations(t)
		mockPub.AssertExpectations(t)
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		mockRepo := new(MockPostRepository)
		mockRepo.On("FindByIDOnMaster", mock.Anything, stored.ID).Return(stored, nil)

		svc := NewPostService(mockRepo, new(MockPublisher))

		_, err := svc.Update(context.Background(), uuid.New(), stored.ID, "after")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("missing post", func(t *testing.T) {
		mockRepo := new(MockPostRepository)
		mockRepo.On("FindByIDOnMaster", mock.Anything, mock.Anything).Return(nil, nil)

		svc := NewPostService(mockRepo, new(MockPublisher))

		_, err := svc.Update(context.Background(), authorID, uuid.New(), "after")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPostService_Delete(t *testing.T) {
	authorID := uuid.New()
	stored := &models.Post{ID: uuid.New(), AuthorID: authorID, Content: "bye"}

	t.Run("owner deletes and DELETED carries the snapshot", func(t *testing.T) {
		mockRepo := new(MockPostRepository)
		mockRepo.On("FindByIDOnMaster", mock.Anything, stored.ID).Return(stored, nil)
		mockRepo.On("Delete", mock.Anything, stored.ID).Return(nil)

		mockPub := new(MockPublisher)
		mockPub.On("PublishPostEvent", mock.Anything, mq.PostDeleted, mock.MatchedBy(func(p *models.Post) bool {
			return p.ID == stored.ID
		})).Return(nil)

		svc := NewPostService(mockRepo, mockPub)

		require.NoError(t, svc.Delete(context.Background(), authorID, stored.ID))
		mockRepo.AssertExpectations(t)
		mockPub.AssertExpectations(t)
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		mockRepo := new(MockPostRepository)
		mockRepo.On("FindByIDOnMaster", mock.Anything, stored.ID).Return(stored, nil)

		svc := NewPostService(mockRepo, new(MockPublisher))

		err := svc.Delete(context.Background(), uuid.New(), stored.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}
