package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/sonet/internal/middleware"
	"github.com/avolkov/sonet/internal/models"
	"github.com/avolkov/sonet/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubFeedService records the offset and limit the handler passed it
type stubFeedService struct {
	posts  []*models.Post
	err    error
	offset int
	limit  int
}

func (s *stubFeedService) GetFeed(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.Post, error) {
	s.offset = offset
	s.limit = limit
	return s.posts, s.err
}

func feedRouter(userID uuid.UUID, feed service.FeedService) *gin.Engine {
	engine := gin.New()
	engine.GET("/post/feed", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		NewPostHandler(nil, feed).Feed(c)
	})
	return engine
}

func TestPostHandler_Feed(t *testing.T) {
	userID := uuid.New()

	t.Run("returns posts with default limit", func(t *testing.T) {
		feed := &stubFeedService{posts: []*models.Post{{ID: uuid.New(), AuthorID: uuid.New()}}}
		engine := feedRouter(userID, feed)

		req := httptest.NewRequest(http.MethodGet, "/post/feed?offset=5", nil)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 5, feed.offset)
		assert.Equal(t, 20, feed.limit)

		var posts []models.Post
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
		assert.Len(t, posts, 1)
	})

	t.Run("negative offset is rejected", func(t *testing.T) {
		engine := feedRouter(userID, &stubFeedService{})

		req := httptest.NewRequest(http.MethodGet, "/post/feed?offset=-1", nil)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service failure is a 500", func(t *testing.T) {
		engine := feedRouter(userID, &stubFeedService{err: assert.AnError})

		req := httptest.NewRequest(http.MethodGet, "/post/feed", nil)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestPostHandler_FeedUnauthenticated(t *testing.T) {
	engine := gin.New()
	engine.GET("/post/feed", NewPostHandler(nil, &stubFeedService{}).Feed)

	req := httptest.NewRequest(http.MethodGet, "/post/feed", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
