package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appLogger "github.com/avolkov/sonet/internal/logger"
	"github.com/avolkov/sonet/internal/middleware"
	"github.com/avolkov/sonet/internal/response"
	"github.com/avolkov/sonet/internal/service"
)

// PostHandler handles post CRUD and the feed read
type PostHandler struct {
	postService service.PostService
	feedService service.FeedService
}

// NewPostHandler creates a new post handler
func NewPostHandler(postService service.PostService, feedService service.FeedService) *PostHandler {
	return &PostHandler{
		postService: postService,
		feedService: feedService,
	}
}

// FeedRequest is the GET /post/feed query
type FeedRequest struct {
	Offset int `form:"offset" binding:"omitempty,min=0"`
	Limit  int `form:"limit" binding:"omitempty,min=1"`
}

// Feed handles GET /post/feed?offset&limit
func (h *PostHandler) Feed(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	var req FeedRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Limit == 0 {
		req.Limit = 20
	}

	posts, err := h.feedService.GetFeed(c.Request.Context(), userID, req.Offset, req.Limit)
	if err != nil {
		appLogger.Error("Failed to get feed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		response.InternalError(c, "failed to get feed")
		return
	}

	response.OK(c, posts)
}

// PostRequest is the create/update payload
type PostRequest struct {
	Text string `json:"text" binding:"required"`
}

// Create handles POST /post/create
func (h *PostHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if _, err := h.postService.Create(c.Request.Context(), userID, req.Text); err != nil {
		appLogger.Error("Failed to create post",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		response.InternalError(c, "failed to create post")
		return
	}

	response.OK(c, "ok")
}

// Get handles GET /post/get/:id
func (h *PostHandler) Get(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid post id")
		return
	}

	post, err := h.postService.Get(c.Request.Context(), postID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.NotFound(c, "post not found")
			return
		}
		appLogger.Error("Failed to get post", zap.Error(err))
		response.InternalError(c, "failed to get post")
		return
	}

	response.OK(c, post)
}

// Update handles PUT /post/update/:id
func (h *PostHandler) Update(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid post id")
		return
	}

	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if _, err := h.postService.Update(c.Request.Context(), userID, postID, req.Text); err != nil {
		h.writeMutationError(c, err, "failed to update post")
		return
	}

	response.OK(c, "ok")
}

// Delete handles DELETE /post/delete/:id
func (h *PostHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid post id")
		return
	}

	if err := h.postService.Delete(c.Request.Context(), userID, postID); err != nil {
		h.writeMutationError(c, err, "failed to delete post")
		return
	}

	response.OK(c, "ok")
}

func (h *PostHandler) writeMutationError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, "post not found")
	case errors.Is(err, service.ErrForbidden):
		response.BadRequest(c, "post is not owned by the caller")
	default:
		appLogger.Error(msg, zap.Error(err))
		response.InternalError(c, msg)
	}
}
