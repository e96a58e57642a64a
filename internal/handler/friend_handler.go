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

// FriendHandler handles friendship mutations
type FriendHandler struct {
	friendService service.FriendService
}

// NewFriendHandler creates a new friend handler
func NewFriendHandler(friendService service.FriendService) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

// Set handles PUT /friend/set/:uid
func (h *FriendHandler) Set(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	friendID, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		response.BadRequest(c, "invalid friend id")
		return
	}

	if err := h.friendService.SetFriend(c.Request.Context(), callerID, friendID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		appLogger.Error("Failed to set friend",
			zap.String("user_id", callerID.String()),
			zap.String("friend_id", friendID.String()),
			zap.Error(err))
		response.InternalError(c, "failed to set friend")
		return
	}

	response.OK(c, "ok")
}

// deleteFriendRequest is the optional PUT /friend/delete/:uid body; when the
// body carries a user_id it names the edge target, overriding the path.
type deleteFriendRequest struct {
	UserID string `json:"user_id"`
}

// Delete handles PUT /friend/delete/:uid
func (h *FriendHandler) Delete(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	friendID, pathErr := uuid.Parse(c.Param("uid"))

	var req deleteFriendRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.UserID != "" {
		bodyID, err := uuid.Parse(req.UserID)
		if err != nil {
			response.BadRequest(c, "invalid user id")
			return
		}
		friendID = bodyID
	} else if pathErr != nil {
		response.BadRequest(c, "invalid friend id")
		return
	}

	if err := h.friendService.DeleteFriend(c.Request.Context(), callerID, friendID); err != nil {
		appLogger.Error("Failed to delete friend",
			zap.String("user_id", callerID.String()),
			zap.String("friend_id", friendID.String()),
			zap.Error(err))
		response.InternalError(c, "failed to delete friend")
		return
	}

	response.OK(c, "ok")
}
