package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appLogger "github.com/avolkov/sonet/internal/logger"
	"github.com/avolkov/sonet/internal/middleware"
	"github.com/avolkov/sonet/internal/response"
	"github.com/avolkov/sonet/internal/service"
)

// DialogHandler proxies dialog operations to the dialogs microservice
type DialogHandler struct {
	dialogService service.DialogService
}

// NewDialogHandler creates a new dialog handler
func NewDialogHandler(dialogService service.DialogService) *DialogHandler {
	return &DialogHandler{dialogService: dialogService}
}

// SendRequest is the POST /dialog/:uid/send payload
type SendRequest struct {
	Text string `json:"text" binding:"required"`
}

// Send handles POST /dialog/:uid/send
func (h *DialogHandler) Send(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	peerID, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.dialogService.SendMessage(
		c.Request.Context(), middleware.GetRequestID(c), callerID, peerID, req.Text)
	if err != nil {
		appLogger.Error("Dialog send proxy failed", zap.Error(err))
		response.InternalError(c, "dialog service unavailable")
		return
	}

	c.Data(result.StatusCode, "application/json", result.Body)
}

// ListRequest is the GET /dialog/:uid/list query
type ListRequest struct {
	Offset int `form:"offset" binding:"omitempty,min=0"`
	Limit  int `form:"limit" binding:"omitempty,min=1"`
}

// List handles GET /dialog/:uid/list
func (h *DialogHandler) List(c *gin.Context) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	peerID, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.Limit == 0 {
		req.Limit = 20
	}

	result, err := h.dialogService.ListMessages(
		c.Request.Context(), middleware.GetRequestID(c), callerID, peerID, req.Offset, req.Limit)
	if err != nil {
		appLogger.Error("Dialog list proxy failed", zap.Error(err))
		response.InternalError(c, "dialog service unavailable")
		return
	}

	c.Data(result.StatusCode, "application/json", result.Body)
}
