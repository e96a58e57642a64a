package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the error response payload
type ErrorBody struct {
	Error string `json:"error"`
}

// OK returns a 200 response with the given payload
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Error returns an error response with the given status
func Error(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorBody{Error: message})
}

// BadRequest returns a 400 error
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized returns a 401 error
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// NotFound returns a 404 error
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// InternalError returns a 500 error
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}
