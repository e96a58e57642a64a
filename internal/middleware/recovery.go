package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appLogger "github.com/avolkov/sonet/internal/logger"
	"github.com/avolkov/sonet/internal/response"
)

// Recovery converts handler panics into 500 responses
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				appLogger.Error("Handler panicked",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"))
				response.InternalError(c, "internal error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
