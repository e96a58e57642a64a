package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avolkov/sonet/internal/response"
)

// BodyLimit rejects request bodies over the configured byte cap before any
// handler side effect. Declared lengths are rejected up front; chunked bodies
// are capped by the wrapped reader and fail inside binding.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.BadRequest(c, "request body too large")
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
