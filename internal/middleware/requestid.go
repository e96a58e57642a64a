package middleware

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header names propagated on every response and on proxied calls
const (
	HeaderRequestID      = "x-request-id"
	HeaderServerInstance = "x-server-instance"
)

// ContextRequestID is the gin context key holding the request id
const ContextRequestID = "request_id"

var serverInstance = func() string {
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "unknown"
}()

// RequestID adopts the inbound x-request-id or mints one, and stamps both
// tracing headers on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(ContextRequestID, requestID)
		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderServerInstance, serverInstance)

		c.Next()
	}
}

// GetRequestID retrieves the request id from the context
func GetRequestID(c *gin.Context) string {
	if v, ok := c.Get(ContextRequestID); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
