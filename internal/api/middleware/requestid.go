package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// RequestID tags every request with a fresh uuid, stored on the context and
// echoed in the response header.
func RequestID(c *gin.Context) {
	id := uuid.NewString()
	c.Set(RequestIDKey, id)
	c.Header(RequestIDHeader, id)
	c.Next()
}
