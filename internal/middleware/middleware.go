package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"simplist/pkg/logger"
)

// RequestID tags every request with an id (honoring X-Request-ID when
// the client sends one) and attaches it to the context logger so every
// log line downstream carries it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
