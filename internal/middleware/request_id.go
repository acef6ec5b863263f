package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spa542/brawnyoriginals/internal/logging"
)

const (
	// RequestIDKey is the gin context key holding the request ID.
	RequestIDKey = "request_id"
	// LoggerKey is the gin context key holding the request-scoped logger.
	LoggerKey = "logger"

	requestIDHeader = "X-Request-ID"
)

// RequestIDMiddleware tags every request with an ID and stores a
// request-scoped logger in the context. Inbound X-Request-ID headers are
// honored so upstream proxies can correlate; the ID is echoed back in the
// response either way.
func RequestIDMiddleware(baseLogger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set(RequestIDKey, reqID)
		c.Writer.Header().Set(requestIDHeader, reqID)
		c.Set(LoggerKey, logging.WithRequestID(baseLogger, reqID))

		c.Next()
	}
}
