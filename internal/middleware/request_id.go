package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xxxsen/common/trace"
)

const (
	RequestIDHeader     = "X-Request-Id"
	ContextRequestIDKey = "request_id"
)

// RequestID echoes the request's trace id back to the client so it matches
// the traceid on every log line. The engine's trace middleware normally
// assigns it; without one the id comes from the request header or a new uuid
// and is installed as the trace id here.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		reqID, ok := trace.GetTraceId(ctx)
		if !ok || reqID == "" {
			reqID = c.GetHeader(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Request = c.Request.WithContext(trace.WithTraceId(ctx, reqID))
		}
		c.Writer.Header().Set(RequestIDHeader, reqID)
		c.Set(ContextRequestIDKey, reqID)
		c.Next()
	}
}
