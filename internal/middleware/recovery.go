package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jfrchan18/rag-chatbot/internal/pkg/response"
)

// Recovery turns a handler panic into a 500 with the usual {code, detail}
// body. It runs inside the engine's own recoverer, which only sees panics
// raised outside the route handlers.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logutil.GetLogger(c.Request.Context()).Error("panic recovered",
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				response.Error(c, http.StatusInternalServerError, "internal", "internal error")
			}
		}()
		c.Next()
	}
}
