package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"studybuddy/internal/pkg/reqctx"
)

const HeaderRequestID = "X-Request-ID"

// RequestID takes the caller's X-Request-ID or mints one, and stores it in
// the request context for logs and error ids.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		ctx := reqctx.With(c.Request.Context(), &reqctx.Data{RequestID: id})
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}
