package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/pkg/errors"
	"github.com/clauselens/clauselens/pkg/types/common"
)

// Recovery converts panics into a 500 envelope instead of tearing down the
// connection.
func Recovery(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					logging.Any("panic", r),
					logging.String("path", c.Request.URL.Path),
					logging.String("request_id", RequestIDFromContext(c.Request.Context())),
				)

				resp := common.NewErrorResponse(string(errors.ErrCodeInternal), "internal server error")
				resp.RequestID = RequestIDFromContext(c.Request.Context())
				c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
			}
		}()
		c.Next()
	}
}

// BodyLimit rejects request bodies larger than maxBytes.  Oversized uploads
// surface as a read error in the handler rather than exhausting memory.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
