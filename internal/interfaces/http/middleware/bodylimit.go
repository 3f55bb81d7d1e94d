package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sellerhub/backend/internal/interfaces/http/dto"
)

// BodyLimit returns a middleware that limits request body size. Import
// uploads are the only large payloads this API accepts.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse(dto.ErrCodePayloadTooLarge, "request body exceeds maximum allowed size"))
			return
		}

		// Wrap the body with a limited reader for streaming requests
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
