package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frameloop/frameloop/internal/admission"
)

// UploadAuditor records admission denials. Satisfied by *store.Store.
type UploadAuditor interface {
	LogUpload(clientID, role, outcome, reason, key string)
}

// RateLimit gates requests through the admission controller before any
// other processing. The client identifier is the network address; it is
// opaque and unauthenticated. Denial is a distinct outcome from
// validation failure: 429, not 400.
func RateLimit(limiter *admission.Limiter, audit UploadAuditor) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.ClientIP()
		if !limiter.Allow(clientID) {
			if audit != nil {
				audit.LogUpload(clientID, "", "denied", "rate limit exceeded", "")
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, retry later",
			})
			return
		}
		c.Next()
	}
}
