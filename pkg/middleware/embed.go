package middleware

import "github.com/gin-gonic/gin"

// AllowEmbedding sets headers so pages and API responses can be loaded
// inside the hosting platform's iframe.
func AllowEmbedding() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Del("X-Frame-Options")
		h.Set("X-Frame-Options", "ALLOWALL")
		h.Set("Content-Security-Policy", "frame-ancestors *")
		h.Set("X-Content-Type-Options", "nosniff")
		c.Next()
	}
}
