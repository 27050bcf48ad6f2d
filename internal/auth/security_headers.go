package auth

import (
	"github.com/gin-gonic/gin"
)

// apiHeaders are set on every response. Snapshot downloads must never be
// cached by intermediaries.
var apiHeaders = map[string]string{
	"X-Frame-Options":         "DENY",
	"X-Content-Type-Options":  "nosniff",
	"Referrer-Policy":         "no-referrer",
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	"Cache-Control":           "no-store",
}

// SecurityHeadersMiddleware sets apiHeaders on every response.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		for name, value := range apiHeaders {
			c.Header(name, value)
		}
		c.Next()
	}
}
