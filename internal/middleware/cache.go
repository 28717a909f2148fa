package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// CacheControl sets the Cache-Control header. Use private for anything served
// behind a session.
func CacheControl(maxAgeSeconds int, private bool) gin.HandlerFunc {
	scope := "public"
	if private {
		scope = "private"
	}
	value := fmt.Sprintf("%s, max-age=%d", scope, maxAgeSeconds)

	return func(c *gin.Context) {
		c.Header("Cache-Control", value)
		c.Next()
	}
}
