package web

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHeader carries the shared secret for authenticated deployments.
const AuthHeader = "X-Perch-Key"

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// TrustedCIDR rejects requests whose X-Real-IP falls outside the given
// subnet. An empty subnet disables the check.
func TrustedCIDR(cidr string) (gin.HandlerFunc, error) {
	if cidr == "" {
		return func(c *gin.Context) { c.Next() }, nil
	}
	_, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid trusted subnet %q: %w", cidr, err)
	}
	return func(c *gin.Context) {
		ip := net.ParseIP(c.GetHeader("X-Real-IP"))
		if ip == nil || !ipnet.Contains(ip) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}, nil
}

// SharedSecret requires the auth header to match key. An empty key
// disables the check.
func SharedSecret(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := c.GetHeader(AuthHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "reason": "Invalid or missing API key."})
			return
		}
		c.Next()
	}
}
