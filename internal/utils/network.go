package utils

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// ClientIP returns the address of the browser calling the BFF.
//
// Priority order:
// 1. X-Real-IP (set by a reverse proxy)
// 2. the first public address in X-Forwarded-For, else its first entry
// 3. gin's ClientIP
func ClientIP(c *gin.Context) string {
	if realIP := strings.TrimSpace(c.GetHeader("X-Real-IP")); realIP != "" {
		if ip := net.ParseIP(realIP); ip != nil && !ip.IsPrivate() {
			return realIP
		}
	}

	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		for _, part := range parts {
			candidate := strings.TrimSpace(part)
			ip := net.ParseIP(candidate)
			if ip != nil && !ip.IsPrivate() && !ip.IsLoopback() {
				return candidate
			}
		}
		if first := strings.TrimSpace(parts[0]); net.ParseIP(first) != nil {
			return first
		}
	}

	return c.ClientIP()
}

// UserAgent returns the User-Agent header, "Unknown" when absent
func UserAgent(c *gin.Context) string {
	if ua := c.Request.UserAgent(); ua != "" {
		return ua
	}
	return "Unknown"
}

// IsLocalhost reports a loopback address or the name localhost
func IsLocalhost(addr string) bool {
	if addr == "localhost" {
		return true
	}
	ip := net.ParseIP(addr)
	return ip != nil && ip.IsLoopback()
}
