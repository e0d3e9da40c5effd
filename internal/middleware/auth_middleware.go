package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/busticket-client/internal/gateway"
	"github.com/smarttransit/busticket-client/internal/models"
)

// UserContextKey is the key used to store the signed-in user in the Gin context
const UserContextKey = "user"

// SessionSource is the session the BFF serves requests for
type SessionSource interface {
	gateway.Session
	CurrentUser() *models.User
}

// AttachSession puts the session on the request context so every backend
// call made while handling the request authenticates as it
func AttachSession(s SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(gateway.WithSession(c.Request.Context(), s))

		if user := s.CurrentUser(); user != nil {
			c.Set(UserContextKey, user)
		}

		c.Next()
	}
}

// RequireSession rejects requests made while logged out
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := GetUser(c); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Please log in to continue",
				"code":    "NOT_LOGGED_IN",
			})
			return
		}
		c.Next()
	}
}

// RequireRole rejects users holding none of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := GetUser(c)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "User context not found. Session middleware may not be applied.",
				"code":    "MISSING_USER_CONTEXT",
			})
			return
		}

		for _, role := range roles {
			if user.HasRole(role) {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "You don't have permission to access this resource",
			"code":    "INSUFFICIENT_PERMISSIONS",
		})
	}
}

// GetUser returns the signed-in user set by AttachSession
func GetUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}
