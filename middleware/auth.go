package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nightout-app/server/cache"
	"github.com/nightout-app/server/config"
)

const (
	ProfileIDKey = "profile_id"
	GuestKey     = "guest"
)

// Auth validates the Bearer JWT token and checks the session cache.
// Guest tokens pass (browse-only); RequireUser gates writes.
func Auth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if !claims.Guest {
			// Check session still valid in cache (sign-out revokes it).
			cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
			defer cancel()
			exists, err := c.Exists(cacheCtx, "session:"+tokenStr)
			if err != nil || !exists {
				ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
				return
			}
		}

		ctx.Set(ProfileIDKey, claims.ProfileID)
		ctx.Set(GuestKey, claims.Guest)
		ctx.Next()
	}
}

// RequireUser rejects guest and unauthenticated requests before any work.
// Placed on every server-writing route.
func RequireUser() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if IsGuest(ctx) || GetProfileID(ctx) == 0 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "requires sign-in"})
			return
		}
		ctx.Next()
	}
}

// GetProfileID retrieves the authenticated profile ID from the Gin context.
func GetProfileID(c *gin.Context) int64 {
	if v, exists := c.Get(ProfileIDKey); exists {
		return v.(int64)
	}
	return 0
}

// IsGuest reports whether the request carries a guest token.
func IsGuest(c *gin.Context) bool {
	if v, exists := c.Get(GuestKey); exists {
		return v.(bool)
	}
	return false
}
