package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

//
// --- Role-Based Middleware ---
//
// RequireRole must run AFTER AuthMiddleware: it reads the Principal from the
// context and enforces that the caller's role is one of the allowed set.
//

// RequireRole gates a route group (or single route) to the given roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Principal not found in context (AuthMiddleware must run first)"})
			c.Abort()
			return
		}

		for _, role := range roles {
			if p.Role == role {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied: insufficient role"})
		c.Abort()
	}
}
