package middleware

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/esmmarket/esmmarket-golang/internal/auth"
	"github.com/gin-gonic/gin"
)

// Principal is the resolved caller identity. It is produced once per request
// by AuthMiddleware and passed through the gin context; handlers never reach
// into ambient state to learn who is calling.
type Principal struct {
	UserID int64
	Role   string
}

const principalKey = "principal"

// PrincipalFrom returns the Principal set by AuthMiddleware.
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	raw, exists := c.Get(principalKey)
	if !exists {
		return Principal{}, false
	}
	p, ok := raw.(Principal)
	return p, ok
}

// AuthMiddleware validates the bearer token, confirms the account is still
// active, and stores the caller's Principal in the context.
func AuthMiddleware(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format (must be Bearer)"})
			c.Abort()
			return
		}

		userID, role, err := auth.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		// The token proves who the caller was at issue time; the account
		// row proves they are still allowed in.
		var dbRole, status string
		err = db.QueryRow("SELECT role, status FROM users WHERE id = ?", userID).Scan(&dbRole, &status)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown user"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve user"})
			}
			c.Abort()
			return
		}
		if status != "active" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is suspended"})
			c.Abort()
			return
		}
		if dbRole != role {
			// Role changed since the token was issued; force a re-login.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token no longer matches account role"})
			c.Abort()
			return
		}

		c.Set(principalKey, Principal{UserID: userID, Role: role})
		c.Next()
	}
}
