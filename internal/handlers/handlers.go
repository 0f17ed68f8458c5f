package handlers

import (
	"database/sql"

	"github.com/esmmarket/esmmarket-golang/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	DB *sql.DB
}

// principal returns the caller identity resolved by the auth middleware.
// Routes behind AuthMiddleware always have one; the bool guards test
// contexts and misconfigured routes.
func principal(c *gin.Context) (middleware.Principal, bool) {
	return middleware.PrincipalFrom(c)
}
