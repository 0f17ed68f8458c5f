package handlers

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/esmmarket/esmmarket-golang/internal/auth"
	"github.com/esmmarket/esmmarket-golang/internal/models"
	"github.com/gin-gonic/gin"
)

//
// --- Registration & Login ---
//

// RegisterBuyerInput holds the fields we accept from a new buyer. This is
// separate from models.User because we never accept an id, role or status
// from the outside.
type RegisterBuyerInput struct {
	FullName    string `json:"fullName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
}

// RegisterBuyer is the handler for POST /v1/register/buyer
func (h *Handlers) RegisterBuyer(c *gin.Context) {
	var input RegisterBuyerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	now := time.Now()
	query := `
		INSERT INTO users (role, status, email, password_hash, full_name, phone_number, created_at, updated_at)
		VALUES (?, 'active', ?, ?, ?, ?, ?, ?)`

	result, err := h.DB.Exec(query, models.RoleBuyer, strings.ToLower(input.Email), password.Hash, input.FullName, input.PhoneNumber, now, now)
	if err != nil {
		if isDuplicateKey(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	userID, _ := result.LastInsertId()

	c.JSON(http.StatusCreated, gin.H{
		"message": "Buyer registered successfully",
		"userId":  userID,
	})
}

// LoginInput defines the JSON input for logging in.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /v1/login
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	query := "SELECT id, role, status, password_hash FROM users WHERE email = ?"
	err := h.DB.QueryRow(query, strings.ToLower(input.Email)).Scan(&user.ID, &user.Role, &user.Status, &user.PasswordHash)
	if err != nil {
		if err == sql.ErrNoRows {
			// Same response as a wrong password, so the endpoint does not
			// leak which emails exist.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
		return
	}

	password := models.Password{Hash: user.PasswordHash}
	matches, err := password.Matches(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify password"})
		return
	}
	if !matches {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if user.Status != "active" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is suspended"})
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"role":  user.Role,
	})
}

// isDuplicateKey reports whether err is a MySQL duplicate-entry error (1062).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Error 1062")
}
