package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/esmmarket/esmmarket-golang/internal/models"
	"github.com/gin-gonic/gin"
)

//
// --- Notification Handlers ---
//

// AddNotification creates a notification inside the caller's transaction so
// the event and the message about it commit (or roll back) together. It is
// not a handler itself; order transitions and approval decisions call it.
func (h *Handlers) AddNotification(tx queryer, userID int64, message string, link string) error {
	var nullLink sql.NullString
	if link != "" {
		nullLink = sql.NullString{String: link, Valid: true}
	}

	query := `
		INSERT INTO notifications (user_id, message, link, is_read, created_at)
		VALUES (?, ?, ?, 0, ?)`
	if _, err := tx.Exec(query, userID, message, nullLink, time.Now()); err != nil {
		return fmt.Errorf("failed to add notification: %w", err)
	}
	return nil
}

// GetMyNotifications is the handler for GET /v1/notifications
// Unread first, newest first, capped at 50.
func (h *Handlers) GetMyNotifications(c *gin.Context) {
	p, _ := principal(c)

	query := `
		SELECT id, user_id, message, link, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY is_read ASC, created_at DESC
		LIMIT 50`

	rows, err := h.DB.Query(query, p.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed"})
		return
	}
	defer rows.Close()

	notifications := []*models.Notification{}
	unread := 0
	for rows.Next() {
		var notif models.Notification
		if err := rows.Scan(&notif.ID, &notif.UserID, &notif.Message, &notif.Link, &notif.IsRead, &notif.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan notification row"})
			return
		}
		if !notif.IsRead {
			unread++
		}
		notifications = append(notifications, &notif)
	}
	if err = rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating notification rows"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"unreadCount":   unread,
	})
}

// MarkNotificationAsRead is the handler for PATCH /v1/notifications/:id/read
// The ownership condition in the WHERE clause stops a user marking someone
// else's notification.
func (h *Handlers) MarkNotificationAsRead(c *gin.Context) {
	p, _ := principal(c)
	notificationID := c.Param("id")

	result, err := h.DB.Exec(
		"UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?",
		notificationID, p.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check affected rows"})
		return
	}
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found or you do not have permission to update it"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
