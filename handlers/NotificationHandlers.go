package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type notificationRow struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	Action    string    `json:"action,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GetNotificationsHandler lists a user's notifications
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Param id path int true "User ID"
// @Param status query string false "Filter by status (unread/read)"
// @Success 200 {array} object
// @Failure 400 {object} models.ErrorResponse
// @Router /api/users/{id}/notifications [get]
func GetNotificationsHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}

		query := `
			SELECT id, user_id, message, status, COALESCE(action, ''), created_at
			FROM notifications WHERE user_id = $1`
		args := []interface{}{userID}

		if status := c.Query("status"); status != "" {
			query += ` AND status = $2`
			args = append(args, status)
		}
		query += ` ORDER BY created_at DESC LIMIT 100`

		rows, err := db.Query(query, args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications", "details": err.Error()})
			return
		}
		defer rows.Close()

		notifications := []notificationRow{}
		for rows.Next() {
			var n notificationRow
			if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Status, &n.Action, &n.CreatedAt); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan notification", "details": err.Error()})
				return
			}
			notifications = append(notifications, n)
		}

		c.JSON(http.StatusOK, notifications)
	}
}

// MarkNotificationReadHandler marks one notification as read
// @Summary Mark notification read
// @Tags Notifications
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/notifications/{id}/read [post]
func MarkNotificationReadHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
			return
		}

		result, err := db.Exec(`UPDATE notifications SET status = 'read', updated_at = NOW() WHERE id = $1`, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification", "details": err.Error()})
			return
		}
		if n, _ := result.RowsAffected(); n == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
	}
}

// MarkAllNotificationsReadHandler marks all of a user's notifications read
// @Summary Mark all notifications read
// @Tags Notifications
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.SuccessResponse
// @Router /api/users/{id}/notifications/read_all [post]
func MarkAllNotificationsReadHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}

		result, err := db.Exec(`UPDATE notifications SET status = 'read', updated_at = NOW() WHERE user_id = $1 AND status = 'unread'`, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications", "details": err.Error()})
			return
		}

		n, _ := result.RowsAffected()
		c.JSON(http.StatusOK, gin.H{"message": "Notifications marked as read", "updated": n})
	}
}
