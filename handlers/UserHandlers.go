package handlers

import (
	"backend/models"
	"backend/services"
	"backend/storage"
	"backend/utils"
	"database/sql"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// CreateUserHandler creates a new portal user
// @Summary Create user
// @Description Create a portal user with discipline and approval level
// @Tags Users
// @Accept json
// @Produce json
// @Param request body models.User true "User"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/users [post]
func CreateUserHandler(db *sql.DB, emailService *services.EmailService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var user models.User
		if err := c.ShouldBindJSON(&user); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		if user.Email == "" || user.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
			return
		}

		if user.ApprovalLevel == "" {
			user.ApprovalLevel = "L0"
		}

		plainPassword := user.Password
		hashed, err := utils.HashPassword(user.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}

		query := `
			INSERT INTO users (employee_id, email, password, first_name, last_name, discipline, approval_level,
			                   city, state, country, phone_no, role_id, is_admin, suspended, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, FALSE, NOW(), NOW())
			RETURNING id`
		err = db.QueryRow(query,
			user.EmployeeId, user.Email, hashed, user.FirstName, user.LastName,
			user.Discipline, user.ApprovalLevel, user.City, user.State, user.Country,
			user.PhoneNo, user.RoleID, user.IsAdmin,
		).Scan(&user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user", "details": err.Error()})
			return
		}

		// Welcome email is best-effort; account creation already succeeded.
		user.Password = plainPassword
		if emailService != nil {
			if err := emailService.SendWelcomeUserEmail(user, nil); err != nil {
				log.Printf("[users] welcome email to %s failed: %v", user.Email, err)
			}
		}

		c.JSON(http.StatusCreated, gin.H{"message": "User created", "user_id": user.ID})
	}
}

// GetUsersHandler lists portal users
// @Summary List users
// @Tags Users
// @Produce json
// @Param discipline query string false "Filter by discipline"
// @Success 200 {array} models.User
// @Failure 500 {object} models.ErrorResponse
// @Router /api/users [get]
func GetUsersHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := `
			SELECT u.id, u.employee_id, u.email, u.first_name, u.last_name, u.discipline, u.approval_level,
			       u.city, u.state, u.country, u.phone_no, u.role_id, r.role_name, u.is_admin, u.suspended,
			       u.created_at, u.updated_at
			FROM users u JOIN roles r ON u.role_id = r.role_id`
		args := []interface{}{}

		if discipline := c.Query("discipline"); discipline != "" {
			query += ` WHERE u.discipline = $1`
			args = append(args, discipline)
		}
		query += ` ORDER BY u.id`

		rows, err := db.Query(query, args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users", "details": err.Error()})
			return
		}
		defer rows.Close()

		users := []models.User{}
		for rows.Next() {
			var u models.User
			if err := rows.Scan(
				&u.ID, &u.EmployeeId, &u.Email, &u.FirstName, &u.LastName, &u.Discipline, &u.ApprovalLevel,
				&u.City, &u.State, &u.Country, &u.PhoneNo, &u.RoleID, &u.RoleName, &u.IsAdmin, &u.Suspended,
				&u.CreatedAt, &u.UpdatedAt,
			); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan user", "details": err.Error()})
				return
			}
			u.Password = ""
			users = append(users, u)
		}

		c.JSON(http.StatusOK, users)
	}
}

// GetUserHandler fetches one user by ID
// @Summary Get user
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /api/users/{id} [get]
func GetUserHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}

		var u models.User
		err = db.QueryRow(`
			SELECT u.id, u.employee_id, u.email, u.first_name, u.last_name, u.discipline, u.approval_level,
			       u.city, u.state, u.country, u.phone_no, u.role_id, r.role_name, u.is_admin, u.suspended,
			       u.created_at, u.updated_at
			FROM users u JOIN roles r ON u.role_id = r.role_id
			WHERE u.id = $1`, id).Scan(
			&u.ID, &u.EmployeeId, &u.Email, &u.FirstName, &u.LastName, &u.Discipline, &u.ApprovalLevel,
			&u.City, &u.State, &u.Country, &u.PhoneNo, &u.RoleID, &u.RoleName, &u.IsAdmin, &u.Suspended,
			&u.CreatedAt, &u.UpdatedAt,
		)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user", "details": err.Error()})
			return
		}

		u.Password = ""
		c.JSON(http.StatusOK, u)
	}
}

// UpdateUserHandler updates profile fields of a user
// @Summary Update user
// @Tags Users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body models.User true "User fields"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/users/{id} [put]
func UpdateUserHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}

		var user models.User
		if err := c.ShouldBindJSON(&user); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		query := `
			UPDATE users
			SET first_name = $1, last_name = $2, discipline = $3, approval_level = $4,
			    city = $5, state = $6, country = $7, phone_no = $8, role_id = $9, updated_at = NOW()
			WHERE id = $10`
		result, err := db.Exec(query,
			user.FirstName, user.LastName, user.Discipline, user.ApprovalLevel,
			user.City, user.State, user.Country, user.PhoneNo, user.RoleID, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user", "details": err.Error()})
			return
		}

		if n, _ := result.RowsAffected(); n == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "User updated"})
	}
}

// SuspendUserHandler toggles the suspended flag and drops active sessions
// @Summary Suspend or reinstate user
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Param suspend query bool true "true to suspend, false to reinstate"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/users/{id}/suspend [post]
func SuspendUserHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}

		suspend := c.Query("suspend") == "true"
		_, err = db.Exec(`UPDATE users SET suspended = $1, updated_at = NOW() WHERE id = $2`, suspend, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user", "details": err.Error()})
			return
		}

		if suspend {
			if err := storage.DeleteSession(db, id); err != nil {
				log.Printf("[users] failed to drop sessions for suspended user %d: %v", id, err)
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "User updated", "suspended": suspend})
	}
}

// SaveFCMTokenHandler stores a device push token against the user
// @Summary Save FCM token
// @Tags Users
// @Accept json
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/users/fcm-token [post]
func SaveFCMTokenHandler(fcmService *services.FCMService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID int    `json:"user_id" binding:"required"`
			Token  string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}

		if fcmService == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Push notifications are not configured"})
			return
		}

		if err := fcmService.SaveFCMToken(req.UserID, req.Token); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save token", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Token saved"})
	}
}
