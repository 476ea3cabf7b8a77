package handlers

import (
	"backend/models"
	"backend/repository"
	"backend/services"
	"context"
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// CreateRFIHandler raises an RFI against a project
// @Summary Raise RFI
// @Description Create an RFI; the number is generated as RFI/{project code}/{seq}
// @Tags RFI
// @Accept json
// @Produce json
// @Param request body models.RFI true "RFI"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/rfi [post]
func CreateRFIHandler(db *sql.DB, emailService *services.EmailService, fcmService *services.FCMService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rfi models.RFI
		if err := c.ShouldBindJSON(&rfi); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		if rfi.ProjectID == 0 || rfi.Subject == "" || rfi.Question == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Project ID, subject and question are required"})
			return
		}

		code, err := repository.FetchProjectCode(db, rfi.ProjectID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found", "details": err.Error()})
			return
		}
		seq, err := repository.NextRFISequence(db, rfi.ProjectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to allocate RFI number", "details": err.Error()})
			return
		}
		rfi.RFINumber = repository.GenerateRFINumber(code, seq)
		rfi.Status = "Open"

		err = db.QueryRow(`
			INSERT INTO rfi (rfi_number, project_id, discipline, subject, question, status, raised_by, assigned_to, due_date, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
			RETURNING rfi_id`,
			rfi.RFINumber, rfi.ProjectID, rfi.Discipline, rfi.Subject, rfi.Question,
			rfi.Status, rfi.RaisedBy, rfi.AssignedTo, rfi.DueDate,
		).Scan(&rfi.RFIID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create RFI", "details": err.Error()})
			return
		}

		// Notifications are best-effort.
		go notifyRFIAssigned(db, emailService, fcmService, rfi)

		c.JSON(http.StatusCreated, gin.H{"message": "RFI raised", "rfi_id": rfi.RFIID, "rfi_number": rfi.RFINumber})
	}
}

func notifyRFIAssigned(db *sql.DB, emailService *services.EmailService, fcmService *services.FCMService, rfi models.RFI) {
	if rfi.AssignedTo == 0 {
		return
	}

	var assignee models.User
	err := db.QueryRow(`SELECT id, email, first_name, last_name FROM users WHERE id = $1`, rfi.AssignedTo).
		Scan(&assignee.ID, &assignee.Email, &assignee.FirstName, &assignee.LastName)
	if err != nil {
		log.Printf("[rfi] failed to load assignee %d: %v", rfi.AssignedTo, err)
		return
	}

	var projectName string
	if err := db.QueryRow(`SELECT name FROM project WHERE project_id = $1`, rfi.ProjectID).Scan(&projectName); err != nil {
		log.Printf("[rfi] failed to load project %d: %v", rfi.ProjectID, err)
	}

	if emailService != nil {
		if err := emailService.SendRFIRaisedEmail(assignee, projectName, rfi, nil); err != nil {
			log.Printf("[rfi] email for %s failed: %v", rfi.RFINumber, err)
		}
	}
	if fcmService != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := fcmService.NotifyRFIAssigned(ctx, rfi); err != nil {
			log.Printf("[rfi] push for %s failed: %v", rfi.RFINumber, err)
		}
	}
}

// GetProjectRFIsHandler lists a project's RFIs
// @Summary List RFIs
// @Tags RFI
// @Produce json
// @Param id path int true "Project ID"
// @Param status query string false "Filter by status"
// @Success 200 {array} models.RFI
// @Failure 400 {object} models.ErrorResponse
// @Router /api/projects/{id}/rfi [get]
func GetProjectRFIsHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
			return
		}

		query := `
			SELECT r.rfi_id, r.rfi_number, r.project_id, r.discipline, r.subject, r.question,
			       COALESCE(r.response, ''), r.status, r.raised_by,
			       COALESCE(u.first_name || ' ' || u.last_name, ''),
			       r.assigned_to, r.due_date, r.created_at, r.responded_at, r.closed_at
			FROM rfi r LEFT JOIN users u ON r.raised_by = u.id
			WHERE r.project_id = $1`
		args := []interface{}{projectID}

		if status := c.Query("status"); status != "" {
			query += ` AND r.status = $2`
			args = append(args, status)
		}
		query += ` ORDER BY r.rfi_id DESC`

		rows, err := db.Query(query, args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch RFIs", "details": err.Error()})
			return
		}
		defer rows.Close()

		rfis := []models.RFI{}
		for rows.Next() {
			var r models.RFI
			if err := rows.Scan(
				&r.RFIID, &r.RFINumber, &r.ProjectID, &r.Discipline, &r.Subject, &r.Question,
				&r.Response, &r.Status, &r.RaisedBy, &r.RaisedByName,
				&r.AssignedTo, &r.DueDate, &r.CreatedAt, &r.RespondedAt, &r.ClosedAt,
			); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan RFI", "details": err.Error()})
				return
			}
			rfis = append(rfis, r)
		}

		c.JSON(http.StatusOK, rfis)
	}
}

// RespondRFIHandler records a response on an open RFI
// @Summary Respond to RFI
// @Tags RFI
// @Accept json
// @Produce json
// @Param rfi_id path int true "RFI ID"
// @Param request body models.RFIRespondRequest true "Response"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/rfi_respond/{rfi_id} [post]
func RespondRFIHandler(db *sql.DB, emailService *services.EmailService) gin.HandlerFunc {
	return func(c *gin.Context) {
		rfiID, err := strconv.Atoi(c.Param("rfi_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid RFI ID"})
			return
		}

		var req models.RFIRespondRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		status := "Responded"
		if req.Close {
			status = "Closed"
		}

		var closedAt interface{}
		if req.Close {
			closedAt = time.Now()
		}

		result, err := db.Exec(`
			UPDATE rfi SET response = $1, status = $2, responded_at = NOW(), closed_at = $3
			WHERE rfi_id = $4 AND status <> 'Closed'`,
			req.Response, status, closedAt, rfiID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update RFI", "details": err.Error()})
			return
		}
		if n, _ := result.RowsAffected(); n == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "RFI not found or already closed"})
			return
		}

		// Notify the raiser.
		go func() {
			var rfi models.RFI
			var raiser models.User
			var projectName string
			err := db.QueryRow(`
				SELECT r.rfi_number, r.project_id, r.discipline, r.subject,
				       u.id, u.email, u.first_name, u.last_name, p.name
				FROM rfi r
				JOIN users u ON r.raised_by = u.id
				JOIN project p ON r.project_id = p.project_id
				WHERE r.rfi_id = $1`, rfiID).Scan(
				&rfi.RFINumber, &rfi.ProjectID, &rfi.Discipline, &rfi.Subject,
				&raiser.ID, &raiser.Email, &raiser.FirstName, &raiser.LastName, &projectName)
			if err != nil {
				log.Printf("[rfi] failed to load RFI %d for notification: %v", rfiID, err)
				return
			}
			if emailService != nil {
				if err := emailService.SendRFIRespondedEmail(raiser, projectName, rfi, nil); err != nil {
					log.Printf("[rfi] response email for %s failed: %v", rfi.RFINumber, err)
				}
			}
		}()

		c.JSON(http.StatusOK, gin.H{"message": "RFI updated", "status": status})
	}
}
