package handlers

import (
	"backend/models"
	"backend/repository"
	"backend/services"
	"backend/storage"
	"context"
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// approvalRank orders the drawing approval ladder L0 -> L1 -> L2.
var approvalRank = map[string]int{"L0": 0, "L1": 1, "L2": 2}

// CreateDDSHandler adds a drawing delivery schedule row
// @Summary Create DDS entry
// @Tags DDS
// @Accept json
// @Produce json
// @Param request body models.DDS true "DDS entry"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/dds [post]
func CreateDDSHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var dds models.DDS
		if err := c.ShouldBindJSON(&dds); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		if dds.ProjectID == 0 || dds.DrawingNumber == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Project ID and drawing number are required"})
			return
		}
		if dds.ApprovalLevel == "" {
			dds.ApprovalLevel = "L0"
		}
		if dds.Status == "" {
			dds.Status = "Pending"
		}

		// A new row for an already-scheduled drawing number is a resubmission
		// and advances the revision code.
		var lastRevision string
		err := db.QueryRow(`
			SELECT revision FROM dds
			WHERE project_id = $1 AND drawing_number = $2
			ORDER BY dds_id DESC LIMIT 1`,
			dds.ProjectID, dds.DrawingNumber).Scan(&lastRevision)
		if err != nil && err != sql.ErrNoRows {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up previous revision", "details": err.Error()})
			return
		}
		dds.Revision, err = repository.GenerateRevisionCode(lastRevision)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to derive revision code", "details": err.Error()})
			return
		}

		err = db.QueryRow(`
			INSERT INTO dds (project_id, drawing_number, title, discipline, planned_date, revision, approval_level, status, remarks, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
			RETURNING dds_id`,
			dds.ProjectID, dds.DrawingNumber, dds.Title, dds.Discipline,
			dds.PlannedDate, dds.Revision, dds.ApprovalLevel, dds.Status, dds.Remarks,
		).Scan(&dds.DDSID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create DDS entry", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "DDS entry created", "dds_id": dds.DDSID, "revision": dds.Revision})
	}
}

// GetProjectDDSHandler lists a project's drawing delivery schedule
// @Summary List DDS entries
// @Tags DDS
// @Produce json
// @Param id path int true "Project ID"
// @Param discipline query string false "Filter by discipline"
// @Success 200 {array} models.DDS
// @Failure 400 {object} models.ErrorResponse
// @Router /api/projects/{id}/dds [get]
func GetProjectDDSHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
			return
		}

		query := `
			SELECT dds_id, project_id, drawing_number, title, discipline, planned_date, actual_date,
			       revision, approval_level, status, COALESCE(remarks, ''), created_at, updated_at
			FROM dds WHERE project_id = $1`
		args := []interface{}{projectID}

		if discipline := c.Query("discipline"); discipline != "" {
			query += ` AND discipline = $2`
			args = append(args, discipline)
		}
		query += ` ORDER BY planned_date, dds_id`

		rows, err := db.Query(query, args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch DDS", "details": err.Error()})
			return
		}
		defer rows.Close()

		entries := []models.DDS{}
		for rows.Next() {
			var d models.DDS
			if err := rows.Scan(
				&d.DDSID, &d.ProjectID, &d.DrawingNumber, &d.Title, &d.Discipline,
				&d.PlannedDate, &d.ActualDate, &d.Revision, &d.ApprovalLevel, &d.Status, &d.Remarks,
				&d.CreatedAt, &d.UpdatedAt,
			); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan DDS entry", "details": err.Error()})
				return
			}
			entries = append(entries, d)
		}

		c.JSON(http.StatusOK, entries)
	}
}

// ApproveDDSHandler advances a drawing's approval level
// @Summary Approve drawing
// @Description Advance a DDS row one level up the L0 -> L1 -> L2 ladder. The
// caller's own approval level must be at least the requested level.
// @Tags DDS
// @Accept json
// @Produce json
// @Param dds_id path int true "DDS ID"
// @Param Authorization header string true "Bearer token"
// @Param request body models.DDSApproveRequest true "Approval"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/dds_approve/{dds_id} [post]
func ApproveDDSHandler(db *sql.DB, emailService *services.EmailService, fcmService *services.FCMService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ddsID, err := strconv.Atoi(c.Param("dds_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid DDS ID"})
			return
		}

		var req models.DDSApproveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		requestedRank, ok := approvalRank[req.ApprovalLevel]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Approval level must be L0, L1 or L2"})
			return
		}

		// The approver is identified by their session token.
		token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		approver, err := storage.GetUserBySessionID(db, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
			return
		}
		if approvalRank[approver.ApprovalLevel] < requestedRank {
			c.JSON(http.StatusForbidden, gin.H{"error": "Your approval level does not permit this action", "your_level": approver.ApprovalLevel})
			return
		}

		var dds models.DDS
		err = db.QueryRow(`SELECT dds_id, project_id, drawing_number, title, discipline, approval_level FROM dds WHERE dds_id = $1`, ddsID).
			Scan(&dds.DDSID, &dds.ProjectID, &dds.DrawingNumber, &dds.Title, &dds.Discipline, &dds.ApprovalLevel)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "DDS entry not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch DDS entry", "details": err.Error()})
			return
		}

		// Approvals only move up the ladder, one level at a time.
		currentRank := approvalRank[dds.ApprovalLevel]
		if requestedRank != currentRank+1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":         "Approval must advance exactly one level",
				"current_level": dds.ApprovalLevel,
			})
			return
		}

		status := "In Approval"
		if req.ApprovalLevel == "L2" {
			status = "Approved"
		}

		_, err = db.Exec(`
			UPDATE dds SET approval_level = $1, status = $2, remarks = $3, actual_date = CURRENT_DATE, updated_at = NOW()
			WHERE dds_id = $4`,
			req.ApprovalLevel, status, req.Remarks, ddsID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve", "details": err.Error()})
			return
		}

		dds.ApprovalLevel = req.ApprovalLevel
		go notifyDDSApproved(db, emailService, fcmService, dds)

		c.JSON(http.StatusOK, gin.H{"message": "Drawing approved", "approval_level": req.ApprovalLevel, "status": status})
	}
}

func notifyDDSApproved(db *sql.DB, emailService *services.EmailService, fcmService *services.FCMService, dds models.DDS) {
	var projectName string
	if err := db.QueryRow(`SELECT name FROM project WHERE project_id = $1`, dds.ProjectID).Scan(&projectName); err != nil {
		log.Printf("[dds] failed to load project %d: %v", dds.ProjectID, err)
	}

	// Everyone in the drawing's discipline on this project hears about it.
	rows, err := db.Query(`
		SELECT u.id, u.email, u.first_name, u.last_name
		FROM users u
		WHERE u.discipline = $1 AND u.suspended = FALSE`, dds.Discipline)
	if err != nil {
		log.Printf("[dds] failed to load discipline users: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName); err != nil {
			continue
		}
		if emailService != nil {
			if err := emailService.SendDDSApprovalEmail(u, projectName, dds, nil); err != nil {
				log.Printf("[dds] approval email for %s to %s failed: %v", dds.DrawingNumber, u.Email, err)
			}
		}
		if fcmService != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := fcmService.NotifyDDSApproved(ctx, u.ID, dds); err != nil {
				log.Printf("[dds] push for %s failed: %v", dds.DrawingNumber, err)
			}
			cancel()
		}
	}
}
