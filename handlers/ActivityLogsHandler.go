package handlers

import (
	"backend/models"
	"database/sql"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetSessionDetails resolves a session token to its session row and the
// display name of its user.
func GetSessionDetails(db *sql.DB, sessionID string) (models.Session, string, error) {
	var session models.Session
	var userName string

	query := `
        SELECT s.user_id, CONCAT(u.first_name, ' ', u.last_name) AS user_name, s.host_name, s.ip_address
        FROM session s
        JOIN users u ON s.user_id = u.id
        WHERE s.session_id = $1`

	err := db.QueryRow(query, sessionID).Scan(
		&session.UserID,
		&userName,
		&session.HostName,
		&session.IPAddress,
	)
	if err != nil {
		return models.Session{}, "", err
	}
	return session, userName, nil
}

// SaveActivityLog appends one audit trail row.
func SaveActivityLog(db *sql.DB, log models.ActivityLog) error {
	query := `
    INSERT INTO activity_logs (
        created_at, user_name, host_name, event_context, ip_address,
        description, event_name, affected_user_name, affected_user_email, project_id
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := db.Exec(query,
		log.CreatedAt, log.UserName, log.HostName, log.EventContext, log.IPAddress,
		log.Description, log.EventName, log.AffectedUserName, log.AffectedUserEmail, log.ProjectID,
	)
	return err
}

func scanActivityLog(rows *sql.Rows) (models.ActivityLog, error) {
	var (
		entry             models.ActivityLog
		userName          sql.NullString
		hostName          sql.NullString
		eventContext      sql.NullString
		ipAddress         sql.NullString
		description       sql.NullString
		eventName         sql.NullString
		affectedUserName  sql.NullString
		affectedUserEmail sql.NullString
		projectID         sql.NullInt64
	)

	err := rows.Scan(
		&entry.ID, &entry.CreatedAt, &userName, &hostName, &eventContext, &ipAddress,
		&description, &eventName, &affectedUserName, &affectedUserEmail, &projectID,
	)
	if err != nil {
		return entry, err
	}

	entry.UserName = userName.String
	entry.HostName = hostName.String
	entry.EventContext = eventContext.String
	entry.IPAddress = ipAddress.String
	entry.Description = description.String
	entry.EventName = eventName.String
	entry.AffectedUserName = affectedUserName.String
	entry.AffectedUserEmail = affectedUserEmail.String
	entry.ProjectID = int(projectID.Int64)
	return entry, nil
}

// GetActivityLogsHandler godoc
// @Summary      Get activity logs
// @Tags         activity-logs
// @Param        page   query  int  false  "Page"
// @Param        limit  query  int  false  "Limit"
// @Success      200    {object}  object
// @Router       /api/logs [get]
func GetActivityLogsHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			page = 1
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
		if err != nil || limit < 1 {
			limit = 10
		}
		offset := (page - 1) * limit

		var totalRecords int
		if err := db.QueryRow(`SELECT COUNT(*) FROM activity_logs`).Scan(&totalRecords); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error counting logs"})
			return
		}

		totalPages := int(math.Ceil(float64(totalRecords) / float64(limit)))

		rows, err := db.Query(`
			SELECT id, created_at, user_name, host_name, event_context, ip_address,
				   description, event_name, affected_user_name, affected_user_email, project_id
			FROM activity_logs
			ORDER BY created_at DESC
			LIMIT $1 OFFSET $2`, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying logs"})
			return
		}
		defer rows.Close()

		var logs []models.ActivityLog
		for rows.Next() {
			entry, err := scanActivityLog(rows)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error scanning logs"})
				return
			}
			logs = append(logs, entry)
		}

		c.JSON(http.StatusOK, gin.H{
			"logs": logs,
			"pagination": gin.H{
				"current_page":  page,
				"page_size":     limit,
				"total_records": totalRecords,
				"total_pages":   totalPages,
				"has_next":      page < totalPages,
				"has_prev":      page > 1,
			},
		})
	}
}

// SearchActivityLogsHandler godoc
// @Summary      Search activity logs
// @Description  Filter the audit trail by user, project, event context or event name
// @Tags         activity-logs
// @Success      200  {object}  object
// @Router       /api/log/search [get]
func SearchActivityLogsHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := map[string]string{
			"user_name":           c.Query("user_name"),
			"event_context":       c.Query("event_context"),
			"event_name":          c.Query("event_name"),
			"affected_user_email": c.Query("affected_user_email"),
			"project_id":          c.Query("project_id"),
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 10
		}
		offset := (page - 1) * limit

		whereClauses := []string{}
		args := []interface{}{}
		argIndex := 1

		for key, value := range filters {
			strVal := strings.TrimSpace(value)
			if strVal == "" {
				continue
			}

			if key == "project_id" {
				val, err := strconv.Atoi(strVal)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project_id"})
					return
				}
				whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", key, argIndex))
				args = append(args, val)
			} else {
				whereClauses = append(whereClauses, fmt.Sprintf("%s ILIKE $%d", key, argIndex))
				args = append(args, "%"+strVal+"%")
			}
			argIndex++
		}

		countQuery := `SELECT COUNT(*) FROM activity_logs`
		if len(whereClauses) > 0 {
			countQuery += " WHERE " + strings.Join(whereClauses, " AND ")
		}

		var totalRecords int
		if err := db.QueryRow(countQuery, args...).Scan(&totalRecords); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error counting logs"})
			return
		}

		totalPages := int(math.Ceil(float64(totalRecords) / float64(limit)))

		selectQuery := `
			SELECT id, created_at, user_name, host_name, event_context, ip_address,
				   description, event_name, affected_user_name, affected_user_email, project_id
			FROM activity_logs`
		if len(whereClauses) > 0 {
			selectQuery += " WHERE " + strings.Join(whereClauses, " AND ")
		}
		selectQuery += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, limit, offset)

		rows, err := db.Query(selectQuery, args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error searching logs"})
			return
		}
		defer rows.Close()

		var logs []models.ActivityLog
		for rows.Next() {
			entry, err := scanActivityLog(rows)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error scanning logs"})
				return
			}
			logs = append(logs, entry)
		}

		c.JSON(http.StatusOK, gin.H{
			"logs": logs,
			"pagination": gin.H{
				"current_page":  page,
				"page_size":     limit,
				"total_records": totalRecords,
				"total_pages":   totalPages,
				"has_next":      page < totalPages,
				"has_prev":      page > 1,
			},
		})
	}
}
