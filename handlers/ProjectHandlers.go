package handlers

import (
	"backend/models"
	"backend/repository"
	"backend/utils"
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// CreateProjectHandler creates a project
// @Summary Create project
// @Description Create a project with MSEDCL area type classification
// @Tags Projects
// @Accept json
// @Produce json
// @Param request body models.Project true "Project"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/projects [post]
func CreateProjectHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var project models.Project
		if err := c.ShouldBindJSON(&project); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		if project.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Project name is required"})
			return
		}
		if project.Code == "" {
			project.Code = repository.GenerateRandomCode()
		}
		if project.AreaType == "" {
			project.AreaType = "URBAN"
		}

		query := `
			INSERT INTO project (name, code, priority, project_status, area_type, start_date, end_date,
			                     description, client_name, created_by, suspend,
			                     subscription_start_date, subscription_end_date, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, $11, $12, NOW(), NOW())
			RETURNING project_id`
		err := db.QueryRow(query,
			project.Name, project.Code, project.Priority, project.ProjectStatus, project.AreaType,
			project.StartDate, project.EndDate, project.Description, project.ClientName,
			project.CreatedBy, project.SubscriptionStartDate, project.SubscriptionEndDate,
		).Scan(&project.ProjectId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "Project created", "project_id": project.ProjectId, "code": project.Code})
	}
}

// GetProjectsHandler lists projects
// @Summary List projects
// @Tags Projects
// @Produce json
// @Success 200 {array} models.Project
// @Failure 500 {object} models.ErrorResponse
// @Router /api/projects [get]
func GetProjectsHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		rows, err := db.QueryContext(ctx, `
			SELECT project_id, name, code, priority, project_status, area_type, start_date, end_date,
			       description, client_name, created_at, updated_at, created_by, suspend,
			       subscription_start_date, subscription_end_date
			FROM project
			ORDER BY project_id`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch projects", "details": err.Error()})
			return
		}
		defer rows.Close()

		projects := []models.Project{}
		for rows.Next() {
			var p models.Project
			if err := rows.Scan(
				&p.ProjectId, &p.Name, &p.Code, &p.Priority, &p.ProjectStatus, &p.AreaType,
				&p.StartDate, &p.EndDate, &p.Description, &p.ClientName, &p.CreatedAt, &p.UpdatedAt,
				&p.CreatedBy, &p.Suspend, &p.SubscriptionStartDate, &p.SubscriptionEndDate,
			); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan project", "details": err.Error()})
				return
			}
			projects = append(projects, p)
		}

		c.JSON(http.StatusOK, projects)
	}
}

// GetProjectHandler fetches one project
// @Summary Get project
// @Tags Projects
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {object} models.Project
// @Failure 404 {object} models.ErrorResponse
// @Router /api/projects/{id} [get]
func GetProjectHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
			return
		}

		var p models.Project
		err = db.QueryRow(`
			SELECT project_id, name, code, priority, project_status, area_type, start_date, end_date,
			       description, client_name, created_at, updated_at, created_by, suspend,
			       subscription_start_date, subscription_end_date
			FROM project WHERE project_id = $1`, id).Scan(
			&p.ProjectId, &p.Name, &p.Code, &p.Priority, &p.ProjectStatus, &p.AreaType,
			&p.StartDate, &p.EndDate, &p.Description, &p.ClientName, &p.CreatedAt, &p.UpdatedAt,
			&p.CreatedBy, &p.Suspend, &p.SubscriptionStartDate, &p.SubscriptionEndDate,
		)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch project", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, p)
	}
}

// UpdateProjectHandler updates a project
// @Summary Update project
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path int true "Project ID"
// @Param request body models.Project true "Project fields"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/projects/{id} [put]
func UpdateProjectHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
			return
		}

		var project models.Project
		if err := c.ShouldBindJSON(&project); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		query := `
			UPDATE project
			SET name = $1, priority = $2, project_status = $3, area_type = $4, start_date = $5,
			    end_date = $6, description = $7, client_name = $8, suspend = $9, updated_at = NOW()
			WHERE project_id = $10`
		result, err := db.Exec(query,
			project.Name, project.Priority, project.ProjectStatus, project.AreaType,
			project.StartDate, project.EndDate, project.Description, project.ClientName,
			project.Suspend, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project", "details": err.Error()})
			return
		}

		if n, _ := result.RowsAffected(); n == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Project updated"})
	}
}

// DeleteProjectHandler removes a project and its hierarchy
// @Summary Delete project
// @Tags Projects
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/projects/{id} [delete]
func DeleteProjectHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
			return
		}

		tx, err := db.Begin()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction", "details": err.Error()})
			return
		}
		defer tx.Rollback()

		// Children first: flats -> floors -> buildings -> societies -> project.
		statements := []string{
			`DELETE FROM flat WHERE floor_id IN (SELECT floor_id FROM floor WHERE building_id IN (SELECT building_id FROM building WHERE project_id = $1))`,
			`DELETE FROM floor WHERE building_id IN (SELECT building_id FROM building WHERE project_id = $1)`,
			`DELETE FROM building WHERE project_id = $1`,
			`DELETE FROM society WHERE project_id = $1`,
			`DELETE FROM rfi WHERE project_id = $1`,
			`DELETE FROM dds WHERE project_id = $1`,
			`DELETE FROM saved_calculations WHERE project_id = $1`,
			`DELETE FROM project WHERE project_id = $1`,
		}
		for _, stmt := range statements {
			if _, err := tx.Exec(stmt, id); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project", "details": err.Error()})
				return
			}
		}

		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
	}
}
