package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"backend/utils"

	"github.com/gin-gonic/gin"
)

// GetProjectDashboardHandler returns the project overview counters
// @Summary Project dashboard
// @Description Building/RFI/DDS/saved-calculation counters for the project landing page
// @Tags Dashboard
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {object} object
// @Failure 400 {object} models.ErrorResponse
// @Router /api/projects/{id}/dashboard [get]
func GetProjectDashboardHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
			return
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		var buildingCount, twinCount, floorCount, flatCount int
		err = db.QueryRowContext(ctx, `
			SELECT COUNT(*),
			       COUNT(*) FILTER (WHERE twin_of_building_name IS NOT NULL),
			       (SELECT COUNT(*) FROM floor f JOIN building b2 ON f.building_id = b2.building_id WHERE b2.project_id = $1),
			       (SELECT COUNT(*) FROM flat fl JOIN floor f2 ON fl.floor_id = f2.floor_id
			        JOIN building b3 ON f2.building_id = b3.building_id WHERE b3.project_id = $1)
			FROM building WHERE project_id = $1`, projectID).
			Scan(&buildingCount, &twinCount, &floorCount, &flatCount)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch building counts", "details": err.Error()})
			return
		}

		rfiByStatus := map[string]int{}
		rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM rfi WHERE project_id = $1 GROUP BY status`, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch RFI counts", "details": err.Error()})
			return
		}
		for rows.Next() {
			var status string
			var n int
			if err := rows.Scan(&status, &n); err != nil {
				rows.Close()
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan RFI counts", "details": err.Error()})
				return
			}
			rfiByStatus[status] = n
		}
		rows.Close()

		ddsByLevel := map[string]int{}
		ddsByStatus := map[string]int{}
		rows, err = db.QueryContext(ctx, `SELECT approval_level, status, COUNT(*) FROM dds WHERE project_id = $1 GROUP BY approval_level, status`, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch DDS counts", "details": err.Error()})
			return
		}
		for rows.Next() {
			var level, status string
			var n int
			if err := rows.Scan(&level, &status, &n); err != nil {
				rows.Close()
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan DDS counts", "details": err.Error()})
				return
			}
			ddsByLevel[level] += n
			ddsByStatus[status] += n
		}
		rows.Close()

		var overdueRFI int
		if err := db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM rfi
			WHERE project_id = $1 AND status = 'Open' AND due_date < CURRENT_DATE`, projectID).Scan(&overdueRFI); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch overdue RFIs", "details": err.Error()})
			return
		}

		var savedCalcs int
		var latestCalc sql.NullString
		if err := db.QueryRowContext(ctx, `
			SELECT COUNT(*), MAX(name) FILTER (WHERE updated_at = (SELECT MAX(updated_at) FROM saved_calculations WHERE project_id = $1))
			FROM saved_calculations WHERE project_id = $1`, projectID).Scan(&savedCalcs, &latestCalc); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch saved calculations", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"buildings": gin.H{
				"total":  buildingCount,
				"twins":  twinCount,
				"floors": floorCount,
				"flats":  flatCount,
			},
			"rfi": gin.H{
				"by_status": rfiByStatus,
				"overdue":   overdueRFI,
			},
			"dds": gin.H{
				"by_approval_level": ddsByLevel,
				"by_status":         ddsByStatus,
			},
			"saved_calculations": gin.H{
				"total":  savedCalcs,
				"latest": latestCalc.String,
			},
		})
	}
}
