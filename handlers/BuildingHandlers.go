package handlers

import (
	"backend/models"
	"backend/repository"
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateBuildingHandler creates a building with its floor/flat tree
// @Summary Create building
// @Description Create a building; floors and flats in the body are created with it
// @Tags Buildings
// @Accept json
// @Produce json
// @Param request body models.Building true "Building"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/buildings [post]
func CreateBuildingHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var b models.Building
		if err := c.ShouldBindJSON(&b); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		if b.Name == "" || b.ProjectID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Project ID and building name are required"})
			return
		}

		// Twin buildings carry no floors of their own.
		if b.TwinOfBuildingName != nil && len(b.Floors) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A twin building must not carry floors; it inherits the parent layout"})
			return
		}

		if b.BuildingID == "" {
			b.BuildingID = uuid.NewString()
		}

		tx, err := db.Begin()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction", "details": err.Error()})
			return
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT INTO building (building_id, project_id, name, application_type, twin_of_building_name, society_id,
			                      gf_entrance_lobby_area, passenger_lifts, passenger_fire_lifts, firemen_lifts,
			                      staircase_count, parking_count, parking_area, mech_ventilation,
			                      booster_pump_kw, sewage_pump_kw, wet_riser_pump_kw,
			                      pump_working_sets, pump_standby_sets, villa_units, villa_area_sqm)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
			b.BuildingID, b.ProjectID, b.Name, b.ApplicationType, b.TwinOfBuildingName, b.SocietyID,
			b.GFEntranceLobbyArea, b.PassengerLifts, b.PassengerFireLifts, b.FiremenLifts,
			b.StaircaseCount, b.ParkingCount, b.ParkingArea, b.MechVentilation,
			b.BoosterPumpKW, b.SewagePumpKW, b.WetRiserPumpKW,
			b.PumpWorkingSets, b.PumpStandbySets, b.VillaUnits, b.VillaAreaSqm)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create building", "details": err.Error()})
			return
		}

		for i := range b.Floors {
			fl := &b.Floors[i]
			if fl.FloorID == "" {
				fl.FloorID = uuid.NewString()
			}
			if fl.Sequence == 0 {
				fl.Sequence = i + 1
			}
			_, err = tx.Exec(`
				INSERT INTO floor (floor_id, building_id, sequence, name, height_m, twin_of_floor_name, lobby_area)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				fl.FloorID, b.BuildingID, fl.Sequence, fl.Name, fl.HeightM, fl.TwinOfFloorName, fl.LobbyArea)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create floor", "details": err.Error()})
				return
			}

			for j := range fl.Flats {
				u := &fl.Flats[j]
				if u.FlatID == "" {
					u.FlatID = uuid.NewString()
				}
				_, err = tx.Exec(`
					INSERT INTO flat (flat_id, floor_id, flat_type, area_sqm, count)
					VALUES ($1, $2, $3, $4, $5)`,
					u.FlatID, fl.FloorID, u.FlatType, u.AreaSqm, u.Count)
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create flat", "details": err.Error()})
					return
				}
			}
		}

		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "Building created", "building_id": b.BuildingID})
	}
}

// GetProjectBuildingsHandler lists a project's buildings with their trees
// @Summary List project buildings
// @Tags Buildings
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {array} models.Building
// @Failure 400 {object} models.ErrorResponse
// @Router /api/projects/{id}/buildings [get]
func GetProjectBuildingsHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
			return
		}

		buildings, err := repository.FetchProjectBuildings(db, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch buildings", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, buildings)
	}
}

// GetBuildingHandler fetches one building with floors and flats
// @Summary Get building
// @Tags Buildings
// @Produce json
// @Param building_id path string true "Building ID"
// @Success 200 {object} models.Building
// @Failure 404 {object} models.ErrorResponse
// @Router /api/buildings/{building_id} [get]
func GetBuildingHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		buildingID := c.Param("building_id")
		if buildingID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Building ID is required"})
			return
		}

		b, err := repository.FetchBuildingWithFloors(db, buildingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Building not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch building", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, b)
	}
}

// UpdateBuildingHandler replaces a building's fields and tree
// @Summary Update building
// @Description Update building fields; if floors are present in the body the whole tree is replaced
// @Tags Buildings
// @Accept json
// @Produce json
// @Param building_id path string true "Building ID"
// @Param request body models.Building true "Building"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/buildings/{building_id} [put]
func UpdateBuildingHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		buildingID := c.Param("building_id")

		var b models.Building
		if err := c.ShouldBindJSON(&b); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		tx, err := db.Begin()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction", "details": err.Error()})
			return
		}
		defer tx.Rollback()

		result, err := tx.Exec(`
			UPDATE building
			SET name = $1, application_type = $2, gf_entrance_lobby_area = $3,
			    passenger_lifts = $4, passenger_fire_lifts = $5, firemen_lifts = $6,
			    staircase_count = $7, parking_count = $8, parking_area = $9, mech_ventilation = $10,
			    booster_pump_kw = $11, sewage_pump_kw = $12, wet_riser_pump_kw = $13,
			    pump_working_sets = $14, pump_standby_sets = $15, villa_units = $16, villa_area_sqm = $17
			WHERE building_id = $18`,
			b.Name, b.ApplicationType, b.GFEntranceLobbyArea,
			b.PassengerLifts, b.PassengerFireLifts, b.FiremenLifts,
			b.StaircaseCount, b.ParkingCount, b.ParkingArea, b.MechVentilation,
			b.BoosterPumpKW, b.SewagePumpKW, b.WetRiserPumpKW,
			b.PumpWorkingSets, b.PumpStandbySets, b.VillaUnits, b.VillaAreaSqm,
			buildingID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update building", "details": err.Error()})
			return
		}
		if n, _ := result.RowsAffected(); n == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Building not found"})
			return
		}

		if len(b.Floors) > 0 {
			_, err = tx.Exec(`DELETE FROM flat WHERE floor_id IN (SELECT floor_id FROM floor WHERE building_id = $1)`, buildingID)
			if err == nil {
				_, err = tx.Exec(`DELETE FROM floor WHERE building_id = $1`, buildingID)
			}
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to replace floors", "details": err.Error()})
				return
			}

			for i := range b.Floors {
				fl := &b.Floors[i]
				if fl.FloorID == "" {
					fl.FloorID = uuid.NewString()
				}
				if fl.Sequence == 0 {
					fl.Sequence = i + 1
				}
				_, err = tx.Exec(`
					INSERT INTO floor (floor_id, building_id, sequence, name, height_m, twin_of_floor_name, lobby_area)
					VALUES ($1, $2, $3, $4, $5, $6, $7)`,
					fl.FloorID, buildingID, fl.Sequence, fl.Name, fl.HeightM, fl.TwinOfFloorName, fl.LobbyArea)
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create floor", "details": err.Error()})
					return
				}
				for j := range fl.Flats {
					u := &fl.Flats[j]
					if u.FlatID == "" {
						u.FlatID = uuid.NewString()
					}
					_, err = tx.Exec(`
						INSERT INTO flat (flat_id, floor_id, flat_type, area_sqm, count)
						VALUES ($1, $2, $3, $4, $5)`,
						u.FlatID, fl.FloorID, u.FlatType, u.AreaSqm, u.Count)
					if err != nil {
						c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create flat", "details": err.Error()})
						return
					}
				}
			}
		}

		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Building updated"})
	}
}

// DeleteBuildingHandler removes a building and clears twin links pointing at it
// @Summary Delete building
// @Tags Buildings
// @Produce json
// @Param building_id path string true "Building ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/buildings/{building_id} [delete]
func DeleteBuildingHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		buildingID := c.Param("building_id")

		tx, err := db.Begin()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction", "details": err.Error()})
			return
		}
		defer tx.Rollback()

		// Twins referencing the deleted parent become standalone shells; the
		// next calculation will reject them until re-pointed.
		_, err = tx.Exec(`
			UPDATE building SET twin_of_building_name = NULL
			WHERE project_id = (SELECT project_id FROM building WHERE building_id = $1)
			  AND twin_of_building_name = (SELECT name FROM building WHERE building_id = $1)`, buildingID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear twin links", "details": err.Error()})
			return
		}

		_, err = tx.Exec(`DELETE FROM flat WHERE floor_id IN (SELECT floor_id FROM floor WHERE building_id = $1)`, buildingID)
		if err == nil {
			_, err = tx.Exec(`DELETE FROM floor WHERE building_id = $1`, buildingID)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete floors", "details": err.Error()})
			return
		}

		result, err := tx.Exec(`DELETE FROM building WHERE building_id = $1`, buildingID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete building", "details": err.Error()})
			return
		}
		if n, _ := result.RowsAffected(); n == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Building not found"})
			return
		}

		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Building deleted"})
	}
}

// SetTwinBuildingHandler links or clears a building's twin parent
// @Summary Set twin-of link
// @Description Mark a building as a twin of a non-twin building in the same project; an empty parent_name clears the link
// @Tags Buildings
// @Accept json
// @Produce json
// @Param building_id path string true "Building ID"
// @Param request body models.TwinAssignRequest true "Twin assignment"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/buildings/{building_id}/twin [post]
func SetTwinBuildingHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		buildingID := c.Param("building_id")

		var req models.TwinAssignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		var projectID int
		err := db.QueryRow(`SELECT project_id FROM building WHERE building_id = $1`, buildingID).Scan(&projectID)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Building not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch building", "details": err.Error()})
			return
		}

		// Clearing the link.
		if req.ParentName == "" {
			_, err := db.Exec(`UPDATE building SET twin_of_building_name = NULL WHERE building_id = $1`, buildingID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear twin link", "details": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Twin link cleared"})
			return
		}

		// The parent must exist in the project and must not itself be a twin.
		var parentID string
		var parentTwin *string
		err = db.QueryRow(`SELECT building_id, twin_of_building_name FROM building WHERE project_id = $1 AND name = $2`,
			projectID, req.ParentName).Scan(&parentID, &parentTwin)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Parent building not found in project"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up parent", "details": err.Error()})
			return
		}
		if parentTwin != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Parent is itself a twin; twin chains are not allowed"})
			return
		}
		if parentID == buildingID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A building cannot be its own twin"})
			return
		}

		// The twin must not carry floors of its own.
		var floorCount int
		if err := db.QueryRow(`SELECT COUNT(*) FROM floor WHERE building_id = $1`, buildingID).Scan(&floorCount); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check floors", "details": err.Error()})
			return
		}
		if floorCount > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Building has floors of its own; delete them before marking it a twin"})
			return
		}

		_, err = db.Exec(`UPDATE building SET twin_of_building_name = $1 WHERE building_id = $2`,
			req.ParentName, buildingID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set twin link", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Twin link set", "parent_name": req.ParentName})
	}
}

// AssignSocietyHandler attaches a building to a society
// @Summary Assign building to society
// @Tags Buildings
// @Accept json
// @Produce json
// @Param building_id path string true "Building ID"
// @Param request body models.SocietyAssignRequest true "Society assignment"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/buildings/{building_id}/society [post]
func AssignSocietyHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		buildingID := c.Param("building_id")

		var req models.SocietyAssignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		var projectID int
		err := db.QueryRow(`SELECT project_id FROM building WHERE building_id = $1`, buildingID).Scan(&projectID)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Building not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch building", "details": err.Error()})
			return
		}

		// The society must belong to the building's own project.
		var exists bool
		err = db.QueryRow(`SELECT EXISTS(SELECT 1 FROM society WHERE society_id = $1 AND project_id = $2)`,
			req.SocietyID, projectID).Scan(&exists)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check society", "details": err.Error()})
			return
		}
		if !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": "Society not found in project"})
			return
		}

		_, err = db.Exec(`UPDATE building SET society_id = $1 WHERE building_id = $2`, req.SocietyID, buildingID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign society", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Society assigned"})
	}
}

// CreateSocietyHandler creates a society within a project
// @Summary Create society
// @Tags Buildings
// @Accept json
// @Produce json
// @Param request body models.Society true "Society"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/societies [post]
func CreateSocietyHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var s models.Society
		if err := c.ShouldBindJSON(&s); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}
		if s.ProjectID == 0 || s.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Project ID and society name are required"})
			return
		}

		err := db.QueryRow(`INSERT INTO society (project_id, name, description) VALUES ($1, $2, $3) RETURNING society_id`,
			s.ProjectID, s.Name, s.Description).Scan(&s.SocietyID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create society", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "Society created", "society_id": s.SocietyID})
	}
}

// GetSocietiesHandler lists a project's societies
// @Summary List societies
// @Tags Buildings
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {array} models.Society
// @Failure 400 {object} models.ErrorResponse
// @Router /api/projects/{id}/societies [get]
func GetSocietiesHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
			return
		}

		rows, err := db.Query(`SELECT society_id, project_id, name, description FROM society WHERE project_id = $1 ORDER BY society_id`, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch societies", "details": err.Error()})
			return
		}
		defer rows.Close()

		societies := []models.Society{}
		for rows.Next() {
			var s models.Society
			if err := rows.Scan(&s.SocietyID, &s.ProjectID, &s.Name, &s.Description); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan society", "details": err.Error()})
				return
			}
			societies = append(societies, s)
		}

		c.JSON(http.StatusOK, societies)
	}
}
