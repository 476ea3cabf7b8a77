package handlers

import (
	"backend/loadcalc"
	"backend/models"
	"backend/repository"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ElectricalLoadCalculateHandler runs the load calculation
// @Summary Calculate electrical load
// @Description Run the full load calculation for the selected buildings of a
// project: per-building category loads, society common loads, transformer
// sizing and the MSEDCL compliance checks. Pass save_as to persist the result.
// @Tags ElectricalLoad
// @Accept json
// @Produce json
// @Param request body models.ElectricalLoadRequest true "Calculation request"
// @Success 200 {object} models.CalculationResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /api/electrical_load_calculate [post]
func ElectricalLoadCalculateHandler(db *sql.DB, gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ElectricalLoadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}
		if len(req.BuildingIDs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "At least one building must be selected"})
			return
		}

		var project models.Project
		err := db.QueryRow(`SELECT project_id, name, area_type FROM project WHERE project_id = $1`, req.ProjectID).
			Scan(&project.ProjectId, &project.Name, &project.AreaType)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch project", "details": err.Error()})
			return
		}
		if req.AreaType == "" {
			req.AreaType = project.AreaType
		}

		// The remaining project buildings back twin resolution when a twin is
		// selected without its parent.
		all, err := repository.FetchProjectBuildings(db, req.ProjectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch project buildings", "details": err.Error()})
			return
		}
		byID := make(map[string]models.Building, len(all))
		for _, b := range all {
			byID[b.BuildingID] = b
		}

		selected := make([]models.Building, 0, len(req.BuildingIDs))
		selectedIDs := make(map[string]bool, len(req.BuildingIDs))
		for _, id := range req.BuildingIDs {
			b, ok := byID[id]
			if !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "Building not found in project", "building_id": id})
				return
			}
			if selectedIDs[id] {
				continue
			}
			selected = append(selected, b)
			selectedIDs[id] = true
		}

		reference := make([]models.Building, 0, len(all)-len(selected))
		for _, b := range all {
			if !selectedIDs[b.BuildingID] {
				reference = append(reference, b)
			}
		}

		factors, err := LoadFactorTable(gdb)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load calculation standards", "details": err.Error()})
			return
		}

		cfg := loadcalc.DefaultConfig()
		if req.PowerFactor > 0 {
			cfg.PowerFactor = req.PowerFactor
		}

		engine := loadcalc.NewEngine(factors, cfg, nil)
		result, err := engine.Calculate(loadcalc.Input{
			Buildings:          selected,
			ReferenceBuildings: reference,
			Society:            req.SocietyCommon,
			AreaType:           req.AreaType,
			OccupancyClass:     req.OccupancyClass,
		})
		if err != nil {
			// Unresolved twins and missing factor rows are data problems the
			// caller has to fix, not server faults.
			if errors.Is(err, loadcalc.ErrUnresolvedTwin) ||
				errors.Is(err, loadcalc.ErrMissingFactor) ||
				errors.Is(err, loadcalc.ErrInvalidHierarchy) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Calculation failed", "details": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Calculation failed", "details": err.Error()})
			return
		}
		result.GeneratedAt = time.Now()

		if req.SaveAs != "" && result.Valid {
			saved, err := saveCalculation(gdb, req, result, c.GetString("email"))
			if err != nil {
				if errors.Is(err, errSaveNameTaken) {
					c.JSON(http.StatusConflict, gin.H{"error": "A saved calculation with this name already exists", "name": req.SaveAs})
					return
				}
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save calculation", "details": err.Error()})
				return
			}
			log.Printf("[loadcalc] project %d calculation saved as %q (id %d)", req.ProjectID, req.SaveAs, saved.ID)
			c.JSON(http.StatusOK, gin.H{"result": result, "saved_id": saved.ID})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

var errSaveNameTaken = errors.New("saved calculation name taken")

// buildingCategoryLoads extracts just the per-building load categories,
// keyed by building name. Stored separately from the full breakdowns so the
// building_ca_loads column holds category data without the geometry fields.
func buildingCategoryLoads(result *models.CalculationResult) map[string][]models.LoadCategory {
	loads := make(map[string][]models.LoadCategory, len(result.BuildingBreakdowns))
	for _, b := range result.BuildingBreakdowns {
		loads[b.BuildingName] = b.Categories
	}
	return loads
}

// saveCalculation persists a named snapshot. A save is always a full overwrite
// of the record; there is no field-level patching of stored results.
func saveCalculation(gdb *gorm.DB, req models.ElectricalLoadRequest, result *models.CalculationResult, createdBy string) (*models.SavedCalculationGorm, error) {
	categoryLoads, err := json.Marshal(buildingCategoryLoads(result))
	if err != nil {
		return nil, err
	}
	breakdowns, err := json.Marshal(result.BuildingBreakdowns)
	if err != nil {
		return nil, err
	}
	societyLoads, err := json.Marshal(result.SocietyCALoads)
	if err != nil {
		return nil, err
	}
	totals, err := json.Marshal(result.Totals)
	if err != nil {
		return nil, err
	}
	full, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	var existing models.SavedCalculationGorm
	err = gdb.Where("project_id = ? AND name = ?", req.ProjectID, req.SaveAs).First(&existing).Error
	switch {
	case err == nil:
		if !req.OverwriteExisting {
			return nil, errSaveNameTaken
		}
		existing.AreaType = req.AreaType
		existing.BuildingCALoads = categoryLoads
		existing.BuildingBreakdowns = breakdowns
		existing.SocietyCALoads = societyLoads
		existing.TotalLoads = totals
		existing.ResultJSON = full
		if err := gdb.Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	case err == gorm.ErrRecordNotFound:
		row := models.SavedCalculationGorm{
			ProjectID:          req.ProjectID,
			Name:               req.SaveAs,
			AreaType:           req.AreaType,
			BuildingCALoads:    categoryLoads,
			BuildingBreakdowns: breakdowns,
			SocietyCALoads:     societyLoads,
			TotalLoads:         totals,
			ResultJSON:         full,
			CreatedBy:          createdBy,
		}
		if err := gdb.Create(&row).Error; err != nil {
			return nil, err
		}
		return &row, nil
	default:
		return nil, err
	}
}

// GetSavedCalculationsHandler lists saved calculations for a project
// @Summary List saved calculations
// @Tags ElectricalLoad
// @Produce json
// @Param id path int true "Project ID"
// @Success 200 {array} models.SavedCalculationGorm
// @Failure 400 {object} models.ErrorResponse
// @Router /api/projects/{id}/saved_calculations [get]
func GetSavedCalculationsHandler(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
			return
		}

		var rows []models.SavedCalculationGorm
		if err := gdb.Select("id, project_id, name, area_type, created_by, created_at, updated_at").
			Where("project_id = ?", projectID).
			Order("updated_at DESC").
			Find(&rows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch saved calculations", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, rows)
	}
}

// GetSavedCalculationHandler fetches one saved calculation with its result
// @Summary Get saved calculation
// @Tags ElectricalLoad
// @Produce json
// @Param id path int true "Saved calculation ID"
// @Success 200 {object} models.SavedCalculationGorm
// @Failure 404 {object} models.ErrorResponse
// @Router /api/saved_calculations/{id} [get]
func GetSavedCalculationHandler(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid saved calculation ID"})
			return
		}

		var row models.SavedCalculationGorm
		if err := gdb.First(&row, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "Saved calculation not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch saved calculation", "details": err.Error()})
			return
		}

		var result models.CalculationResult
		if err := json.Unmarshal(row.ResultJSON, &result); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Stored result is corrupt", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":         row.ID,
			"project_id": row.ProjectID,
			"name":       row.Name,
			"area_type":  row.AreaType,
			"created_by": row.CreatedBy,
			"created_at": row.CreatedAt,
			"updated_at": row.UpdatedAt,
			"result":     result,
		})
	}
}

// DeleteSavedCalculationHandler removes a saved calculation
// @Summary Delete saved calculation
// @Tags ElectricalLoad
// @Produce json
// @Param id path int true "Saved calculation ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/saved_calculations/{id} [delete]
func DeleteSavedCalculationHandler(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid saved calculation ID"})
			return
		}

		result := gdb.Delete(&models.SavedCalculationGorm{}, id)
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete saved calculation", "details": result.Error.Error()})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Saved calculation not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Saved calculation deleted"})
	}
}

// loadSavedResult is shared by the export and PDF handlers.
func loadSavedResult(gdb *gorm.DB, id int) (*models.SavedCalculationGorm, *models.CalculationResult, error) {
	var row models.SavedCalculationGorm
	if err := gdb.First(&row, id).Error; err != nil {
		return nil, nil, err
	}
	var result models.CalculationResult
	if err := json.Unmarshal(row.ResultJSON, &result); err != nil {
		return nil, nil, err
	}
	return &row, &result, nil
}
