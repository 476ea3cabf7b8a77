package handlers

import (
	"backend/loadcalc"
	"backend/models"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// LoadFactorTable materializes the standards table for a calculation run.
// When the table has never been seeded, the built-in defaults apply.
func LoadFactorTable(gdb *gorm.DB) (loadcalc.FactorTable, error) {
	var rows []models.CalculationStandardGorm
	if err := gdb.Order("discipline, area, description").Find(&rows).Error; err != nil {
		return loadcalc.FactorTable{}, err
	}

	if len(rows) == 0 {
		return loadcalc.NewFactorTable(loadcalc.DefaultFactors()), nil
	}

	factors := make([]models.Factor, 0, len(rows))
	for _, r := range rows {
		factors = append(factors, r.ToFactor())
	}
	return loadcalc.NewFactorTable(factors), nil
}

// GetStandardsHandler lists the calculation standards
// @Summary List calculation standards
// @Tags Standards
// @Produce json
// @Success 200 {array} models.CalculationStandardGorm
// @Failure 500 {object} models.ErrorResponse
// @Router /api/standards [get]
func GetStandardsHandler(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rows []models.CalculationStandardGorm
		if err := gdb.Order("discipline, area, description").Find(&rows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch standards", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

// CreateStandardHandler adds a standards row
// @Summary Create standard
// @Description Add one factor row; discipline/area/description must be unique
// @Tags Standards
// @Accept json
// @Produce json
// @Param request body models.CalculationStandardGorm true "Standard"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/standards [post]
func CreateStandardHandler(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var row models.CalculationStandardGorm
		if err := c.ShouldBindJSON(&row); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		if row.Discipline == "" || row.Area == "" || row.Description == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Discipline, area and description are required"})
			return
		}
		if row.MDF < 0 || row.MDF > 1 || row.EDF < 0 || row.EDF > 1 || row.FDF < 0 || row.FDF > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Demand factors must be within [0, 1]"})
			return
		}

		var existing models.CalculationStandardGorm
		err := gdb.Where("discipline = ? AND area = ? AND description = ?", row.Discipline, row.Area, row.Description).
			First(&existing).Error
		if err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Standard already exists for this category", "id": existing.ID})
			return
		}
		if err != gorm.ErrRecordNotFound {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check for existing standard", "details": err.Error()})
			return
		}

		if err := gdb.Create(&row).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create standard", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "Standard created", "id": row.ID})
	}
}

// UpdateStandardHandler updates a standards row
// @Summary Update standard
// @Tags Standards
// @Accept json
// @Produce json
// @Param id path int true "Standard ID"
// @Param request body models.CalculationStandardGorm true "Standard fields"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/standards/{id} [put]
func UpdateStandardHandler(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid standard ID"})
			return
		}

		var row models.CalculationStandardGorm
		if err := gdb.First(&row, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "Standard not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch standard", "details": err.Error()})
			return
		}

		var update models.CalculationStandardGorm
		if err := c.ShouldBindJSON(&update); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}
		if update.MDF < 0 || update.MDF > 1 || update.EDF < 0 || update.EDF > 1 || update.FDF < 0 || update.FDF > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Demand factors must be within [0, 1]"})
			return
		}

		// Category identity is immutable; only values and reference change.
		row.DensityWPerM2 = update.DensityWPerM2
		row.MDF = update.MDF
		row.EDF = update.EDF
		row.FDF = update.FDF
		row.Reference = update.Reference

		if err := gdb.Save(&row).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update standard", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Standard updated"})
	}
}

// DeleteStandardHandler removes a standards row
// @Summary Delete standard
// @Tags Standards
// @Produce json
// @Param id path int true "Standard ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/standards/{id} [delete]
func DeleteStandardHandler(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid standard ID"})
			return
		}

		result := gdb.Delete(&models.CalculationStandardGorm{}, id)
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete standard", "details": result.Error.Error()})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Standard not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Standard deleted"})
	}
}

// SeedStandardsHandler loads the built-in default factor table into the DB
// @Summary Seed default standards
// @Description Insert the built-in MSEDCL/NBC defaults for any category not already present
// @Tags Standards
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/standards/seed [post]
func SeedStandardsHandler(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		inserted := 0
		for _, f := range loadcalc.DefaultFactors() {
			var existing models.CalculationStandardGorm
			err := gdb.Where("discipline = ? AND area = ? AND description = ?", f.Discipline, f.Area, f.Description).
				First(&existing).Error
			if err == nil {
				continue
			}
			if err != gorm.ErrRecordNotFound {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing standards", "details": err.Error()})
				return
			}

			row := models.CalculationStandardGorm{
				Discipline:    f.Discipline,
				Area:          f.Area,
				Description:   f.Description,
				DensityWPerM2: f.DensityWPerM2,
				MDF:           f.MDF,
				EDF:           f.EDF,
				FDF:           f.FDF,
				Reference:     f.Reference,
				CreatedBy:     "seed",
			}
			if err := gdb.Create(&row).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to seed standards", "details": err.Error()})
				return
			}
			inserted++
		}

		c.JSON(http.StatusOK, gin.H{"message": "Standards seeded", "inserted": inserted})
	}
}
