package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"backend/models"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// GenerateLoadCalculationPDF godoc
// @Summary      Generate load calculation PDF
// @Description  Render a saved calculation as a printable load schedule report
// @Tags         export
// @Param        id   path  int  true  "Saved calculation ID"
// @Success      200  "PDF file"
// @Failure      400  {object}  object
// @Failure      404  {object}  object
// @Router       /api/load_calculation_pdf/{id} [get]
func GenerateLoadCalculationPDF(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid saved calculation ID"})
			return
		}

		saved, result, err := loadSavedResult(gdb, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "Saved calculation not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load saved calculation", "details": err.Error()})
			return
		}

		titleCaser := cases.Title(language.Und)

		pdf := gofpdf.New("P", "mm", "A4", "")
		pdf.AddPage()
		pdf.SetMargins(10, 10, 10)

		// --- Header ---
		pdf.SetFont("Arial", "B", 18)
		pdf.Cell(190, 10, "ELECTRICAL LOAD CALCULATION")
		pdf.Ln(12)

		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(95, 6, fmt.Sprintf("Calculation: %s", saved.Name))
		pdf.Cell(95, 6, fmt.Sprintf("Area Type: %s", saved.AreaType))
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(95, 6, fmt.Sprintf("Generated: %s", result.GeneratedAt.Format("02-Jan-2006 15:04")))
		pdf.Cell(95, 6, fmt.Sprintf("Power Factor: %.2f", result.Totals.PowerFactor))
		pdf.Ln(10)

		writeItemTable := func(cat models.LoadCategory) {
			pdf.SetFont("Arial", "B", 10)
			pdf.Cell(190, 6, titleCaser.String(cat.Name))
			pdf.Ln(6)

			pdf.SetFont("Arial", "B", 8)
			pdf.SetFillColor(220, 220, 220)
			pdf.CellFormat(60, 6, "Description", "1", 0, "L", true, 0, "")
			pdf.CellFormat(25, 6, "Area/Count", "1", 0, "R", true, 0, "")
			pdf.CellFormat(26, 6, "TCL (kW)", "1", 0, "R", true, 0, "")
			pdf.CellFormat(27, 6, "Max Demand", "1", 0, "R", true, 0, "")
			pdf.CellFormat(26, 6, "Essential", "1", 0, "R", true, 0, "")
			pdf.CellFormat(26, 6, "Fire", "1", 0, "R", true, 0, "")
			pdf.Ln(6)

			pdf.SetFont("Arial", "", 8)
			for _, item := range cat.Items {
				sizing := ""
				if item.AreaSqm != nil {
					sizing = fmt.Sprintf("%.0f sqm", *item.AreaSqm)
				} else if item.Count != nil {
					sizing = fmt.Sprintf("%d nos", *item.Count)
				}
				pdf.CellFormat(60, 6, item.Description, "1", 0, "L", false, 0, "")
				pdf.CellFormat(25, 6, sizing, "1", 0, "R", false, 0, "")
				pdf.CellFormat(26, 6, fmt.Sprintf("%.2f", item.TCL), "1", 0, "R", false, 0, "")
				pdf.CellFormat(27, 6, fmt.Sprintf("%.2f", item.MaxDemand), "1", 0, "R", false, 0, "")
				pdf.CellFormat(26, 6, fmt.Sprintf("%.2f", item.Essential), "1", 0, "R", false, 0, "")
				pdf.CellFormat(26, 6, fmt.Sprintf("%.2f", item.Fire), "1", 0, "R", false, 0, "")
				pdf.Ln(6)
			}

			pdf.SetFont("Arial", "B", 8)
			pdf.CellFormat(85, 6, "Subtotal", "1", 0, "L", true, 0, "")
			pdf.CellFormat(26, 6, fmt.Sprintf("%.2f", cat.Totals.TCL), "1", 0, "R", true, 0, "")
			pdf.CellFormat(27, 6, fmt.Sprintf("%.2f", cat.Totals.MaxDemand), "1", 0, "R", true, 0, "")
			pdf.CellFormat(26, 6, fmt.Sprintf("%.2f", cat.Totals.Essential), "1", 0, "R", true, 0, "")
			pdf.CellFormat(26, 6, fmt.Sprintf("%.2f", cat.Totals.Fire), "1", 0, "R", true, 0, "")
			pdf.Ln(8)
		}

		for _, b := range result.BuildingBreakdowns {
			pdf.SetFont("Arial", "B", 13)
			title := b.BuildingName
			if b.SimilarTo != "" {
				title = fmt.Sprintf("%s (similar to %s)", b.BuildingName, b.SimilarTo)
			}
			pdf.Cell(190, 8, title)
			pdf.Ln(7)
			pdf.SetFont("Arial", "", 9)
			pdf.Cell(190, 5, fmt.Sprintf("%s, %d floors, %.1f m, carpet area %.0f sqm",
				b.ApplicationType, b.FloorCount, b.TotalHeightM, b.CarpetAreaSqm))
			pdf.Ln(7)

			for _, cat := range b.Categories {
				writeItemTable(cat)
			}
		}

		if len(result.SocietyCALoads) > 0 {
			pdf.SetFont("Arial", "B", 13)
			pdf.Cell(190, 8, "Society Common Loads")
			pdf.Ln(8)
			for _, cat := range result.SocietyCALoads {
				writeItemTable(cat)
			}
		}

		// --- Grand totals ---
		pdf.AddPage()
		pdf.SetFont("Arial", "B", 13)
		pdf.Cell(190, 8, "Project Summary")
		pdf.Ln(9)

		pdf.SetFont("Arial", "", 10)
		summary := [][2]string{
			{"Grand Total Connected Load", fmt.Sprintf("%.2f kW", result.Totals.GrandTotalTCL)},
			{"Total Maximum Demand", fmt.Sprintf("%.2f kW", result.Totals.TotalMaxDemand)},
			{"Total Essential Load", fmt.Sprintf("%.2f kW", result.Totals.TotalEssential)},
			{"Total Fire Load", fmt.Sprintf("%.2f kW", result.Totals.TotalFire)},
			{"Recommended Transformer", fmt.Sprintf("%d kVA", result.Totals.TransformerSizeKVA)},
		}
		for _, row := range summary {
			pdf.CellFormat(95, 7, row[0], "1", 0, "L", false, 0, "")
			pdf.CellFormat(95, 7, row[1], "1", 0, "R", false, 0, "")
			pdf.Ln(7)
		}
		pdf.Ln(5)

		comp := result.RegulatoryCompliance
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(190, 8, fmt.Sprintf("MSEDCL Compliance (%s / %s)", comp.AreaType, comp.OccupancyClass))
		pdf.Ln(9)
		pdf.SetFont("Arial", "", 10)
		checks := [][2]string{
			{"Minimum load density", fmt.Sprintf("%.0f W/sqm, requires %.2f kW", comp.MinimumDensityWPerM2, comp.MinimumRequiredKW)},
			{"Below minimum load", strconv.FormatBool(comp.BelowMinimumLoad)},
			{"DTC threshold", fmt.Sprintf("%.0f kVA, exceeded: %t", comp.DTCThresholdKVA, comp.DTCThresholdExceeded)},
			{"Sanctioned ceiling", fmt.Sprintf("%.0f kW, exceeded: %t", comp.SanctionedCeilingKW, comp.SanctionedCeilingExceeded)},
		}
		for _, row := range checks {
			pdf.CellFormat(95, 7, row[0], "1", 0, "L", false, 0, "")
			pdf.CellFormat(95, 7, row[1], "1", 0, "R", false, 0, "")
			pdf.Ln(7)
		}
		for _, note := range comp.Notes {
			pdf.SetFont("Arial", "I", 9)
			pdf.MultiCell(190, 5, "Note: "+note, "", "L", false)
		}

		c.Header("Content-Type", "application/pdf")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=load_calculation_%d.pdf", saved.ID))
		if err := pdf.Output(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate PDF", "details": err.Error()})
			return
		}
	}
}
