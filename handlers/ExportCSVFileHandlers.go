package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"backend/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func formatOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func formatOptInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// scheduleRows flattens a calculation result into load schedule rows:
// scope (building name or "Society"), category, then the item columns.
func scheduleRows(result *models.CalculationResult) [][]string {
	rows := [][]string{}
	appendItems := func(scope string, cat models.LoadCategory) {
		for _, item := range cat.Items {
			rows = append(rows, []string{
				scope, cat.Name, item.Description,
				formatOptFloat(item.AreaSqm), formatOptInt(item.Count),
				strconv.FormatFloat(item.TCL, 'f', 2, 64),
				strconv.FormatFloat(item.MaxDemand, 'f', 2, 64),
				strconv.FormatFloat(item.Essential, 'f', 2, 64),
				strconv.FormatFloat(item.Fire, 'f', 2, 64),
				item.Reference,
			})
		}
	}
	for _, b := range result.BuildingBreakdowns {
		for _, cat := range b.Categories {
			appendItems(b.BuildingName, cat)
		}
	}
	for _, cat := range result.SocietyCALoads {
		appendItems("Society", cat)
	}
	return rows
}

var scheduleHeader = []string{
	"Scope", "Category", "Description", "Area (sqm)", "Count",
	"TCL (kW)", "Max Demand (kW)", "Essential (kW)", "Fire (kW)", "Reference",
}

// ExportCSVLoadSchedule godoc
// @Summary      Export load schedule as CSV
// @Tags         export
// @Produce      text/csv
// @Param        id  path  int  true  "Saved calculation ID"
// @Success      200  {file}  file  "CSV file"
// @Failure      400  {object}  object
// @Router       /api/export_csv_load_schedule/{id} [get]
func ExportCSVLoadSchedule(gdb *gorm.DB) gin.HandlerFunc {
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

		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment;filename=load_schedule_%d.csv", saved.ID))

		writer := csv.NewWriter(c.Writer)
		defer writer.Flush()

		if err := writer.Write(scheduleHeader); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV header"})
			return
		}
		for _, row := range scheduleRows(result) {
			if err := writer.Write(row); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV row"})
				return
			}
		}

		// Summary block after the schedule.
		summary := [][]string{
			{},
			{"Grand Total TCL (kW)", strconv.FormatFloat(result.Totals.GrandTotalTCL, 'f', 2, 64)},
			{"Total Max Demand (kW)", strconv.FormatFloat(result.Totals.TotalMaxDemand, 'f', 2, 64)},
			{"Total Essential (kW)", strconv.FormatFloat(result.Totals.TotalEssential, 'f', 2, 64)},
			{"Total Fire (kW)", strconv.FormatFloat(result.Totals.TotalFire, 'f', 2, 64)},
			{"Transformer Size (kVA)", strconv.Itoa(result.Totals.TransformerSizeKVA)},
			{"Power Factor", strconv.FormatFloat(result.Totals.PowerFactor, 'f', 2, 64)},
		}
		for _, row := range summary {
			if err := writer.Write(row); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV summary"})
				return
			}
		}
	}
}

// ExportExcelLoadSchedule godoc
// @Summary      Export load schedule as Excel
// @Description  One sheet per building plus a society sheet and a summary
// @Tags         export
// @Param        id  path  int  true  "Saved calculation ID"
// @Success      200  {file}  file  "XLSX file"
// @Failure      400  {object}  object
// @Router       /api/export_excel_load_schedule/{id} [get]
func ExportExcelLoadSchedule(gdb *gorm.DB) gin.HandlerFunc {
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

		f := excelize.NewFile()
		defer func() {
			if err := f.Close(); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error closing Excel file"})
			}
		}()

		headerStyle, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true, Size: 11, Family: "Arial", Color: "#FFFFFF"},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating style"})
			return
		}

		// Summary sheet first.
		summarySheet := "Summary"
		index, err := f.NewSheet(summarySheet)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating summary sheet"})
			return
		}
		f.SetActiveSheet(index)
		f.DeleteSheet("Sheet1")

		f.SetCellValue(summarySheet, "A1", "Electrical Load Calculation Summary")
		f.SetCellStyle(summarySheet, "A1", "A1", headerStyle)
		f.SetCellValue(summarySheet, "A2", "Calculation Name")
		f.SetCellValue(summarySheet, "B2", saved.Name)
		f.SetCellValue(summarySheet, "A3", "Area Type")
		f.SetCellValue(summarySheet, "B3", saved.AreaType)
		f.SetCellValue(summarySheet, "A4", "Generated At")
		f.SetCellValue(summarySheet, "B4", result.GeneratedAt.Format("2006-01-02 15:04"))

		f.SetCellValue(summarySheet, "A6", "Grand Total TCL (kW)")
		f.SetCellValue(summarySheet, "B6", result.Totals.GrandTotalTCL)
		f.SetCellValue(summarySheet, "A7", "Total Max Demand (kW)")
		f.SetCellValue(summarySheet, "B7", result.Totals.TotalMaxDemand)
		f.SetCellValue(summarySheet, "A8", "Total Essential (kW)")
		f.SetCellValue(summarySheet, "B8", result.Totals.TotalEssential)
		f.SetCellValue(summarySheet, "A9", "Total Fire (kW)")
		f.SetCellValue(summarySheet, "B9", result.Totals.TotalFire)
		f.SetCellValue(summarySheet, "A10", "Transformer Size (kVA)")
		f.SetCellValue(summarySheet, "B10", result.Totals.TransformerSizeKVA)
		f.SetCellValue(summarySheet, "A11", "Power Factor")
		f.SetCellValue(summarySheet, "B11", result.Totals.PowerFactor)

		// Per-building rollup with twin exclusion flag.
		f.SetCellValue(summarySheet, "A13", "Per-Building Totals")
		perBHeader := []string{"Building", "Similar To", "TCL (kW)", "Max Demand (kW)", "Essential (kW)", "Fire (kW)", "Excluded From Subtotal"}
		for i, h := range perBHeader {
			cell, _ := excelize.CoordinatesToCellName(i+1, 14)
			f.SetCellValue(summarySheet, cell, h)
			f.SetCellStyle(summarySheet, cell, cell, headerStyle)
		}
		for i, bt := range result.Totals.PerBuilding {
			row := 15 + i
			values := []interface{}{bt.BuildingName, bt.SimilarTo, bt.Totals.TCL, bt.Totals.MaxDemand, bt.Totals.Essential, bt.Totals.Fire, bt.ExcludedFromSubtotal}
			for j, v := range values {
				cell, _ := excelize.CoordinatesToCellName(j+1, row)
				f.SetCellValue(summarySheet, cell, v)
			}
		}

		// Compliance block below the rollup.
		compRow := 16 + len(result.Totals.PerBuilding)
		comp := result.RegulatoryCompliance
		compliance := [][]interface{}{
			{"Regulatory Compliance", ""},
			{"Minimum Density (W/sqm)", comp.MinimumDensityWPerM2},
			{"Minimum Required (kW)", comp.MinimumRequiredKW},
			{"Below Minimum Load", comp.BelowMinimumLoad},
			{"DTC Threshold (kVA)", comp.DTCThresholdKVA},
			{"DTC Threshold Exceeded", comp.DTCThresholdExceeded},
			{"Sanctioned Ceiling (kW)", comp.SanctionedCeilingKW},
			{"Sanctioned Ceiling Exceeded", comp.SanctionedCeilingExceeded},
		}
		for i, pair := range compliance {
			for j, v := range pair {
				cell, _ := excelize.CoordinatesToCellName(j+1, compRow+i)
				f.SetCellValue(summarySheet, cell, v)
			}
		}

		writeCategorySheet := func(sheet string, cats []models.LoadCategory) error {
			if _, err := f.NewSheet(sheet); err != nil {
				return err
			}
			for i, h := range scheduleHeader[1:] {
				cell, _ := excelize.CoordinatesToCellName(i+1, 1)
				f.SetCellValue(sheet, cell, h)
				f.SetCellStyle(sheet, cell, cell, headerStyle)
			}
			row := 2
			for _, cat := range cats {
				for _, item := range cat.Items {
					values := []interface{}{cat.Name, item.Description, nil, nil, item.TCL, item.MaxDemand, item.Essential, item.Fire, item.Reference}
					if item.AreaSqm != nil {
						values[2] = *item.AreaSqm
					}
					if item.Count != nil {
						values[3] = *item.Count
					}
					for j, v := range values {
						if v == nil {
							continue
						}
						cell, _ := excelize.CoordinatesToCellName(j+1, row)
						f.SetCellValue(sheet, cell, v)
					}
					row++
				}
			}
			return nil
		}

		// Sheet names collide when towers share a prefix past 31 chars; keep
		// them short and unique by index.
		for i, b := range result.BuildingBreakdowns {
			sheet := b.BuildingName
			if len(sheet) > 25 {
				sheet = sheet[:25]
			}
			sheet = fmt.Sprintf("%d-%s", i+1, sheet)
			if err := writeCategorySheet(sheet, b.Categories); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating building sheet"})
				return
			}
		}
		if len(result.SocietyCALoads) > 0 {
			if err := writeCategorySheet("Society", result.SocietyCALoads); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating society sheet"})
				return
			}
		}

		safeName := strings.ReplaceAll(saved.Name, "/", "-")
		safeName = strings.ReplaceAll(safeName, "\\", "-")
		safeName = strings.ReplaceAll(safeName, " ", "_")
		filename := fmt.Sprintf("load_schedule_%s_%d.xlsx", safeName, saved.ID)
		escaped := url.PathEscape(filename)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", filename, escaped))

		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing Excel file"})
			return
		}
	}
}
