package handlers

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"backend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DownloadFloorScheduleTemplate downloads an empty floor schedule CSV template
func DownloadFloorScheduleTemplate(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename=floor_schedule_template.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	header := []string{"FloorName", "Sequence", "HeightM", "LobbyArea", "TwinOfFloorName", "FlatType", "FlatAreaSqm", "FlatCount"}
	if err := writer.Write(header); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV header"})
		return
	}

	samples := [][]string{
		{"First Floor", "1", "3.0", "45", "", "2BHK", "85", "4"},
		{"First Floor", "1", "3.0", "45", "", "3BHK", "120", "2"},
		{"Second Floor", "2", "3.0", "45", "First Floor", "", "", ""},
	}
	for _, row := range samples {
		if err := writer.Write(row); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing sample row"})
			return
		}
	}
}

// floorScheduleRow is one parsed CSV line. Rows sharing a floor name collapse
// into a single floor with multiple flat groups; a twin row carries no flats.
type floorScheduleRow struct {
	FloorName       string
	Sequence        int
	HeightM         float64
	LobbyArea       float64
	TwinOfFloorName string
	FlatType        string
	FlatAreaSqm     float64
	FlatCount       int
}

func parseFloorScheduleRow(record []string, line int) (floorScheduleRow, error) {
	if len(record) < 8 {
		return floorScheduleRow{}, fmt.Errorf("line %d: expected 8 columns, got %d", line, len(record))
	}
	row := floorScheduleRow{
		FloorName:       strings.TrimSpace(record[0]),
		TwinOfFloorName: strings.TrimSpace(record[4]),
		FlatType:        strings.TrimSpace(record[5]),
	}
	if row.FloorName == "" {
		return floorScheduleRow{}, fmt.Errorf("line %d: floor name is required", line)
	}

	var err error
	if row.Sequence, err = strconv.Atoi(strings.TrimSpace(record[1])); err != nil {
		return floorScheduleRow{}, fmt.Errorf("line %d: invalid sequence %q", line, record[1])
	}
	if row.HeightM, err = strconv.ParseFloat(strings.TrimSpace(record[2]), 64); err != nil {
		return floorScheduleRow{}, fmt.Errorf("line %d: invalid height %q", line, record[2])
	}
	if strings.TrimSpace(record[3]) != "" {
		if row.LobbyArea, err = strconv.ParseFloat(strings.TrimSpace(record[3]), 64); err != nil {
			return floorScheduleRow{}, fmt.Errorf("line %d: invalid lobby area %q", line, record[3])
		}
	}

	if row.TwinOfFloorName != "" && row.FlatType != "" {
		return floorScheduleRow{}, fmt.Errorf("line %d: twin floors must not list flats", line)
	}
	if row.FlatType != "" {
		if row.FlatAreaSqm, err = strconv.ParseFloat(strings.TrimSpace(record[6]), 64); err != nil {
			return floorScheduleRow{}, fmt.Errorf("line %d: invalid flat area %q", line, record[6])
		}
		if row.FlatCount, err = strconv.Atoi(strings.TrimSpace(record[7])); err != nil {
			return floorScheduleRow{}, fmt.Errorf("line %d: invalid flat count %q", line, record[7])
		}
	}
	return row, nil
}

// ImportFloorScheduleCSV godoc
// @Summary      Import floor schedule CSV
// @Description  Replace a building's floors and flats from an uploaded CSV.
// Rows sharing a floor name become one floor with multiple flat groups.
// @Tags         import
// @Accept       multipart/form-data
// @Produce      json
// @Param        building_id  path      string  true  "Building ID"
// @Param        file         formData  file    true  "CSV file"
// @Success      200  {object}  object
// @Failure      400  {object}  object
// @Failure      404  {object}  object
// @Router       /api/buildings/{building_id}/import_floor_schedule [post]
func ImportFloorScheduleCSV(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		buildingID := c.Param("building_id")

		var isTwin bool
		err := db.QueryRow(`SELECT twin_of_building_name IS NOT NULL FROM building WHERE building_id = $1`, buildingID).Scan(&isTwin)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Building not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch building", "details": err.Error()})
			return
		}
		if isTwin {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Twin buildings inherit floors from their parent; import on the parent instead"})
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Error retrieving the file"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error opening the file"})
			return
		}
		defer file.Close()

		reader := csv.NewReader(file)
		if _, err := reader.Read(); err != nil { // header
			c.JSON(http.StatusBadRequest, gin.H{"error": "Empty or invalid CSV file"})
			return
		}

		// Collapse rows into floors preserving file order.
		floorOrder := []string{}
		floorsByName := map[string]*models.Floor{}
		line := 1
		for {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			line++
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("line %d: malformed CSV", line)})
				return
			}

			row, err := parseFloorScheduleRow(record, line)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			floor, seen := floorsByName[row.FloorName]
			if !seen {
				floor = &models.Floor{
					FloorID:   uuid.NewString(),
					Sequence:  row.Sequence,
					Name:      row.FloorName,
					HeightM:   row.HeightM,
					LobbyArea: row.LobbyArea,
				}
				if row.TwinOfFloorName != "" {
					twin := row.TwinOfFloorName
					floor.TwinOfFloorName = &twin
				}
				floorsByName[row.FloorName] = floor
				floorOrder = append(floorOrder, row.FloorName)
			}
			if row.FlatType != "" {
				floor.Flats = append(floor.Flats, models.Flat{
					FlatID:   uuid.NewString(),
					FlatType: row.FlatType,
					AreaSqm:  row.FlatAreaSqm,
					Count:    row.FlatCount,
				})
			}
		}

		if len(floorOrder) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "CSV contains no floor rows"})
			return
		}

		// Twin references must point at non-twin floors in the same file.
		for _, name := range floorOrder {
			floor := floorsByName[name]
			if floor.TwinOfFloorName == nil {
				continue
			}
			parent, ok := floorsByName[*floor.TwinOfFloorName]
			if !ok || parent.TwinOfFloorName != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("floor %q references unknown or twin parent %q", name, *floor.TwinOfFloorName)})
				return
			}
		}

		tx, err := db.Begin()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
			return
		}
		defer tx.Rollback()

		// Full replace: the CSV is the new source of truth for this building.
		if _, err := tx.Exec(`DELETE FROM flat WHERE floor_id IN (SELECT floor_id FROM floor WHERE building_id = $1)`, buildingID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear existing flats", "details": err.Error()})
			return
		}
		if _, err := tx.Exec(`DELETE FROM floor WHERE building_id = $1`, buildingID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear existing floors", "details": err.Error()})
			return
		}

		floorCount, flatGroups := 0, 0
		for _, name := range floorOrder {
			floor := floorsByName[name]
			_, err := tx.Exec(`
				INSERT INTO floor (floor_id, building_id, sequence, name, height_m, twin_of_floor_name, lobby_area)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				floor.FloorID, buildingID, floor.Sequence, floor.Name, floor.HeightM, floor.TwinOfFloorName, floor.LobbyArea)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to insert floor", "details": err.Error()})
				return
			}
			floorCount++
			for _, flat := range floor.Flats {
				_, err := tx.Exec(`
					INSERT INTO flat (flat_id, floor_id, flat_type, area_sqm, count)
					VALUES ($1, $2, $3, $4, $5)`,
					flat.FlatID, floor.FloorID, flat.FlatType, flat.AreaSqm, flat.Count)
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to insert flat", "details": err.Error()})
					return
				}
				flatGroups++
			}
		}

		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":     "Floor schedule imported",
			"floors":      floorCount,
			"flat_groups": flatGroups,
		})
	}
}
