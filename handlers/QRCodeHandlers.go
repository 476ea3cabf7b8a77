package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

// addLabel draws text on the composed image at the given position.
func addLabel(img *image.RGBA, x, y int, label string) {
	col := color.RGBA{0, 0, 0, 255}
	face := inconsolata.Regular8x16

	point := fixed.Point26_6{
		X: fixed.Int26_6(x * 64),
		Y: fixed.Int26_6(y * 64),
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  point,
	}
	d.DrawString(label)
}

func addLabelBold(img *image.RGBA, x, y int, label string) {
	col := color.RGBA{30, 30, 30, 255}
	face := inconsolata.Bold8x16

	point := fixed.Point26_6{
		X: fixed.Int26_6(x * 64),
		Y: fixed.Int26_6(y * 64),
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  point,
	}
	d.DrawString(label)
}

// GenerateBuildingQRCode godoc
// @Summary      Generate building QR code as JPEG
// @Description  QR tag for site boards; encodes the building and project IDs
// @Tags         qr
// @Param        id   path      string  true  "Building ID"
// @Success      200  {file}    file  "JPEG image"
// @Failure      400  {object}  object
// @Failure      404  {object}  object
// @Router       /api/generate_building_qr/{id} [get]
func GenerateBuildingQRCode(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		buildingID := c.Param("id")
		if buildingID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Building ID is required"})
			return
		}

		var projectID int
		var projectName, buildingName, applicationType sql.NullString
		var floorCount int
		err := db.QueryRow(`
			SELECT b.project_id,
			       COALESCE(p.name, 'Unknown Project') AS project_name,
			       b.name, b.application_type,
			       (SELECT COUNT(*) FROM floor f WHERE f.building_id = b.building_id) AS floor_count
			FROM building b
			LEFT JOIN project p ON b.project_id = p.project_id
			WHERE b.building_id = $1`, buildingID).
			Scan(&projectID, &projectName, &buildingName, &applicationType, &floorCount)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Building not found"})
				return
			}
			log.Printf("[qr] failed to fetch building %s: %v", buildingID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch building details"})
			return
		}

		qrData := struct {
			BuildingID string `json:"building_id"`
			ProjectID  int    `json:"project_id"`
			Link       string `json:"link"`
		}{
			BuildingID: buildingID,
			ProjectID:  projectID,
			Link:       "/projects/" + strconv.Itoa(projectID) + "/buildings/" + buildingID,
		}

		jsonData, err := json.Marshal(qrData)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to marshal building data"})
			return
		}

		qr, err := qrcode.New(string(jsonData), qrcode.Medium)
		if err != nil {
			c.String(http.StatusInternalServerError, "QR code generation failed")
			return
		}

		qrImg := qr.Image(512)

		qrSize := qrImg.Bounds().Dy()
		padding := 30
		lineHeight := 28
		textAreaHeight := 4*lineHeight + padding
		totalHeight := qrSize + padding + textAreaHeight

		combinedImg := image.NewRGBA(image.Rect(0, 0, qrSize, totalHeight))
		draw.Draw(combinedImg, combinedImg.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

		qrRect := image.Rect(0, 0, qrSize, qrSize)
		draw.Draw(combinedImg, qrRect, qrImg, image.Point{}, draw.Src)

		separatorY := qrSize + padding/2
		for x := 0; x < qrSize; x++ {
			combinedImg.Set(x, separatorY, color.RGBA{200, 200, 200, 255})
		}

		startY := qrSize + padding + lineHeight
		xPos := 20

		truncate := func(s string, max int) string {
			if len(s) > max {
				return s[:max-3] + "..."
			}
			return s
		}

		addLabelBold(combinedImg, xPos, startY, "Building:")
		addLabel(combinedImg, xPos+120, startY, truncate(buildingName.String, 30))

		addLabelBold(combinedImg, xPos, startY+lineHeight, "Project:")
		addLabel(combinedImg, xPos+120, startY+lineHeight, truncate(projectName.String, 30))

		addLabelBold(combinedImg, xPos, startY+2*lineHeight, "Type:")
		addLabel(combinedImg, xPos+120, startY+2*lineHeight, applicationType.String)

		addLabelBold(combinedImg, xPos, startY+3*lineHeight, "Floors:")
		addLabel(combinedImg, xPos+120, startY+3*lineHeight, strconv.Itoa(floorCount))

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, combinedImg, nil); err != nil {
			c.String(http.StatusInternalServerError, "JPEG encoding failed")
			return
		}

		c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
	}
}
