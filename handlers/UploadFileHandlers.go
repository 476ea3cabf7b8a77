package handlers

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mime/multipart"

	"github.com/gin-gonic/gin"
)

func attachmentDir() string {
	if dir := os.Getenv("ATTACHMENT_DIR"); dir != "" {
		return dir
	}
	return "/var/www/mepportal/"
}

// ServeFile godoc
// @Summary      Serve file
// @Description  Serve an attachment by name from query param ?file=filename
// @Tags         upload
// @Produce      application/octet-stream
// @Param        file  query     string  true  "File name (path relative to storage)"
// @Success      200   {file}   file    "File content"
// @Failure      400   {object}  object
// @Failure      403   {object}  object
// @Failure      404   {object}  object
// @Router       /api/get-file [get]
func ServeFile(c *gin.Context) {
	fileName := c.Query("file")
	if fileName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file parameter is required"})
		return
	}

	// Guard against directory traversal.
	cleanFileName := filepath.Clean(fileName)
	if cleanFileName != fileName || strings.Contains(cleanFileName, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file path"})
		return
	}

	absoluteDir, err := filepath.Abs(attachmentDir())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	filePath := filepath.Join(absoluteDir, cleanFileName)
	if !strings.HasPrefix(filePath, absoluteDir+string(os.PathSeparator)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) || (info != nil && info.IsDir()) {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}

	file, err := os.Open(filePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	defer file.Close()

	buffer := make([]byte, 512)
	if _, err := file.Read(buffer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	c.Writer.Header().Set("Content-Type", http.DetectContentType(buffer))
	c.File(filePath)
}

// UploadRFIAttachment godoc
// @Summary      Upload RFI attachment
// @Description  Attach a file to an RFI (multipart form, field name: file)
// @Tags         upload
// @Accept       multipart/form-data
// @Produce      json
// @Param        rfi_id  path      int   true  "RFI ID"
// @Param        file    formData  file  true  "File to upload"
// @Success      200     {object}  object
// @Failure      400     {object}  object
// @Failure      404     {object}  object
// @Router       /api/rfi/{rfi_id}/attachments [post]
func UploadRFIAttachment(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rfiID, err := strconv.Atoi(c.Param("rfi_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid RFI ID"})
			return
		}

		var exists bool
		if err := db.QueryRow(`SELECT EXISTS(SELECT 1 FROM rfi WHERE rfi_id = $1)`, rfiID).Scan(&exists); err != nil || !exists {
			c.JSON(http.StatusNotFound, gin.H{"error": "RFI not found"})
			return
		}

		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Error retrieving the file"})
			return
		}

		dstPath, err := UploadFileToDirectory(file, filepath.Join(attachmentDir(), "rfi"), 50<<20)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to save the file", "details": err.Error()})
			return
		}

		fileName := filepath.Base(dstPath)
		_, err = db.Exec(`
			INSERT INTO rfi_attachment (rfi_id, file_name, file_path, file_size, content_type, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())`,
			rfiID, fileName, dstPath, file.Size, file.Header.Get("Content-Type"))
		if err != nil {
			os.Remove(dstPath)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record attachment", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":   "File uploaded successfully",
			"file_name": fileName,
			"file_size": file.Size,
			"file_type": file.Header.Get("Content-Type"),
		})
	}
}

// GetRFIAttachmentsHandler lists an RFI's attachments
// @Summary      List RFI attachments
// @Tags         upload
// @Produce      json
// @Param        rfi_id  path  int  true  "RFI ID"
// @Success      200  {array}  object
// @Router       /api/rfi/{rfi_id}/attachments [get]
func GetRFIAttachmentsHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rfiID, err := strconv.Atoi(c.Param("rfi_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid RFI ID"})
			return
		}

		rows, err := db.Query(`
			SELECT id, file_name, file_size, content_type, created_at
			FROM rfi_attachment WHERE rfi_id = $1 ORDER BY id`, rfiID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch attachments", "details": err.Error()})
			return
		}
		defer rows.Close()

		type attachment struct {
			ID          int       `json:"id"`
			FileName    string    `json:"file_name"`
			FileSize    int64     `json:"file_size"`
			ContentType string    `json:"content_type"`
			CreatedAt   time.Time `json:"created_at"`
		}
		attachments := []attachment{}
		for rows.Next() {
			var a attachment
			if err := rows.Scan(&a.ID, &a.FileName, &a.FileSize, &a.ContentType, &a.CreatedAt); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan attachment", "details": err.Error()})
				return
			}
			attachments = append(attachments, a)
		}

		c.JSON(http.StatusOK, attachments)
	}
}

// UploadFileToDirectory saves an uploaded file under uploadDir with a
// timestamp-prefixed name and returns the stored path.
func UploadFileToDirectory(file *multipart.FileHeader, uploadDir string, maxSize int64) (string, error) {
	filename := filepath.Base(file.Filename)
	if filename == "" || filename == "." {
		return "", fmt.Errorf("invalid file name")
	}

	if maxSize > 0 && file.Size > maxSize {
		return "", fmt.Errorf("file size exceeds the allowed limit")
	}

	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return "", fmt.Errorf("unable to create directory %s: %w", uploadDir, err)
	}

	uniqueName := fmt.Sprintf("%d-%s", time.Now().Unix(), filename)
	dstPath := filepath.Join(uploadDir, uniqueName)

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("unable to create the file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("unable to save the file: %w", err)
	}

	return dstPath, nil
}
