package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"backend/models"
	"backend/services"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"golang.org/x/net/html"
)

// Template types the portal sends.
var validTemplateTypes = []string{"welcome_user", "rfi_raised", "rfi_responded", "dds_approved", "password_reset"}

func isValidTemplateType(t string) bool {
	for _, v := range validTemplateTypes {
		if t == v {
			return true
		}
	}
	return false
}

// sanitizeHTML strips script and style elements from editor-supplied HTML.
func sanitizeHTML(input string) string {
	doc, err := html.Parse(strings.NewReader(input))
	if err != nil {
		return input
	}

	var buf strings.Builder
	var render func(*html.Node)
	render = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode {
			buf.WriteString("<" + n.Data)
			for _, attr := range n.Attr {
				if strings.HasPrefix(strings.ToLower(attr.Key), "on") {
					continue
				}
				buf.WriteString(fmt.Sprintf(` %s="%s"`, attr.Key, html.EscapeString(attr.Val)))
			}
			buf.WriteString(">")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			render(c)
		}
		if n.Type == html.ElementNode {
			buf.WriteString("</" + n.Data + ">")
		}
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		render(c)
	}
	return buf.String()
}

// CreateEmailTemplateHandler creates a template
// @Summary Create email template
// @Tags Email Templates
// @Accept json
// @Produce json
// @Param template body models.EmailTemplate true "Email template"
// @Success 201 {object} models.EmailTemplate
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/email_templates [post]
func CreateEmailTemplateHandler(db *sql.DB, emailService *services.EmailService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization header is missing"})
			return
		}
		session, userName, err := GetSessionDetails(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		var t models.EmailTemplate
		if err := c.ShouldBindJSON(&t); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}
		if !isValidTemplateType(t.TemplateType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template type", "valid_types": validTemplateTypes})
			return
		}

		// Reject templates referencing placeholders the mailer cannot fill.
		if emailService != nil {
			if err := emailService.ValidateTemplate(t.Subject + " " + t.Body); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Template uses unknown variables", "details": err.Error()})
				return
			}
		}

		tx, err := db.Begin()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
			return
		}
		defer tx.Rollback()

		// Only one default per type.
		if t.IsDefault {
			if _, err := tx.Exec(`UPDATE email_template SET is_default = FALSE WHERE template_type = $1`, t.TemplateType); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update existing defaults"})
				return
			}
		}

		sanitizedBody := sanitizeHTML(t.Body)

		err = tx.QueryRow(`
			INSERT INTO email_template (template_type, name, subject, body, cc, bcc, is_default, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			RETURNING template_id`,
			t.TemplateType, t.Name, t.Subject, sanitizedBody,
			pq.Array(t.CC), pq.Array(t.BCC), t.IsDefault,
		).Scan(&t.TemplateID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template", "details": err.Error()})
			return
		}

		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
			return
		}

		entry := models.ActivityLog{
			EventContext: "Email Template",
			EventName:    "Create",
			Description:  fmt.Sprintf("Email template '%s' created", t.Name),
			UserName:     userName,
			HostName:     session.HostName,
			IPAddress:    session.IPAddress,
			CreatedAt:    time.Now(),
		}
		if logErr := SaveActivityLog(db, entry); logErr != nil {
			fmt.Printf("Failed to log activity: %v\n", logErr)
		}

		created, err := models.GetTemplateByID(db, t.TemplateID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Template created but failed to retrieve"})
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// GetEmailTemplatesHandler lists templates
// @Summary Get all email templates
// @Tags Email Templates
// @Produce json
// @Success 200 {array} models.EmailTemplate
// @Failure 500 {object} models.ErrorResponse
// @Router /api/email_templates [get]
func GetEmailTemplatesHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		templates, err := models.GetAllTemplates(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve templates", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, templates)
	}
}

// GetEmailTemplateHandler fetches one template
// @Summary Get email template
// @Tags Email Templates
// @Produce json
// @Param id path int true "Template ID"
// @Success 200 {object} models.EmailTemplate
// @Failure 404 {object} models.ErrorResponse
// @Router /api/email_templates/{id} [get]
func GetEmailTemplateHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
			return
		}

		template, err := models.GetTemplateByID(db, id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, template)
	}
}

// UpdateEmailTemplateHandler updates a template
// @Summary Update email template
// @Tags Email Templates
// @Accept json
// @Produce json
// @Param id path int true "Template ID"
// @Param template body models.EmailTemplate true "Template fields"
// @Success 200 {object} models.EmailTemplate
// @Failure 400 {object} models.ErrorResponse
// @Router /api/email_templates/{id} [put]
func UpdateEmailTemplateHandler(db *sql.DB, emailService *services.EmailService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
			return
		}

		var t models.EmailTemplate
		if err := c.ShouldBindJSON(&t); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		if emailService != nil {
			if err := emailService.ValidateTemplate(t.Subject + " " + t.Body); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Template uses unknown variables", "details": err.Error()})
				return
			}
		}

		existing, err := models.GetTemplateByID(db, id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}

		tx, err := db.Begin()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
			return
		}
		defer tx.Rollback()

		if t.IsDefault && !existing.IsDefault {
			if _, err := tx.Exec(`UPDATE email_template SET is_default = FALSE WHERE template_type = $1`, existing.TemplateType); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update existing defaults"})
				return
			}
		}

		_, err = tx.Exec(`
			UPDATE email_template
			SET name = $1, subject = $2, body = $3, cc = $4, bcc = $5, is_default = $6, updated_at = NOW()
			WHERE template_id = $7`,
			t.Name, t.Subject, sanitizeHTML(t.Body), pq.Array(t.CC), pq.Array(t.BCC), t.IsDefault, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update template", "details": err.Error()})
			return
		}

		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
			return
		}

		updated, err := models.GetTemplateByID(db, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Template updated but failed to retrieve"})
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DeleteEmailTemplateHandler removes a template
// @Summary Delete email template
// @Tags Email Templates
// @Produce json
// @Param id path int true "Template ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/email_templates/{id} [delete]
func DeleteEmailTemplateHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
			return
		}

		existing, err := models.GetTemplateByID(db, id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		if existing.IsDefault {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Default templates cannot be deleted; set another default first"})
			return
		}

		if _, err := db.Exec(`DELETE FROM email_template WHERE template_id = $1`, id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete template", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Template deleted"})
	}
}

// GetTemplateVariablesHandler lists the placeholders templates may use
// @Summary List template variables
// @Tags Email Templates
// @Produce json
// @Success 200 {array} models.EmailTemplateVariable
// @Router /api/email_templates/variables [get]
func GetTemplateVariablesHandler(emailService *services.EmailService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if emailService == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Email service not configured"})
			return
		}
		c.JSON(http.StatusOK, emailService.GetAvailableVariables())
	}
}

// PreviewEmailTemplateHandler renders a template with sample data
// @Summary Preview email template
// @Tags Email Templates
// @Accept json
// @Produce json
// @Param id path int true "Template ID"
// @Success 200 {object} object
// @Failure 404 {object} models.ErrorResponse
// @Router /api/email_templates/{id}/preview [post]
func PreviewEmailTemplateHandler(db *sql.DB, emailService *services.EmailService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
			return
		}
		if emailService == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Email service not configured"})
			return
		}

		template, err := models.GetTemplateByID(db, id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}

		var data models.EmailData
		if err := c.ShouldBindJSON(&data); err != nil || data.ProjectName == "" {
			data = models.EmailData{
				ProjectName:   "Riverside Heights",
				UserName:      "Asha Kulkarni",
				RFINumber:     "RFI/RH2024/0001",
				RFISubject:    "Transformer room clearance",
				DrawingNumber: "E-102",
				Discipline:    "Electrical",
				DueDate:       time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
				ApprovalLevel: "L1",
			}
		}

		text, err := emailService.PreviewEmailAsText(template.Body, data)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render preview", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"subject": template.Subject, "preview_text": text})
	}
}
