package services

import (
	"database/sql"
	"fmt"
	"net/smtp"
	"os"
	"regexp"
	"strings"

	"backend/models"

	"golang.org/x/net/html"
)

// convertHTMLToText converts HTML content to plain text for email sending
func convertHTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		// If parsing fails, return the original content
		return htmlContent
	}

	var text strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
		case html.ElementNode:
			// Add line breaks for block elements
			switch n.Data {
			case "p", "div", "br", "h1", "h2", "h3", "h4", "h5", "h6":
				text.WriteString("\n")
			case "li":
				text.WriteString("- ")
			case "table":
				text.WriteString("\n")
			case "tr":
				text.WriteString("\n")
			case "td", "th":
				text.WriteString(" | ")
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			extractText(child)
		}
	}

	extractText(doc)

	result := text.String()
	result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	result = strings.TrimSpace(result)

	return result
}

// EmailService handles email operations with template support
type EmailService struct {
	db *sql.DB
}

// NewEmailService creates a new email service instance
func NewEmailService(db *sql.DB) *EmailService {
	return &EmailService{db: db}
}

// PreviewEmailAsText converts an HTML template to plain text for preview
// purposes, after variable substitution.
func (es *EmailService) PreviewEmailAsText(htmlContent string, emailData models.EmailData) (string, error) {
	processedContent, err := es.processTemplate(htmlContent, emailData)
	if err != nil {
		return "", fmt.Errorf("failed to process template: %v", err)
	}

	plainText := convertHTMLToText(processedContent)
	return plainText, nil
}

// SendTemplatedEmail sends an email using a template with variable substitution.
// If customTemplateID is nil, the default template for the type is used.
func (es *EmailService) SendTemplatedEmail(templateType string, emailData models.EmailData, customTemplateID *int) error {
	var emailTemplate *models.EmailTemplate
	var err error

	if customTemplateID != nil {
		emailTemplate, err = models.GetTemplateByID(es.db, *customTemplateID)
		if err != nil {
			return fmt.Errorf("failed to get custom template (ID: %d): %v", *customTemplateID, err)
		}
		if emailTemplate.TemplateType != templateType {
			return fmt.Errorf("custom template type mismatch: expected %s, got %s", templateType, emailTemplate.TemplateType)
		}
	} else {
		emailTemplate, err = models.GetDefaultTemplate(es.db, templateType)
		if err != nil {
			return fmt.Errorf("failed to get default template for type '%s': %v", templateType, err)
		}
	}

	subject, err := es.processTemplate(emailTemplate.Subject, emailData)
	if err != nil {
		return fmt.Errorf("failed to process subject template: %v", err)
	}

	body, err := es.processTemplate(emailTemplate.Body, emailData)
	if err != nil {
		return fmt.Errorf("failed to process body template: %v", err)
	}

	plainTextBody := convertHTMLToText(body)

	return es.sendEmail(emailData.Email, subject, plainTextBody, emailTemplate.CC, emailTemplate.BCC)
}

// processTemplate processes a template string with variable substitution
func (es *EmailService) processTemplate(templateStr string, data models.EmailData) (string, error) {
	variables := map[string]string{
		"project_name":   data.ProjectName,
		"project_id":     data.ProjectID,
		"user_name":      data.UserName,
		"email":          data.Email,
		"password":       data.Password,
		"role":           data.Role,
		"rfi_number":     data.RFINumber,
		"rfi_subject":    data.RFISubject,
		"drawing_number": data.DrawingNumber,
		"discipline":     data.Discipline,
		"due_date":       data.DueDate,
		"approval_level": data.ApprovalLevel,
		"company_name":   data.CompanyName,
		"login_url":      data.LoginURL,
		"support_email":  data.SupportEmail,
	}

	result := templateStr
	for key, value := range variables {
		placeholder := fmt.Sprintf("{{%s}}", key)
		result = strings.ReplaceAll(result, placeholder, value)
	}

	return result, nil
}

// sendEmail sends an email using SMTP with optional CC and BCC
func (es *EmailService) sendEmail(to, subject, body string, cc, bcc []string) error {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	password := os.Getenv("SMTP_PASSWORD")
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = user
	}

	auth := smtp.PlainAuth("", user, password, host)

	toList := []string{to}
	if len(cc) > 0 {
		toList = append(toList, cc...)
	}
	if len(bcc) > 0 {
		toList = append(toList, bcc...)
	}

	headers := []string{
		"From: " + from,
		"To: " + to,
	}
	if len(cc) > 0 {
		headers = append(headers, "Cc: "+strings.Join(cc, ", "))
	}
	headers = append(headers,
		"Subject: "+subject,
		"",
		body,
	)

	msg := []byte(strings.Join(headers, "\r\n") + "\r\n")

	return smtp.SendMail(
		host+":"+port,
		auth,
		from,
		toList,
		msg,
	)
}

// SendWelcomeUserEmail sends the account-created email to a new portal user.
func (es *EmailService) SendWelcomeUserEmail(user models.User, customTemplateID *int) error {
	emailData := models.EmailData{
		UserName:     user.FirstName + " " + user.LastName,
		Email:        user.Email,
		Password:     user.Password,
		Role:         user.RoleName,
		Discipline:   user.Discipline,
		LoginURL:     os.Getenv("PORTAL_LOGIN_URL"),
		SupportEmail: os.Getenv("SUPPORT_EMAIL"),
	}

	return es.SendTemplatedEmail("welcome_user", emailData, customTemplateID)
}

// SendRFIRaisedEmail notifies the assignee that an RFI has been raised.
func (es *EmailService) SendRFIRaisedEmail(assignee models.User, projectName string, rfi models.RFI, customTemplateID *int) error {
	emailData := models.EmailData{
		ProjectName:  projectName,
		UserName:     assignee.FirstName + " " + assignee.LastName,
		Email:        assignee.Email,
		RFINumber:    rfi.RFINumber,
		RFISubject:   rfi.Subject,
		Discipline:   rfi.Discipline,
		DueDate:      rfi.DueDate.Format("2006-01-02"),
		LoginURL:     os.Getenv("PORTAL_LOGIN_URL"),
		SupportEmail: os.Getenv("SUPPORT_EMAIL"),
	}

	return es.SendTemplatedEmail("rfi_raised", emailData, customTemplateID)
}

// SendRFIRespondedEmail notifies the raiser that their RFI has an answer.
func (es *EmailService) SendRFIRespondedEmail(raiser models.User, projectName string, rfi models.RFI, customTemplateID *int) error {
	emailData := models.EmailData{
		ProjectName:  projectName,
		UserName:     raiser.FirstName + " " + raiser.LastName,
		Email:        raiser.Email,
		RFINumber:    rfi.RFINumber,
		RFISubject:   rfi.Subject,
		Discipline:   rfi.Discipline,
		LoginURL:     os.Getenv("PORTAL_LOGIN_URL"),
		SupportEmail: os.Getenv("SUPPORT_EMAIL"),
	}

	return es.SendTemplatedEmail("rfi_responded", emailData, customTemplateID)
}

// SendDDSApprovalEmail notifies the discipline team of a drawing approval step.
func (es *EmailService) SendDDSApprovalEmail(recipient models.User, projectName string, dds models.DDS, customTemplateID *int) error {
	emailData := models.EmailData{
		ProjectName:   projectName,
		UserName:      recipient.FirstName + " " + recipient.LastName,
		Email:         recipient.Email,
		DrawingNumber: dds.DrawingNumber,
		Discipline:    dds.Discipline,
		ApprovalLevel: dds.ApprovalLevel,
		LoginURL:      os.Getenv("PORTAL_LOGIN_URL"),
		SupportEmail:  os.Getenv("SUPPORT_EMAIL"),
	}

	return es.SendTemplatedEmail("dds_approved", emailData, customTemplateID)
}

// ValidateTemplate validates a template string for syntax errors
func (es *EmailService) ValidateTemplate(templateStr string) error {
	openBraces := strings.Count(templateStr, "{{")
	closeBraces := strings.Count(templateStr, "}}")

	if openBraces != closeBraces {
		return fmt.Errorf("unmatched braces in template")
	}

	re := regexp.MustCompile(`\{\{([^}]+)\}\}`)
	matches := re.FindAllStringSubmatch(templateStr, -1)

	validVariables := map[string]bool{
		"project_name":   true,
		"project_id":     true,
		"user_name":      true,
		"email":          true,
		"password":       true,
		"role":           true,
		"rfi_number":     true,
		"rfi_subject":    true,
		"drawing_number": true,
		"discipline":     true,
		"due_date":       true,
		"approval_level": true,
		"company_name":   true,
		"login_url":      true,
		"support_email":  true,
	}

	for _, match := range matches {
		if len(match) > 1 {
			variable := strings.TrimSpace(match[1])
			if !validVariables[variable] {
				return fmt.Errorf("invalid variable: %s", variable)
			}
		}
	}

	return nil
}

// GetAvailableVariables returns a list of available template variables
func (es *EmailService) GetAvailableVariables() []models.EmailTemplateVariable {
	return []models.EmailTemplateVariable{
		{Key: "project_name", Description: "Project name"},
		{Key: "project_id", Description: "Project ID"},
		{Key: "user_name", Description: "Recipient full name"},
		{Key: "email", Description: "Recipient email"},
		{Key: "password", Description: "Initial password"},
		{Key: "role", Description: "User role"},
		{Key: "rfi_number", Description: "RFI display number"},
		{Key: "rfi_subject", Description: "RFI subject line"},
		{Key: "drawing_number", Description: "DDS drawing number"},
		{Key: "discipline", Description: "MEP discipline"},
		{Key: "due_date", Description: "Due date (YYYY-MM-DD)"},
		{Key: "approval_level", Description: "Drawing approval level"},
		{Key: "company_name", Description: "Company name"},
		{Key: "login_url", Description: "Portal login URL"},
		{Key: "support_email", Description: "Support email"},
	}
}
