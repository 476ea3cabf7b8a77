package models

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// EmailTemplate is a stored notification template. Body is HTML; it is
// converted to plain text at send time.
type EmailTemplate struct {
	TemplateID   int       `json:"template_id" example:"1"`
	TemplateType string    `json:"template_type" example:"rfi_raised"`
	Name         string    `json:"name" example:"RFI raised (default)"`
	Subject      string    `json:"subject" example:"New RFI {{rfi_number}} on {{project_name}}"`
	Body         string    `json:"body"`
	CC           []string  `json:"cc,omitempty"`
	BCC          []string  `json:"bcc,omitempty"`
	IsDefault    bool      `json:"is_default" example:"true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EmailData carries the variable values substituted into a template.
type EmailData struct {
	ProjectName   string
	ProjectID     string
	UserName      string
	Email         string
	Password      string
	Role          string
	RFINumber     string
	RFISubject    string
	DrawingNumber string
	Discipline    string
	DueDate       string
	ApprovalLevel string
	CompanyName   string
	LoginURL      string
	SupportEmail  string
}

// EmailTemplateVariable documents one placeholder available to template authors.
type EmailTemplateVariable struct {
	Key         string `json:"key" example:"rfi_number"`
	Description string `json:"description" example:"RFI display number"`
}

// GetTemplateByID fetches a specific template.
func GetTemplateByID(db *sql.DB, templateID int) (*EmailTemplate, error) {
	query := `SELECT template_id, template_type, name, subject, body, cc, bcc, is_default, created_at, updated_at
	          FROM email_template WHERE template_id = $1`

	var t EmailTemplate
	err := db.QueryRow(query, templateID).Scan(
		&t.TemplateID, &t.TemplateType, &t.Name, &t.Subject, &t.Body,
		pq.Array(&t.CC), pq.Array(&t.BCC), &t.IsDefault, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("email template %d not found", templateID)
		}
		return nil, err
	}
	return &t, nil
}

// GetAllTemplates lists every stored template, defaults first.
func GetAllTemplates(db *sql.DB) ([]EmailTemplate, error) {
	query := `SELECT template_id, template_type, name, subject, body, cc, bcc, is_default, created_at, updated_at
	          FROM email_template ORDER BY template_type, is_default DESC, template_id`

	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []EmailTemplate{}
	for rows.Next() {
		var t EmailTemplate
		if err := rows.Scan(
			&t.TemplateID, &t.TemplateType, &t.Name, &t.Subject, &t.Body,
			pq.Array(&t.CC), pq.Array(&t.BCC), &t.IsDefault, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// GetDefaultTemplate fetches the default template for a type.
func GetDefaultTemplate(db *sql.DB, templateType string) (*EmailTemplate, error) {
	query := `SELECT template_id, template_type, name, subject, body, cc, bcc, is_default, created_at, updated_at
	          FROM email_template WHERE template_type = $1 AND is_default = TRUE LIMIT 1`

	var t EmailTemplate
	err := db.QueryRow(query, templateType).Scan(
		&t.TemplateID, &t.TemplateType, &t.Name, &t.Subject, &t.Body,
		pq.Array(&t.CC), pq.Array(&t.BCC), &t.IsDefault, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no default email template for type %q", templateType)
		}
		return nil, err
	}
	return &t, nil
}
