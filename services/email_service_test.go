package services

import (
	"testing"

	"backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "plain text passes through",
			html: "hello world",
			want: "hello world",
		},
		{
			name: "paragraphs become line breaks",
			html: "<p>first</p><p>second</p>",
			want: "first\nsecond",
		},
		{
			name: "list items get dashes",
			html: "<ul><li>one</li><li>two</li></ul>",
			want: "- one- two",
		},
		{
			name: "tags are stripped",
			html: "<b>bold</b> and <i>italic</i>",
			want: "bold and italic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, convertHTMLToText(tt.html))
		})
	}
}

func TestProcessTemplate(t *testing.T) {
	es := NewEmailService(nil)

	data := models.EmailData{
		ProjectName: "Riverside Heights",
		UserName:    "Asha Kulkarni",
		RFINumber:   "RFI/RH2024/0001",
	}

	out, err := es.processTemplate("Hi {{user_name}}, {{rfi_number}} on {{project_name}} needs attention", data)
	require.NoError(t, err)
	assert.Equal(t, "Hi Asha Kulkarni, RFI/RH2024/0001 on Riverside Heights needs attention", out)

	// Unset variables substitute to empty, unknown placeholders stay.
	out, err = es.processTemplate("{{due_date}}|{{not_a_variable}}", data)
	require.NoError(t, err)
	assert.Equal(t, "|{{not_a_variable}}", out)
}

func TestValidateTemplate(t *testing.T) {
	es := NewEmailService(nil)

	assert.NoError(t, es.ValidateTemplate("Hello {{user_name}}, welcome to {{project_name}}"))
	assert.NoError(t, es.ValidateTemplate("no variables at all"))

	err := es.ValidateTemplate("Hello {{user_name}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmatched braces")

	err = es.ValidateTemplate("Hello {{nonsense_var}}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid variable")
}

// Every advertised variable must be accepted by the validator and substituted
// by the processor, so template authors can trust the variable list endpoint.
func TestAvailableVariablesAreValid(t *testing.T) {
	es := NewEmailService(nil)

	for _, v := range es.GetAvailableVariables() {
		assert.NoError(t, es.ValidateTemplate("{{"+v.Key+"}}"), v.Key)

		out, err := es.processTemplate("{{"+v.Key+"}}", models.EmailData{})
		require.NoError(t, err)
		assert.Empty(t, out, "variable %s was not substituted", v.Key)
	}
}

func TestPreviewEmailAsText(t *testing.T) {
	es := NewEmailService(nil)

	text, err := es.PreviewEmailAsText(
		"<p>Dear {{user_name}},</p><p>RFI {{rfi_number}} has been answered.</p>",
		models.EmailData{UserName: "Asha Kulkarni", RFINumber: "RFI/RH2024/0001"},
	)
	require.NoError(t, err)
	assert.Equal(t, "Dear Asha Kulkarni,\nRFI RFI/RH2024/0001 has been answered.", text)
}
