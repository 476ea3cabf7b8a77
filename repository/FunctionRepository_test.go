package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRFINumber(t *testing.T) {
	assert.Equal(t, "RFI/RH2024/0001", GenerateRFINumber("rh2024", 1))
	assert.Equal(t, "RFI/RH2024/0042", GenerateRFINumber("RH2024", 42))
	assert.Equal(t, "RFI/RH2024/12345", GenerateRFINumber("RH2024", 12345))
}

func TestGenerateRevisionCode(t *testing.T) {
	tests := []struct {
		previous string
		want     string
		wantErr  bool
	}{
		{previous: "", want: "RV-01"},
		{previous: "RV-01", want: "RV-02"},
		{previous: "RV-09", want: "RV-10"},
		{previous: "RV-99", want: "RV-100"},
		{previous: "rev-1", wantErr: true},
		{previous: "RV-abc", wantErr: true},
	}

	for _, tt := range tests {
		got, err := GenerateRevisionCode(tt.previous)
		if tt.wantErr {
			assert.Error(t, err, tt.previous)
			continue
		}
		assert.NoError(t, err, tt.previous)
		assert.Equal(t, tt.want, got)
	}
}

func TestGenerateRandomCode(t *testing.T) {
	code := GenerateRandomCode()
	assert.Len(t, code, 7)
	assert.Regexp(t, `^[A-Z]{2}\d{5}$`, code)
}
