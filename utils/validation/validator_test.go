package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	cases := []struct {
		password string
		ok       bool
	}{
		{"Abcdef1!", true},
		{"Abcdef1?", true},
		{"Abcdef1\"", true},
		{"abcdef1!", false},
		{"ABCDEF1!", false},
		{"Abcdefg!", false},
		{"Abcdefg1", false},
		{"Ab1!", false},
		{"Abcdef1_", false},
	}
	for _, tc := range cases {
		ok, problems := ValidatePasswordStrength(tc.password)
		assert.Equal(t, tc.ok, ok, tc.password)
		if !tc.ok {
			assert.NotEmpty(t, problems, tc.password)
		}
	}
}

func TestValidateColor(t *testing.T) {
	assert.True(t, ValidateColor("#A8D5E2"))
	assert.True(t, ValidateColor("#a8d5e2"))
	assert.False(t, ValidateColor("A8D5E2"))
	assert.False(t, ValidateColor("#FFF"))
	assert.False(t, ValidateColor("#GGGGGG"))
}

type registerForm struct {
	LoginID  string `json:"login_id" validate:"required"`
	Password string `json:"password" validate:"required,password"`
	Grade    int    `json:"grade" validate:"required,gte=1,lte=4"`
	Theme    string `json:"theme" validate:"omitempty,oneof=light dark system"`
	Username string `json:"username" validate:"notblank"`
}

func TestValidateStructNamesJSONFields(t *testing.T) {
	v := NewValidator()
	err := v.ValidateStruct(registerForm{Password: "weak", Grade: 7, Theme: "neon", Username: "   "})
	require.Error(t, err)

	fields := FormatValidationErrors(err)
	assert.Contains(t, fields, "login_id")
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields, "grade")
	assert.Contains(t, fields, "theme")
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields["password"], "uppercase")
	assert.Contains(t, FormatMessage(err), "login_id is required")
}

func TestValidateStructAcceptsValidForm(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateStruct(registerForm{LoginID: "kim", Password: "Secret12!", Grade: 2, Username: "Kim"}))
}
