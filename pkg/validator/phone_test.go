package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidNumbers(t *testing.T) {
	validator := NewPhoneValidator("94")

	validNumbers := []struct {
		input    string
		expected string
		name     string
	}{
		{"0771234567", "0771234567", "Standard format"},
		{"077 123 4567", "0771234567", "With spaces"},
		{"077-123-4567", "0771234567", "With dashes"},
		{"077.123.4567", "0771234567", "With dots"},
		{"(077) 123 4567", "0771234567", "With parentheses"},
		{"+94771234567", "0771234567", "Home country code"},
		{"0094 77 123 4567", "0771234567", "Home country code with 00"},
		{"+44 20 7946 0958", "+442079460958", "Foreign number"},
	}

	for _, tc := range validNumbers {
		t.Run(tc.name, func(t *testing.T) {
			sanitized, err := validator.Validate(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sanitized)
		})
	}
}

func TestValidate_InvalidNumbers(t *testing.T) {
	validator := NewPhoneValidator("94")

	invalidNumbers := []struct {
		input string
		err   error
		name  string
	}{
		{"", ErrEmptyPhone, "Empty"},
		{"   ", ErrEmptyPhone, "Blank"},
		{"077123456a", ErrInvalidFormat, "Letters"},
		{"077123456", ErrInvalidLength, "Too short"},
		{"07712345678", ErrInvalidLength, "Too long"},
		{"7712345678", ErrInvalidPrefix, "No leading zero"},
		{"+1234", ErrInvalidLength, "Short international"},
	}

	for _, tc := range invalidNumbers {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.Validate(tc.input)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestFormat(t *testing.T) {
	validator := NewPhoneValidator("94")

	formatted, err := validator.Format("+94771234567")
	require.NoError(t, err)
	assert.Equal(t, "077 123 4567", formatted)

	formatted, err = validator.Format("+44 20 7946 0958")
	require.NoError(t, err)
	assert.Equal(t, "+442079460958", formatted)

	_, err = validator.Format("12")
	assert.Error(t, err)
}
