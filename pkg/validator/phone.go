package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits")

	// ErrInvalidLength indicates a local number that is not 10 digits or an international one outside 8-15
	ErrInvalidLength = errors.New("phone number must be 10 digits, or 8 to 15 digits with a country code")

	// ErrInvalidPrefix indicates a local number without a leading 0
	ErrInvalidPrefix = errors.New("local phone numbers must start with 0")
)

var digitsOnly = regexp.MustCompile(`^\d+$`)

// separators are stripped before validation
var separators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// PhoneValidator validates passenger contact numbers
type PhoneValidator struct {
	countryCode string
}

// NewPhoneValidator creates a validator whose local numbers belong to countryCode (e.g. "94")
func NewPhoneValidator(countryCode string) *PhoneValidator {
	return &PhoneValidator{countryCode: strings.TrimPrefix(countryCode, "+")}
}

// Validate accepts 0771234567, 077 123 4567, +94 77 123 4567 and other
// international numbers, and returns the number in local or +E.164 form
func (v *PhoneValidator) Validate(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", ErrEmptyPhone
	}

	sanitized := separators.Replace(phone)
	international := strings.HasPrefix(sanitized, "+") || strings.HasPrefix(sanitized, "00")
	sanitized = strings.TrimPrefix(strings.TrimPrefix(sanitized, "+"), "00")

	if !digitsOnly.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	if international {
		if v.countryCode != "" && strings.HasPrefix(sanitized, v.countryCode) && len(sanitized) == len(v.countryCode)+9 {
			return "0" + sanitized[len(v.countryCode):], nil
		}
		if len(sanitized) < 8 || len(sanitized) > 15 {
			return "", ErrInvalidLength
		}
		return "+" + sanitized, nil
	}

	if len(sanitized) != 10 {
		return "", ErrInvalidLength
	}
	if sanitized[0] != '0' {
		return "", ErrInvalidPrefix
	}
	return sanitized, nil
}

// IsValid is a convenience method that returns true if phone is valid
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}

// Format renders a local number as 07X XXX XXXX; other numbers are returned validated
func (v *PhoneValidator) Format(phone string) (string, error) {
	sanitized, err := v.Validate(phone)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(sanitized, "+") {
		return sanitized, nil
	}
	return fmt.Sprintf("%s %s %s", sanitized[0:3], sanitized[3:6], sanitized[6:10]), nil
}
