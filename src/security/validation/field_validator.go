// backend/src/security/validation/field_validator.go
package validation

import (
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

// Constants for field lengths.
const (
	DefaultMaxStringLength = 255
	MaxDescriptionLength   = 255
	MaxNotesLength         = 1024
	MaxCategoryNameLength  = 60
	MaxCardNameLength      = 60
)

var monthRegex = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// --- String Validators ---

// ValidateStringNotEmpty checks if a string is not empty.
func ValidateStringNotEmpty(s, fieldName string) error {
	if s == "" {
		return fmt.Errorf("%w: %s is required", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks the rune length of a string.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// --- Domain Validators ---

// ValidatePositiveAmount rejects zero and negative monetary amounts.
func ValidatePositiveAmount(amount float64, fieldName string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %s must be a positive value", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateDate checks a YYYY-MM-DD date string and returns the parsed time.
func ValidateDate(s, fieldName string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be a valid date in YYYY-MM-DD format", ErrValidationFailed, fieldName)
	}
	return t, nil
}

// ValidateMonth checks a YYYY-MM month string.
func ValidateMonth(s, fieldName string) error {
	if !monthRegex.MatchString(s) {
		return fmt.Errorf("%w: %s must be a valid month in YYYY-MM format", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateDayOfMonth checks card closing/due days.
func ValidateDayOfMonth(day int, fieldName string) error {
	if day < 1 || day > 31 {
		return fmt.Errorf("%w: %s must be between 1 and 31", ErrValidationFailed, fieldName)
	}
	return nil
}
