package validation

import (
	"regexp"
	"strings"
)

var (
	phoneRegex      = regexp.MustCompile(`^\+\d{1,4}\d{6,14}$`)
	regionCodeRegex = regexp.MustCompile(`^\+\d{1,4}$`)
)

// ValidatePhone validates an international phone number ("+" followed by
// country code and subscriber number).
func ValidatePhone(phone string) bool {
	return phoneRegex.MatchString(strings.TrimSpace(phone))
}

// ValidateRegionCode validates a region prefix like "+1" or "+998".
func ValidateRegionCode(code string) bool {
	return regionCodeRegex.MatchString(strings.TrimSpace(code))
}

// SanitizeString removes potentially harmful characters
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}
