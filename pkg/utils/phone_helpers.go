package utils

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var (
	nonDigitRegexp = regexp.MustCompile(`\D`)
	phoneLikeRegex = regexp.MustCompile(`^\+?[\d\s\-().]{7,20}$`)
)

// LooksLikePhone accepts anything shaped like a phone number, or anything
// libphonenumber considers a valid number for region.
func LooksLikePhone(value, region string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	digits := nonDigitRegexp.ReplaceAllString(value, "")
	if phoneLikeRegex.MatchString(value) && len(digits) >= 7 && len(digits) <= 15 {
		return true
	}
	num, err := phonenumbers.Parse(value, region)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(num)
}

// NormalizePhone returns E.164 when the number parses as valid, otherwise the trimmed input.
func NormalizePhone(value, region string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	num, err := phonenumbers.Parse(value, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return value
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
