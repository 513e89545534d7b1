package customvalidator

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"crm-system/internal/entities"
)

var (
	ymdRegex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	hhmmRegex = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
)

// RegisterCustomValidations adds the CRM-specific tags to v.
func RegisterCustomValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("ymd", isYMD); err != nil {
		return err
	}
	if err := v.RegisterValidation("hhmm", isHHMM); err != nil {
		return err
	}
	if err := v.RegisterValidation("crm_role", isRole); err != nil {
		return err
	}
	return nil
}

// IsYMD reports whether s is a calendar-valid YYYY-MM-DD date.
func IsYMD(s string) bool {
	if !ymdRegex.MatchString(s) {
		return false
	}
	y, _ := strconv.Atoi(s[0:4])
	m, _ := strconv.Atoi(s[5:7])
	d, _ := strconv.Atoi(s[8:10])
	if m < 1 || m > 12 || d < 1 {
		return false
	}
	return d <= daysIn(y, m)
}

// IsHHMM reports whether s is H:MM or HH:MM within 00:00..23:59.
func IsHHMM(s string) bool {
	if !hhmmRegex.MatchString(s) {
		return false
	}
	parts := strings.SplitN(s, ":", 2)
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h >= 0 && h <= 23 && m >= 0 && m <= 59
}

func daysIn(year, month int) int {
	switch month {
	case 2:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	}
	return 31
}

func isYMD(fl validator.FieldLevel) bool {
	return IsYMD(fl.Field().String())
}

func isHHMM(fl validator.FieldLevel) bool {
	return IsHHMM(fl.Field().String())
}

func isRole(fl validator.FieldLevel) bool {
	return entities.Role(fl.Field().String()).Valid()
}
