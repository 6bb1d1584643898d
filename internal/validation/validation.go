package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"benefit-recommendation-api/internal/models"
)

// ValidationError is an input validation failure. It is surfaced to the
// caller immediately and never reaches the matching logic.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// maxListLen bounds user-supplied lists so a request cannot carry an
// arbitrarily large payment set.
const maxListLen = 50

// ValidateUserProfile checks a user profile before it reaches the core.
func ValidateUserProfile(user models.UserProfile) error {
	if SanitizeString(user.Telecom) == "" {
		return &ValidationError{
			Field:   "user.telecom",
			Message: "is required",
		}
	}

	if len(user.Payments) == 0 {
		return &ValidationError{
			Field:   "user.payments",
			Message: "at least one payment method is required",
		}
	}

	if len(user.Payments) > maxListLen {
		return &ValidationError{
			Field:   "user.payments",
			Message: fmt.Sprintf("cannot contain more than %d entries", maxListLen),
		}
	}

	for i, p := range user.Payments {
		if SanitizeString(p) == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("user.payments[%d]", i),
				Message: "must not be empty",
			}
		}
	}

	return nil
}

// ValidatePlan checks a visit plan and returns the parsed visit instant.
func ValidatePlan(plan models.VisitPlan) (time.Time, error) {
	if SanitizeString(plan.Brand) == "" && SanitizeString(plan.Category) == "" {
		return time.Time{}, &ValidationError{
			Field:   "plan.brand",
			Message: "either brand or category is required",
		}
	}

	when, err := ValidateTimeString(plan.DateTime)
	if err != nil {
		return time.Time{}, &ValidationError{
			Field:   "plan.dateTime",
			Message: "must be a valid ISO 8601 timestamp",
		}
	}

	return when, nil
}

// ValidateTimeString parses an ISO 8601 timestamp. Both RFC3339 and the
// zone-less form produced by browser date pickers are accepted.
func ValidateTimeString(timeStr string) (time.Time, error) {
	timeStr = SanitizeString(timeStr)
	if timeStr == "" {
		return time.Time{}, &ValidationError{
			Field:   "time",
			Message: "is required",
		}
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, timeStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &ValidationError{
		Field:   "time",
		Message: "must be a valid RFC3339 timestamp",
	}
}

// SanitizeString strips control characters and surrounding whitespace.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

// SanitizePlan returns a copy of the plan with all fields sanitized.
func SanitizePlan(plan models.VisitPlan) models.VisitPlan {
	plan.DateTime = SanitizeString(plan.DateTime)
	plan.Brand = SanitizeString(plan.Brand)
	plan.Category = SanitizeString(plan.Category)
	return plan
}

// SanitizeUserProfile returns a copy of the profile with all fields sanitized.
func SanitizeUserProfile(user models.UserProfile) models.UserProfile {
	user.Telecom = SanitizeString(user.Telecom)
	for i := range user.Payments {
		user.Payments[i] = SanitizeString(user.Payments[i])
	}
	return user
}
