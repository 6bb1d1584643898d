package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"benefit-recommendation-api/internal/models"
)

func TestValidateUserProfile(t *testing.T) {
	valid := models.UserProfile{Telecom: "SKT", Payments: []string{"CardX"}}
	if err := ValidateUserProfile(valid); err != nil {
		t.Errorf("Expected valid profile to pass, got %v", err)
	}

	cases := []struct {
		name  string
		user  models.UserProfile
		field string
	}{
		{"missing telecom", models.UserProfile{Payments: []string{"CardX"}}, "user.telecom"},
		{"whitespace telecom", models.UserProfile{Telecom: "  ", Payments: []string{"CardX"}}, "user.telecom"},
		{"no payments", models.UserProfile{Telecom: "SKT"}, "user.payments"},
		{"empty payment entry", models.UserProfile{Telecom: "SKT", Payments: []string{"CardX", ""}}, "user.payments[1]"},
		{"too many payments", models.UserProfile{Telecom: "SKT", Payments: make([]string, 51)}, "user.payments"},
	}

	for i := range cases[4].user.Payments {
		cases[4].user.Payments[i] = "CardX"
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUserProfile(tc.user)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected a validation error, got %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("Expected field %q, got %q", tc.field, verr.Field)
			}
		})
	}
}

func TestValidatePlan(t *testing.T) {
	when, err := ValidatePlan(models.VisitPlan{DateTime: "2026-05-01T10:00:00", Brand: "Starbucks"})
	if err != nil {
		t.Fatalf("Expected valid plan to pass, got %v", err)
	}
	if !when.Equal(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected parsed instant: %v", when)
	}

	// Category alone is enough.
	if _, err := ValidatePlan(models.VisitPlan{DateTime: "2026-05-01T10:00", Category: "Cafe"}); err != nil {
		t.Errorf("Expected category-only plan to pass, got %v", err)
	}

	if _, err := ValidatePlan(models.VisitPlan{DateTime: "2026-05-01T10:00:00"}); err == nil {
		t.Error("Expected a plan without brand or category to fail")
	}

	if _, err := ValidatePlan(models.VisitPlan{DateTime: "next friday", Brand: "Starbucks"}); err == nil {
		t.Error("Expected an unparsable datetime to fail")
	}
}

func TestValidateTimeString(t *testing.T) {
	accepted := []string{
		"2026-05-01T10:00:00Z",
		"2026-05-01T10:00:00+09:00",
		"2026-05-01T10:00:00",
		"2026-05-01T10:00",
	}
	for _, s := range accepted {
		if _, err := ValidateTimeString(s); err != nil {
			t.Errorf("Expected %q to parse, got %v", s, err)
		}
	}

	rejected := []string{"", "2026-05-01", "10:00", "garbage"}
	for _, s := range rejected {
		if _, err := ValidateTimeString(s); err == nil {
			t.Errorf("Expected %q to be rejected", s)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  Starbucks\x00\x1b  "); got != "Starbucks" {
		t.Errorf("Expected control characters stripped, got %q", got)
	}

	// Plain whitespace-class controls survive the strip, then trim.
	if got := SanitizeString("a\tb"); got != "a\tb" {
		t.Errorf("Expected tab preserved, got %q", got)
	}
}

func TestSanitizePlanAndProfile(t *testing.T) {
	plan := SanitizePlan(models.VisitPlan{DateTime: " 2026-05-01T10:00:00 ", Brand: " Starbucks ", Category: "\x00Cafe"})
	if plan.Brand != "Starbucks" || plan.Category != "Cafe" || strings.Contains(plan.DateTime, " ") {
		t.Errorf("Plan not sanitized: %+v", plan)
	}

	user := SanitizeUserProfile(models.UserProfile{Telecom: " SKT ", Payments: []string{" CardX "}})
	if user.Telecom != "SKT" || user.Payments[0] != "CardX" {
		t.Errorf("Profile not sanitized: %+v", user)
	}
}
