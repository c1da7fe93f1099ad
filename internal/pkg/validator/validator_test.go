package validator

import (
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31"}
	invalid := []string{"2023-13-01", "2023-02-30", "01-01-2023", "", "2023/01/01"}
	for _, s := range valid {
		if _, ok := IsValidDate(s); !ok {
			t.Errorf("IsValidDate(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if _, ok := IsValidDate(s); ok {
			t.Errorf("IsValidDate(%q) = true, want false", s)
		}
	}
}

func TestIsValidYearMonth(t *testing.T) {
	valid := []string{"2025-11", "1999-01"}
	invalid := []string{"2025-13", "2025-1", "2025-11-01", "", "11-2025"}
	for _, s := range valid {
		if _, ok := IsValidYearMonth(s); !ok {
			t.Errorf("IsValidYearMonth(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if _, ok := IsValidYearMonth(s); ok {
			t.Errorf("IsValidYearMonth(%q) = true, want false", s)
		}
	}
}

func TestIsPrintableASCII(t *testing.T) {
	if !IsPrintableASCII(`{"uid":"e-1","ts":1}`) {
		t.Errorf("IsPrintableASCII rejected a JSON payload")
	}
	for _, s := range []string{"tab\there", "nul\x00", "café"} {
		if IsPrintableASCII(s) {
			t.Errorf("IsPrintableASCII(%q) = true, want false", s)
		}
	}
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "payload", Message: "payload is required"},
		{Field: "mode", Message: "mode must be one of: check-in, check-out"},
	}
	if got := errs.Error(); got != "payload: payload is required; mode: mode must be one of: check-in, check-out" {
		t.Errorf("Error() = %q", got)
	}
	m := errs.ToMap()
	if len(m) != 2 || m["payload"] != "payload is required" {
		t.Errorf("ToMap() = %v", m)
	}
}
