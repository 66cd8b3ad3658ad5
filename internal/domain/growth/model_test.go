package growth

import (
	"testing"
	"time"
)

func TestParseGender(t *testing.T) {
	tests := []struct {
		in      string
		want    Gender
		wantErr bool
	}{
		{"male", GenderMale, false},
		{" M ", GenderMale, false},
		{"boy", GenderMale, false},
		{"2", GenderFemale, false},
		{"Female", GenderFemale, false},
		{"x", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseGender(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseGender(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseGender(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseMeasurementType(t *testing.T) {
	tests := []struct {
		in   string
		want MeasurementType
	}{
		{"weight", Weight},
		{"WFA", Weight},
		{"length", Height},
		{"lhfa", Height},
		{"head-circumference", HeadCircumference},
		{"hc", HeadCircumference},
	}
	for _, tt := range tests {
		got, err := ParseMeasurementType(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseMeasurementType(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseMeasurementType("bmi"); err == nil {
		t.Error("expected error for bmi")
	}
}

func TestMeasurementType_Unit(t *testing.T) {
	if Weight.Unit() != "kg" || Height.Unit() != "cm" || HeadCircumference.Unit() != "cm" {
		t.Error("unexpected units")
	}
	if MeasurementType("bmi").Unit() != "" {
		t.Error("expected empty unit for unknown type")
	}
}

func TestAllSeriesKeys(t *testing.T) {
	keys := AllSeriesKeys()
	if len(keys) != 6 {
		t.Fatalf("expected 6 keys, got %d", len(keys))
	}
	seen := map[SeriesKey]bool{}
	for _, k := range keys {
		if seen[k] {
			t.Errorf("duplicate key %s", k)
		}
		seen[k] = true
	}
}

func TestDateRange_Contains(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rng := DateRange{Start: &start, End: &end}

	if !rng.Contains(start) || !rng.Contains(end) {
		t.Error("expected bounds to be inclusive")
	}
	if rng.Contains(start.AddDate(0, 0, -1)) || rng.Contains(end.AddDate(0, 0, 1)) {
		t.Error("expected dates outside the range to be excluded")
	}
	if !(DateRange{}).Contains(start) {
		t.Error("expected an open range to contain everything")
	}
}
