package growth

import "testing"

func TestVelocity_UsesEndpointsOnly(t *testing.T) {
	history := []Measurement{
		measurement("2025-03-02", 60, Weight, 8.0),
		measurement("2025-01-01", 0, Weight, 5.0),
		measurement("2025-01-31", 30, Weight, 9.9),
		measurement("2025-02-10", 40, Height, 60),
	}

	v := Velocity(history, Weight, DateRange{})
	if v == nil {
		t.Fatal("expected a velocity")
	}
	if v.DaysBetween != 60 {
		t.Errorf("expected 60 days, got %d", v.DaysBetween)
	}
	if v.StartValue != 5.0 || v.EndValue != 8.0 || v.TotalChange != 3.0 {
		t.Errorf("unexpected endpoints %+v", v)
	}
	if v.PerDay != 0.05 {
		t.Errorf("expected 0.05/day, got %v", v.PerDay)
	}
	if v.PerWeek != 0.35 {
		t.Errorf("expected 0.35/week, got %v", v.PerWeek)
	}
	if v.PerMonth != 1.522 {
		t.Errorf("expected 1.522/month, got %v", v.PerMonth)
	}
	if v.PerYear != 18.2625 {
		t.Errorf("expected 18.2625/year, got %v", v.PerYear)
	}
	if v.Unit != "kg" {
		t.Errorf("expected kg, got %s", v.Unit)
	}
}

func TestVelocity_Insufficient(t *testing.T) {
	tests := []struct {
		name    string
		history []Measurement
	}{
		{"empty", nil},
		{"single", []Measurement{measurement("2025-01-01", 0, Weight, 5)}},
		{"same date", []Measurement{
			measurement("2025-01-01", 0, Weight, 5),
			measurement("2025-01-01", 0, Weight, 5.2),
		}},
		{"non-positive values skipped", []Measurement{
			measurement("2025-01-01", 0, Weight, 5),
			measurement("2025-02-01", 31, Weight, 0),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if v := Velocity(tt.history, Weight, DateRange{}); v != nil {
				t.Errorf("expected nil, got %+v", v)
			}
		})
	}
}

func TestVelocity_DateRange(t *testing.T) {
	history := []Measurement{
		measurement("2025-01-01", 0, Height, 50),
		measurement("2025-02-01", 31, Height, 54),
		measurement("2025-03-01", 59, Height, 57),
	}
	start := date("2025-02-01")
	v := Velocity(history, Height, DateRange{Start: &start})
	if v == nil {
		t.Fatal("expected a velocity")
	}
	if v.StartValue != 54 || v.DaysBetween != 28 {
		t.Errorf("expected range to start at 2025-02-01, got %+v", v)
	}
}

func TestClassifyVelocity(t *testing.T) {
	tests := []struct {
		mt       MeasurementType
		perMonth float64
		want     VelocityCategory
	}{
		{Weight, 0.05, VelocitySlow},
		{Weight, 0.1, VelocityNormal},
		{Weight, 0.5, VelocityNormal},
		{Weight, 0.6, VelocityFast},
		{Height, 0.2, VelocitySlow},
		{Height, 1.5, VelocityFast},
		{HeadCircumference, 5, VelocityNotClassified},
	}
	for _, tt := range tests {
		if got := ClassifyVelocity(tt.mt, tt.perMonth); got != tt.want {
			t.Errorf("ClassifyVelocity(%s, %v) = %s, want %s", tt.mt, tt.perMonth, got, tt.want)
		}
	}
}

func TestAgeInDays(t *testing.T) {
	if got := AgeInDays(date("2024-02-28"), date("2024-03-01")); got != 2 {
		t.Errorf("expected 2 days across leap day, got %d", got)
	}
	if got := AgeInDays(date("2025-01-10"), date("2025-01-01")); got != -9 {
		t.Errorf("expected -9 days, got %d", got)
	}
}
