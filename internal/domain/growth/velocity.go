package growth

import "time"

// Velocity computes the rate of change of type t between the first and last
// measurement inside rng. Intermediate measurements are ignored. It returns
// nil when fewer than two measurements qualify or they do not span at least
// one day.
func Velocity(history []Measurement, t MeasurementType, rng DateRange) *VelocityResult {
	selected := selectHistory(history, t, rng)
	if len(selected) < 2 {
		return nil
	}
	first, last := selected[0], selected[len(selected)-1]
	return velocityBetween(t, first, last)
}

func velocityBetween(t MeasurementType, first, last Measurement) *VelocityResult {
	days := AgeInDays(first.Date, last.Date)
	if days <= 0 {
		return nil
	}
	diff := last.Value - first.Value
	perDay := diff / float64(days)

	return &VelocityResult{
		Type:        t,
		Unit:        t.Unit(),
		StartDate:   first.Date,
		EndDate:     last.Date,
		StartValue:  first.Value,
		EndValue:    last.Value,
		TotalChange: roundTo(diff, 4),
		DaysBetween: days,
		PerDay:      roundTo(perDay, 4),
		PerWeek:     roundTo(perDay*7, 4),
		PerMonth:    roundTo(perDay*DaysPerMonth, 4),
		PerYear:     roundTo(perDay*DaysPerYear, 4),
	}
}

// VelocityCategory is a coarse classification of monthly growth rate.
type VelocityCategory string

const (
	VelocitySlow          VelocityCategory = "slow"
	VelocityNormal        VelocityCategory = "normal"
	VelocityFast          VelocityCategory = "fast"
	VelocityNotClassified VelocityCategory = "not_classified"
)

// velocityThresholds returns the slow and fast per-month limits for t.
// Head circumference has no thresholds.
func velocityThresholds(t MeasurementType) (slow, fast float64, ok bool) {
	switch t {
	case Weight:
		return 0.1, 0.5, true
	case Height:
		return 0.3, 1.0, true
	}
	return 0, 0, false
}

// ClassifyVelocity buckets a per-month rate for t.
func ClassifyVelocity(t MeasurementType, perMonth float64) VelocityCategory {
	slow, fast, ok := velocityThresholds(t)
	if !ok {
		return VelocityNotClassified
	}
	switch {
	case perMonth < slow:
		return VelocitySlow
	case perMonth > fast:
		return VelocityFast
	}
	return VelocityNormal
}

// trailingWindow returns the range covering the months before end.
func trailingWindow(end time.Time, months int) DateRange {
	start := end.AddDate(0, -months, 0)
	return DateRange{Start: &start, End: &end}
}
