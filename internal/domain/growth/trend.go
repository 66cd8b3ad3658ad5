package growth

import (
	"sort"
	"time"
)

// TrendPoint is one measurement placed on a patient's growth curve.
type TrendPoint struct {
	Date       time.Time `json:"date"`
	AgeDays    int       `json:"age_days"`
	AgeMonths  float64   `json:"age_months"`
	Value      float64   `json:"value"`
	ZScore     *float64  `json:"z_score"`
	Percentile *float64  `json:"percentile"`
}

type TrendSummary struct {
	Count             int       `json:"count"`
	FirstDate         time.Time `json:"first_date"`
	LastDate          time.Time `json:"last_date"`
	CurrentValue      float64   `json:"current_value"`
	CurrentZScore     *float64  `json:"current_z_score"`
	CurrentPercentile *float64  `json:"current_percentile"`
	PercentileChange  *float64  `json:"percentile_change,omitempty"`
}

type TrendResult struct {
	Type    MeasurementType `json:"type"`
	Unit    string          `json:"unit"`
	Status  string          `json:"status"`
	Points  []TrendPoint    `json:"points"`
	Summary *TrendSummary   `json:"summary,omitempty"`
}

// ScoreFunc scores a single measurement. Trend uses it for measurements that
// were stored without a precomputed Z-score.
type ScoreFunc func(m Measurement) ZScoreResult

// BuildTrend filters history to t and rng, sorts it by date and places each
// measurement on the growth curve. score may be nil, in which case only the
// stored scores are reported.
func BuildTrend(history []Measurement, t MeasurementType, rng DateRange, score ScoreFunc) TrendResult {
	selected := selectHistory(history, t, rng)

	points := make([]TrendPoint, 0, len(selected))
	for _, m := range selected {
		tp := TrendPoint{
			Date:       m.Date,
			AgeDays:    m.AgeDays,
			AgeMonths:  AgeMonths(m.AgeDays),
			Value:      m.Value,
			ZScore:     m.ZScore,
			Percentile: m.Percentile,
		}
		if tp.ZScore == nil && score != nil {
			if res := score(m); res.Valid() {
				tp.ZScore = res.ZScore
				tp.Percentile = res.Percentile
			}
		}
		points = append(points, tp)
	}

	res := TrendResult{Type: t, Unit: t.Unit(), Status: StatusOK, Points: points}
	if len(points) < 2 {
		res.Status = StatusInsufficientData
	}
	if len(points) == 0 {
		return res
	}

	first, last := points[0], points[len(points)-1]
	sum := &TrendSummary{
		Count:             len(points),
		FirstDate:         first.Date,
		LastDate:          last.Date,
		CurrentValue:      last.Value,
		CurrentZScore:     last.ZScore,
		CurrentPercentile: last.Percentile,
	}
	if len(points) > 1 && first.Percentile != nil && last.Percentile != nil {
		sum.PercentileChange = ptrFloat(roundTo(*last.Percentile-*first.Percentile, 2))
	}
	res.Summary = sum
	return res
}

// AgeMonths converts days to months using the WHO mean month length.
func AgeMonths(ageDays int) float64 {
	return roundTo(float64(ageDays)/DaysPerMonth, 2)
}

// selectHistory returns the measurements of type t inside rng with a usable
// value, sorted ascending by date. The input is not modified.
func selectHistory(history []Measurement, t MeasurementType, rng DateRange) []Measurement {
	out := make([]Measurement, 0, len(history))
	for _, m := range history {
		if m.Type != t || !(m.Value > 0) {
			continue
		}
		if !rng.Contains(m.Date) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
