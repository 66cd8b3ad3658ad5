package growth

import (
	"math"
	"time"
)

const (
	projectionWindow   = 3
	projectionStep     = 3
	maxProjectionMonth = 24
)

// ProjectedPoint is an extrapolated value some months after the last
// measurement.
type ProjectedPoint struct {
	MonthsAhead int       `json:"months_ahead"`
	Date        time.Time `json:"date"`
	AgeDays     int       `json:"age_days"`
	AgeMonths   float64   `json:"age_months"`
	Value       float64   `json:"value"`
	Percentile  *float64  `json:"percentile,omitempty"`
	Confidence  float64   `json:"confidence"`
}

type ProjectionResult struct {
	Type              MeasurementType  `json:"type"`
	Unit              string           `json:"unit"`
	Status            string           `json:"status"`
	Message           string           `json:"message,omitempty"`
	AverageRate       float64          `json:"average_monthly_rate"`
	OverallConfidence string           `json:"confidence,omitempty"`
	Projections       []ProjectedPoint `json:"projections"`
}

// Project extrapolates the last points of trend forward in three month steps
// up to horizonMonths. score, if non-nil, attaches a projected percentile to
// points that remain inside the reference tables.
func Project(trend TrendResult, horizonMonths int, score ScoreFunc) ProjectionResult {
	res := ProjectionResult{Type: trend.Type, Unit: trend.Type.Unit(), Projections: []ProjectedPoint{}}

	pts := trend.Points
	if len(pts) > projectionWindow {
		pts = pts[len(pts)-projectionWindow:]
	}

	var total float64
	var pairs int
	for i := 1; i < len(pts); i++ {
		dMonths := float64(pts[i].AgeDays-pts[i-1].AgeDays) / DaysPerMonth
		if dMonths == 0 {
			continue
		}
		total += (pts[i].Value - pts[i-1].Value) / dMonths
		pairs++
	}
	if pairs == 0 {
		res.Status = StatusInsufficientData
		res.Message = "At least two measurements at different ages are required for a projection"
		return res
	}

	if horizonMonths <= 0 {
		horizonMonths = projectionStep
	}
	if horizonMonths > maxProjectionMonth {
		horizonMonths = maxProjectionMonth
	}

	avg := total / float64(pairs)
	res.Status = StatusOK
	res.AverageRate = roundTo(avg, 4)
	res.OverallConfidence = "low"
	if avg > 0 {
		res.OverallConfidence = "moderate"
	}

	last := pts[len(pts)-1]
	for ahead := projectionStep; ahead <= horizonMonths; ahead += projectionStep {
		ageDays := last.AgeDays + int(math.Round(float64(ahead)*DaysPerMonth))
		pp := ProjectedPoint{
			MonthsAhead: ahead,
			Date:        last.Date.AddDate(0, ahead, 0),
			AgeDays:     ageDays,
			AgeMonths:   AgeMonths(ageDays),
			Value:       roundTo(last.Value+avg*float64(ahead), 2),
			Confidence:  roundTo(math.Max(0.7-0.05*float64(ahead), 0.3), 2),
		}
		if score != nil && pp.Value > 0 && ageDays <= MaxAgeDays {
			r := score(Measurement{Date: pp.Date, AgeDays: ageDays, Type: trend.Type, Value: pp.Value})
			if r.Valid() {
				pp.Percentile = r.Percentile
			}
		}
		res.Projections = append(res.Projections, pp)
	}
	return res
}
