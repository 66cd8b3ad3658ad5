package growth

import (
	"context"
	"time"
)

// Comparison modes.
const (
	CompareAge        = "age"
	ComparePercentile = "percentile"
	CompareVelocity   = "velocity"
)

const velocityWindowMonths = 3

// ComparisonRequest selects what to compare a patient against.
type ComparisonRequest struct {
	Mode               string
	Type               MeasurementType
	ReferenceAgeMonths float64
	AsOf               time.Time
}

type AgeComparison struct {
	CurrentAgeDays     int     `json:"current_age_days"`
	CurrentAgeMonths   float64 `json:"current_age_months"`
	ReferenceAgeMonths float64 `json:"reference_age_months"`
	DifferenceMonths   float64 `json:"difference_months"`
	DifferenceDays     int     `json:"difference_days"`
}

type ComparisonResult struct {
	Mode             string           `json:"mode"`
	Status           string           `json:"status"`
	Message          string           `json:"message,omitempty"`
	Age              *AgeComparison   `json:"age,omitempty"`
	Measurement      *Measurement     `json:"measurement,omitempty"`
	Score            *ZScoreResult    `json:"score,omitempty"`
	Velocity         *VelocityResult  `json:"velocity,omitempty"`
	VelocityCategory VelocityCategory `json:"velocity_category,omitempty"`
}

// Compare runs one of the comparison modes for a patient. Unknown modes
// yield a result with Mode "unknown" rather than an error.
func (e *Engine) Compare(ctx context.Context, p *Patient, history []Measurement, req ComparisonRequest) (ComparisonResult, error) {
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	switch req.Mode {
	case CompareAge:
		return compareAge(p.AgeDaysAt(asOf), req.ReferenceAgeMonths), nil

	case ComparePercentile:
		latest, ok := latestMeasurement(history, req.Type)
		if !ok {
			return insufficient(req.Mode, "No measurements recorded for "+string(req.Type)), nil
		}
		score, err := e.ZScore(ctx, latest.Value, latest.AgeDays, p.Gender, req.Type)
		if err != nil {
			return ComparisonResult{}, err
		}
		return ComparisonResult{Mode: req.Mode, Status: StatusOK, Measurement: &latest, Score: &score}, nil

	case CompareVelocity:
		latest, ok := latestMeasurement(history, req.Type)
		if !ok {
			return insufficient(req.Mode, "No measurements recorded for "+string(req.Type)), nil
		}
		v := Velocity(history, req.Type, trailingWindow(latest.Date, velocityWindowMonths))
		if v == nil {
			return insufficient(req.Mode, "At least two measurements on different dates within the last 3 months are required"), nil
		}
		return ComparisonResult{
			Mode:             req.Mode,
			Status:           StatusOK,
			Velocity:         v,
			VelocityCategory: ClassifyVelocity(req.Type, v.PerMonth),
		}, nil
	}

	return ComparisonResult{
		Mode:    "unknown",
		Status:  "unknown",
		Message: "Unknown comparison type: " + req.Mode,
	}, nil
}

func compareAge(currentDays int, refMonths float64) ComparisonResult {
	cur := AgeMonths(currentDays)
	refDays := int(refMonths*DaysPerMonth + 0.5)
	return ComparisonResult{
		Mode:   CompareAge,
		Status: StatusOK,
		Age: &AgeComparison{
			CurrentAgeDays:     currentDays,
			CurrentAgeMonths:   cur,
			ReferenceAgeMonths: refMonths,
			DifferenceMonths:   roundTo(cur-refMonths, 2),
			DifferenceDays:     currentDays - refDays,
		},
	}
}

func insufficient(mode, msg string) ComparisonResult {
	return ComparisonResult{Mode: mode, Status: StatusInsufficientData, Message: msg}
}

func latestMeasurement(history []Measurement, t MeasurementType) (Measurement, bool) {
	sel := selectHistory(history, t, DateRange{})
	if len(sel) == 0 {
		return Measurement{}, false
	}
	return sel[len(sel)-1], true
}

// Position of a measurement relative to the reference median.
const (
	PositionAbove = "above"
	PositionBelow = "below"
	PositionAt    = "at"
)

// PopulationComparison places the latest measurement against the reference
// population of the same age and sex.
type PopulationComparison struct {
	Type                 MeasurementType `json:"type"`
	Status               string          `json:"status"`
	Message              string          `json:"message,omitempty"`
	Date                 time.Time       `json:"date,omitempty"`
	AgeDays              int             `json:"age_days,omitempty"`
	Value                float64         `json:"value,omitempty"`
	Median               float64         `json:"median,omitempty"`
	DifferenceFromMedian float64         `json:"difference_from_median"`
	PercentOfMedian      float64         `json:"percent_of_median,omitempty"`
	Position             string          `json:"position,omitempty"`
	Score                *ZScoreResult   `json:"score,omitempty"`
}

func (e *Engine) ComparePopulation(ctx context.Context, p *Patient, history []Measurement, t MeasurementType) (PopulationComparison, error) {
	out := PopulationComparison{Type: t}
	latest, ok := latestMeasurement(history, t)
	if !ok {
		out.Status = StatusInsufficientData
		out.Message = "No measurements recorded for " + string(t)
		return out, nil
	}
	score, err := e.ZScore(ctx, latest.Value, latest.AgeDays, p.Gender, t)
	if err != nil {
		return out, err
	}
	out.Date = latest.Date
	out.AgeDays = latest.AgeDays
	out.Value = latest.Value
	out.Score = &score
	if !score.Valid() || score.ReferenceValues == nil || score.ReferenceValues.Median <= 0 {
		out.Status = StatusInsufficientData
		out.Message = score.Classification
		return out, nil
	}

	median := score.ReferenceValues.Median
	diff := roundTo(latest.Value-median, 2)
	out.Status = StatusOK
	out.Median = median
	out.DifferenceFromMedian = diff
	out.PercentOfMedian = roundTo(latest.Value/median*100, 1)
	switch {
	case diff > 0:
		out.Position = PositionAbove
	case diff < 0:
		out.Position = PositionBelow
	default:
		out.Position = PositionAt
	}
	return out, nil
}
