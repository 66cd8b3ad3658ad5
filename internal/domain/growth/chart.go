package growth

import "context"

const referenceSource = "WHO Child Growth Standards"

type ChartPoint struct {
	AgeDays   int      `json:"age_days"`
	AgeMonths float64  `json:"age_months"`
	SD4Neg    *float64 `json:"sd4neg,omitempty"`
	SD3Neg    float64  `json:"sd3neg"`
	SD2Neg    float64  `json:"sd2neg"`
	SD1Neg    float64  `json:"sd1neg"`
	SD0       float64  `json:"sd0"`
	SD1       float64  `json:"sd1"`
	SD2       float64  `json:"sd2"`
	SD3       float64  `json:"sd3"`
	SD4       *float64 `json:"sd4,omitempty"`
}

type AgeRange struct {
	MinDays int `json:"min_days"`
	MaxDays int `json:"max_days"`
}

type ChartMetadata struct {
	Gender       Gender          `json:"gender"`
	Type         MeasurementType `json:"type"`
	Unit         string          `json:"unit"`
	Source       string          `json:"source"`
	PointCount   int             `json:"point_count"`
	Interpolated bool            `json:"interpolated"`
	StepDays     int             `json:"step_days,omitempty"`
}

// ChartSeries is a reference curve ready for plotting percentile bands.
type ChartSeries struct {
	Points   []ChartPoint  `json:"points"`
	AgeRange AgeRange      `json:"age_range"`
	Metadata ChartMetadata `json:"metadata"`
}

// ChartSeries returns the reference curve for g and t. With stepDays > 0 the
// curve is resampled every stepDays through the interpolator; otherwise the
// raw table rows are returned.
func (e *Engine) ChartSeries(ctx context.Context, g Gender, t MeasurementType, stepDays int) (ChartSeries, error) {
	meta := ChartMetadata{Gender: g, Type: t, Unit: t.Unit(), Source: referenceSource}
	if !g.Valid() || !t.Valid() {
		return ChartSeries{Points: []ChartPoint{}, Metadata: meta}, nil
	}
	series, err := e.refs.Series(ctx, g, t)
	if err != nil {
		return ChartSeries{}, err
	}
	return BuildChart(series, stepDays), nil
}

// BuildChart converts a reference series into chart points.
func BuildChart(series *ReferenceSeries, stepDays int) ChartSeries {
	out := ChartSeries{
		Points: []ChartPoint{},
		Metadata: ChartMetadata{
			Gender: series.Gender,
			Type:   series.Type,
			Unit:   series.Type.Unit(),
			Source: referenceSource,
		},
	}
	if series.Len() == 0 {
		return out
	}

	minAge := series.Points[0].AgeDays
	maxAge := series.Points[series.Len()-1].AgeDays
	out.AgeRange = AgeRange{MinDays: minAge, MaxDays: maxAge}

	if stepDays <= 0 {
		for _, p := range series.Points {
			out.Points = append(out.Points, chartPoint(p))
		}
	} else {
		out.Metadata.Interpolated = true
		out.Metadata.StepDays = stepDays
		for age := minAge; age <= maxAge; age += stepDays {
			lk := Lookup(series, age)
			out.Points = append(out.Points, chartPoint(*lk.Point))
		}
		if out.Points[len(out.Points)-1].AgeDays != maxAge {
			out.Points = append(out.Points, chartPoint(series.Points[series.Len()-1]))
		}
	}
	out.Metadata.PointCount = len(out.Points)
	return out
}

func chartPoint(p ReferencePoint) ChartPoint {
	return ChartPoint{
		AgeDays:   p.AgeDays,
		AgeMonths: AgeMonths(p.AgeDays),
		SD4Neg:    p.SD4Neg,
		SD3Neg:    p.SD3Neg,
		SD2Neg:    p.SD2Neg,
		SD1Neg:    p.SD1Neg,
		SD0:       p.SD0,
		SD1:       p.SD1,
		SD2:       p.SD2,
		SD3:       p.SD3,
		SD4:       p.SD4,
	}
}
