package growth

import "math"

// CalculatorOptions configures a Calculator.
type CalculatorOptions struct {
	// Diagnostics adds the LMS parameters, age used and clamping flag to
	// every result.
	Diagnostics bool
	Classifier  Classifier
}

// Calculator converts measurements into Z-scores and percentiles. It holds
// no mutable state and is safe for concurrent use.
type Calculator struct {
	diagnostics bool
	classifier  Classifier
}

func NewCalculator(opts CalculatorOptions) *Calculator {
	c := &Calculator{diagnostics: opts.Diagnostics, classifier: opts.Classifier}
	if c.classifier == nil {
		c.classifier = UniformClassifier{}
	}
	return c
}

// Calculate scores value against series at ageDays. It never panics or
// returns an error: clinical edge cases produce a result with a nil ZScore
// and an explanatory Classification.
func (c *Calculator) Calculate(series *ReferenceSeries, value float64, ageDays int) ZScoreResult {
	if !(value > 0) || math.IsInf(value, 0) || ageDays < 0 || ageDays > MaxAgeDays {
		return unassessed(ClassInvalidInput)
	}

	lk := Lookup(series, ageDays)
	if lk.Point == nil {
		return unassessed(ClassNoReferenceData)
	}
	p := lk.Point
	if !(p.M > 0) || !(p.S > 0) {
		return unassessed(ClassInvalidReference)
	}

	z := roundTo(LMSZScore(value, p.L, p.M, p.S), 2)
	pct := Percentile(z)
	var t MeasurementType
	if series != nil {
		t = series.Type
	}
	band := c.classifier.Classify(t, z)

	res := ZScoreResult{
		ZScore:         &z,
		Percentile:     &pct,
		Classification: band.Classification,
		Severity:       band.Severity,
		Recommendation: band.Recommendation,
		ExactMatch:     lk.ExactMatch,
		Interpolated:   lk.Interpolated,
		ReferenceValues: &ReferenceValues{
			Median: p.SD0,
			SD1Neg: p.SD1Neg,
			SD1:    p.SD1,
			SD2Neg: p.SD2Neg,
			SD2:    p.SD2,
			SD3Neg: p.SD3Neg,
			SD3:    p.SD3,
		},
	}
	if c.diagnostics {
		res.LMS = &LMSParams{L: p.L, M: p.M, S: p.S}
		res.AgeDays = ptrInt(ageDays)
		res.Clamped = lk.Clamped
	}
	return res
}

func unassessed(classification string) ZScoreResult {
	return ZScoreResult{
		Classification: classification,
		Severity:       SeverityUnknown,
	}
}

// LMSZScore applies the Box-Cox transform. Non-finite results are clamped
// to +10 or -10 depending on which side of the median value lies.
func LMSZScore(value, l, m, s float64) float64 {
	var z float64
	if math.Abs(l) < 1e-12 {
		z = math.Log(value/m) / s
	} else {
		z = (math.Pow(value/m, l) - 1) / (l * s)
	}
	if math.IsNaN(z) || math.IsInf(z, 0) {
		if value >= m {
			return 10
		}
		return -10
	}
	return z
}

// Zelen & Severo (Abramowitz & Stegun 26.2.17) coefficients.
const (
	csP  = 0.2316419
	csB1 = 0.319381530
	csB2 = -0.356563782
	csB3 = 1.781477937
	csB4 = -1.821255978
	csB5 = 1.330274429
)

const (
	minPercentile = 0.01
	maxPercentile = 99.99
)

// Percentile converts a Z-score to a percentile in [0.01, 99.99], rounded to
// two decimals.
func Percentile(z float64) float64 {
	switch {
	case math.IsNaN(z):
		return 50
	case z < -6:
		return minPercentile
	case z > 6:
		return maxPercentile
	}
	pct := roundTo(normalCDF(z)*100, 2)
	return math.Min(math.Max(pct, minPercentile), maxPercentile)
}

func normalCDF(z float64) float64 {
	x := math.Abs(z)
	t := 1 / (1 + csP*x)
	pdf := math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
	poly := t * (csB1 + t*(csB2+t*(csB3+t*(csB4+t*csB5))))
	upper := 1 - pdf*poly
	if z < 0 {
		return 1 - upper
	}
	return upper
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
