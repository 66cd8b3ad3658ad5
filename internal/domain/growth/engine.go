package growth

import "context"

// Engine is the growth-standards API used by the clinic services. It
// combines the process-wide reference store with a stateless calculator.
// Errors returned by Engine methods come only from loading reference data.
type Engine struct {
	refs *ReferenceStore
	calc *Calculator
}

func NewEngine(refs *ReferenceStore, calc *Calculator) *Engine {
	if calc == nil {
		calc = NewCalculator(CalculatorOptions{})
	}
	return &Engine{refs: refs, calc: calc}
}

// References exposes the underlying store, e.g. for warm-up.
func (e *Engine) References() *ReferenceStore {
	return e.refs
}

// ZScore scores one measurement.
func (e *Engine) ZScore(ctx context.Context, value float64, ageDays int, g Gender, t MeasurementType) (ZScoreResult, error) {
	if !g.Valid() || !t.Valid() {
		return unassessed(ClassInvalidInput), nil
	}
	series, err := e.refs.Series(ctx, g, t)
	if err != nil {
		return ZScoreResult{}, err
	}
	return e.calc.Calculate(series, value, ageDays), nil
}

func (e *Engine) scorer(ctx context.Context, g Gender, t MeasurementType) (ScoreFunc, error) {
	if !g.Valid() || !t.Valid() {
		return func(Measurement) ZScoreResult { return unassessed(ClassInvalidInput) }, nil
	}
	series, err := e.refs.Series(ctx, g, t)
	if err != nil {
		return nil, err
	}
	return func(m Measurement) ZScoreResult {
		return e.calc.Calculate(series, m.Value, m.AgeDays)
	}, nil
}

// Trend places a patient's history of type t on the reference curve.
func (e *Engine) Trend(ctx context.Context, g Gender, history []Measurement, t MeasurementType, rng DateRange) (TrendResult, error) {
	score, err := e.scorer(ctx, g, t)
	if err != nil {
		return TrendResult{}, err
	}
	return BuildTrend(history, t, rng, score), nil
}

// Velocity is the growth rate between the first and last measurement in rng,
// or nil when the history cannot support one.
func (e *Engine) Velocity(history []Measurement, t MeasurementType, rng DateRange) *VelocityResult {
	return Velocity(history, t, rng)
}

// Projection extrapolates the most recent trend horizonMonths ahead.
func (e *Engine) Projection(ctx context.Context, g Gender, history []Measurement, t MeasurementType, horizonMonths int) (ProjectionResult, error) {
	score, err := e.scorer(ctx, g, t)
	if err != nil {
		return ProjectionResult{}, err
	}
	trend := BuildTrend(history, t, DateRange{}, score)
	return Project(trend, horizonMonths, score), nil
}
