package growth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	patients     PatientRepository
	measurements MeasurementRepository
	engine       *Engine
	logger       zerolog.Logger
}

func NewService(patients PatientRepository, measurements MeasurementRepository, engine *Engine, logger zerolog.Logger) *Service {
	return &Service{
		patients:     patients,
		measurements: measurements,
		engine:       engine,
		logger:       logger.With().Str("component", "growth_service").Logger(),
	}
}

func (s *Service) Engine() *Engine {
	return s.engine
}

// -- Measurements --

// RecordMeasurement derives the age at measurement, scores it and stores the
// measurement together with its Z-score, percentile and classification.
// A measurement that cannot be scored is still stored without scores.
func (s *Service) RecordMeasurement(ctx context.Context, m *Measurement) error {
	if m.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient_id is required", ErrInvalidMeasurement)
	}
	if !m.Type.Valid() {
		return fmt.Errorf("%w: unknown measurement type %q", ErrInvalidMeasurement, m.Type)
	}
	if !(m.Value > 0) {
		return fmt.Errorf("%w: value must be positive", ErrInvalidMeasurement)
	}
	if m.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidMeasurement)
	}

	p, err := s.patients.GetByID(ctx, m.PatientID)
	if err != nil {
		return err
	}
	m.AgeDays = p.AgeDaysAt(m.Date)
	if m.AgeDays < 0 {
		return fmt.Errorf("%w: date precedes date of birth", ErrInvalidMeasurement)
	}

	res, err := s.engine.ZScore(ctx, m.Value, m.AgeDays, p.Gender, m.Type)
	if err != nil {
		return err
	}
	m.ZScore, m.Percentile, m.Classification = nil, nil, nil
	if res.Valid() {
		cls := res.Classification
		m.ZScore = res.ZScore
		m.Percentile = res.Percentile
		m.Classification = &cls
	} else {
		s.logger.Warn().
			Str("patient_id", m.PatientID.String()).
			Str("type", string(m.Type)).
			Int("age_days", m.AgeDays).
			Str("reason", res.Classification).
			Msg("measurement stored without score")
	}
	return s.measurements.Create(ctx, m)
}

func (s *Service) GetMeasurement(ctx context.Context, id uuid.UUID) (*Measurement, error) {
	return s.measurements.GetByID(ctx, id)
}

func (s *Service) ListMeasurements(ctx context.Context, patientID uuid.UUID, t *MeasurementType, limit, offset int) ([]*Measurement, int, error) {
	return s.measurements.ListByPatient(ctx, patientID, t, limit, offset)
}

func (s *Service) patientHistory(ctx context.Context, patientID uuid.UUID, t MeasurementType) (*Patient, []Measurement, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, nil, err
	}
	history, err := s.measurements.History(ctx, patientID, t)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s history: %w", t, err)
	}
	return p, history, nil
}

// -- Patient growth views --

func (s *Service) Percentile(ctx context.Context, patientID uuid.UUID, t MeasurementType) (ComparisonResult, error) {
	return s.Compare(ctx, patientID, ComparisonRequest{Mode: ComparePercentile, Type: t})
}

func (s *Service) Trend(ctx context.Context, patientID uuid.UUID, t MeasurementType, rng DateRange) (TrendResult, error) {
	p, history, err := s.patientHistory(ctx, patientID, t)
	if err != nil {
		return TrendResult{}, err
	}
	return s.engine.Trend(ctx, p.Gender, history, t, rng)
}

// Velocity returns nil when the patient has too few measurements in rng.
func (s *Service) Velocity(ctx context.Context, patientID uuid.UUID, t MeasurementType, rng DateRange) (*VelocityResult, error) {
	_, history, err := s.patientHistory(ctx, patientID, t)
	if err != nil {
		return nil, err
	}
	return s.engine.Velocity(history, t, rng), nil
}

func (s *Service) Projection(ctx context.Context, patientID uuid.UUID, t MeasurementType, horizonMonths int) (ProjectionResult, error) {
	p, history, err := s.patientHistory(ctx, patientID, t)
	if err != nil {
		return ProjectionResult{}, err
	}
	return s.engine.Projection(ctx, p.Gender, history, t, horizonMonths)
}

func (s *Service) Compare(ctx context.Context, patientID uuid.UUID, req ComparisonRequest) (ComparisonResult, error) {
	var history []Measurement
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return ComparisonResult{}, err
	}
	if req.Mode != CompareAge && req.Type.Valid() {
		if history, err = s.measurements.History(ctx, patientID, req.Type); err != nil {
			return ComparisonResult{}, fmt.Errorf("load %s history: %w", req.Type, err)
		}
	}
	if req.AsOf.IsZero() {
		req.AsOf = time.Now()
	}
	return s.engine.Compare(ctx, p, history, req)
}

func (s *Service) ComparePopulation(ctx context.Context, patientID uuid.UUID, t MeasurementType) (PopulationComparison, error) {
	p, history, err := s.patientHistory(ctx, patientID, t)
	if err != nil {
		return PopulationComparison{}, err
	}
	return s.engine.ComparePopulation(ctx, p, history, t)
}

// PatientChart is a reference curve with the patient's own points overlaid.
type PatientChart struct {
	PatientID uuid.UUID    `json:"patient_id"`
	Reference ChartSeries  `json:"reference"`
	Points    []TrendPoint `json:"points"`
}

func (s *Service) Chart(ctx context.Context, patientID uuid.UUID, t MeasurementType, stepDays int) (PatientChart, error) {
	p, history, err := s.patientHistory(ctx, patientID, t)
	if err != nil {
		return PatientChart{}, err
	}
	ref, err := s.engine.ChartSeries(ctx, p.Gender, t, stepDays)
	if err != nil {
		return PatientChart{}, err
	}
	trend, err := s.engine.Trend(ctx, p.Gender, history, t, DateRange{})
	if err != nil {
		return PatientChart{}, err
	}
	return PatientChart{PatientID: p.ID, Reference: ref, Points: trend.Points}, nil
}

// -- Ad-hoc scoring --

func (s *Service) ZScore(ctx context.Context, value float64, ageDays int, g Gender, t MeasurementType) (ZScoreResult, error) {
	return s.engine.ZScore(ctx, value, ageDays, g, t)
}

// ScreenBatch scores a screening batch; one bad item never fails the batch.
func (s *Service) ScreenBatch(ctx context.Context, items []BatchItem) (BatchResult, error) {
	res, err := s.engine.ZScoresBatch(ctx, items)
	if err != nil {
		return res, err
	}
	s.logger.Info().
		Int("total", res.Statistics.Total).
		Int("valid", res.Statistics.Valid).
		Int("invalid", res.Statistics.Invalid).
		Msg("screening batch scored")
	return res, nil
}

func (s *Service) ChartSeries(ctx context.Context, g Gender, t MeasurementType, stepDays int) (ChartSeries, error) {
	return s.engine.ChartSeries(ctx, g, t, stepDays)
}
